package loader

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is the text content scraped from a single URL.
type Document struct {
	SourceURL   string
	Title       string
	Text        string
	ContentType string
	FetchedAt   time.Time
}

// LoadFailure records a URL that could not be turned into a Document.
type LoadFailure struct {
	URL string
	Err error
}

func (f LoadFailure) Error() string {
	return fmt.Sprintf("load %s: %v", f.URL, f.Err)
}

func (f LoadFailure) Unwrap() error { return f.Err }

// MarshalJSON renders the failure as {"url": ..., "error": ...}.
func (f LoadFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}{f.URL, msg})
}

// Page is the raw response captured by a Fetcher.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
}
