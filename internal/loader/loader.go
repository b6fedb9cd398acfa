package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url")
	// ErrExcluded is returned for URLs matching an exclude pattern.
	ErrExcluded = errors.New("url excluded by pattern")
	// ErrEmptyContent is returned when a page yields no readable text.
	ErrEmptyContent = errors.New("no text content")
)

// ProgressFunc is called after each URL is processed.
type ProgressFunc func(done, total int, url string)

// Options configures a Loader.
type Options struct {
	Concurrency int
	// Timeout bounds each fetch. Zero means no per-URL limit.
	Timeout time.Duration
	// Exclude holds doublestar patterns matched against "host/path".
	Exclude []string
	// PerHostRPS limits request rate per host. Zero disables limiting.
	PerHostRPS float64
	OnProgress ProgressFunc
}

// Loader fetches URLs concurrently and normalises them into Documents.
type Loader struct {
	fetcher     Fetcher
	concurrency int
	timeout     time.Duration
	exclude     []string
	limiter     *hostLimiter
	onProgress  ProgressFunc
	now         func() time.Time
}

// New creates a Loader. Exclude patterns are validated up front.
func New(fetcher Fetcher, opts Options) (*Loader, error) {
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Loader{
		fetcher:     fetcher,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		exclude:     opts.Exclude,
		limiter:     newHostLimiter(opts.PerHostRPS),
		onProgress:  opts.OnProgress,
		now:         time.Now,
	}, nil
}

// FetcherName reports which fetcher backs this loader.
func (l *Loader) FetcherName() string { return l.fetcher.Name() }

// Load fetches every URL. A URL that cannot be loaded is reported as a
// LoadFailure and does not affect the others. Documents are returned in the
// order of their URLs.
func (l *Loader) Load(ctx context.Context, urls []string) ([]Document, []LoadFailure) {
	total := len(urls)
	if total == 0 {
		return nil, nil
	}

	docs := make([]*Document, total)
	errs := make([]error, total)

	sem := make(chan struct{}, l.concurrency)
	var processed int64
	var wg sync.WaitGroup

	report := func(u string) {
		n := atomic.AddInt64(&processed, 1)
		if l.onProgress != nil {
			l.onProgress(int(n), total, u)
		}
	}

	for i, u := range urls {
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			report(u)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-sem }()

			docs[i], errs[i] = l.loadOne(ctx, u)
			report(u)
		}(i, u)
	}
	wg.Wait()

	var out []Document
	var failures []LoadFailure
	for i, u := range urls {
		if errs[i] != nil {
			failures = append(failures, LoadFailure{URL: u, Err: errs[i]})
			continue
		}
		out = append(out, *docs[i])
	}
	return out, failures
}

func (l *Loader) loadOne(ctx context.Context, raw string) (*Document, error) {
	u, host, err := l.check(raw)
	if err != nil {
		return nil, err
	}
	if err := l.limiter.Wait(ctx, host); err != nil {
		return nil, err
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	page, err := l.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	title, body := normalize(page)
	if body == "" {
		return nil, ErrEmptyContent
	}

	return &Document{
		SourceURL:   u,
		Title:       title,
		Text:        body,
		ContentType: page.ContentType,
		FetchedAt:   l.now(),
	}, nil
}

// check validates a URL and applies the exclude patterns. It returns the
// trimmed URL used as the document source and its host.
func (l *Loader) check(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	target := u.Host + u.Path
	for _, p := range l.exclude {
		if ok, _ := doublestar.Match(p, target); ok {
			return "", "", fmt.Errorf("%w %q", ErrExcluded, p)
		}
	}
	return raw, u.Host, nil
}
