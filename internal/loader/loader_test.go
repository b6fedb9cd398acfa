package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<!DOCTYPE html>
<html>
<head><title>Mortgage Rates &amp; Trends</title><style>body{color:red}</style></head>
<body>
<nav>Home</nav>
<script>var tracking = true;</script>
<h1>Rates today</h1>
<p>The 30-year fixed rate fell to 6.8%.</p>
<!-- ad slot -->
<p>Analysts expect&nbsp;further   easing.</p>
</body>
</html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rates", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, listingHTML)
	})
	mux.HandleFunc("/notes.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprint(w, "# Housing Notes\n\nInventory rose **4%** in March.\n\n- Prices flat\n- Sales up\n")
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "line one\n\n\n\nline   two\n")
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><script>x()</script></body></html>")
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secret")
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, r.Header.Get("User-Agent"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newLoader(t *testing.T, opts Options) *Loader {
	t.Helper()
	l, err := New(NewHTTPFetcher(5*time.Second, "propwise-test/1.0"), opts)
	require.NoError(t, err)
	return l
}

func TestLoadHTML(t *testing.T) {
	srv := newSite(t)
	l := newLoader(t, Options{Concurrency: 2})

	docs, failures := l.Load(context.Background(), []string{srv.URL + "/rates"})
	require.Empty(t, failures)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, srv.URL+"/rates", doc.SourceURL)
	assert.Equal(t, "Mortgage Rates & Trends", doc.Title)
	assert.Contains(t, doc.Text, "The 30-year fixed rate fell to 6.8%.")
	assert.Contains(t, doc.Text, "Analysts expect further easing.")
	assert.Contains(t, doc.Text, "Rates today\n\nThe 30-year fixed rate fell to 6.8%.\n\nAnalysts")
	assert.NotContains(t, doc.Text, "tracking")
	assert.NotContains(t, doc.Text, "ad slot")
	assert.NotContains(t, doc.Text, "color:red")
	assert.False(t, doc.FetchedAt.IsZero())
}

func TestLoadMarkdownAndPlain(t *testing.T) {
	srv := newSite(t)
	l := newLoader(t, Options{})

	docs, failures := l.Load(context.Background(), []string{srv.URL + "/notes.md", srv.URL + "/plain"})
	require.Empty(t, failures)
	require.Len(t, docs, 2)

	assert.Equal(t, "Housing Notes", docs[0].Title)
	assert.Contains(t, docs[0].Text, "Inventory rose 4% in March.")
	assert.Contains(t, docs[0].Text, "Prices flat")
	assert.NotContains(t, docs[0].Text, "**")

	assert.Equal(t, "line one\n\nline two", docs[1].Text)
}

func TestNormalizeKeepsParagraphBreaks(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want string
	}{
		{
			name: "html paragraphs",
			page: Page{ContentType: "text/html", Body: []byte("<p>First paragraph.</p><p>Second paragraph.</p>")},
			want: "First paragraph.\n\nSecond paragraph.",
		},
		{
			name: "html headings and list items",
			page: Page{ContentType: "text/html", Body: []byte("<h2>Rates</h2><ul><li>Fixed</li><li>Variable</li></ul>")},
			want: "Rates\n\nFixed\n\nVariable",
		},
		{
			name: "html line break stays a line break",
			page: Page{ContentType: "text/html", Body: []byte("<p>12 Oak St<br>Springfield</p>")},
			want: "12 Oak St\nSpringfield",
		},
		{
			name: "plain blank lines collapse to one break",
			page: Page{ContentType: "text/plain", Body: []byte("\n\nPara one.\n\n\n  \nPara two.\nSame para.\n\n")},
			want: "Para one.\n\nPara two.\nSame para.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := normalize(&tt.page)
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestLoadIsolatesFailures(t *testing.T) {
	srv := newSite(t)
	l := newLoader(t, Options{Concurrency: 3, Exclude: []string{"**/login"}})

	urls := []string{
		srv.URL + "/rates",
		srv.URL + "/missing",
		"not a url",
		srv.URL + "/empty",
		srv.URL + "/login",
		srv.URL + "/plain",
	}
	docs, failures := l.Load(context.Background(), urls)

	require.Len(t, docs, 2)
	assert.Equal(t, srv.URL+"/rates", docs[0].SourceURL)
	assert.Equal(t, srv.URL+"/plain", docs[1].SourceURL)

	require.Len(t, failures, 4)
	byURL := map[string]error{}
	for _, f := range failures {
		byURL[f.URL] = f.Err
	}
	assert.ErrorContains(t, byURL[srv.URL+"/missing"], "404")
	assert.ErrorIs(t, byURL["not a url"], ErrInvalidURL)
	assert.ErrorIs(t, byURL[srv.URL+"/empty"], ErrEmptyContent)
	assert.ErrorIs(t, byURL[srv.URL+"/login"], ErrExcluded)
}

func TestLoadSendsUserAgent(t *testing.T) {
	srv := newSite(t)
	l := newLoader(t, Options{})

	docs, failures := l.Load(context.Background(), []string{srv.URL + "/ua"})
	require.Empty(t, failures)
	require.Len(t, docs, 1)
	assert.Equal(t, "propwise-test/1.0", docs[0].Text)
}

func TestLoadCancelledContext(t *testing.T) {
	srv := newSite(t)
	l := newLoader(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, failures := l.Load(ctx, []string{srv.URL + "/rates"})
	assert.Empty(t, docs)
	require.Len(t, failures, 1)
	assert.True(t, errors.Is(failures[0].Err, context.Canceled))
}

func TestLoadProgress(t *testing.T) {
	srv := newSite(t)

	var mu sync.Mutex
	var calls []int
	l := newLoader(t, Options{
		Concurrency: 2,
		OnProgress: func(done, total int, url string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 3, total)
			calls = append(calls, done)
		},
	})

	l.Load(context.Background(), []string{srv.URL + "/rates", srv.URL + "/plain", srv.URL + "/notes.md"})
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)
}

func TestHTTPFetcherRejectsOversizedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("a", 32))
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(5*time.Second, "")
	f.maxBytes = 32
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, page.Body, 32)

	f.maxBytes = 31
	_, err = f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrPageTooLarge)

	l, err := New(f, Options{})
	require.NoError(t, err)
	docs, failures := l.Load(context.Background(), []string{srv.URL})
	assert.Empty(t, docs)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, ErrPageTooLarge)
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(NewHTTPFetcher(time.Second, ""), Options{Exclude: []string{"[unclosed"}})
	assert.Error(t, err)
}

type stubFetcher struct {
	pages map[string]*Page
}

func (s *stubFetcher) Name() string { return "stub" }

func (s *stubFetcher) Fetch(_ context.Context, url string) (*Page, error) {
	p, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return p, nil
}

func TestDetectKindFallbacks(t *testing.T) {
	f := &stubFetcher{pages: map[string]*Page{
		"https://example.com/a.md?ref=1": {
			URL:  "https://example.com/a.md?ref=1",
			Body: []byte("## Title\n\nBody text"),
		},
		"https://example.com/sniffed": {
			URL:  "https://example.com/sniffed",
			Body: []byte("<!DOCTYPE html><html><body><p>Sniffed</p></body></html>"),
		},
	}}
	l, err := New(f, Options{})
	require.NoError(t, err)

	docs, failures := l.Load(context.Background(), []string{"https://example.com/a.md?ref=1", "https://example.com/sniffed"})
	require.Empty(t, failures)
	require.Len(t, docs, 2)
	assert.Equal(t, "Title", docs[0].Title)
	assert.Equal(t, "Title\n\nBody text", docs[0].Text)
	assert.Equal(t, "Sniffed", docs[1].Text)
	assert.Equal(t, "stub", l.FetcherName())
}

func TestHostLimiter(t *testing.T) {
	var none *hostLimiter
	assert.NoError(t, none.Wait(context.Background(), "example.com"))
	assert.Nil(t, newHostLimiter(0))

	h := newHostLimiter(0.001)
	require.NoError(t, h.Wait(context.Background(), "example.com"))

	// The burst is spent, so a second request to the same host must wait
	// far longer than the deadline allows.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, h.Wait(ctx, "example.com"))

	// Other hosts are unaffected.
	assert.NoError(t, h.Wait(context.Background(), "other.example.com"))
}

func TestLoadFailureJSON(t *testing.T) {
	f := LoadFailure{URL: "https://a.example", Err: ErrEmptyContent}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"https://a.example","error":"no text content"}`, string(data))
	assert.ErrorIs(t, f, ErrEmptyContent)
}
