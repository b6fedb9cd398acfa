package loader

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome so that content produced
// by page scripts is captured. A Chrome or Chromium binary must be on PATH.
type BrowserFetcher struct {
	allocOpts []chromedp.ExecAllocatorOption
}

// NewBrowserFetcher creates a BrowserFetcher using the given user agent.
func NewBrowserFetcher(userAgent string) *BrowserFetcher {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	return &BrowserFetcher{allocOpts: opts}
}

func (f *BrowserFetcher) Name() string { return "browser" }

// Fetch navigates to url, waits for the body to be ready and returns the
// rendered document HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}

	return &Page{
		URL:         url,
		Body:        []byte(html),
		ContentType: "text/html",
	}, nil
}
