package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Renderer fetches a page through headless Chrome for merchants that serve
// an empty shell to plain HTTP clients.
type Renderer struct {
	timeout time.Duration
	log     *logrus.Logger
}

func NewRenderer(timeout time.Duration, log *logrus.Logger) *Renderer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Renderer{timeout: timeout, log: log}
}

// Render navigates to url and returns the post-JavaScript outer HTML.
func (r *Renderer) Render(ctx context.Context, url, userAgent string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(userAgent),
			chromedp.Flag("headless", true),
		)...,
	)
	defer cancelAlloc()

	chromeCtx, cancelChrome := chromedp.NewContext(allocCtx)
	defer cancelChrome()

	chromeCtx, cancelTimeout := context.WithTimeout(chromeCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(chromeCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	r.log.WithField("url", url).Debug("rendered page with headless browser")
	return html, nil
}
