// Package fetcher performs browser-impersonating HTTP requests against
// merchant pages. Every failure mode (timeout, transport error, bad status)
// collapses into ErrFetchFailed so callers treat a missing page as a normal
// outcome, not an exception.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wishr/metaext/internal/config"
)

// ErrFetchFailed is the single failure signal for page fetches.
var ErrFetchFailed = errors.New("fetch failed")

// Page is the raw outcome of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	HTML       string
	StatusCode int
}

// Options tune a single request.
type Options struct {
	// UserAgent overrides the rotating pool when non-empty.
	UserAgent string
	// Cookie is sent verbatim; some merchants need a locale/currency cookie.
	Cookie string
	// Timeout overrides the client default when non-zero.
	Timeout time.Duration
}

// Plausible search-engine referrers, picked at random per request.
var referrers = []string{
	"https://www.google.es/",
	"https://www.google.com/",
	"https://www.bing.com/",
	"https://duckduckgo.com/",
}

const maxBodyBytes = 4 << 20

// Client fetches pages with retries, backoff and an outbound rate budget.
// It is safe for concurrent use.
type Client struct {
	http        *http.Client
	agents      *AgentPool
	limiter     *rate.Limiter
	log         *logrus.Logger
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	acceptLang  string
	userAgent   string
	renderer    *Renderer
	renderMode  string
}

// New builds a Client from configuration.
func New(cfg *config.Config, log *logrus.Logger) *Client {
	timeout := time.Duration(cfg.Network.Timeout) * time.Second
	c := &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		agents:      NewAgentPool(),
		limiter:     rate.NewLimiter(rate.Limit(cfg.Network.RequestsPerSecond), 2),
		log:         log,
		timeout:     timeout,
		maxAttempts: cfg.Network.MaxAttempts,
		backoff:     time.Duration(cfg.Network.BackoffMillis) * time.Millisecond,
		acceptLang:  cfg.Network.AcceptLanguage,
		userAgent:   cfg.Network.UserAgent,
		renderMode:  cfg.Extraction.EnableJavaScript,
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	if c.renderMode == "always" || c.renderMode == "auto" {
		c.renderer = NewRenderer(time.Duration(cfg.Extraction.JSTimeout)*time.Second, log)
	}
	return c
}

// Page fetches rawURL and returns its HTML. Transport errors and 5xx
// responses are retried with exponential backoff; any other non-2xx status
// is terminal for the URL. When JS rendering is enabled and the static
// response looks like an empty app shell, the page is re-fetched through a
// headless browser.
func (c *Client) Page(ctx context.Context, rawURL string, opts Options) (*Page, error) {
	if c.renderMode == "always" && c.renderer != nil {
		return c.renderPage(ctx, rawURL, opts)
	}

	page, err := c.static(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	if c.renderMode == "auto" && c.renderer != nil && LooksLikeAppShell(page.HTML) {
		if rendered, rerr := c.renderPage(ctx, rawURL, opts); rerr == nil {
			return rendered, nil
		}
		// Rendering is best effort; the static shell is still a page.
	}
	return page, nil
}

func (c *Client) static(ctx context.Context, rawURL string, opts Options) (*Page, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff * (1 << (attempt - 1))
			c.log.WithFields(logrus.Fields{"url": rawURL, "attempt": attempt + 1, "wait": wait}).Debug("retrying fetch")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrFetchFailed, ctx.Err())
			}
		}

		page, retryable, err := c.once(ctx, rawURL, opts)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrFetchFailed, lastErr)
}

// once performs a single GET. The bool reports whether the failure is worth
// retrying (transport error or 5xx).
func (c *Client) once(ctx context.Context, rawURL string, opts Options) (*Page, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	c.setHeaders(req, opts)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode >= 500, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, err
	}

	return &Page{
		URL:        rawURL,
		FinalURL:   resp.Request.URL.String(),
		HTML:       string(body),
		StatusCode: resp.StatusCode,
	}, false, nil
}

// Head issues a single HEAD request and reports the status code. Used to
// verify that a constructed CDN image URL actually exists. Never retried.
func (c *Client) Head(ctx context.Context, rawURL string, opts Options) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	c.setHeaders(req, opts)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) setHeaders(req *http.Request, opts Options) {
	ua := opts.UserAgent
	if ua == "" {
		ua = c.userAgent
	}
	if ua == "" {
		ua = c.agents.Random()
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.acceptLang)
	req.Header.Set("Referer", referrers[rand.Intn(len(referrers))])
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Cache-Control", "max-age=0")
	if opts.Cookie != "" {
		req.Header.Set("Cookie", opts.Cookie)
	}
}

func (c *Client) renderPage(ctx context.Context, rawURL string, opts Options) (*Page, error) {
	ua := opts.UserAgent
	if ua == "" {
		ua = c.agents.Random()
	}
	html, err := c.renderer.Render(ctx, rawURL, ua)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return &Page{URL: rawURL, FinalURL: rawURL, HTML: html, StatusCode: http.StatusOK}, nil
}

// LooksLikeAppShell reports whether static HTML is probably an empty
// client-rendered shell that needs a browser to fill in.
func LooksLikeAppShell(html string) bool {
	lower := strings.ToLower(html)
	body := bodyContent(lower)
	scripts := strings.Count(lower, "<script")
	if scripts > 5 && len(strings.TrimSpace(stripTags(body))) < 500 {
		return true
	}
	if strings.Contains(body, "enable javascript") || strings.Contains(body, "activa javascript") {
		return true
	}
	return false
}

func bodyContent(lower string) string {
	start := strings.Index(lower, "<body")
	if start == -1 {
		return lower
	}
	if gt := strings.IndexByte(lower[start:], '>'); gt != -1 {
		start += gt + 1
	}
	end := strings.Index(lower[start:], "</body>")
	if end == -1 {
		return lower[start:]
	}
	return lower[start : start+end]
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
