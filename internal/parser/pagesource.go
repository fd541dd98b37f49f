package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	switchRegionPath = "shop/update_region"
	maxErrorBodySize = 2048
)

// ErrStatus matches every StatusError.
var ErrStatus = errors.New("unexpected status code")

// StatusError is returned when the storefront answers with a non-success status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code error: [%d] %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Options configures the HTTP page source.
type Options struct {
	BaseURL           string
	Cookie            string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// PageSource fetches storefront pages with the session cookie and parses them.
type PageSource struct {
	log       *slog.Logger
	client    *http.Client
	baseURL   *url.URL
	cookie    string
	userAgent string
	limiter   *rate.Limiter
}

// NewPageSource builds a page source for the storefront at opts.BaseURL.
func NewPageSource(log *slog.Logger, opts Options) (*PageSource, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %s: %w", opts.BaseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &PageSource{
		log:       log,
		client:    &http.Client{Timeout: opts.Timeout},
		baseURL:   base,
		cookie:    opts.Cookie,
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
	}, nil
}

// Resolve turns a path or relative reference into an absolute storefront URL.
func (p *PageSource) Resolve(ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse reference %s: %w", ref, err)
	}

	return p.baseURL.ResolveReference(parsed).String(), nil
}

// Fetch downloads the page at rawURL and parses it.
func (p *PageSource) Fetch(ctx context.Context, rawURL string) (Document, error) {
	target, err := p.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", target, err)
	}

	res, err := p.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	doc, err := ParseDocument(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", target, err)
	}

	return doc, nil
}

// SwitchRegion changes the session's active region.
func (p *PageSource) SwitchRegion(ctx context.Context, code, csrfToken string) error {
	target, err := p.Resolve(switchRegionPath)
	if err != nil {
		return err
	}

	form := url.Values{"region": {code}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create new request %s: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", csrfToken)

	res, err := p.do(ctx, req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return nil
}

func (p *PageSource) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %s: %w", req.URL, err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	if p.cookie != "" {
		req.Header.Set("Cookie", p.cookie)
	}

	p.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", req.URL, err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodySize))

		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	p.log.DebugContext(ctx, "Successfully received http response", "status code", res.StatusCode, "URL", req.URL)

	return res, nil
}
