// Package collyfetcher implements vault.DocumentFetcher using gocolly. It is
// used for the landing page and the manifest, both small enough to buffer.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 10 * 1024 * 1024
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// ErrBodyTooLarge marks a document whose body exceeds Config.MaxBodySize.
var ErrBodyTooLarge = errors.New("document body exceeds size limit")

// Fetcher implements vault.DocumentFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(NewHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	c.IgnoreRobotsTxt = true
	// One byte past the limit tells a full body from a truncated one.
	c.MaxBodySize = cfg.MaxBodySize + 1
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET and buffers the body. Transport failures
// and non-2xx statuses both wrap vault.ErrNetwork.
func (f *Fetcher) Fetch(ctx context.Context, url string) (vault.Document, error) {
	var (
		result   vault.Document
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return vault.Document{}, err
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *vault.Document,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		url := responseURL(r)
		if r.StatusCode < 200 || r.StatusCode > 299 {
			*fetchErr = &vault.StatusError{URL: url, Code: r.StatusCode}
			return
		}
		if len(r.Body) > f.cfg.MaxBodySize {
			*fetchErr = fmt.Errorf("%w: more than %d bytes (raise http.max_page_bytes)",
				ErrBodyTooLarge, f.cfg.MaxBodySize)
			return
		}
		doc := vault.Document{
			URL:        url,
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
		*result = doc
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 && (r.StatusCode < 200 || r.StatusCode > 299) {
			*fetchErr = &vault.StatusError{URL: responseURL(r), Code: r.StatusCode}
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch %s canceled: %w: %w", url, vault.ErrNetwork, ctx.Err())
	case err := <-done:
		var statusErr *vault.StatusError
		if errors.As(*fetchErr, &statusErr) {
			return fmt.Errorf("fetch %s: %w", url, statusErr)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w: %w", url, vault.ErrNetwork, *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w: %w", url, vault.ErrNetwork, err)
		}
		return nil
	}
}

func responseURL(r *colly.Response) string {
	if r == nil || r.Request == nil || r.Request.URL == nil {
		return ""
	}
	return r.Request.URL.String()
}

// NewHTTPTransport returns the pooled transport shared by both fetchers.
func NewHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
	}
}
