// Package discovery locates the vault backend behind a published site by
// reading the site configuration embedded in its landing page.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

var siteInfoPattern = regexp.MustCompile(`window\.siteInfo\s*=\s*(\{[^}]+\})`)

// Discoverer fetches landing pages and extracts their SiteInfo.
type Discoverer struct {
	fetcher vault.DocumentFetcher
	logger  *zap.Logger
}

// New constructs a Discoverer.
func New(fetcher vault.DocumentFetcher, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, logger: logger}
}

// Discover fetches pageURL and returns the embedded SiteInfo.
func (d *Discoverer) Discover(ctx context.Context, pageURL string) (vault.SiteInfo, error) {
	doc, err := d.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return vault.SiteInfo{}, fmt.Errorf("fetch landing page: %w", err)
	}
	d.logger.Debug("landing page fetched",
		zap.String("url", pageURL),
		zap.Int("bytes", len(doc.Body)),
		zap.Duration("dur", doc.Duration),
	)
	info, err := Extract(doc.Body)
	if err != nil {
		return vault.SiteInfo{}, err
	}
	d.logger.Info("site discovered", zap.String("host", info.Host), zap.String("uid", info.UID))
	return info, nil
}

// Extract parses the first window.siteInfo assignment found in body.
func Extract(body []byte) (vault.SiteInfo, error) {
	m := siteInfoPattern.FindSubmatch(body)
	if m == nil {
		return vault.SiteInfo{}, fmt.Errorf("window.siteInfo not found in page: %w", vault.ErrParse)
	}
	var info vault.SiteInfo
	if err := json.Unmarshal(m[1], &info); err != nil {
		return vault.SiteInfo{}, fmt.Errorf("decode siteInfo: %w: %w", vault.ErrParse, err)
	}
	if err := info.Validate(); err != nil {
		return vault.SiteInfo{}, err
	}
	return info, nil
}
