// Package manifest fetches the cache listing that enumerates every file in a
// vault and turns it into the run's work list.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

// Client retrieves manifests.
type Client struct {
	fetcher vault.DocumentFetcher
	scheme  string
	logger  *zap.Logger
}

// New constructs a Client. An empty scheme means https.
func New(fetcher vault.DocumentFetcher, scheme string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{fetcher: fetcher, scheme: scheme, logger: logger}
}

// Fetch returns the manifest keys for site in lexicographic order.
func (c *Client) Fetch(ctx context.Context, site vault.SiteInfo) ([]string, error) {
	endpoint := vault.Endpoints{Scheme: c.scheme, Site: site}.ManifestURL()
	doc, err := c.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	keys, err := Parse(doc.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("manifest loaded", zap.String("url", endpoint), zap.Int("entries", len(keys)))
	return keys, nil
}

// Parse decodes a manifest body. The body must be a non-empty JSON object;
// its values are ignored.
func Parse(body []byte) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("manifest body is empty: %w", vault.ErrParse)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest: %w: %w", vault.ErrParse, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("manifest is not a JSON object: %w", vault.ErrParse)
	}
	if len(entries) == 0 {
		return nil, vault.ErrEmptyManifest
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
