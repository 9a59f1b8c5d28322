package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

func TestParse(t *testing.T) {
	t.Parallel()

	keys, err := Parse([]byte(`{"notes/a.md": 1, "img/b.png": {"hash": "x"}, "z.txt": null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"img/b.png", "notes/a.md", "z.txt"}, keys)
}

func TestParseFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":      "",
		"whitespace": "  \n",
		"array":      `["a","b"]`,
		"string":     `"a"`,
		"null":       `null`,
		"truncated":  `{"a": 1`,
	}
	for name, body := range cases {
		_, err := Parse([]byte(body))
		assert.ErrorIs(t, err, vault.ErrParse, name)
	}
}

func TestParseEmptyObject(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{}`))
	require.ErrorIs(t, err, vault.ErrEmptyManifest)
	assert.ErrorIs(t, err, vault.ErrParse)
}

func TestFetchBuildsEndpoint(t *testing.T) {
	t.Parallel()

	fetcher := &recordingFetcher{body: []byte(`{"a.md":1}`)}
	keys, err := New(fetcher, "", nil).Fetch(context.Background(), vault.SiteInfo{UID: "abc", Host: "x.example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, keys)
	assert.Equal(t, "https://x.example.com/cache/abc", fetcher.url)

	_, err = New(fetcher, "http", nil).Fetch(context.Background(), vault.SiteInfo{UID: "abc", Host: "127.0.0.1:8080"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/cache/abc", fetcher.url)
}

func TestFetchNetworkError(t *testing.T) {
	t.Parallel()

	fetcher := &recordingFetcher{err: &vault.StatusError{Code: 500}}
	_, err := New(fetcher, "", nil).Fetch(context.Background(), vault.SiteInfo{UID: "abc", Host: "x"})
	require.ErrorIs(t, err, vault.ErrNetwork)
}

type recordingFetcher struct {
	url  string
	body []byte
	err  error
}

func (f *recordingFetcher) Fetch(_ context.Context, url string) (vault.Document, error) {
	f.url = url
	if f.err != nil {
		return vault.Document{}, f.err
	}
	return vault.Document{URL: url, StatusCode: 200, Body: f.body}, nil
}
