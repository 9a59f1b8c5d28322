package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vaultdl/internal/vault"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vaultdl-test", r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: "vaultdl-test", Timeout: time.Second})
	doc, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.Equal(t, "<html>hello</html>", string(doc.Body))
	assert.Equal(t, srv.URL+"/page", doc.URL)

	// Fetching the same URL twice must not trip colly's revisit guard.
	_, err = f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
}

func TestFetchStatusFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := New(Config{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, vault.ErrNetwork)
	var statusErr *vault.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetchAcceptsAnySuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write([]byte(`{"a.md":1}`))
	}))
	t.Cleanup(srv.Close)

	doc, err := New(Config{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNonAuthoritativeInfo, doc.StatusCode)
	assert.Equal(t, `{"a.md":1}`, string(doc.Body))
}

func TestFetchBodyOverLimit(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", 2006)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		_, _ = w.Write([]byte(body[:n]))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{MaxBodySize: 1024})

	_, err := f.Fetch(context.Background(), srv.URL+"?n=2006")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.ErrorIs(t, err, vault.ErrNetwork)
	assert.Contains(t, err.Error(), "http.max_page_bytes")
	assert.Contains(t, err.Error(), "1024")

	_, err = f.Fetch(context.Background(), srv.URL+"?n=1025")
	require.ErrorIs(t, err, ErrBodyTooLarge)

	doc, err := f.Fetch(context.Background(), srv.URL+"?n=1024")
	require.NoError(t, err)
	assert.Len(t, doc.Body, 1024)
}

func TestFetchTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(Config{Timeout: time.Second}).Fetch(context.Background(), addr)
	require.ErrorIs(t, err, vault.ErrNetwork)
}

func TestFetchCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Timeout: 5 * time.Second}).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, vault.ErrNetwork)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{MaxBodySize: 8})
	var result vault.Document
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	req := &colly.Request{URL: mustParseURL(t, "https://example.com")}
	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("body"), Request: req})
	require.NoError(t, fetchErr)
	assert.Equal(t, "body", string(result.Body))
	assert.Equal(t, "https://example.com", result.URL)

	hooks.onResponse(&colly.Response{StatusCode: http.StatusNotFound, Request: req})
	var notFound *vault.StatusError
	require.ErrorAs(t, fetchErr, &notFound)
	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.Equal(t, "https://example.com", notFound.URL)

	fetchErr = nil
	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("123456789"), Request: req})
	require.ErrorIs(t, fetchErr, ErrBodyTooLarge)

	hooks.onError(&colly.Response{
		StatusCode: http.StatusBadGateway,
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	}, errors.New("Bad Gateway"))
	var statusErr *vault.StatusError
	require.ErrorAs(t, fetchErr, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)

	hooks.onError(nil, errors.New("boom"))
	assert.EqualError(t, fetchErr, "boom")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
