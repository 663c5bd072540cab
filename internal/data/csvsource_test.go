package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predict-backtest/internal/observability"
)

const sampleCSV = "t,predicted_close_price,last_actual_close\n2024-01-01,1,1\n"

func newTestClient(opts Options) *CSVClient {
	return NewCSVClient(opts, nil, observability.NewMetrics("fetch_test"))
}

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	rows, err := newTestClient(Options{}).Fetch(context.Background(), srv.URL+"/prices.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"t", "predicted_close_price", "last_actual_close"}, rows[0])
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			fmt.Fprint(w, strings.Repeat("a,b\n", 100))
		case "/broken":
			fmt.Fprint(w, "a,\"b\nc")
		case "/empty":
		}
	}))
	defer srv.Close()

	tests := []struct {
		url    string
		code   string
		status int
	}{
		{srv.URL + "/missing", CodeHTTPStatus, http.StatusNotFound},
		{srv.URL + "/big", CodeResponseTooLarge, http.StatusOK},
		{srv.URL + "/broken", CodeCSVParse, 0},
		{srv.URL + "/empty", CodeCSVParse, 0},
		{"ftp://example.com/x.csv", CodeInvalidURL, 0},
		{"file:///etc/hosts", CodeInvalidURL, 0},
		{"http://127.0.0.1:1/unreachable.csv", CodeFetchFailed, 0},
	}
	client := newTestClient(Options{MaxBytes: 64, Timeout: 2 * time.Second})
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := client.Fetch(context.Background(), tt.url)
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.code, fe.Code)
			assert.Equal(t, tt.status, fe.StatusCode)
		})
	}
}

func TestFetch_RetriesServerErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path == "/flaky" && n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	client := newTestClient(Options{Retries: 3, RetryDelay: time.Millisecond})
	_, err := client.Fetch(context.Background(), srv.URL+"/flaky")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = client.Fetch(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(Options{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_CacheServesRepeatedURL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	client := newTestClient(Options{CacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, client.Cache.Len())
}

func TestFetch_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	client := newTestClient(Options{AllowFiles: true})
	rows, err := client.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(Options{Retries: 2}).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResponseCache_Expiry(t *testing.T) {
	c := NewResponseCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	var disabled *ResponseCache = NewResponseCache(0)
	disabled.Set("k", []byte("v"))
	_, ok = disabled.Get("k")
	assert.False(t, ok)
}
