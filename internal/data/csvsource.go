package data

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"predict-backtest/internal/observability"
	"predict-backtest/internal/util"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxBytes = 64 << 20
)

// Fetch error codes.
const (
	CodeFetchFailed      = "FETCH_FAILED"
	CodeHTTPStatus       = "HTTP_STATUS"
	CodeResponseTooLarge = "RESPONSE_TOO_LARGE"
	CodeCSVParse         = "CSV_PARSE"
	CodeInvalidURL       = "INVALID_URL"
)

// FetchError represents a failed CSV download.
type FetchError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	return e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a CSVClient.
type Options struct {
	Timeout    time.Duration
	MaxBytes   int64
	Retries    int
	RetryDelay time.Duration
	CacheTTL   time.Duration
	// AllowFiles lets file:// URLs through; only the CLI sets it.
	AllowFiles bool
}

// CSVClient downloads CSV documents over HTTP(S).
type CSVClient struct {
	Client     *http.Client
	MaxBytes   int64
	Retries    int
	RetryDelay time.Duration
	AllowFiles bool
	Cache      *ResponseCache

	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewCSVClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *CSVClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = util.Discard()
	}
	return &CSVClient{
		Client:     &http.Client{Timeout: opts.Timeout},
		MaxBytes:   opts.MaxBytes,
		Retries:    opts.Retries,
		RetryDelay: opts.RetryDelay,
		AllowFiles: opts.AllowFiles,
		Cache:      NewResponseCache(opts.CacheTTL),
		logger:     logger.With("component", "csv_fetcher"),
		metrics:    metrics,
	}
}

// Fetch downloads rawURL and parses it as CSV. The first row is the header.
func (c *CSVClient) Fetch(ctx context.Context, rawURL string) ([][]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{Code: CodeInvalidURL, Message: fmt.Sprintf("invalid csv_url: %v", err), Err: err}
	}
	switch {
	case u.Scheme == "file" && c.AllowFiles:
		rows, err := ReadCSVFile(u.Path)
		if err != nil {
			return nil, &FetchError{Code: CodeFetchFailed, Message: fmt.Sprintf("failed to read %s: %v", u.Path, err), Err: err}
		}
		return rows, nil
	case (u.Scheme == "http" || u.Scheme == "https") && u.Host != "":
	default:
		return nil, &FetchError{Code: CodeInvalidURL, Message: fmt.Sprintf("unsupported csv_url %q: want an http or https URL", rawURL)}
	}

	key := CacheKey(u.String())
	if body, ok := c.Cache.Get(key); ok {
		c.logger.Info("cache hit", "host", u.Host, "bytes", len(body))
		return parseBody(body)
	}

	var body []byte
	err = util.RetryIf(ctx, c.Retries+1, c.RetryDelay, retryable, func() error {
		var derr error
		body, derr = c.download(ctx, u)
		return derr
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{Code: CodeFetchFailed, Message: fmt.Sprintf("failed to fetch csv: %v", err), Err: err}
	}

	rows, err := parseBody(body)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, body)
	return rows, nil
}

func (c *CSVClient) download(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Code: CodeInvalidURL, Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	req.Header.Set("Accept", "text/csv, */*")

	c.logger.Info("request", "method", req.Method, "host", u.Host, "path", u.Path)
	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "host", u.Host, "error", err, "duration", time.Since(start))
		c.metrics.ObserveFetch(CodeFetchFailed, 0, time.Since(start))
		return nil, &FetchError{Code: CodeFetchFailed, Message: fmt.Sprintf("failed to fetch csv: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("unexpected status", "host", u.Host, "status", resp.StatusCode, "duration", time.Since(start))
		c.metrics.ObserveFetch(CodeHTTPStatus, 0, time.Since(start))
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Code:       CodeHTTPStatus,
			Message:    fmt.Sprintf("csv download returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxBytes+1))
	if err != nil {
		c.metrics.ObserveFetch(CodeFetchFailed, len(body), time.Since(start))
		return nil, &FetchError{StatusCode: resp.StatusCode, Code: CodeFetchFailed, Message: fmt.Sprintf("failed to read csv body: %v", err), Err: err}
	}
	if int64(len(body)) > c.MaxBytes {
		c.metrics.ObserveFetch(CodeResponseTooLarge, len(body), time.Since(start))
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Code:       CodeResponseTooLarge,
			Message:    fmt.Sprintf("csv body exceeds %d bytes", c.MaxBytes),
		}
	}

	c.logger.Info("response", "host", u.Host, "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))
	c.metrics.ObserveFetch("ok", len(body), time.Since(start))
	return body, nil
}

func parseBody(body []byte) ([][]string, error) {
	rows, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Code: CodeCSVParse, Message: fmt.Sprintf("failed to parse csv: %v", err), Err: err}
	}
	return rows, nil
}

// retryable limits retries to transport failures and server errors.
func retryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Code {
	case CodeFetchFailed:
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	case CodeHTTPStatus:
		return fe.StatusCode >= 500
	}
	return false
}
