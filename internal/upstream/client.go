// Package upstream retrieves chart images from the external chart provider.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/model"
)

// Failure taxonomy for outbound fetches. The orchestrator never retries —
// at most one attempt per call; retries are the caller's responsibility.
var (
	// ErrTimeout: no response completed within the configured timeout.
	ErrTimeout = errors.New("upstream timeout")
	// ErrUnavailable: transport or connection failure.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrBadStatus: the provider answered with a non-success status.
	ErrBadStatus = errors.New("upstream bad response")
)

// DefaultTimeout bounds a single chart fetch.
const DefaultTimeout = 30 * time.Second

// Fetcher is the capability the cache orchestrator depends on. Tests swap
// in a stub; Client is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*Result, error)
}

// Result is a staged, not-yet-committed chart fetch. The client owns the
// staged file until the caller either reads it for commit (Bytes) or throws
// it away (Discard). Nothing here ever reaches the store on a failed fetch.
type Result struct {
	Symbol     string
	Filename   string
	StagedPath string
}

// Bytes reads the staged chart image.
func (r *Result) Bytes() ([]byte, error) {
	data, err := os.ReadFile(r.StagedPath)
	if err != nil {
		return nil, fmt.Errorf("reading staged chart for %s: %w", r.Symbol, err)
	}
	return data, nil
}

// Discard removes the staged file. Idempotent: safe to defer unconditionally.
func (r *Result) Discard() {
	if r.StagedPath != "" {
		os.Remove(r.StagedPath)
		r.StagedPath = ""
	}
}

// Client downloads chart PNGs from the provider's chart endpoint.
type Client struct {
	baseURL    string
	stagingDir string
	client     *http.Client
	logger     *zap.Logger
}

// NewClient creates a fetch client. stagingDir holds in-flight downloads and
// is created if missing.
func NewClient(baseURL, stagingDir string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		stagingDir: stagingDir,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Fetch downloads the daily chart for a symbol, streaming the body to a
// staged file so peak memory stays bounded for large or slow responses.
// On any failure the staged file is deleted before the error is returned.
func (c *Client) Fetch(ctx context.Context, symbol string) (*Result, error) {
	chartURL, err := c.chartURL(symbol)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "chart-service/1.0")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrBadStatus, resp.StatusCode, symbol)
	}

	staged, err := os.CreateTemp(c.stagingDir, symbol+"-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating staged file: %w", err)
	}
	stagedPath := staged.Name()

	// io.Copy streams in chunks — the whole image is never buffered in
	// memory. LimitReader caps pathological responses at 10MB.
	if _, err := io.Copy(staged, io.LimitReader(resp.Body, 10<<20)); err != nil {
		staged.Close()
		os.Remove(stagedPath)
		return nil, classifyTransportErr(err)
	}
	if err := staged.Close(); err != nil {
		os.Remove(stagedPath)
		return nil, fmt.Errorf("closing staged file: %w", err)
	}

	c.logger.Debug("chart fetched",
		zap.String("symbol", symbol),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		Symbol:     symbol,
		Filename:   model.StorageKey(symbol),
		StagedPath: stagedPath,
	}, nil
}

func (c *Client) chartURL(symbol string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing upstream base URL: %w", err)
	}
	q := u.Query()
	q.Set("t", symbol)
	q.Set("ty", "c") // candle
	q.Set("p", "d")  // daily
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// classifyTransportErr maps transport failures onto the fetch taxonomy.
// net/http reports client timeouts as *url.Error with Timeout() == true,
// and context deadlines come through as context.DeadlineExceeded.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
