package dbc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Source fetches the raw CSV bytes of a table.
type Source interface {
	// Fetch returns the CSV contents of the named table.
	Fetch(ctx context.Context, table string) ([]byte, error)

	// Locator identifies where a table comes from (URL or path). Two sources
	// with the same locator for a table return the same bytes.
	Locator(table string) string
}

// ErrTableNotFound is returned by sources when a table does not exist.
var ErrTableNotFound = errors.New("table not found")

// Defaults for HTTPSource.
const (
	DefaultBaseURL        = "https://wago.tools"
	DefaultRequestsPerSec = 5
	DefaultBurst          = 5
	DefaultTimeout        = 60 * time.Second
)

// HTTPSource downloads tables from a wago.tools compatible endpoint:
//
//	<BaseURL>/db2/<table>/csv?build=<Build>
//
// An empty Build requests the latest build. Requests are paced by a token
// bucket limiter shared by all callers.
type HTTPSource struct {
	BaseURL string
	Build   string

	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// WithRateLimit sets request pacing. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(s *HTTPSource) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPLogger sets the logger for request logging.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		s.logger = l
	}
}

// NewHTTPSource creates an HTTPSource. An empty baseURL uses DefaultBaseURL.
func NewHTTPSource(baseURL, build string, opts ...HTTPOption) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	s := &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Build:   build,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSec), DefaultBurst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Locator returns the request URL for a table.
func (s *HTTPSource) Locator(table string) string {
	u := fmt.Sprintf("%s/db2/%s/csv", s.BaseURL, url.PathEscape(table))
	if s.Build != "" {
		u += "?build=" + url.QueryEscape(s.Build)
	}
	return u
}

// Fetch downloads a table.
func (s *HTTPSource) Fetch(ctx context.Context, table string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}

	u := s.Locator(table)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", table, ErrTableNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", table, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", table, err)
	}

	s.logger.Debug("fetched table",
		"table", table,
		"url", u,
		"bytes", len(data),
		"duration", time.Since(start),
	)
	return data, nil
}

// DirSource reads tables from <Dir>/<table>.csv.
type DirSource struct {
	Dir string
}

// Locator returns the file path for a table.
func (s DirSource) Locator(table string) string {
	return filepath.Join(s.Dir, table+".csv")
}

// Fetch reads a table file.
func (s DirSource) Fetch(_ context.Context, table string) ([]byte, error) {
	data, err := os.ReadFile(s.Locator(table))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", table, ErrTableNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return data, nil
}

// Cache persists fetched table bytes by locator.
type Cache interface {
	GetTable(ctx context.Context, locator string) ([]byte, bool, error)
	PutTable(ctx context.Context, locator string, data []byte) error
}

// CachedSource serves tables from a Cache, falling back to an upstream
// Source on a miss and storing the result.
type CachedSource struct {
	Upstream Source
	Cache    Cache
	Logger   *slog.Logger
}

// Locator delegates to the upstream source.
func (s *CachedSource) Locator(table string) string {
	return s.Upstream.Locator(table)
}

// Fetch returns the cached bytes for a table or fetches and caches them.
func (s *CachedSource) Fetch(ctx context.Context, table string) ([]byte, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := s.Upstream.Locator(table)

	data, ok, err := s.Cache.GetTable(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("cache lookup %s: %w", table, err)
	}
	if ok {
		logger.Debug("table cache hit", "table", table, "locator", loc)
		return data, nil
	}

	data, err = s.Upstream.Fetch(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.PutTable(ctx, loc, data); err != nil {
		return nil, fmt.Errorf("cache store %s: %w", table, err)
	}
	logger.Debug("table cached", "table", table, "locator", loc, "bytes", len(data))
	return data, nil
}
