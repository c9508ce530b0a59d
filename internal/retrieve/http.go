package retrieve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxBodyBytes caps a single chunk response. A 2-day ALL-regime window is
// the largest query and stays well under this.
const maxBodyBytes = 200 << 20

// StatusError is a non-200 provider response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.Code, e.URL)
}

// Temporary reports whether retrying can help: server errors and rate limits.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// HTTPSource queries a provider that speaks the gp_history path syntax. It
// does not authenticate; baseURL must point at a mirror or an authenticating
// proxy.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
	logger     *slog.Logger
}

// NewHTTPSource creates an HTTPSource. A zero timeout uses 60s.
func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBody: maxBodyBytes,
		logger:  logger,
	}
}

// BaseURL returns the configured provider base URL.
func (s *HTTPSource) BaseURL() string {
	return s.baseURL
}

// Fetch performs one GET for q.
func (s *HTTPSource) Fetch(ctx context.Context, q Query) ([]byte, error) {
	url := s.baseURL + q.Path()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "tlecat")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", q, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	// Read one byte past the limit to tell "exactly at limit" from "over".
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("response for %s exceeds %d byte limit", q, s.maxBody)
	}

	s.logger.Debug("provider query complete",
		"component", "retrieve",
		"query", q.String(),
		"bytes", len(body),
	)
	return body, nil
}
