package collect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/watchtower/internal/model"
)

const httpMaxRetries = 2

// HTTPSource fetches readings from an HTTP endpoint returning a JSON
// document keyed by indicator name. Each source carries its own rate
// limiter so aggressive poll intervals cannot hammer an upstream.
type HTTPSource struct {
	name    string
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource creates an HTTPSource. ratePerSec and burst bound request
// frequency; zero values default to one request per second.
func NewHTTPSource(name, url string, timeout time.Duration, ratePerSec float64, burst int) *HTTPSource {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &HTTPSource{
		name:    name,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Name returns the source identifier for logging.
func (s *HTTPSource) Name() string { return s.name }

// Fetch performs a rate-limited GET with bounded retries and decodes the
// response body.
func (s *HTTPSource) Fetch(ctx context.Context) (map[string]*model.Reading, error) {
	var lastErr error
	for attempt := 0; attempt <= httpMaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "collect: rate wait %s", s.name)
		}

		readings, err := s.fetchOnce(ctx)
		if err == nil {
			return readings, nil
		}
		lastErr = err
		zap.L().Debug("collect: fetch attempt failed",
			zap.String("source", s.name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if attempt == httpMaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "collect: fetch %s", s.name)
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	return nil, eris.Wrapf(lastErr, "collect: fetch %s after %d attempts", s.name, httpMaxRetries+1)
}

func (s *HTTPSource) fetchOnce(ctx context.Context) (map[string]*model.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "collect: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "collect: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, eris.Errorf("collect: %s returned status %d", s.url, resp.StatusCode)
	}

	var readings map[string]*model.Reading
	if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
		return nil, eris.Wrap(err, "collect: decode response")
	}
	for name, r := range readings {
		if r != nil && r.Name == "" {
			r.Name = name
		}
	}
	return readings, nil
}
