package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ClientConfig tunes the shared outbound HTTP behavior of the Yahoo clients.
type ClientConfig struct {
	Timeout        time.Duration
	UserAgent      string
	RPS            float64
	Burst          int
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// HTTPServiceBase centralizes client construction, outbound rate limiting and
// retrying JSON GETs for the market data clients.
type HTTPServiceBase struct {
	client  *xhttp.Client
	limiter *rate.Limiter
	cfg     ClientConfig
	logger  *logger.Logger
}

// NewHTTPServiceBase builds the shared client. Zero fields fall back to conservative defaults.
func NewHTTPServiceBase(cfg ClientConfig, log *logger.Logger) *HTTPServiceBase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPServiceBase{
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent(cfg.UserAgent)),
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		logger:  log,
	}
}

// GetJSON performs a rate-limited GET and decodes the body into dest. Transport
// errors, 429 and 5xx are retried with exponential backoff; other statuses are
// returned at once as *xhttp.StatusError.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, rawURL string, query url.Values, dest interface{}) error {
	op := func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         rawURL,
			QueryParams: query,
			Headers:     map[string]string{"Accept": "application/json"},
		}, dest)
		if err == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.cfg.InitialBackoff
	eb.MaxInterval = b.cfg.MaxBackoff
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, b.cfg.MaxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		b.logger.Warn("market data request retry",
			logger.String("url", rawURL),
			logger.Duration("wait_ms", wait),
			logger.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}
	return nil
}

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func isNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}
