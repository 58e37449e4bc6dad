package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Guard rate-limits and retries calls to another Client. With the default of
// zero retries every failure surfaces on the first attempt.
type Guard struct {
	next      Client
	logger    *zap.Logger
	limiter   *rate.Limiter
	retries   uint64
	backoff   time.Duration
	maxTokens int
}

type GuardOption func(*Guard)

// WithRate allows perMinute requests per minute. Zero or less disables
// limiting.
func WithRate(perMinute int) GuardOption {
	return func(g *Guard) {
		if perMinute > 0 {
			g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithRetries retries transient failures up to n times with exponential
// backoff starting at base.
func WithRetries(n int, base time.Duration) GuardOption {
	return func(g *Guard) {
		if n > 0 {
			g.retries = uint64(n)
		}
		if base > 0 {
			g.backoff = base
		}
	}
}

// WithMaxTokens caps the per-request output budget.
func WithMaxTokens(n int) GuardOption {
	return func(g *Guard) { g.maxTokens = n }
}

func NewGuard(next Client, logger *zap.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		next:    next,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Inf, 0),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Generate(ctx context.Context, req Request) (*Response, error) {
	if g.maxTokens > 0 && (req.MaxTokens == 0 || req.MaxTokens > g.maxTokens) {
		req.MaxTokens = g.maxTokens
	}

	var resp *Response
	attempt := 0
	backoff := retry.WithMaxRetries(g.retries, retry.NewExponential(g.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		r, err := g.next.Generate(ctx, req)
		if err != nil {
			g.logger.Debug("model call failed",
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			if Retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		g.logger.Debug("model call",
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("chars", len(r.Text)),
			zap.Int("images", len(r.Images)),
		)
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Load prepares the wrapped backend when it needs it.
func (g *Guard) Load(ctx context.Context) error {
	if l, ok := g.next.(Loader); ok {
		return l.Load(ctx)
	}
	return nil
}

// Close closes the wrapped backend when it holds resources.
func (g *Guard) Close() error {
	if c, ok := g.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Retryable reports whether err is worth another attempt: rate limiting,
// server errors, empty replies and network timeouts.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
