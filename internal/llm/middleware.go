package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit limits request rate across all sessions of the client using a
// shared token bucket. If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}
func (c *rateLimited) NewSession(cfg SessionConfig) Session {
	return &rateLimitedSession{next: c.next.NewSession(cfg), rl: c.rl}
}

type rateLimitedSession struct {
	next Session
	rl   *rpsLimiter
}

func (s *rateLimitedSession) Send(ctx context.Context, prompt string) (*Response, error) {
	if err := s.rl.Acquire(ctx); err != nil {
		return nil, err
	}
	return s.next.Send(ctx, prompt)
}

// -------- Retry with exponential backoff --------

// Retry retries Send up to maxAttempts with exponential backoff starting at
// baseDelay. Permanent errors and context cancellation stop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) NewSession(cfg SessionConfig) Session {
	return &retryingSession{next: r.next.NewSession(cfg), max: r.max, base: r.base}
}

type retryingSession struct {
	next Session
	max  int
	base time.Duration
}

func (s *retryingSession) Send(ctx context.Context, prompt string) (*Response, error) {
	var last error
	for i := 0; i < s.max; i++ {
		resp, err := s.next.Send(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		time.Sleep(s.base * time.Duration(1<<i))
	}
	return nil, last
}

// -------- Logging --------

// WithLogging logs request/response sizes and errors. Provide a custom
// logger or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) NewSession(cfg SessionConfig) Session {
	return &loggingSession{next: l.next.NewSession(cfg), key: cfg.Key, log: l.log}
}

type loggingSession struct {
	next Session
	key  string
	log  *log.Logger
}

func (s *loggingSession) Send(ctx context.Context, prompt string) (*Response, error) {
	s.log.Printf("LLM request (%s): %d bytes", s.key, len(prompt))
	resp, err := s.next.Send(ctx, prompt)
	if err != nil {
		s.log.Printf("LLM error (%s): %v", s.key, err)
		return nil, err
	}
	s.log.Printf("LLM response (%s): %d bytes, %d tokens", s.key, len(resp.Text), resp.Usage.TotalTokens)
	return resp, nil
}
