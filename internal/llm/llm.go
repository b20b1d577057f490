// Package llm provides the model client used by the pipeline: a session
// abstraction over the Gemini API with middleware for retries, rate limiting
// and logging, plus a scripted fake for tests.
package llm

import (
	"context"
)

// Client creates conversational sessions against one model.
type Client interface {
	Name() string
	NewSession(cfg SessionConfig) Session
	Close() error
}

// Session is a stateful chat: each Send carries the full prior exchange, so
// a refinement request can say "the file you asked about" and be understood.
type Session interface {
	Send(ctx context.Context, prompt string) (*Response, error)
}

// SessionConfig fixes the behavior of one session.
type SessionConfig struct {
	// Key identifies the session in logs ("main", "refinement", ...).
	Key string
	// System is the system instruction, empty for none.
	System string
	// Temperature, 0 for the model default.
	Temperature float32
	// JSON requests application/json responses.
	JSON bool
}

// Usage is the token accounting for one exchange.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another exchange's usage.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// Response is one model turn.
type Response struct {
	Text  string
	Usage Usage
}
