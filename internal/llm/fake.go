package llm

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient returns scripted responses per session key for offline runs and
// tests. Prompts are recorded so tests can assert on what was sent.
type FakeClient struct {
	mu sync.Mutex
	// Scripts holds response queues keyed by SessionConfig.Key; each Send
	// pops the head.
	Scripts map[string][]string
	// Default is returned when a key's queue is exhausted; when empty,
	// exhaustion is an error.
	Default string
	// Prompts records every prompt by session key.
	Prompts map[string][]string
}

// NewFakeClient builds a fake with the given scripts. A nil map is valid;
// pair it with Default for a fake that always answers the same thing.
func NewFakeClient(scripts map[string][]string) *FakeClient {
	return &FakeClient{Scripts: scripts, Prompts: make(map[string][]string)}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) NewSession(cfg SessionConfig) Session {
	return &fakeSession{client: f, key: cfg.Key}
}

// SentPrompts returns the prompts recorded for a session key.
func (f *FakeClient) SentPrompts(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Prompts[key]...)
}

type fakeSession struct {
	client *FakeClient
	key    string
}

func (s *fakeSession) Send(ctx context.Context, prompt string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := s.client
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts[s.key] = append(f.Prompts[s.key], prompt)

	queue := f.Scripts[s.key]
	if len(queue) == 0 {
		if f.Default != "" {
			return &Response{Text: f.Default}, nil
		}
		return nil, fmt.Errorf("llm: fake session %q has no scripted response", s.key)
	}
	text := queue[0]
	f.Scripts[s.key] = queue[1:]
	return &Response{Text: text, Usage: Usage{InputTokens: len(prompt) / 4, OutputTokens: len(text) / 4, TotalTokens: (len(prompt) + len(text)) / 4}}, nil
}
