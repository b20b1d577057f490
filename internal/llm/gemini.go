package llm

import (
	"context"
	"fmt"
	"sync"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin session-oriented wrapper around the official genai
// client. Sessions manage their own history; the underlying client is
// stateless and shared.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient dials the Gemini API. The key comes from the environment
// (GEMINI_API_KEY / GOOGLE_API_KEY) when apiKey is empty.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) NewSession(cfg SessionConfig) Session {
	gc := &genai.GenerateContentConfig{}
	if cfg.JSON {
		gc.ResponseMIMEType = "application/json"
	}
	if cfg.System != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.System}}}
	}
	if cfg.Temperature > 0 {
		gc.Temperature = genai.Ptr(cfg.Temperature)
	}
	return &geminiSession{cli: g.cli, model: g.model, cfg: gc}
}

type geminiSession struct {
	cli   *genai.Client
	model string
	cfg   *genai.GenerateContentConfig

	mu      sync.Mutex
	history []*genai.Content
}

// Send appends the prompt to the session history, calls the model with the
// full exchange and records the model turn. History only grows on success;
// a failed call leaves the session as it was.
func (s *geminiSession) Send(ctx context.Context, prompt string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := append(append([]*genai.Content(nil), s.history...),
		&genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}})

	resp, err := s.cli.Models.GenerateContent(ctx, s.model, contents, s.cfg)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}
	text := ""
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}
	if text == "" {
		return nil, ErrEmptyResponse
	}

	s.history = append(contents,
		&genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}})

	out := &Response{Text: text}
	if um := resp.UsageMetadata; um != nil {
		out.Usage = Usage{
			InputTokens:  int(um.PromptTokenCount),
			OutputTokens: int(um.CandidatesTokenCount),
			TotalTokens:  int(um.TotalTokenCount),
		}
	}
	return out, nil
}
