package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// AIBackend is the narrow interface the rest of the service layer talks to.
// The backend may be unavailable (no API key, network down); callers are
// expected to check availability and fall back rather than fail.
type AIBackend interface {
	CheckAvailability(ctx context.Context) bool
	NewSession(ctx context.Context, cfg SessionConfig) (PromptSession, error)
}

// PromptSession is a scoped conversation with the model. It must be closed
// on every exit path.
type PromptSession interface {
	Prompt(ctx context.Context, text string) (string, error)
	Close() error
}

// SessionConfig sets up a session with a system instruction and, when
// JSONOutput is true, a structured-output constraint.
type SessionConfig struct {
	SystemInstruction string
	JSONOutput        bool
	ResponseSchema    *genai.Schema
}

// GeminiBackend implements AIBackend on top of the Gemini API.
type GeminiBackend struct {
	cfg *config.GeminiConfig
}

func NewGeminiBackend(cfg *config.GeminiConfig) *GeminiBackend {
	return &GeminiBackend{cfg: cfg}
}

// CheckAvailability reports whether the backend can be used at all. A
// missing API key is the common case in local setups.
func (b *GeminiBackend) CheckAvailability(_ context.Context) bool {
	return strings.TrimSpace(b.cfg.APIKey) != ""
}

// NewSession opens a Gemini session. Temperature is pinned to zero so
// classification and extraction stay deterministic.
func (b *GeminiBackend) NewSession(ctx context.Context, cfg SessionConfig) (PromptSession, error) {
	if strings.TrimSpace(b.cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: API key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(b.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	m := client.GenerativeModel(strings.TrimSpace(b.cfg.Model))
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	if cfg.JSONOutput {
		m.GenerationConfig.ResponseMIMEType = "application/json"
		m.GenerationConfig.ResponseSchema = cfg.ResponseSchema
	}
	if cfg.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(cfg.SystemInstruction)},
		}
	}

	return &geminiSession{client: client, model: m}, nil
}

type geminiSession struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// Prompt sends a single prompt and returns the raw model text. No retries:
// the caller decides what a failure means.
func (s *geminiSession) Prompt(ctx context.Context, text string) (string, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}

	out := firstText(resp)
	if out == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return out, nil
}

func (s *geminiSession) Close() error {
	return s.client.Close()
}

// firstText extracts the first text part from a response.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok && strings.TrimSpace(string(txt)) != "" {
				return string(txt)
			}
		}
	}
	return ""
}

// StripCodeFences removes a markdown code fence around a model answer so it
// can be fed to json.Unmarshal.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func ptrFloat32(v float32) *float32 { return &v }
