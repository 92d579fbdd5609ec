package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/google/generative-ai-go/genai"
)

const partiesSystemInstruction = `You extract the two contracting parties from a legal contract.
Respond with JSON only:
{"confidence": "high"|"medium"|"low", "parties": {"party1": {"name": string, "role": string}, "party2": {"name": string, "role": string}}}
Roles are the labels the contract itself uses (e.g. "Employer", "Lessee", "Disclosing Party").
Use confidence "high" only when both parties are explicitly named. If the parties cannot be
identified, return {"confidence": "low"} without a parties object.`

// PartyDetector infers the two contracting parties with a single AI call.
// Failures degrade to a low-confidence result so onboarding can fall back
// to the generic role list.
type PartyDetector struct {
	backend AIBackend
	snippet int
	log     *slog.Logger
}

func NewPartyDetector(backend AIBackend, snippetChars int, log *slog.Logger) *PartyDetector {
	if snippetChars == 0 {
		snippetChars = 2000
	}
	if log == nil {
		log = slog.Default()
	}
	return &PartyDetector{backend: backend, snippet: snippetChars, log: log}
}

// Detect never returns an error: a failed or unavailable AI call is a
// low-confidence result, which the caller treats as "offer generic roles".
func (p *PartyDetector) Detect(ctx context.Context, text string) model.PartyDetectionResult {
	low := model.PartyDetectionResult{Confidence: model.PartyConfidenceLow}

	if !p.backend.CheckAvailability(ctx) {
		return low
	}

	sess, err := p.backend.NewSession(ctx, SessionConfig{
		SystemInstruction: partiesSystemInstruction,
		JSONOutput:        true,
		ResponseSchema:    partiesSchema(),
	})
	if err != nil {
		p.log.Warn("party detection session failed", "error", err)
		return low
	}
	defer sess.Close()

	raw, err := sess.Prompt(ctx, "Identify the contracting parties:\n\n"+snippet(text, p.snippet))
	if err != nil {
		p.log.Warn("party detection call failed", "error", err)
		return low
	}

	var out model.PartyDetectionResult
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		p.log.Warn("party detection returned malformed JSON", "error", err)
		return low
	}

	switch out.Confidence {
	case model.PartyConfidenceHigh, model.PartyConfidenceMedium, model.PartyConfidenceLow:
	default:
		out.Confidence = model.PartyConfidenceLow
	}
	if out.Confidence == model.PartyConfidenceHigh && out.Parties == nil {
		out.Confidence = model.PartyConfidenceLow
	}
	return out
}

func partiesSchema() *genai.Schema {
	party := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name": {Type: genai.TypeString},
			"role": {Type: genai.TypeString},
		},
		Required: []string{"name", "role"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"confidence": {Type: genai.TypeString},
			"parties": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"party1": party,
					"party2": party,
				},
			},
		},
		Required: []string{"confidence"},
	}
}
