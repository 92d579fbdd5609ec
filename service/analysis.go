package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/google/generative-ai-go/genai"
)

// SectionResult carries one resolved section. Exactly one payload field is
// set, matching Section; Err is set when the extraction failed.
type SectionResult struct {
	Section     model.Section
	Metadata    *model.Metadata
	Summary     *model.Summary
	Risks       []model.Risk
	Obligations []model.Obligation
	Omissions   []model.Omission
	Questions   []string
	Err         error
}

// Apply merges the result into an analysis and flips the section status.
func (r SectionResult) Apply(a *model.Analysis) {
	if r.Err != nil {
		a.Sections[r.Section] = model.SectionStatus{State: model.SectionFailed, ErrorMsg: r.Err.Error()}
		return
	}
	switch r.Section {
	case model.SectionMetadata:
		a.Metadata = r.Metadata
	case model.SectionSummary:
		a.Summary = r.Summary
	case model.SectionRisks:
		a.Risks = r.Risks
	case model.SectionObligations:
		a.Obligations = r.Obligations
	case model.SectionOmissions:
		a.Omissions = r.Omissions
		a.Questions = r.Questions
	}
	a.Sections[r.Section] = model.SectionStatus{State: model.SectionDone}
}

// AnalysisExtractor runs the progressive per-section contract analysis.
// Sections are independent: they run concurrently, each with its own AI
// session, and one failing never cancels the rest.
type AnalysisExtractor struct {
	backend AIBackend
	log     *slog.Logger
}

func NewAnalysisExtractor(backend AIBackend, log *slog.Logger) *AnalysisExtractor {
	if log == nil {
		log = slog.Default()
	}
	return &AnalysisExtractor{backend: backend, log: log}
}

// Extract fires all sections and streams results as they resolve. The
// channel is closed once every section has reported. Callers typically
// unlock navigation as soon as the metadata result arrives.
func (e *AnalysisExtractor) Extract(ctx context.Context, text string, role model.UserRole) <-chan SectionResult {
	results := make(chan SectionResult, len(model.AllSections))

	var wg sync.WaitGroup
	for _, section := range model.AllSections {
		wg.Add(1)
		go func(section model.Section) {
			defer wg.Done()
			results <- e.extractSection(ctx, section, text, role)
		}(section)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (e *AnalysisExtractor) extractSection(ctx context.Context, section model.Section, text string, role model.UserRole) SectionResult {
	out := SectionResult{Section: section}

	sess, err := e.backend.NewSession(ctx, SessionConfig{
		SystemInstruction: sectionInstruction(section, role),
		JSONOutput:        true,
		ResponseSchema:    sectionSchema(section),
	})
	if err != nil {
		out.Err = fmt.Errorf("%s: open session: %w", section, err)
		return out
	}
	defer sess.Close()

	raw, err := sess.Prompt(ctx, "Analyze this contract:\n\n"+text)
	if err != nil {
		e.log.Warn("section extraction failed", "section", section, "error", err)
		out.Err = fmt.Errorf("%s: %w", section, err)
		return out
	}

	if err := out.decode(StripCodeFences(raw)); err != nil {
		e.log.Warn("section extraction returned malformed JSON", "section", section, "error", err)
		out.Err = fmt.Errorf("%s: %w", section, err)
	}
	return out
}

func (r *SectionResult) decode(raw string) error {
	switch r.Section {
	case model.SectionMetadata:
		var md model.Metadata
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			return err
		}
		r.Metadata = &md
	case model.SectionSummary:
		var sm model.Summary
		if err := json.Unmarshal([]byte(raw), &sm); err != nil {
			return err
		}
		r.Summary = &sm
	case model.SectionRisks:
		var payload struct {
			Risks []model.Risk `json:"risks"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return err
		}
		r.Risks = payload.Risks
	case model.SectionObligations:
		var payload struct {
			Obligations []model.Obligation `json:"obligations"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return err
		}
		r.Obligations = payload.Obligations
	case model.SectionOmissions:
		var payload struct {
			Omissions []model.Omission `json:"omissions"`
			Questions []string         `json:"questions"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return err
		}
		r.Omissions = payload.Omissions
		r.Questions = payload.Questions
	}
	return nil
}

func perspective(role model.UserRole) string {
	if role == model.RoleBoth {
		return "Compare both parties' perspectives and point out where their interests diverge."
	}
	return fmt.Sprintf("Analyze from the perspective of the %s.", role)
}

func sectionInstruction(section model.Section, role model.UserRole) string {
	base := "You analyze legal contracts for non-lawyers. Respond with JSON only, no prose. " + perspective(role) + "\n"
	switch section {
	case model.SectionMetadata:
		return base + `Extract contract metadata: {"contract_type": string, "parties": [{"name": string, "role": string}],
"effective_date": string, "end_date": string, "jurisdiction": string, "governing_law": string,
"value": {"amount": number, "currency": string}, "language": string}. Omit fields that are not in the contract.`
	case model.SectionSummary:
		return base + `Summarize the contract in plain language: {"overview": string, "key_points": [string]}.`
	case model.SectionRisks:
		return base + `List the risks for this perspective: {"risks": [{"title": string, "description": string,
"severity": "high"|"medium"|"low", "impact": string}]}.`
	case model.SectionObligations:
		return base + `List each party's obligations: {"obligations": [{"party": string, "duty": string, "deadline": string}]}.`
	case model.SectionOmissions:
		return base + `List clauses this contract is missing and questions worth asking before signing:
{"omissions": [{"item": string, "impact": string}], "questions": [string]}.`
	}
	return base
}

func sectionSchema(section model.Section) *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	switch section {
	case model.SectionMetadata:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"contract_type": str,
				"parties": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"name": str,
							"role": str,
						},
					},
				},
				"effective_date": str,
				"end_date":       str,
				"jurisdiction":   str,
				"governing_law":  str,
				"value": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"amount":   {Type: genai.TypeNumber},
						"currency": str,
					},
				},
				"language": str,
			},
			Required: []string{"contract_type"},
		}
	case model.SectionSummary:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"overview":   str,
				"key_points": {Type: genai.TypeArray, Items: str},
			},
			Required: []string{"overview"},
		}
	case model.SectionRisks:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"risks": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"title":       str,
							"description": str,
							"severity":    str,
							"impact":      str,
						},
						Required: []string{"title", "description", "severity"},
					},
				},
			},
			Required: []string{"risks"},
		}
	case model.SectionObligations:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"obligations": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"party":    str,
							"duty":     str,
							"deadline": str,
						},
						Required: []string{"party", "duty"},
					},
				},
			},
			Required: []string{"obligations"},
		}
	case model.SectionOmissions:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"omissions": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"item":   str,
							"impact": str,
						},
						Required: []string{"item"},
					},
				},
				"questions": {Type: genai.TypeArray, Items: str},
			},
			Required: []string{"omissions", "questions"},
		}
	}
	return nil
}
