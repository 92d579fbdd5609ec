package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/google/generative-ai-go/genai"
)

// ErrEmptyDocument is returned when classification is asked to run on
// empty or whitespace-only text.
var ErrEmptyDocument = errors.New("document text is empty")

// Texts outside this range are still classified, just logged as suspect.
const (
	minReasonableChars = 50
	maxReasonableChars = 100_000
)

// Default indicator lists. Substring presence is what counts, not
// frequency. Overridable through config since the exact lists are product
// tuning.
var defaultContractIndicators = []string{
	"agreement",
	"whereas",
	"hereby",
	"hereinafter",
	"termination",
	"governing law",
	"jurisdiction",
	"liability",
	"indemnify",
	"confidentiality",
	"obligations",
	"warranty",
	"breach",
	"effective date",
	"in witness whereof",
	"terms and conditions",
}

var defaultNonContractIndicators = []string{
	"once upon a time",
	"chapter",
	"recipe",
	"ingredients",
	"dear",
	"sincerely",
	"best regards",
	"abstract",
	"introduction",
	"step 1",
	"step 2",
	"i hope this",
	"lorem ipsum",
}

// Classifier decides whether a document is a contract. It runs a fast
// keyword heuristic first and consults the AI backend only when the
// heuristic is uncertain; AI failures always degrade to the heuristic
// result, never to an error.
type Classifier struct {
	backend     AIBackend
	cfg         config.ClassifierConfig
	contract    *goahocorasick.Machine
	nonContract *goahocorasick.Machine
	log         *slog.Logger
}

func NewClassifier(backend AIBackend, cfg config.ClassifierConfig, log *slog.Logger) (*Classifier, error) {
	if len(cfg.ContractIndicators) == 0 {
		cfg.ContractIndicators = defaultContractIndicators
	}
	if len(cfg.NonContractIndicators) == 0 {
		cfg.NonContractIndicators = defaultNonContractIndicators
	}
	if cfg.MinContractMatches == 0 {
		cfg.MinContractMatches = 5
	}
	if cfg.MinNonContractMatches == 0 {
		cfg.MinNonContractMatches = 2
	}
	if cfg.AIThreshold == 0 {
		cfg.AIThreshold = 80
	}
	if cfg.AISnippetChars == 0 {
		cfg.AISnippetChars = 2000
	}
	if log == nil {
		log = slog.Default()
	}

	contract, err := buildMatcher(cfg.ContractIndicators)
	if err != nil {
		return nil, fmt.Errorf("build contract matcher: %w", err)
	}
	nonContract, err := buildMatcher(cfg.NonContractIndicators)
	if err != nil {
		return nil, fmt.Errorf("build non-contract matcher: %w", err)
	}

	return &Classifier{
		backend:     backend,
		cfg:         cfg,
		contract:    contract,
		nonContract: nonContract,
		log:         log,
	}, nil
}

func buildMatcher(patterns []string) (*goahocorasick.Machine, error) {
	runes := make([][]rune, len(patterns))
	for i, p := range patterns {
		runes[i] = []rune(strings.ToLower(p))
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(runes); err != nil {
		return nil, err
	}
	return m, nil
}

// Classify runs the two-tier classification. Empty input is the only error
// case; everything past that point resolves to a result.
func (c *Classifier) Classify(ctx context.Context, text string) (model.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return model.ClassificationResult{}, ErrEmptyDocument
	}

	if n := len(text); n < minReasonableChars {
		c.log.Warn("document suspiciously short", "chars", n)
	} else if n > maxReasonableChars {
		c.log.Warn("document suspiciously long", "chars", n)
	}

	heuristic := c.heuristic(text)

	// Confident heuristic verdicts skip the AI backend entirely.
	if heuristic.Confidence > c.cfg.AIThreshold {
		return heuristic, nil
	}

	return c.classifyWithAI(ctx, text, heuristic), nil
}

// heuristic scores the document with the keyword lists.
func (c *Classifier) heuristic(text string) model.ClassificationResult {
	lower := strings.ToLower(text)
	contractCount := countDistinctMatches(c.contract, lower)
	nonContractCount := countDistinctMatches(c.nonContract, lower)

	switch {
	case contractCount >= c.cfg.MinContractMatches && nonContractCount == 0:
		confidence := 70 + 5*contractCount
		if confidence > 95 {
			confidence = 95
		}
		return model.ClassificationResult{
			IsContract:   true,
			Confidence:   confidence,
			DocumentType: model.DocTypeContract,
			Reason:       "Document contains legal contract language",
		}
	case nonContractCount >= c.cfg.MinNonContractMatches && contractCount < 2:
		return model.ClassificationResult{
			IsContract:   false,
			Confidence:   90,
			DocumentType: nonContractDocType(lower),
			Reason:       "Document contains non-legal language patterns",
		}
	default:
		return model.ClassificationResult{
			IsContract:   false,
			Confidence:   50,
			DocumentType: model.DocTypeOther,
			Reason:       "needs AI validation",
		}
	}
}

// countDistinctMatches counts how many patterns appear at least once.
func countDistinctMatches(m *goahocorasick.Machine, lower string) int {
	terms := m.MultiPatternSearch([]rune(lower), false)
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		seen[string(term.Word)] = struct{}{}
	}
	return len(seen)
}

// nonContractDocType resolves the document type with ordered keyword-pair
// rules. The first matching rule wins.
func nonContractDocType(lower string) model.DocumentType {
	switch {
	case strings.Contains(lower, "dear") && strings.Contains(lower, "sincerely"):
		return model.DocTypeEmail
	case strings.Contains(lower, "abstract") || strings.Contains(lower, "introduction"):
		return model.DocTypeAcademicPaper
	case strings.Contains(lower, "chapter") || strings.Contains(lower, "once upon a time"):
		return model.DocTypeStory
	case strings.Contains(lower, "recipe") || strings.Contains(lower, "ingredients"):
		return model.DocTypeRecipe
	case strings.Contains(lower, "step 1") || strings.Contains(lower, "step 2"):
		return model.DocTypeTutorial
	default:
		return model.DocTypeOther
	}
}

const classifySystemInstruction = `You are a document classifier for a contract analysis tool.
Decide whether the given text is a legal contract (an agreement creating obligations between parties)
or some other kind of document (story, email, article, recipe, academic paper, tutorial...).
Respond with JSON only: {"is_contract": bool, "confidence": 0-100, "document_type": string, "reason": string}.
document_type must be one of: employment_contract, rental_agreement, nda, service_agreement,
purchase_agreement, lease_agreement, partnership_agreement, essay, email_or_letter, article_or_blog,
recipe, story_or_book, academic_paper, tutorial_or_guide, other.`

// aiClassification mirrors the JSON the model is asked to produce.
type aiClassification struct {
	IsContract   bool   `json:"is_contract"`
	Confidence   int    `json:"confidence"`
	DocumentType string `json:"document_type"`
	Reason       string `json:"reason"`
}

// classifyWithAI runs the single AI attempt. Whatever goes wrong —
// unavailable backend, session failure, malformed response — the heuristic
// result is returned instead. Errors never cross this boundary.
func (c *Classifier) classifyWithAI(ctx context.Context, text string, fallback model.ClassificationResult) model.ClassificationResult {
	if !c.backend.CheckAvailability(ctx) {
		c.log.Debug("AI backend unavailable, keeping heuristic result")
		return fallback
	}

	sess, err := c.backend.NewSession(ctx, SessionConfig{
		SystemInstruction: classifySystemInstruction,
		JSONOutput:        true,
		ResponseSchema:    classificationSchema(),
	})
	if err != nil {
		c.log.Warn("AI classification session failed", "error", err)
		return fallback
	}
	defer sess.Close()

	raw, err := sess.Prompt(ctx, "Classify this document:\n\n"+snippet(text, c.cfg.AISnippetChars))
	if err != nil {
		c.log.Warn("AI classification call failed", "error", err)
		return fallback
	}

	var out aiClassification
	if err := json.Unmarshal([]byte(StripCodeFences(raw)), &out); err != nil {
		c.log.Warn("AI classification returned malformed JSON", "error", err)
		return fallback
	}

	return model.ClassificationResult{
		IsContract:   out.IsContract,
		Confidence:   clampConfidence(out.Confidence),
		DocumentType: normalizeDocType(out.DocumentType),
		Reason:       out.Reason,
	}
}

func classificationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"is_contract":   {Type: genai.TypeBoolean},
			"confidence":    {Type: genai.TypeInteger},
			"document_type": {Type: genai.TypeString},
			"reason":        {Type: genai.TypeString},
		},
		Required: []string{"is_contract", "confidence", "document_type"},
	}
}

// snippet returns the first n characters without splitting a rune.
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

var knownDocTypes = map[model.DocumentType]struct{}{
	model.DocTypeContract:             {},
	model.DocTypeEmploymentContract:   {},
	model.DocTypeRentalAgreement:      {},
	model.DocTypeNDA:                  {},
	model.DocTypeServiceAgreement:     {},
	model.DocTypePurchaseAgreement:    {},
	model.DocTypeLeaseAgreement:       {},
	model.DocTypePartnershipAgreement: {},
	model.DocTypeEssay:                {},
	model.DocTypeEmail:                {},
	model.DocTypeArticle:              {},
	model.DocTypeRecipe:               {},
	model.DocTypeStory:                {},
	model.DocTypeAcademicPaper:        {},
	model.DocTypeTutorial:             {},
	model.DocTypeOther:                {},
}

func normalizeDocType(raw string) model.DocumentType {
	dt := model.DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownDocTypes[dt]; ok {
		return dt
	}
	return model.DocTypeOther
}
