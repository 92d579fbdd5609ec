package onboarding

import (
	"sync"

	"github.com/anggasct/fluo"

	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/famzila/contract-whisperer-backend/service"
)

// Prompt identifies the single question the UI should show the user.
// At most one prompt is active at a time.
type Prompt string

const (
	PromptNone           Prompt = ""
	PromptLanguage       Prompt = "language_selection"
	PromptPartiesLoading Prompt = "parties_loading"
	PromptRole           Prompt = "role_selection"
)

// nextPrompt picks the active prompt. Language selection always wins over
// the party/role prompts; while parties are still being detected the role
// prompt is replaced by a loading placeholder.
func nextPrompt(needsLanguage, partiesResolved, needsRole bool) Prompt {
	switch {
	case needsLanguage:
		return PromptLanguage
	case needsRole && !partiesResolved:
		return PromptPartiesLoading
	case needsRole:
		return PromptRole
	default:
		return PromptNone
	}
}

// session holds the mutable onboarding state for one contract. The fluo
// machine decides which operations are currently legal; generation guards
// async work (party detection, section extraction) against a reset that
// happened while it was in flight.
type session struct {
	contractID string

	mu         sync.Mutex
	machine    fluo.Machine
	generation int

	text              string
	classification    model.ClassificationResult
	language          service.LanguageDetection
	preferredLanguage string
	outputLanguage    string
	needsTranslation  bool
	parties           *model.PartyDetectionResult
	role              model.UserRole
	navigationReady   bool
}

// Snapshot is the externally visible view of a session, shaped for the
// status endpoint.
type Snapshot struct {
	ContractID       string                      `json:"contract_id"`
	Step             string                      `json:"step"`
	Prompt           Prompt                      `json:"prompt,omitempty"`
	DocumentType     model.DocumentType          `json:"document_type,omitempty"`
	Confidence       int                         `json:"confidence,omitempty"`
	Reason           string                      `json:"reason,omitempty"`
	DetectedLanguage string                      `json:"detected_language,omitempty"`
	OutputLanguage   string                      `json:"output_language,omitempty"`
	NeedsTranslation bool                        `json:"needs_translation,omitempty"`
	Parties          *model.PartyDetectionResult `json:"parties,omitempty"`
	RoleOptions      []RoleOption                `json:"role_options,omitempty"`
	Role             model.UserRole              `json:"role,omitempty"`
	NavigationReady  bool                        `json:"navigation_ready"`
}

// snapshotLocked builds a Snapshot. Caller holds s.mu.
func (s *session) snapshotLocked() *Snapshot {
	state := s.machine.CurrentState()
	prompt := nextPrompt(
		state == StateAwaitingLanguageChoice,
		s.parties != nil,
		state == StateDetectingParties || state == StateAwaitingRoleChoice,
	)
	snap := &Snapshot{
		ContractID:       s.contractID,
		Step:             state,
		Prompt:           prompt,
		DocumentType:     s.classification.DocumentType,
		Confidence:       s.classification.Confidence,
		Reason:           s.classification.Reason,
		DetectedLanguage: s.language.Code,
		OutputLanguage:   s.outputLanguage,
		NeedsTranslation: s.needsTranslation,
		Parties:          s.parties,
		Role:             s.role,
		NavigationReady:  s.navigationReady,
	}
	if prompt == PromptRole {
		snap.RoleOptions = RoleOptionsFor(s.parties)
	}
	return snap
}

// resetLocked rewinds the session to idle and bumps the generation so any
// in-flight async result for the old run is dropped on arrival. Caller
// holds s.mu.
func (s *session) resetLocked() {
	s.generation++
	s.machine.Reset()
	s.machine.Start()
	s.text = ""
	s.classification = model.ClassificationResult{}
	s.language = service.LanguageDetection{}
	s.preferredLanguage = ""
	s.outputLanguage = ""
	s.needsTranslation = false
	s.parties = nil
	s.role = ""
	s.navigationReady = false
}
