package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/anggasct/fluo"

	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/famzila/contract-whisperer-backend/pkg/logger"
	"github.com/famzila/contract-whisperer-backend/service"
)

var (
	// ErrUnknownSession means no onboarding flow exists for the contract.
	ErrUnknownSession = errors.New("onboarding: unknown session")
	// ErrInvalidStep means the requested operation is not legal in the
	// session's current state.
	ErrInvalidStep = errors.New("onboarding: operation not allowed in current step")
	// ErrSessionReset means the session was reset while the operation ran.
	ErrSessionReset = errors.New("onboarding: session was reset")
)

// Classifier decides whether a document is a contract.
type Classifier interface {
	Classify(ctx context.Context, text string) (model.ClassificationResult, error)
}

// LanguageService detects the document language and decides whether the
// user must pick an output language.
type LanguageService interface {
	Detect(text string) service.LanguageDetection
	NeedsSelection(detected service.LanguageDetection, preferred string) bool
}

// PartyService extracts the contracting parties.
type PartyService interface {
	Detect(ctx context.Context, text string) model.PartyDetectionResult
}

// AnalysisService runs the per-section extraction.
type AnalysisService interface {
	Extract(ctx context.Context, text string, role model.UserRole) <-chan service.SectionResult
}

// ContractUpdater is the slice of the contract store the manager needs.
type ContractUpdater interface {
	Get(id string) *model.Contract
	UpdateStatus(id, status, errMsg string)
	SetClassification(id string, result *model.ClassificationResult)
	SetAnalysis(id string, analysis *model.Analysis)
}

// AnalysisCacher persists finished analyses for the history view.
type AnalysisCacher interface {
	Put(entry service.CachedAnalysis) error
}

// Deps wires the manager to the services it drives.
type Deps struct {
	Classifier      Classifier
	Languages       LanguageService
	Parties         PartyService
	Analyzer        AnalysisService
	Store           ContractUpdater
	Cache           AnalysisCacher // optional
	DefaultLanguage string
	Logger          *slog.Logger
}

// Manager runs the onboarding flow for every contract: validation,
// language resolution, party detection, role choice and the hand-off into
// analysis. One session per contract, one state machine per session.
type Manager struct {
	deps Deps
	def  fluo.MachineDefinition
	log  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(deps Deps) *Manager {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		deps:     deps,
		def:      newFlowDefinition(),
		log:      log,
		sessions: make(map[string]*session),
	}
}

// sessionFor returns the session for a contract, creating it on first use.
func (m *Manager) sessionFor(contractID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[contractID]; ok {
		return s
	}
	mach := m.def.CreateInstance()
	mach.Start()
	s := &session{contractID: contractID, machine: mach}
	m.sessions[contractID] = s
	return s
}

func (m *Manager) lookup(contractID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[contractID]
}

// Submit feeds extracted document text into the flow. It classifies the
// document, rejects non-contracts, detects the document language and
// starts party detection in the background. preferredLanguage falls back
// to the configured default.
func (m *Manager) Submit(ctx context.Context, contractID, preferredLanguage, text string) (*Snapshot, error) {
	s := m.sessionFor(contractID)

	s.mu.Lock()
	if res := s.machine.SendEvent(evSubmit, nil); !res.StateChanged {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: submit in step %q", ErrInvalidStep, s.machine.CurrentState())
	}
	gen := s.generation
	s.text = text
	s.preferredLanguage = preferredLanguage
	if s.preferredLanguage == "" {
		s.preferredLanguage = m.deps.DefaultLanguage
	}
	preferred := s.preferredLanguage
	s.mu.Unlock()

	// Classification may call the AI backend; do it outside the lock.
	result, err := m.deps.Classifier.Classify(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, ErrSessionReset
	}
	if err != nil {
		s.resetLocked()
		return nil, err
	}

	s.classification = result
	m.deps.Store.SetClassification(contractID, &result)

	if !result.IsContract {
		s.machine.SendEvent(evReject, nil)
		m.deps.Store.UpdateStatus(contractID, model.StatusRejected, rejectionMessage(result))
		m.log.InfoContext(ctx, "document rejected",
			"contract_id", contractID,
			"document_type", result.DocumentType,
			"confidence", result.Confidence)
		return s.snapshotLocked(), nil
	}

	s.machine.SendEvent(evAccept, nil)
	m.deps.Store.UpdateStatus(contractID, model.StatusOnboarding, "")

	s.language = m.deps.Languages.Detect(text)

	// Parties are detected concurrently with any language prompt so the
	// role step is ready as soon as the language question is answered.
	go m.detectParties(contractID, gen, text)

	if m.deps.Languages.NeedsSelection(s.language, preferred) {
		s.machine.SendEvent(evLanguageMismatch, nil)
		return s.snapshotLocked(), nil
	}

	s.outputLanguage = s.language.Code
	if s.outputLanguage == "" {
		s.outputLanguage = preferred
	}
	s.machine.SendEvent(evLanguageOK, nil)
	if s.parties != nil {
		s.machine.SendEvent(evPartiesResolved, nil)
	}
	return s.snapshotLocked(), nil
}

func (m *Manager) detectParties(contractID string, gen int, text string) {
	ctx := logger.WithContract(context.Background(), contractID)
	result := m.deps.Parties.Detect(ctx, text)

	s := m.lookup(contractID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		m.log.DebugContext(ctx, "dropping stale party detection result", "contract_id", contractID)
		return
	}
	s.parties = &result
	if s.machine.CurrentState() == StateDetectingParties {
		s.machine.SendEvent(evPartiesResolved, nil)
	}
}

// ChooseLanguage resolves the language prompt with the user's pick.
func (m *Manager) ChooseLanguage(contractID, code string) (*Snapshot, error) {
	s := m.lookup(contractID)
	if s == nil {
		return nil, ErrUnknownSession
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("onboarding: empty language code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.machine.SendEvent(evLanguageChosen, nil); !res.StateChanged {
		return nil, fmt.Errorf("%w: no language choice pending", ErrInvalidStep)
	}
	s.outputLanguage = code
	s.needsTranslation = s.language.Code != "" && code != s.language.Code
	if s.parties != nil {
		s.machine.SendEvent(evPartiesResolved, nil)
	}
	return s.snapshotLocked(), nil
}

// ChooseRole resolves the role prompt and kicks off section extraction.
func (m *Manager) ChooseRole(contractID, rawRole string) (*Snapshot, error) {
	s := m.lookup(contractID)
	if s == nil {
		return nil, ErrUnknownSession
	}
	role := MapPartyRoleToUserRole(rawRole)
	if role == "" {
		return nil, fmt.Errorf("onboarding: empty role")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res := s.machine.SendEvent(evRoleChosen, nil); !res.StateChanged {
		return nil, fmt.Errorf("%w: no role choice pending", ErrInvalidStep)
	}
	s.role = role
	gen := s.generation

	// The analysis records the language the extracted content is actually
	// in: the document's language. When that differs from the chosen output
	// language, a translation pass runs on read.
	analysisLang := s.language.Code
	if analysisLang == "" {
		analysisLang = s.outputLanguage
	}
	analysis := model.NewAnalysis(contractID, role, analysisLang)
	m.deps.Store.SetAnalysis(contractID, analysis.Clone())
	m.deps.Store.UpdateStatus(contractID, model.StatusAnalyzing, "")

	go m.runAnalysis(contractID, gen, s.text, role, analysis)

	return s.snapshotLocked(), nil
}

// runAnalysis consumes section results as they land, publishing each one to
// the store so the UI can stream progress. Results arriving after a reset
// are dropped. Only clones ever reach the store: the working copy is
// mutated under the session lock while handlers serialize the published
// snapshot with no lock at all.
func (m *Manager) runAnalysis(contractID string, gen int, text string, role model.UserRole, analysis *model.Analysis) {
	ctx := logger.WithContract(context.Background(), contractID)
	results := m.deps.Analyzer.Extract(ctx, text, role)

	for r := range results {
		s := m.lookup(contractID)
		if s == nil {
			return
		}
		s.mu.Lock()
		if s.generation != gen {
			s.mu.Unlock()
			m.log.DebugContext(ctx, "dropping stale section result", "section", r.Section)
			return
		}
		r.Apply(analysis)
		m.deps.Store.SetAnalysis(contractID, analysis.Clone())
		if r.Section == model.SectionMetadata && r.Err == nil {
			s.navigationReady = true
		}
		s.mu.Unlock()
	}

	s := m.lookup(contractID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.machine.SendEvent(evAnalysisDone, nil)

	if failedSections(analysis) == len(model.AllSections) {
		m.deps.Store.UpdateStatus(contractID, model.StatusFailed, "analysis failed for every section")
		return
	}
	m.deps.Store.UpdateStatus(contractID, model.StatusCompleted, "")
	m.cacheAnalysis(ctx, contractID, analysis)
}

func (m *Manager) cacheAnalysis(ctx context.Context, contractID string, analysis *model.Analysis) {
	if m.deps.Cache == nil {
		return
	}
	entry := service.CachedAnalysis{
		ContractID: contractID,
		Analysis:   analysis.Clone(),
		CachedAt:   time.Now(),
	}
	if contract := m.deps.Store.Get(contractID); contract != nil {
		entry.Filename = contract.Filename
		entry.Tenant = contract.Tenant
	}
	if err := m.deps.Cache.Put(entry); err != nil {
		m.log.WarnContext(ctx, "caching analysis failed", "contract_id", contractID, "error", err)
	}
}

// Reset rewinds the flow to idle. In-flight party detection or section
// extraction for the old run is invalidated and its late results dropped.
func (m *Manager) Reset(contractID string) (*Snapshot, error) {
	s := m.lookup(contractID)
	if s == nil {
		return nil, ErrUnknownSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	m.deps.Store.UpdateStatus(contractID, model.StatusPending, "")
	return s.snapshotLocked(), nil
}

// Status reports the current step, active prompt and collected results.
func (m *Manager) Status(contractID string) (*Snapshot, error) {
	s := m.lookup(contractID)
	if s == nil {
		return nil, ErrUnknownSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// OutputLanguage reports the language the finished analysis should be
// presented in, and whether that requires a translation pass.
func (m *Manager) OutputLanguage(contractID string) (lang string, needsTranslation bool, err error) {
	s := m.lookup(contractID)
	if s == nil {
		return "", false, ErrUnknownSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputLanguage, s.needsTranslation, nil
}

func failedSections(a *model.Analysis) int {
	n := 0
	for _, st := range a.Sections {
		if st.State == model.SectionFailed {
			n++
		}
	}
	return n
}

func rejectionMessage(result model.ClassificationResult) string {
	kind := strings.ReplaceAll(string(result.DocumentType), "_", " ")
	if kind == "" || kind == "other" {
		return "This document does not look like a contract."
	}
	return fmt.Sprintf("This document looks like %s, not a contract.", article(kind)+kind)
}

func article(word string) string {
	if word == "" {
		return ""
	}
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an "
	}
	return "a "
}
