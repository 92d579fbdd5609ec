package onboarding

import (
	"github.com/anggasct/fluo"
)

// Flow states. Each onboarding session owns one machine instance walking
// these states; Reset() returns it to StateIdle.
const (
	StateIdle                   = "idle"
	StateValidating             = "validating"
	StateRejected               = "rejected"
	StateDetectingLanguage      = "detecting_language"
	StateAwaitingLanguageChoice = "awaiting_language_choice"
	StateDetectingParties       = "detecting_parties"
	StateAwaitingRoleChoice     = "awaiting_role_choice"
	StateAnalyzing              = "analyzing"
	StateComplete               = "complete"
)

// Flow events.
const (
	evSubmit           = "submit"
	evReject           = "reject"
	evAccept           = "accept"
	evLanguageMismatch = "language_mismatch"
	evLanguageOK       = "language_ok"
	evLanguageChosen   = "language_chosen"
	evPartiesResolved  = "parties_resolved"
	evRoleChosen       = "role_chosen"
	evAnalysisDone     = "analysis_done"
)

// newFlowDefinition builds the shared onboarding machine definition.
// Instances created from it are the single source of truth for which
// operations a session currently accepts.
func newFlowDefinition() fluo.MachineDefinition {
	b := fluo.NewMachine()

	b.State(StateIdle).Initial().
		To(StateValidating).On(evSubmit)

	b.State(StateValidating).
		To(StateRejected).On(evReject).
		To(StateDetectingLanguage).On(evAccept)

	b.State(StateRejected)

	b.State(StateDetectingLanguage).
		To(StateAwaitingLanguageChoice).On(evLanguageMismatch).
		To(StateDetectingParties).On(evLanguageOK)

	b.State(StateAwaitingLanguageChoice).
		To(StateDetectingParties).On(evLanguageChosen)

	b.State(StateDetectingParties).
		To(StateAwaitingRoleChoice).On(evPartiesResolved)

	b.State(StateAwaitingRoleChoice).
		To(StateAnalyzing).On(evRoleChosen)

	b.State(StateAnalyzing).
		To(StateComplete).On(evAnalysisDone)

	b.State(StateComplete).Final()

	return b.Build()
}
