package model

import (
	"time"
)

// Section names the independently extracted parts of an analysis.
type Section string

const (
	SectionMetadata    Section = "metadata"
	SectionSummary     Section = "summary"
	SectionRisks       Section = "risks"
	SectionObligations Section = "obligations"
	SectionOmissions   Section = "omissions"
)

// AllSections lists every section in extraction order.
var AllSections = []Section{
	SectionMetadata,
	SectionSummary,
	SectionRisks,
	SectionObligations,
	SectionOmissions,
}

// Section extraction states.
const (
	SectionPending = "pending"
	SectionDone    = "done"
	SectionFailed  = "failed"
)

// SectionStatus tracks one section's extraction outcome. A failed section
// never blocks its siblings; the error message is surfaced alongside
// whatever did resolve.
type SectionStatus struct {
	State    string `json:"state"` // pending, done, failed
	ErrorMsg string `json:"error_msg,omitempty"`
}

// ContractValue is a monetary amount found in the contract. Amount and
// Currency are never translated.
type ContractValue struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Metadata is the first section to resolve; navigation to the results view
// is unlocked as soon as it lands.
type Metadata struct {
	ContractType  string         `json:"contract_type"`
	Parties       []Party        `json:"parties,omitempty"`
	EffectiveDate string         `json:"effective_date,omitempty"`
	EndDate       string         `json:"end_date,omitempty"`
	Jurisdiction  string         `json:"jurisdiction,omitempty"`
	GoverningLaw  string         `json:"governing_law,omitempty"`
	Value         *ContractValue `json:"value,omitempty"`
	Language      string         `json:"language,omitempty"`
}

// Summary is the plain-language overview of the contract.
type Summary struct {
	Overview  string   `json:"overview"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// Risk severities. Severity is an enum and passes through translation
// unchanged.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Risk is one risk flagged for the chosen perspective.
type Risk struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Impact      string `json:"impact,omitempty"`
}

// Obligation is a duty the contract places on a party.
type Obligation struct {
	Party    string `json:"party"`
	Duty     string `json:"duty"`
	Deadline string `json:"deadline,omitempty"`
}

// Omission is a clause the contract is missing.
type Omission struct {
	Item   string `json:"item"`
	Impact string `json:"impact,omitempty"`
}

// Analysis is the full structured result for one contract. Sections resolve
// independently; a nil/empty section with a failed status means that
// extraction failed while the others carried on.
type Analysis struct {
	ContractID  string                    `json:"contract_id"`
	Role        UserRole                  `json:"role"`
	Language    string                    `json:"language"`
	Metadata    *Metadata                 `json:"metadata,omitempty"`
	Summary     *Summary                  `json:"summary,omitempty"`
	Risks       []Risk                    `json:"risks,omitempty"`
	Obligations []Obligation              `json:"obligations,omitempty"`
	Omissions   []Omission                `json:"omissions,omitempty"`
	Questions   []string                  `json:"questions,omitempty"`
	Sections    map[Section]SectionStatus `json:"sections"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// NewAnalysis returns an analysis with every section pending.
func NewAnalysis(contractID string, role UserRole, language string) *Analysis {
	sections := make(map[Section]SectionStatus, len(AllSections))
	for _, s := range AllSections {
		sections[s] = SectionStatus{State: SectionPending}
	}
	return &Analysis{
		ContractID: contractID,
		Role:       role,
		Language:   language,
		Sections:   sections,
		CreatedAt:  time.Now(),
	}
}

// Clone returns a deep copy. Translation works on a copy so a failed pass
// can hand back the untouched original.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	out := *a
	if a.Metadata != nil {
		md := *a.Metadata
		if a.Metadata.Value != nil {
			v := *a.Metadata.Value
			md.Value = &v
		}
		md.Parties = append([]Party(nil), a.Metadata.Parties...)
		out.Metadata = &md
	}
	if a.Summary != nil {
		sm := *a.Summary
		sm.KeyPoints = append([]string(nil), a.Summary.KeyPoints...)
		out.Summary = &sm
	}
	out.Risks = append([]Risk(nil), a.Risks...)
	out.Obligations = append([]Obligation(nil), a.Obligations...)
	out.Omissions = append([]Omission(nil), a.Omissions...)
	out.Questions = append([]string(nil), a.Questions...)
	out.Sections = make(map[Section]SectionStatus, len(a.Sections))
	for k, v := range a.Sections {
		out.Sections[k] = v
	}
	return &out
}
