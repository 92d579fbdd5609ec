package model

import (
	"time"
)

// Contract represents one uploaded or pasted contract document and the
// work done on it so far.
type Contract struct {
	ID             string                `json:"id"`
	Filename       string                `json:"filename"`
	Tenant         string                `json:"tenant"`
	DocumentURL    string                `json:"document_url,omitempty"`
	Status         string                `json:"status"`
	ExtractTaskID  string                `json:"extract_task_id,omitempty"`
	Text           string                `json:"-"` // extracted text, never serialized to clients
	Classification *ClassificationResult `json:"classification,omitempty"`
	Analysis       *Analysis             `json:"analysis,omitempty"`
	ErrorMsg       string                `json:"error_msg,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// Contract lifecycle statuses.
const (
	StatusPending    = "pending"    // uploaded, extraction not started
	StatusParsing    = "parsing"    // external text extraction in flight
	StatusRejected   = "rejected"   // classifier decided this is not a contract
	StatusOnboarding = "onboarding" // awaiting language/role resolution
	StatusAnalyzing  = "analyzing"  // per-section extraction running
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
