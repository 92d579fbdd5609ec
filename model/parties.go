package model

// PartyConfidence is the confidence tier reported by party detection.
type PartyConfidence string

const (
	PartyConfidenceHigh   PartyConfidence = "high"
	PartyConfidenceMedium PartyConfidence = "medium"
	PartyConfidenceLow    PartyConfidence = "low"
)

// Party is one contracting party as named in the document.
type Party struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// DetectedParties holds the two parties the AI inferred from the contract.
type DetectedParties struct {
	Party1 Party `json:"party1"`
	Party2 Party `json:"party2"`
}

// PartyDetectionResult drives whether the UI offers named-party selection
// or falls back to a generic role list.
type PartyDetectionResult struct {
	Confidence PartyConfidence  `json:"confidence"`
	Parties    *DetectedParties `json:"parties,omitempty"`
}

// UserRole is the canonical perspective the analysis is produced for.
type UserRole string

const (
	RoleEmployer        UserRole = "employer"
	RoleEmployee        UserRole = "employee"
	RoleClient          UserRole = "client"
	RoleContractor      UserRole = "contractor"
	RoleLandlord        UserRole = "landlord"
	RoleTenant          UserRole = "tenant"
	RolePartner         UserRole = "partner"
	RoleBuyer           UserRole = "buyer"
	RoleSeller          UserRole = "seller"
	RoleDisclosingParty UserRole = "disclosing_party"
	RoleReceivingParty  UserRole = "receiving_party"
	RoleBoth            UserRole = "both"
	RoleUnknown         UserRole = "unknown"
)
