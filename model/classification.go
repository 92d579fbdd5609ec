package model

// DocumentType is the best-guess category for an uploaded document.
type DocumentType string

const (
	DocTypeContract             DocumentType = "contract"
	DocTypeEmploymentContract   DocumentType = "employment_contract"
	DocTypeRentalAgreement      DocumentType = "rental_agreement"
	DocTypeNDA                  DocumentType = "nda"
	DocTypeServiceAgreement     DocumentType = "service_agreement"
	DocTypePurchaseAgreement    DocumentType = "purchase_agreement"
	DocTypeLeaseAgreement       DocumentType = "lease_agreement"
	DocTypePartnershipAgreement DocumentType = "partnership_agreement"
	DocTypeEssay                DocumentType = "essay"
	DocTypeEmail                DocumentType = "email_or_letter"
	DocTypeArticle              DocumentType = "article_or_blog"
	DocTypeRecipe               DocumentType = "recipe"
	DocTypeStory                DocumentType = "story_or_book"
	DocTypeAcademicPaper        DocumentType = "academic_paper"
	DocTypeTutorial             DocumentType = "tutorial_or_guide"
	DocTypeOther                DocumentType = "other"
)

// ClassificationResult is the outcome of the contract/non-contract decision.
// Produced fresh per document and never mutated afterwards.
type ClassificationResult struct {
	IsContract   bool         `json:"is_contract"`
	Confidence   int          `json:"confidence"` // 0-100
	DocumentType DocumentType `json:"document_type"`
	Reason       string       `json:"reason,omitempty"`
}
