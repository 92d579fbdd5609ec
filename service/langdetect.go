package service

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

// LanguageDetection is the outcome of detecting the contract's language.
type LanguageDetection struct {
	Code       string  `json:"code"` // ISO 639-1, empty when undetectable
	Confidence float64 `json:"confidence"`
	Reliable   bool    `json:"reliable"`
	Supported  bool    `json:"supported"`
}

// LanguageDetector wraps whatlanggo and knows which output languages the
// app can produce directly.
type LanguageDetector struct {
	supported []string
}

func NewLanguageDetector(supported []string) *LanguageDetector {
	return &LanguageDetector{supported: supported}
}

// Detect identifies the document's language.
func (d *LanguageDetector) Detect(text string) LanguageDetection {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()

	return LanguageDetection{
		Code:       code,
		Confidence: info.Confidence,
		Reliable:   info.IsReliable(),
		Supported:  d.IsSupported(code),
	}
}

func (d *LanguageDetector) IsSupported(code string) bool {
	return lo.Contains(d.supported, strings.ToLower(code))
}

// NeedsSelection reports whether the language-mismatch prompt must be shown:
// the contract's language differs from the user's preferred language, or is
// one we cannot produce output in directly.
func (d *LanguageDetector) NeedsSelection(detected LanguageDetection, preferred string) bool {
	if detected.Code == "" {
		return false // undetectable, keep the user's preference silently
	}
	if !detected.Supported {
		return true
	}
	return !strings.EqualFold(detected.Code, preferred)
}
