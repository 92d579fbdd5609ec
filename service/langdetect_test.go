package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	d := NewLanguageDetector([]string{"en", "fr", "de", "es"})

	en := d.Detect("This agreement is entered into between the employer and the employee, who both accept the terms below.")
	assert.Equal(t, "en", en.Code)
	assert.True(t, en.Supported)

	fr := d.Detect("Le présent contrat est conclu entre l'employeur et le salarié, qui acceptent les conditions suivantes.")
	assert.Equal(t, "fr", fr.Code)
	assert.True(t, fr.Supported)
}

func TestIsSupportedIgnoresCase(t *testing.T) {
	d := NewLanguageDetector([]string{"en", "de"})

	assert.True(t, d.IsSupported("EN"))
	assert.True(t, d.IsSupported("de"))
	assert.False(t, d.IsSupported("fr"))
	assert.False(t, d.IsSupported(""))
}

func TestNeedsSelection(t *testing.T) {
	d := NewLanguageDetector([]string{"en", "de"})

	cases := []struct {
		name      string
		detected  LanguageDetection
		preferred string
		want      bool
	}{
		{"undetectable keeps preference", LanguageDetection{Code: ""}, "en", false},
		{"unsupported always prompts", LanguageDetection{Code: "ja", Supported: false}, "ja", true},
		{"mismatch prompts", LanguageDetection{Code: "de", Supported: true}, "en", true},
		{"match skips prompt", LanguageDetection{Code: "en", Supported: true}, "en", false},
		{"match ignores case", LanguageDetection{Code: "de", Supported: true}, "DE", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.NeedsSelection(tc.detected, tc.preferred))
		})
	}
}
