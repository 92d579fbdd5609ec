package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/famzila/contract-whisperer-backend/model"
)

const contractText = `This Agreement is entered into between Acme GmbH and Jane Doe.
Whereas the parties wish to define their mutual obligations, the employment
hereby commences on the effective date. Termination requires thirty days notice.
This Agreement is subject to the governing law of Germany and the exclusive
jurisdiction of the courts of Berlin.`

const storyText = `Once upon a time, in a kingdom far away, there lived a curious fox.
Chapter 1 begins with the fox leaving the forest on a long journey through the
mountains, meeting many strangers along the way and learning their stories.`

func newTestClassifier(t *testing.T, backend AIBackend) *Classifier {
	t.Helper()
	c, err := NewClassifier(backend, config.ClassifierConfig{}, nil)
	require.NoError(t, err)
	return c
}

func TestClassifyContractByHeuristic(t *testing.T) {
	backend := &fakeBackend{available: true}
	c := newTestClassifier(t, backend)

	result, err := c.Classify(context.Background(), contractText)
	require.NoError(t, err)

	assert.True(t, result.IsContract)
	assert.Equal(t, 95, result.Confidence)
	assert.Equal(t, model.DocTypeContract, result.DocumentType)
	// Confident heuristic verdicts never reach the AI.
	assert.Zero(t, backend.sessionCount())
}

func TestClassifyConfidenceScalesWithMatches(t *testing.T) {
	c := newTestClassifier(t, &fakeBackend{})

	// Exactly five distinct indicators, no non-contract ones.
	text := strings.Repeat("agreement whereas hereby termination jurisdiction. ", 3)
	result, err := c.Classify(context.Background(), text)
	require.NoError(t, err)

	assert.True(t, result.IsContract)
	// Repetition doesn't raise the score: 70 + 5*5.
	assert.Equal(t, 95, result.Confidence)
}

func TestClassifyNonContractByHeuristic(t *testing.T) {
	backend := &fakeBackend{available: true}
	c := newTestClassifier(t, backend)

	result, err := c.Classify(context.Background(), storyText)
	require.NoError(t, err)

	assert.False(t, result.IsContract)
	assert.Equal(t, 90, result.Confidence)
	assert.Equal(t, model.DocTypeStory, result.DocumentType)
	assert.Equal(t, "Document contains non-legal language patterns", result.Reason)
	assert.Zero(t, backend.sessionCount())
}

func TestClassifyNonContractTypePriority(t *testing.T) {
	c := newTestClassifier(t, &fakeBackend{})

	cases := []struct {
		text string
		want model.DocumentType
	}{
		{"Dear Sir, I hope this finds you well. Sincerely, Bob", model.DocTypeEmail},
		// Email cues outrank academic ones.
		{"Dear reviewer, see the abstract and introduction. Sincerely, Bob", model.DocTypeEmail},
		{"Abstract: introduction to our recipe corpus, chapter by chapter", model.DocTypeAcademicPaper},
		{"Once upon a time... chapter after chapter... a recipe for adventure", model.DocTypeStory},
		{"Recipe: ingredients listed below. Step 1: mix. Step 2: bake.", model.DocTypeRecipe},
		{"Step 1: install. Step 2: configure.", model.DocTypeTutorial},
	}
	for _, tc := range cases {
		result, err := c.Classify(context.Background(), tc.text)
		require.NoError(t, err)
		assert.False(t, result.IsContract, "text %q", tc.text)
		assert.Equal(t, tc.want, result.DocumentType, "text %q", tc.text)
	}
}

func TestClassifyEmptyDocument(t *testing.T) {
	c := newTestClassifier(t, &fakeBackend{})

	_, err := c.Classify(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = c.Classify(context.Background(), "   \n\t  ")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestClassifyAmbiguousFallsBackWhenAIUnavailable(t *testing.T) {
	backend := &fakeBackend{available: false}
	c := newTestClassifier(t, backend)

	result, err := c.Classify(context.Background(), "A perfectly ordinary note about nothing in particular, long enough to look like a document.")
	require.NoError(t, err)

	assert.False(t, result.IsContract)
	assert.Equal(t, 50, result.Confidence)
	assert.Equal(t, model.DocTypeOther, result.DocumentType)
	assert.Equal(t, "needs AI validation", result.Reason)
}

func TestClassifyAmbiguousUsesAI(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		respond: func(_ SessionConfig, _ string) (string, error) {
			return "```json\n{\"is_contract\": true, \"confidence\": 85, \"document_type\": \"nda\", \"reason\": \"Mutual confidentiality terms\"}\n```", nil
		},
	}
	c := newTestClassifier(t, backend)

	result, err := c.Classify(context.Background(), "The undersigned agrees to keep the discussions private between both signatories for two years.")
	require.NoError(t, err)

	assert.True(t, result.IsContract)
	assert.Equal(t, 85, result.Confidence)
	assert.Equal(t, model.DocTypeNDA, result.DocumentType)
	assert.Equal(t, 1, backend.sessionCount())
	assert.Equal(t, backend.sessionCount(), backend.closeCount())
}

func TestClassifyAIFailureKeepsHeuristic(t *testing.T) {
	ambiguous := "A perfectly ordinary note about nothing in particular, long enough to look like a document."

	t.Run("session error", func(t *testing.T) {
		backend := &fakeBackend{available: true, sessionErr: errors.New("quota exceeded")}
		c := newTestClassifier(t, backend)

		result, err := c.Classify(context.Background(), ambiguous)
		require.NoError(t, err)
		assert.Equal(t, 50, result.Confidence)
		assert.Equal(t, model.DocTypeOther, result.DocumentType)
	})

	t.Run("prompt error", func(t *testing.T) {
		backend := &fakeBackend{
			available: true,
			respond: func(_ SessionConfig, _ string) (string, error) {
				return "", errors.New("deadline exceeded")
			},
		}
		c := newTestClassifier(t, backend)

		result, err := c.Classify(context.Background(), ambiguous)
		require.NoError(t, err)
		assert.Equal(t, 50, result.Confidence)
		assert.Equal(t, backend.sessionCount(), backend.closeCount())
	})

	t.Run("malformed JSON", func(t *testing.T) {
		backend := &fakeBackend{
			available: true,
			respond: func(_ SessionConfig, _ string) (string, error) {
				return "certainly! here is my analysis:", nil
			},
		}
		c := newTestClassifier(t, backend)

		result, err := c.Classify(context.Background(), ambiguous)
		require.NoError(t, err)
		assert.Equal(t, 50, result.Confidence)
	})
}

func TestClassifyAINormalizesResponse(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		respond: func(_ SessionConfig, _ string) (string, error) {
			return `{"is_contract": true, "confidence": 140, "document_type": "Shopping List", "reason": "odd"}`, nil
		},
	}
	c := newTestClassifier(t, backend)

	result, err := c.Classify(context.Background(), "An ambiguous document without strong signals either way, of moderate length.")
	require.NoError(t, err)

	assert.Equal(t, 100, result.Confidence)
	assert.Equal(t, model.DocTypeOther, result.DocumentType)
}

func TestClassifySnippetLimitsPromptSize(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		respond: func(_ SessionConfig, _ string) (string, error) {
			return `{"is_contract": false, "confidence": 60, "document_type": "essay", "reason": ""}`, nil
		},
	}
	c, err := NewClassifier(backend, config.ClassifierConfig{AISnippetChars: 100}, nil)
	require.NoError(t, err)

	long := strings.Repeat("an unremarkable sentence. ", 100)
	_, err = c.Classify(context.Background(), long)
	require.NoError(t, err)

	require.Len(t, backend.prompts, 1)
	assert.Less(t, len(backend.prompts[0]), 100+len("Classify this document:\n\n")+1)
}

func TestCustomIndicatorLists(t *testing.T) {
	cfg := config.ClassifierConfig{
		ContractIndicators:    []string{"alpha", "beta", "gamma"},
		NonContractIndicators: []string{"omega"},
		MinContractMatches:    3,
		MinNonContractMatches: 1,
		AIThreshold:           80,
	}
	c, err := NewClassifier(&fakeBackend{}, cfg, nil)
	require.NoError(t, err)

	result, err := c.Classify(context.Background(), "alpha beta gamma and some more words to pad the text out")
	require.NoError(t, err)
	assert.True(t, result.IsContract)
	assert.Equal(t, 85, result.Confidence)
}
