package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/famzila/contract-whisperer-backend/model"
)

// Translator turns natural-language text from one language into another.
// Implementations must be a no-op when source and target are identical.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// GeminiTranslator implements Translator on the AI backend. One session per
// call; the session is always released.
type GeminiTranslator struct {
	backend AIBackend
}

func NewGeminiTranslator(backend AIBackend) *GeminiTranslator {
	return &GeminiTranslator{backend: backend}
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.EqualFold(sourceLang, targetLang) || strings.TrimSpace(text) == "" {
		return text, nil
	}

	sess, err := t.backend.NewSession(ctx, SessionConfig{
		SystemInstruction: fmt.Sprintf(
			"Translate the user's text from %s to %s. Output only the translation, nothing else. Keep legal terminology precise.",
			sourceLang, targetLang),
	})
	if err != nil {
		return "", fmt.Errorf("translate: open session: %w", err)
	}
	defer sess.Close()

	out, err := sess.Prompt(ctx, text)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// TranslationService translates a finished analysis section by section.
type TranslationService struct {
	translator Translator
	log        *slog.Logger
}

func NewTranslationService(translator Translator, log *slog.Logger) *TranslationService {
	if log == nil {
		log = slog.Default()
	}
	return &TranslationService{translator: translator, log: log}
}

// TranslateAnalysis translates only the natural-language fields of the
// analysis: overview, key points, risk titles/descriptions/impacts, duty
// text, omission items/impacts and follow-up questions. Dates, severities,
// party names, amounts and currencies pass through unchanged.
//
// Identical source and target is a no-op returning the input. Any
// translation failure fails the whole pass closed: the original analysis is
// returned untouched rather than a half-translated one.
func (s *TranslationService) TranslateAnalysis(ctx context.Context, a *model.Analysis, sourceLang, targetLang string) *model.Analysis {
	if a == nil || strings.EqualFold(sourceLang, targetLang) {
		return a
	}

	out := a.Clone()

	var wg sync.WaitGroup
	errs := make(chan error, 4)

	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errs <- err
			}
		}()
	}

	run(func() error {
		if out.Summary == nil {
			return nil
		}
		fields := []*string{&out.Summary.Overview}
		for i := range out.Summary.KeyPoints {
			fields = append(fields, &out.Summary.KeyPoints[i])
		}
		return s.translateFields(ctx, fields, sourceLang, targetLang)
	})

	run(func() error {
		var fields []*string
		for i := range out.Risks {
			fields = append(fields, &out.Risks[i].Title, &out.Risks[i].Description, &out.Risks[i].Impact)
		}
		return s.translateFields(ctx, fields, sourceLang, targetLang)
	})

	run(func() error {
		var fields []*string
		for i := range out.Obligations {
			fields = append(fields, &out.Obligations[i].Duty)
		}
		return s.translateFields(ctx, fields, sourceLang, targetLang)
	})

	run(func() error {
		var fields []*string
		for i := range out.Omissions {
			fields = append(fields, &out.Omissions[i].Item, &out.Omissions[i].Impact)
		}
		for i := range out.Questions {
			fields = append(fields, &out.Questions[i])
		}
		return s.translateFields(ctx, fields, sourceLang, targetLang)
	})

	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		s.log.Warn("translation pass failed, keeping original analysis",
			"source", sourceLang, "target", targetLang, "error", err)
		return a
	}

	out.Language = strings.ToLower(targetLang)
	return out
}

func (s *TranslationService) translateFields(ctx context.Context, fields []*string, sourceLang, targetLang string) error {
	for _, field := range fields {
		if field == nil || *field == "" {
			continue
		}
		translated, err := s.translator.Translate(ctx, *field, sourceLang, targetLang)
		if err != nil {
			return err
		}
		*field = translated
	}
	return nil
}
