// Package text generates validated example sentences and translations
// through a chat provider.
package text

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/akarpov/wortkarte/internal/chat"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const (
	sentenceAttempts = 3

	sentenceSystemPrompt = "Write one short, natural German B1 sentence (6-12 words) " +
		"that MUST include the target word. No quotes."
)

// TranslationCache memoizes translations. Lookups and stores are
// best-effort: a failing cache never fails the call.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

type Service struct {
	provider chat.Provider
	cache    TranslationCache
	logger   *logger.Logger
}

// NewService wires the text service. cache may be nil.
func NewService(provider chat.Provider, cache TranslationCache, log *logger.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		logger:   log,
	}
}

// GenerateSentence asks the provider for an example sentence
// containing word and validates that the word actually appears as a
// whole word. Up to three attempts are made; the first sentence that
// passes validation wins. Provider errors propagate immediately.
func (s *Service) GenerateSentence(ctx context.Context, word string) (string, error) {
	messages := []chat.Message{
		{Role: "system", Content: sentenceSystemPrompt},
		{Role: "user", Content: word},
	}

	var lastSentence string
	for attempt := 1; attempt <= sentenceAttempts; attempt++ {
		resp, err := s.provider.Chat(ctx, messages)
		if err != nil {
			return "", err
		}

		sentence := cleanResponse(resp)
		if ContainsTargetWord(word, sentence) {
			s.logger.Debug("sentence accepted on attempt %d: %s", attempt, sentence)
			return sentence, nil
		}

		lastSentence = sentence
		s.logger.Debug("sentence rejected on attempt %d: %q does not contain %q", attempt, sentence, word)
	}

	return "", httpx.NewError(httpx.CodeValidation,
		fmt.Sprintf("generated sentence does not contain target word %q", word),
		map[string]any{
			"word":          word,
			"last_sentence": lastSentence,
		})
}

// Translate returns the cleaned single-line translation of text from
// src to dst. No content validation is applied.
func (s *Service) Translate(ctx context.Context, text, src, dst string) (string, error) {
	key := src + "|" + dst + "|" + text
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.logger.Trace("translation cache hit for %q", text)
			return cached, nil
		}
	}

	messages := []chat.Message{
		{Role: "system", Content: fmt.Sprintf(
			"Translate the user text from %s to %s. Output the translation only, one line, no quotes.", src, dst)},
		{Role: "user", Content: text},
	}

	resp, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return "", err
	}

	translated := cleanResponse(resp)
	if s.cache != nil {
		if err := s.cache.Set(key, translated); err != nil {
			s.logger.Warn("translation cache store failed: %v", err)
		}
	}
	return translated, nil
}

// cleanResponse strips quote characters and collapses whitespace.
func cleanResponse(s string) string {
	s = strings.NewReplacer("\"", "", "'", "", "«", "", "»", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// foldGerman lowercases s and flattens German diacritics so that
// "Straße" matches "strasse".
func foldGerman(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("ä", "a", "ö", "o", "ü", "u", "ß", "ss").Replace(s)
}

// ContainsTargetWord reports whether word occurs in sentence as a
// whole word, after case folding and diacritic normalization on both
// sides.
func ContainsTargetWord(word, sentence string) bool {
	folded := foldGerman(word)
	if folded == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(folded) + `\b`)
	if err != nil {
		return strings.Contains(foldGerman(sentence), folded)
	}
	return re.MatchString(foldGerman(sentence))
}
