// Package pipeline sequences translation, sentence generation, image
// generation, and note insertion into a single word-to-card
// operation.
package pipeline

import (
	"context"
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"github.com/akarpov/wortkarte/pkg/logger"
	"github.com/akarpov/wortkarte/pkg/telemetry"
)

// Card is the result of one pipeline run. Image may legitimately be
// empty: illustration is best-effort.
type Card struct {
	Front  string `json:"front"`
	Back   string `json:"back"`
	Image  string `json:"image"`
	NoteID int64  `json:"note_id"`
}

// TranslateFunc translates text from src to dst.
type TranslateFunc func(ctx context.Context, text, src, dst string) (string, error)

// SentenceFunc produces a validated example sentence containing word.
type SentenceFunc func(ctx context.Context, word string) (string, error)

// ImageFunc illustrates sentence, returning a local path or "".
// It must not fail; degraded runs return "".
type ImageFunc func(ctx context.Context, sentence string) string

// AddNoteFunc inserts the card and returns the note id.
type AddNoteFunc func(ctx context.Context, front, backHTML, deck string, tags []string, mediaPath string) (int64, error)

// Pipeline holds the injected step implementations. All steps except
// the image one are fatal on failure.
type Pipeline struct {
	translate        TranslateFunc
	generateSentence SentenceFunc
	generateImage    ImageFunc
	addNote          AddNoteFunc
	logger           *logger.Logger
	events           *telemetry.Writer
}

func New(translate TranslateFunc, sentence SentenceFunc, image ImageFunc, addNote AddNoteFunc, log *logger.Logger) (*Pipeline, error) {
	if translate == nil || sentence == nil || addNote == nil {
		return nil, fmt.Errorf("pipeline requires translate, sentence, and addNote steps")
	}
	if image == nil {
		image = func(context.Context, string) string { return "" }
	}
	return &Pipeline{
		translate:        translate,
		generateSentence: sentence,
		generateImage:    image,
		addNote:          addNote,
		logger:           log,
	}, nil
}

// SetEvents enables telemetry event logging for pipeline runs.
func (p *Pipeline) SetEvents(w *telemetry.Writer) {
	p.events = w
}

// DetectLanguage classifies word as "ru" when it contains any
// Cyrillic code point and "de" otherwise.
func DetectLanguage(word string) string {
	for _, r := range word {
		if unicode.Is(unicode.Cyrillic, r) {
			return "ru"
		}
	}
	return "de"
}

// MakeCard runs the full word-to-card cycle. langHint is "de", "ru",
// or "" for auto-detection. Every step failure aborts the run except
// image generation, which degrades to a card without illustration.
func (p *Pipeline) MakeCard(ctx context.Context, word, langHint, deck, tag string) (*Card, error) {
	runID := uuid.NewString()
	lang := langHint
	if lang == "" {
		lang = DetectLanguage(word)
	}
	p.logger.Info("making card for %q (lang=%s, deck=%s)", word, lang, deck)
	p.logEvent("make_card.start", map[string]any{"run_id": runID, "word": word, "lang": lang, "deck": deck})

	wordDE := word
	if lang != "de" {
		var err error
		wordDE, err = p.translate(ctx, word, "ru", "de")
		if err != nil {
			p.logEvent("make_card.error", map[string]any{"run_id": runID, "step": "translate_word", "error": err.Error()})
			return nil, err
		}
	}

	sentence, err := p.generateSentence(ctx, wordDE)
	if err != nil {
		p.logEvent("make_card.error", map[string]any{"run_id": runID, "step": "sentence", "error": err.Error()})
		return nil, err
	}

	sentenceRU, err := p.translate(ctx, sentence, "de", "ru")
	if err != nil {
		p.logEvent("make_card.error", map[string]any{"run_id": runID, "step": "translate_sentence", "error": err.Error()})
		return nil, err
	}

	imagePath := p.generateImage(ctx, sentence)
	if imagePath == "" {
		p.logger.Debug("no image for %q, continuing without illustration", sentence)
	}

	backHTML := fmt.Sprintf("<div>Перевод: %s</div><div>Satz: %s</div>", sentenceRU, sentence)

	var tags []string
	if tag != "" {
		tags = []string{tag}
	}
	noteID, err := p.addNote(ctx, wordDE, backHTML, deck, tags, imagePath)
	if err != nil {
		p.logEvent("make_card.error", map[string]any{"run_id": runID, "step": "add_note", "error": err.Error()})
		return nil, err
	}

	p.logEvent("make_card.ok", map[string]any{"run_id": runID, "note_id": noteID, "image": imagePath != ""})
	return &Card{
		Front:  wordDE,
		Back:   backHTML,
		Image:  imagePath,
		NoteID: noteID,
	}, nil
}

// BatchItem is the per-word outcome of a batch run. Either Card or
// Error is set, never both.
type BatchItem struct {
	Word  string `json:"word"`
	Card  *Card  `json:"card,omitempty"`
	Error string `json:"error,omitempty"`
}

// MakeCards runs MakeCard for each word. A failing word is recorded
// and the batch keeps going, so one bad input never loses the rest of
// the list.
func (p *Pipeline) MakeCards(ctx context.Context, words []string, langHint, deck, tag string) []BatchItem {
	items := make([]BatchItem, 0, len(words))
	for _, word := range words {
		card, err := p.MakeCard(ctx, word, langHint, deck, tag)
		if err != nil {
			p.logger.Warn("card for %q failed: %v", word, err)
			items = append(items, BatchItem{Word: word, Error: err.Error()})
			continue
		}
		items = append(items, BatchItem{Word: word, Card: card})
	}
	return items
}

func (p *Pipeline) logEvent(name string, payload map[string]any) {
	if p.events == nil {
		return
	}
	if err := p.events.Log(name, payload); err != nil {
		p.logger.Debug("telemetry write failed: %v", err)
	}
}
