// Package lesson derives vocabulary flashcards from a video
// transcript with grammar checking.
package lesson

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/akarpov/wortkarte/internal/grammar"
	"github.com/akarpov/wortkarte/pkg/logger"
	"github.com/akarpov/wortkarte/pkg/telemetry"
)

type Config struct {
	URL      string
	Deck     string
	Tag      string
	Limit    int
	Language string
}

type Result struct {
	Vocab  []VocabItem     `json:"vocab"`
	Issues []grammar.Match `json:"issues"`
	Chars  int             `json:"chars"`
	Added  int             `json:"added"`
}

// Builder holds the injected collaborators for one lesson run.
// Translate supplies glosses and is best-effort; Transcript and
// AddNote failures are fatal.
type Builder struct {
	Transcript   func(ctx context.Context, url string) (string, error)
	CheckGrammar func(ctx context.Context, text, language string) []grammar.Match
	Translate    func(ctx context.Context, text, src, dst string) (string, error)
	AddNote      func(ctx context.Context, front, backHTML, deck string, tags []string, mediaPath string) (int64, error)
	Logger       *logger.Logger
	Events       *telemetry.Writer
}

// Build fetches the transcript, extracts vocabulary, checks grammar,
// and inserts one basic note per vocabulary item.
func (b *Builder) Build(ctx context.Context, cfg Config) (*Result, error) {
	if b.Transcript == nil || b.AddNote == nil {
		return nil, fmt.Errorf("lesson builder requires transcript and addNote steps")
	}
	if cfg.Tag == "" {
		cfg.Tag = "auto-lesson"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 15
	}
	if cfg.Language == "" {
		cfg.Language = "de"
	}

	runID := uuid.NewString()
	b.logEvent("lesson.start", map[string]any{"run_id": runID, "url": cfg.URL, "deck": cfg.Deck})

	text, err := b.Transcript(ctx, cfg.URL)
	if err != nil {
		b.logEvent("lesson.error", map[string]any{"run_id": runID, "step": "transcript", "error": err.Error()})
		return nil, fmt.Errorf("failed to fetch transcript: %w", err)
	}

	vocab := ExtractVocab(text, cfg.Limit)
	b.Logger.Info("extracted %d vocabulary items from %d chars", len(vocab), len(text))

	var issues []grammar.Match
	if b.CheckGrammar != nil {
		issues = b.CheckGrammar(ctx, text, cfg.Language)
	}

	added := 0
	for i := range vocab {
		item := &vocab[i]
		if b.Translate != nil {
			gloss, err := b.Translate(ctx, item.Term, cfg.Language, "ru")
			if err != nil {
				b.Logger.Warn("gloss translation for %q failed: %v", item.Term, err)
			} else {
				item.Gloss = gloss
			}
		}

		back := item.Gloss
		if back == "" {
			back = "(no gloss)"
		}
		back = fmt.Sprintf("%s<br><br>Example: %s", back, item.Example)

		if _, err := b.AddNote(ctx, item.Term, back, cfg.Deck, []string{cfg.Tag}, ""); err != nil {
			b.logEvent("lesson.error", map[string]any{"run_id": runID, "step": "add_note", "term": item.Term, "error": err.Error()})
			return nil, fmt.Errorf("failed to add note for %q: %w", item.Term, err)
		}
		added++
	}

	b.logEvent("lesson.ok", map[string]any{"run_id": runID, "added": added, "chars": len(text)})
	return &Result{
		Vocab:  vocab,
		Issues: issues,
		Chars:  len(text),
		Added:  added,
	}, nil
}

func (b *Builder) logEvent(name string, payload map[string]any) {
	if b.Events == nil {
		return
	}
	if err := b.Events.Log(name, payload); err != nil {
		b.Logger.Debug("telemetry write failed: %v", err)
	}
}
