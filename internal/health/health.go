// Package health reports the state of external integrations.
package health

import (
	"context"
	"strings"
)

type Status struct {
	OK    bool   `json:"ok"`
	Model string `json:"model,omitempty"`
	Error string `json:"error,omitempty"`
}

type Report map[string]Status

// AnkiPinger is satisfied by the anki service.
type AnkiPinger interface {
	CheckConnection(ctx context.Context) error
}

// CheckChat validates that the chat credentials look sane without
// spending tokens on a live call.
func CheckChat(apiKey, model string) Status {
	if apiKey == "" || !strings.HasPrefix(apiKey, "sk-") {
		return Status{OK: false, Error: "invalid chat API key"}
	}
	if model == "" {
		return Status{OK: false, Error: "missing chat model"}
	}
	return Status{OK: true, Model: model}
}

// CheckAnki performs a version round-trip against AnkiConnect.
func CheckAnki(ctx context.Context, anki AnkiPinger) Status {
	if err := anki.CheckConnection(ctx); err != nil {
		return Status{OK: false, Error: err.Error()}
	}
	return Status{OK: true}
}

// Check assembles the full integration report.
func Check(ctx context.Context, apiKey, model string, anki AnkiPinger) Report {
	return Report{
		"chat": CheckChat(apiKey, model),
		"anki": CheckAnki(ctx, anki),
	}
}
