// Package telemetry appends pipeline events to a local JSONL file.
package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var sensitiveKeys = map[string]struct{}{
	"api_key":       {},
	"token":         {},
	"authorization": {},
	"password":      {},
}

type Event struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

type Writer struct {
	path string
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Log appends one event as a JSON line. Keys carrying secrets are
// dropped from the payload before writing.
func (w *Writer) Log(name string, payload map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(Event{Name: name, Payload: filterPayload(payload)})
	if err != nil {
		return err
	}
	data = append(data, '\n')

	_, err = f.Write(data)
	return err
}

func filterPayload(payload map[string]any) map[string]any {
	filtered := make(map[string]any, len(payload))
	for k, v := range payload {
		if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
			continue
		}
		filtered[k] = v
	}
	return filtered
}
