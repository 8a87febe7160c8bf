// Package anki inserts flashcards through the local AnkiConnect API.
package anki

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const (
	DefaultAnkiConnectURL = "http://127.0.0.1:8765"
	BasicModelName        = "Basic"

	ankiConnectVersion = 6
)

type Service struct {
	url    string
	client *httpx.Client
	logger *logger.Logger
	opts   httpx.Options
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params"`
}

type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   map[string]any    `json:"options"`
	Tags      []string          `json:"tags"`
}

func NewService(client *httpx.Client, url string, log *logger.Logger, opts httpx.Options) *Service {
	if url == "" {
		url = DefaultAnkiConnectURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Service{
		url:    url,
		client: client,
		logger: log,
		opts:   opts,
	}
}

// invoke performs one AnkiConnect action. Transport errors propagate
// unchanged from the HTTP client; a non-null error field in the
// response envelope becomes a note-api-error carrying the action name.
func (s *Service) invoke(ctx context.Context, action string, params any) (json.RawMessage, error) {
	raw, err := s.client.RequestJSON(ctx, "POST", s.url, request{
		Action:  action,
		Version: ankiConnectVersion,
		Params:  params,
	}, nil, s.opts)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *string         `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, httpx.NewError(httpx.CodeDecode,
			fmt.Sprintf("failed to parse AnkiConnect response: %v", err),
			map[string]any{"action": action})
	}
	if envelope.Error != nil {
		return nil, httpx.NewError(httpx.CodeNoteAPI, *envelope.Error,
			map[string]any{"action": action})
	}
	return envelope.Result, nil
}

// CheckConnection verifies that Anki is reachable.
func (s *Service) CheckConnection(ctx context.Context) error {
	if _, err := s.invoke(ctx, "version", map[string]any{}); err != nil {
		s.logger.Debug("AnkiConnect version check failed: %v", err)
		return fmt.Errorf("could not connect to Anki. Please ensure:\n"+
			"1. Anki is running\n"+
			"2. AnkiConnect add-on is installed (code: 2055492159)\n"+
			"3. Anki has been restarted after installing AnkiConnect: %w", err)
	}
	return nil
}

func (s *Service) CreateDeck(ctx context.Context, deckName string) error {
	s.logger.Debug("Creating deck: %s", deckName)
	_, err := s.invoke(ctx, "createDeck", map[string]string{"deck": deckName})
	return err
}

// StoreMediaFile uploads the file at path into Anki's media
// collection and returns the canonical stored filename.
func (s *Service) StoreMediaFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}

	result, err := s.invoke(ctx, "storeMediaFile", map[string]string{
		"filename": filepath.Base(path),
		"data":     base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", err
	}

	var filename string
	if err := json.Unmarshal(result, &filename); err != nil {
		return "", httpx.NewError(httpx.CodeDecode,
			fmt.Sprintf("failed to parse stored filename: %v", err),
			map[string]any{"action": "storeMediaFile"})
	}
	return filename, nil
}

// AddNote creates a basic front/back note, optionally uploading
// mediaPath first. The <img> reference is appended only when backHTML
// does not already carry one, so re-running with pre-built markup
// never duplicates the image.
func (s *Service) AddNote(ctx context.Context, front, backHTML, deck string, tags []string, mediaPath string) (int64, error) {
	if mediaPath != "" {
		filename, err := s.StoreMediaFile(ctx, mediaPath)
		if err != nil {
			return 0, fmt.Errorf("failed to store media file: %w", err)
		}
		if !strings.Contains(backHTML, "<img") {
			backHTML += fmt.Sprintf(`<br><img src="%s">`, filename)
		}
	}

	if tags == nil {
		tags = []string{}
	}
	note := Note{
		DeckName:  deck,
		ModelName: BasicModelName,
		Fields: map[string]string{
			"Front": front,
			"Back":  backHTML,
		},
		Options: map[string]any{
			"allowDuplicate": false,
		},
		Tags: tags,
	}

	result, err := s.invoke(ctx, "addNote", map[string]any{"note": note})
	if err != nil {
		return 0, err
	}

	var noteID int64
	if err := json.Unmarshal(result, &noteID); err != nil {
		return 0, httpx.NewError(httpx.CodeDecode,
			fmt.Sprintf("failed to parse note id: %v", err),
			map[string]any{"action": "addNote"})
	}

	s.logger.Debug("added note %d to deck %s", noteID, deck)
	return noteID, nil
}
