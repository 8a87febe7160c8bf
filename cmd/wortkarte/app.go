package main

import (
	"time"

	"github.com/akarpov/wortkarte/internal/anki"
	"github.com/akarpov/wortkarte/internal/cache"
	"github.com/akarpov/wortkarte/internal/chat"
	"github.com/akarpov/wortkarte/internal/config"
	"github.com/akarpov/wortkarte/internal/grammar"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/internal/imagegen"
	"github.com/akarpov/wortkarte/internal/pipeline"
	"github.com/akarpov/wortkarte/internal/text"
	"github.com/akarpov/wortkarte/internal/transcript"
	"github.com/akarpov/wortkarte/pkg/logger"
	"github.com/akarpov/wortkarte/pkg/telemetry"
)

// app wires the configured services behind each CLI command.
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	anki        *anki.Service
	text        *text.Service
	images      *imagegen.Service
	pipeline    *pipeline.Pipeline
	grammar     *grammar.Checker
	transcripts *transcript.Fetcher
	events      *telemetry.Writer
	textCache   *cache.TextCache
}

func newApp() (*app, error) {
	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	httpClient := httpx.NewClient(log)
	httpOpts := httpx.Options{
		Timeout:     time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		Retries:     cfg.HTTP.Retries,
		BackoffBase: time.Duration(cfg.HTTP.BackoffMS) * time.Millisecond,
	}

	// The health command must still run with unconfigured chat
	// credentials, so a config error here only disables the text
	// pipeline instead of failing startup.
	chatClient, chatErr := chat.NewClient(httpClient, log, chat.Config{
		URL:       cfg.Chat.URL,
		APIKey:    cfg.Chat.APIKey,
		Model:     cfg.Chat.Model,
		MaxTokens: cfg.Chat.MaxTokens,
		HTTP:      httpOpts,
	})
	if chatErr != nil {
		log.Debug("chat provider not configured: %v", chatErr)
	}

	var translations text.TranslationCache
	textCache, err := cache.Open(cfg.CachePath)
	if err != nil {
		log.Warn("translation cache unavailable: %v", err)
	} else {
		translations = textCache
	}

	var textSvc *text.Service
	if chatClient != nil {
		textSvc = text.NewService(chatClient, translations, log)
	}

	provider, err := buildImageProvider(cfg, httpClient, log, httpOpts)
	if err != nil {
		// Image generation is best-effort; a misconfigured provider
		// degrades to no-image cards instead of blocking.
		log.Warn("image provider disabled: %v", err)
		provider = nil
	}
	imageSvc := imagegen.NewService(provider, cfg.Image.Model, cfg.MediaDir, log)

	ankiSvc := anki.NewService(httpClient, cfg.Anki.URL, log, httpOpts)
	events := telemetry.NewWriter(cfg.TelemetryPath)

	var pipe *pipeline.Pipeline
	if textSvc != nil {
		pipe, err = pipeline.New(textSvc.Translate, textSvc.GenerateSentence, imageSvc.GenerateImage, ankiSvc.AddNote, log)
		if err != nil {
			return nil, err
		}
		pipe.SetEvents(events)
	}

	return &app{
		cfg:         cfg,
		log:         log,
		anki:        ankiSvc,
		text:        textSvc,
		images:      imageSvc,
		pipeline:    pipe,
		grammar:     grammar.NewChecker(cfg.LanguageTool.URL, log),
		transcripts: transcript.NewFetcher(log, cfg.Transcript.Languages),
		events:      events,
		textCache:   textCache,
	}, nil
}

func buildImageProvider(cfg *config.Config, httpClient *httpx.Client, log *logger.Logger, httpOpts httpx.Options) (imagegen.Provider, error) {
	kind, err := imagegen.ParseProviderKind(cfg.Image.Provider)
	if err != nil {
		return nil, err
	}

	switch kind {
	case imagegen.ProviderSync:
		return imagegen.NewSyncProvider(httpClient, log, imagegen.SyncConfig{
			URL:     cfg.Image.URL,
			APIKey:  cfg.Image.APIKey,
			Model:   cfg.Image.Model,
			Size:    cfg.Image.Size,
			Quality: cfg.Image.Quality,
			HTTP:    httpOpts,
		})
	case imagegen.ProviderPolling:
		return imagegen.NewPollingProvider(httpClient, log, imagegen.PollingConfig{
			BaseURL:      cfg.Image.URL,
			APIKey:       cfg.Image.APIKey,
			ModelID:      cfg.Image.Model,
			Quality:      cfg.Image.Quality,
			HTTP:         httpOpts,
			PollInterval: time.Duration(cfg.Image.PollIntervalMS) * time.Millisecond,
			PollTimeout:  time.Duration(cfg.Image.PollTimeoutMS) * time.Millisecond,
			Policy: imagegen.ReferencePolicy{
				MaxBytes:     cfg.Image.Reference.MaxBytes,
				AllowedTypes: cfg.Image.Reference.AllowedTypes,
			},
		})
	}
	return nil, nil
}

func (a *app) Close() {
	if a.textCache != nil {
		if err := a.textCache.Close(); err != nil {
			a.log.Debug("error closing translation cache: %v", err)
		}
	}
}
