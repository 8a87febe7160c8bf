package imagegen

import (
	"context"

	"github.com/akarpov/wortkarte/internal/extract"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const DefaultSyncURL = "https://api.gen-api.ru/v1/images"

// SyncProvider calls an images endpoint that answers with the image
// inline, either as base64 or as a URL to fetch.
type SyncProvider struct {
	http    *httpx.Client
	logger  *logger.Logger
	url     string
	apiKey  string
	model   string
	size    string
	quality string
	opts    httpx.Options
}

type SyncConfig struct {
	URL     string
	APIKey  string
	Model   string
	Size    string
	Quality string
	HTTP    httpx.Options
}

func NewSyncProvider(http *httpx.Client, log *logger.Logger, cfg SyncConfig) (*SyncProvider, error) {
	if cfg.APIKey == "" {
		return nil, httpx.NewError(httpx.CodeConfig, "image API key is not set", nil)
	}
	if cfg.Model == "" {
		return nil, httpx.NewError(httpx.CodeConfig, "image model is not set", nil)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultSyncURL
	}

	return &SyncProvider{
		http:    http,
		logger:  log,
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		size:    cfg.Size,
		quality: cfg.Quality,
		opts:    cfg.HTTP,
	}, nil
}

func (p *SyncProvider) Generate(ctx context.Context, prompt string, ref *ReferenceImage) (extract.ImageRef, error) {
	if ref != nil {
		p.logger.Debug("sync image provider ignores reference images")
	}

	payload := map[string]any{
		"model":  p.model,
		"prompt": prompt,
		"n":      1,
		"sync":   true,
	}
	if p.size != "" {
		payload["size"] = p.size
	}
	if p.quality != "" {
		payload["quality"] = p.quality
	}
	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	raw, err := p.http.RequestJSON(ctx, "POST", p.url, payload, headers, p.opts)
	if err != nil {
		return extract.ImageRef{}, err
	}

	img, ok := extract.Image(extract.Decode(raw))
	if !ok {
		return extract.ImageRef{}, httpx.NewError(httpx.CodeDecode,
			"image response contains no image payload",
			map[string]any{"body": string(raw)})
	}
	return img, nil
}
