package imagegen

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akarpov/wortkarte/internal/extract"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const DefaultPollingBaseURL = "https://gen-api.ru"

// PollingProvider submits a generation task and polls its status
// endpoint until the image is ready. Some models answer inline even
// on the submission call; that short-circuit is honored.
type PollingProvider struct {
	http    *httpx.Client
	logger  *logger.Logger
	poller  *Poller
	baseURL string
	apiKey  string
	modelID string
	quality string
	policy  ReferencePolicy
	opts    httpx.Options
}

type PollingConfig struct {
	BaseURL      string
	APIKey       string
	ModelID      string
	Quality      string
	HTTP         httpx.Options
	PollInterval time.Duration
	PollTimeout  time.Duration
	Policy       ReferencePolicy
}

func NewPollingProvider(http *httpx.Client, log *logger.Logger, cfg PollingConfig) (*PollingProvider, error) {
	if cfg.APIKey == "" {
		return nil, httpx.NewError(httpx.CodeConfig, "image API key is not set", nil)
	}
	if cfg.ModelID == "" {
		return nil, httpx.NewError(httpx.CodeConfig, "image model id is not set", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPollingBaseURL
	}

	return &PollingProvider{
		http:   http,
		logger: log,
		poller: &Poller{
			Interval: cfg.PollInterval,
			Timeout:  cfg.PollTimeout,
			Logger:   log,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		quality: cfg.Quality,
		policy:  cfg.Policy,
		opts:    cfg.HTTP,
	}, nil
}

func (p *PollingProvider) Generate(ctx context.Context, prompt string, ref *ReferenceImage) (extract.ImageRef, error) {
	payload := map[string]any{
		"model_id": p.modelID,
		"prompt":   prompt,
		"is_sync":  false,
	}
	if p.quality != "" {
		payload["quality"] = p.quality
	}
	if ref != nil {
		field, value, err := p.policy.Resolve(ref)
		if err != nil {
			return extract.ImageRef{}, httpx.NewError(httpx.CodeValidation, err.Error(), nil)
		}
		payload[field] = value
	}

	url := fmt.Sprintf("%s/api/v1/networks/%s", p.baseURL, p.modelID)
	raw, err := p.http.RequestJSON(ctx, "POST", url, payload, p.headers(), p.opts)
	if err != nil {
		return extract.ImageRef{}, err
	}

	v := extract.Decode(raw)
	if img, ok := extract.Image(v); ok {
		return img, nil
	}

	requestID := requestIDFrom(v)
	if requestID == "" {
		return extract.ImageRef{}, httpx.NewError(httpx.CodeDecode,
			"task submission returned neither image nor request id",
			map[string]any{"body": string(raw)})
	}
	p.logger.Debug("created generation task %s", requestID)

	result, err := p.poller.Poll(ctx, requestID, p.taskStatus)
	if err != nil {
		return extract.ImageRef{}, err
	}

	img, ok := extract.Image(result)
	if !ok {
		return extract.ImageRef{}, httpx.NewError(httpx.CodeDecode,
			"completed task contains no image payload",
			map[string]any{"request_id": requestID})
	}
	return img, nil
}

func (p *PollingProvider) taskStatus(ctx context.Context, requestID string) (map[string]any, error) {
	url := fmt.Sprintf("%s/api/v1/requests/%s", p.baseURL, requestID)
	raw, err := p.http.RequestJSON(ctx, "GET", url, nil, p.headers(), p.opts)
	if err != nil {
		return nil, err
	}

	data, ok := extract.Decode(raw).(map[string]any)
	if !ok {
		return nil, httpx.NewError(httpx.CodeDecode,
			"task status response is not an object",
			map[string]any{"request_id": requestID, "body": string(raw)})
	}
	return data, nil
}

func (p *PollingProvider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}

// requestIDFrom pulls the task handle out of a submission response.
// Providers disagree on the key and on whether it is a string or a
// number.
func requestIDFrom(v any) string {
	resp, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"request_id", "id", "task_id"} {
		switch id := resp[key].(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatInt(int64(id), 10)
		}
	}
	return ""
}
