// Package imagegen produces illustrative images for example
// sentences. Results are cached by content digest and every failure
// degrades to "no image": illustration never blocks card creation.
package imagegen

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akarpov/wortkarte/internal/extract"
	"github.com/akarpov/wortkarte/pkg/logger"
)

const DefaultMediaDir = "media"

type Service struct {
	provider Provider
	logger   *logger.Logger
	modelID  string
	mediaDir string
	fetcher  *http.Client
}

// NewService wires the image service. provider may be nil, in which
// case every generation request yields no image.
func NewService(provider Provider, modelID, mediaDir string, log *logger.Logger) *Service {
	if mediaDir == "" {
		mediaDir = DefaultMediaDir
	}
	return &Service{
		provider: provider,
		logger:   log,
		modelID:  modelID,
		mediaDir: mediaDir,
		fetcher:  &http.Client{Timeout: 60 * time.Second},
	}
}

// CachePath derives the content-addressed location for sentence. The
// same (sentence, model) pair always maps to the same file.
func (s *Service) CachePath(sentence string) string {
	sum := sha1.Sum([]byte(sentence + s.modelID))
	return filepath.Join(s.mediaDir, "img_"+hex.EncodeToString(sum[:])+".png")
}

// GenerateImage returns a local path to an illustration of sentence,
// or "" when the provider is disabled or anything at all goes wrong.
func (s *Service) GenerateImage(ctx context.Context, sentence string) string {
	return s.GenerateImageWithReference(ctx, sentence, nil)
}

// GenerateImageWithReference is GenerateImage with an optional
// reference image forwarded to the provider. An invalid reference is
// a failure like any other: logged, never raised.
func (s *Service) GenerateImageWithReference(ctx context.Context, sentence string, ref *ReferenceImage) string {
	if s == nil || s.provider == nil {
		return ""
	}

	path := s.CachePath(sentence)
	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("image cache hit: %s", path)
		return path
	}

	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		s.logger.Warn("cannot create media dir %s: %v", s.mediaDir, err)
		return ""
	}

	prompt := fmt.Sprintf("Illustrate the meaning of this simple German sentence without any text: %s", sentence)
	img, err := s.provider.Generate(ctx, prompt, ref)
	if err != nil {
		s.logger.Warn("image generation failed: %v", err)
		return ""
	}

	return s.saveImage(ctx, img, path)
}

func (s *Service) saveImage(ctx context.Context, img extract.ImageRef, path string) string {
	var data []byte
	var err error

	switch img.Kind {
	case extract.KindURL:
		data, err = s.download(ctx, img.Payload)
	case extract.KindBase64:
		data, err = base64.StdEncoding.DecodeString(img.Payload)
	default:
		err = fmt.Errorf("unknown image kind %q", img.Kind)
	}
	if err != nil {
		s.logger.Warn("failed to obtain image bytes: %v", err)
		return ""
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Warn("failed to write image %s: %v", path, err)
		return ""
	}
	s.logger.Debug("saved image %s (%d bytes)", path, len(data))
	return path
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
