// Package transcript fetches YouTube video captions as plain text.
package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akarpov/wortkarte/pkg/logger"
)

const defaultTimedTextURL = "https://video.google.com/timedtext"

var DefaultLanguages = []string{"de", "de-DE", "en"}

// VideoID extracts the video identifier from a youtu.be or
// youtube.com URL. Anything else is assumed to already be an id.
func VideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.Host == "youtu.be" {
		return strings.Trim(parsed.Path, "/")
	}
	if strings.HasSuffix(parsed.Host, "youtube.com") {
		return parsed.Query().Get("v")
	}
	return rawURL
}

type Fetcher struct {
	client    *http.Client
	logger    *logger.Logger
	baseURL   string
	languages []string
}

func NewFetcher(log *logger.Logger, languages []string) *Fetcher {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Fetcher{
		client:    &http.Client{Timeout: 20 * time.Second},
		logger:    log,
		baseURL:   defaultTimedTextURL,
		languages: languages,
	}
}

// SetBaseURL points the fetcher at an alternative timed-text
// endpoint.
func (f *Fetcher) SetBaseURL(u string) {
	f.baseURL = u
}

type captionTrack struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []string `xml:"text"`
}

// Fetch returns the caption text of videoURL joined into one string,
// trying the configured languages in order.
func (f *Fetcher) Fetch(ctx context.Context, videoURL string) (string, error) {
	vid := VideoID(videoURL)
	if vid == "" {
		return "", fmt.Errorf("cannot determine video id from %q", videoURL)
	}

	var lastErr error
	for _, lang := range f.languages {
		text, err := f.fetchLanguage(ctx, vid, lang)
		if err != nil {
			lastErr = err
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("no transcript for video %s: %w", vid, lastErr)
	}
	return "", fmt.Errorf("no transcript for video %s", vid)
}

func (f *Fetcher) fetchLanguage(ctx context.Context, vid, lang string) (string, error) {
	u := fmt.Sprintf("%s?lang=%s&v=%s", f.baseURL, url.QueryEscape(lang), url.QueryEscape(vid))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext returned status %d for lang %s", resp.StatusCode, lang)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var track captionTrack
	if err := xml.Unmarshal(data, &track); err != nil {
		return "", fmt.Errorf("failed to parse captions: %w", err)
	}

	var chunks []string
	for _, t := range track.Texts {
		t = strings.TrimSpace(html.UnescapeString(t))
		if t != "" {
			chunks = append(chunks, t)
		}
	}
	f.logger.Debug("fetched %d caption chunks for %s (%s)", len(chunks), vid, lang)
	return strings.Join(chunks, " "), nil
}
