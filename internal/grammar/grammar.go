// Package grammar checks text against a LanguageTool server.
package grammar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akarpov/wortkarte/pkg/logger"
)

const DefaultURL = "http://localhost:8010"

type Match struct {
	Message      string `json:"message"`
	ShortMessage string `json:"shortMessage,omitempty"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Rule         Rule   `json:"rule"`
	Error        string `json:"error,omitempty"`
}

type Rule struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type Checker struct {
	client  *http.Client
	logger  *logger.Logger
	baseURL string
}

func NewChecker(baseURL string, log *logger.Logger) *Checker {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Checker{
		client:  &http.Client{Timeout: 20 * time.Second},
		logger:  log,
		baseURL: baseURL,
	}
}

// Check returns grammar matches for text. Failures never propagate:
// they come back as a single pseudo-match with its Error field set,
// so a missing LanguageTool server degrades rather than aborts.
func (c *Checker) Check(ctx context.Context, text, language string) []Match {
	form := url.Values{
		"text":     {text},
		"language": {language},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/check",
		strings.NewReader(form.Encode()))
	if err != nil {
		return errorMatch(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("grammar check failed: %v", err)
		return errorMatch(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorMatch(fmt.Errorf("LanguageTool returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorMatch(err)
	}

	var parsed struct {
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return errorMatch(err)
	}
	return parsed.Matches
}

func errorMatch(err error) []Match {
	return []Match{{Error: err.Error()}}
}
