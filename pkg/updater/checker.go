package updater

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akarpov/wortkarte/pkg/logger"
	"github.com/akarpov/wortkarte/pkg/version"
)

const (
	githubVersionURL = "https://api.github.com/repos/akarpov/wortkarte/releases/latest"
	userAgent        = "Wortkarte-Updater"
)

type Checker struct {
	client      *http.Client
	logger      *logger.Logger
	releaseURL  string
	lastChecked time.Time
}

func NewChecker(logger *logger.Logger) *Checker {
	return &Checker{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger,
		releaseURL: githubVersionURL,
	}
}

// SetReleaseURL points the checker at an alternative release
// endpoint.
func (c *Checker) SetReleaseURL(u string) {
	c.releaseURL = u
}

func (c *Checker) CheckForUpdates() (*UpdateInfo, error) {
	// Rate limit checks
	if time.Since(c.lastChecked) < time.Hour {
		return nil, nil
	}
	c.lastChecked = time.Now()

	c.logger.Debug("Checking for updates...")

	req, err := http.NewRequest("GET", c.releaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode GitHub release: %w", err)
	}

	currentVersion := strings.TrimPrefix(version.Version, "v")
	latestVersion := strings.TrimPrefix(release.TagName, "v")

	return &UpdateInfo{
		CurrentVersion: currentVersion,
		LatestVersion:  latestVersion,
		UpdateMessage:  release.Body,
		DownloadURL:    release.HTMLURL,
		IsAvailable:    compareVersions(currentVersion, latestVersion) < 0,
	}, nil
}

// compareVersions returns:
//
//	-1 if v1 < v2
//	 0 if v1 == v2
//	 1 if v1 > v2
//
// Parts are compared numerically so that 0.10.0 sorts after 0.9.0;
// non-numeric parts fall back to string comparison.
func compareVersions(v1, v2 string) int {
	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	for i := 0; i < len(parts1) && i < len(parts2); i++ {
		if cmp := comparePart(parts1[i], parts2[i]); cmp != 0 {
			return cmp
		}
	}

	if len(parts1) < len(parts2) {
		return -1
	}
	if len(parts1) > len(parts2) {
		return 1
	}
	return 0
}

func comparePart(p1, p2 string) int {
	n1, err1 := strconv.Atoi(p1)
	n2, err2 := strconv.Atoi(p2)
	if err1 == nil && err2 == nil {
		switch {
		case n1 < n2:
			return -1
		case n1 > n2:
			return 1
		}
		return 0
	}
	return strings.Compare(p1, p2)
}
