package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultReleasesURL is the release feed of the membership CLI.
const DefaultReleasesURL = "https://api.github.com/repos/port-experimental/membership-cli/releases/latest"

// CheckResult represents the result of an update check.
type CheckResult struct {
	LatestVersion   string `json:"latest_version"`
	CurrentVersion  string `json:"current_version"`
	UpdateAvailable bool   `json:"update_available"`
	DownloadURL     string `json:"download_url,omitempty"`
}

// Checker checks for updates.
type Checker struct {
	httpClient  *http.Client
	releasesURL string
}

// NewChecker creates an update checker. An empty releasesURL uses the default feed.
func NewChecker(releasesURL string) *Checker {
	if releasesURL == "" {
		releasesURL = DefaultReleasesURL
	}
	return &Checker{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		releasesURL: releasesURL,
	}
}

// CheckLatestVersion fetches the latest release and compares it to currentVersion.
func (c *Checker) CheckLatestVersion(ctx context.Context, currentVersion string) (*CheckResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releasesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch releases: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read release response: %w", err)
	}

	var release struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to decode release response: %w", err)
	}

	latestVersion := strings.TrimPrefix(release.TagName, "v")
	return &CheckResult{
		LatestVersion:   latestVersion,
		CurrentVersion:  currentVersion,
		UpdateAvailable: compareVersions(currentVersion, latestVersion) < 0,
		DownloadURL:     release.HTMLURL,
	}, nil
}

// compareVersions compares dotted versions numerically.
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2.
func compareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(strings.TrimSpace(v1), "v")
	v2 = strings.TrimPrefix(strings.TrimSpace(v2), "v")

	// Handle dev versions
	if v1 == "dev" {
		return -1
	}
	if v2 == "dev" {
		return 1
	}

	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	maxLen := max(len(parts1), len(parts2))
	for i := 0; i < maxLen; i++ {
		p1, p2 := versionPart(parts1, i), versionPart(parts2, i)
		if p1 < p2 {
			return -1
		}
		if p1 > p2 {
			return 1
		}
	}
	return 0
}

// versionPart returns the numeric prefix of parts[i], or 0.
// Pre-release suffixes such as "3-rc1" compare as their number.
func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	s := parts[i]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
