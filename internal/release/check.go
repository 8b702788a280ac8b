// Package release checks GitHub for a newer published version.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

const defaultBaseURL = "https://api.github.com"

// Checker queries the GitHub releases API for a repository's latest tag.
type Checker struct {
	baseURL string
	client  *http.Client
}

func NewChecker() *Checker {
	return &Checker{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// NewCheckerWithBaseURL is used by tests to point at a stub server.
func NewCheckerWithBaseURL(baseURL string) *Checker {
	c := NewChecker()
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Latest returns the newest release tag for repo ("owner/name") and
// whether it is strictly newer than current. Callers treat any error as
// "no update information" and fall back to offering a reinstall.
func (c *Checker) Latest(ctx context.Context, repo, current string) (tag string, newer bool, err error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("releases endpoint returned %s", resp.Status)
	}

	var body struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("decode release response: %w", err)
	}
	if body.TagName == "" {
		return "", false, fmt.Errorf("release response has no tag_name")
	}

	latestVer, err := semver.NewVersion(strings.TrimPrefix(body.TagName, "v"))
	if err != nil {
		return "", false, fmt.Errorf("parse release tag %q: %w", body.TagName, err)
	}
	currentVer, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return "", false, fmt.Errorf("parse current version %q: %w", current, err)
	}

	return body.TagName, latestVer.GreaterThan(currentVer), nil
}
