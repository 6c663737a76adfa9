// Package version checks for newer solsend releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	solerr "github.com/mrz1836/solsend/pkg/errors"
)

const (
	// DefaultBaseURL is the GitHub API root.
	DefaultBaseURL = "https://api.github.com"
	// DefaultRepo is where solsend releases are published.
	DefaultRepo = "mrz1836/solsend"

	defaultTimeout  = 15 * time.Second
	maxResponseSize = 64 * 1024
)

// Release is the subset of a GitHub release solsend reads.
type Release struct {
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

// Info compares the running build against the latest release.
type Info struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	URL     string `json:"url,omitempty"`
	IsNewer bool   `json:"update_available"`
}

// Checker fetches the latest release of a repository.
type Checker struct {
	baseURL string
	repo    string
	client  *http.Client
}

// NewChecker creates a checker. Empty arguments select the defaults.
func NewChecker(baseURL, repo string, client *http.Client) *Checker {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if repo == "" {
		repo = DefaultRepo
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Checker{baseURL: strings.TrimRight(baseURL, "/"), repo: repo, client: client}
}

// Latest returns the latest published release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", fmt.Sprintf("solsend (%s/%s)", runtime.GOOS, runtime.GOARCH))

	resp, err := c.client.Do(req) //nolint:gosec // URL is built from the configured API root
	if err != nil {
		return nil, solerr.WithCause(solerr.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, solerr.WithDetails(solerr.ErrNetworkError, map[string]string{
			"status": strconv.Itoa(resp.StatusCode),
			"url":    url,
		})
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&release); err != nil {
		return nil, solerr.WithCause(solerr.ErrNetworkError, fmt.Errorf("decoding release: %w", err))
	}
	if release.TagName == "" {
		return nil, solerr.WithDetails(solerr.ErrNetworkError, map[string]string{"reason": "release has no tag"})
	}
	return &release, nil
}

// Check reports whether a release newer than current exists.
func (c *Checker) Check(ctx context.Context, current string) (*Info, error) {
	release, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Current: current,
		Latest:  release.TagName,
		URL:     release.HTMLURL,
		IsNewer: Compare(release.TagName, current) > 0,
	}, nil
}

// Compare orders two versions like "v1.2.3". It returns 1, 0 or -1.
// Development builds ("dev", empty, or non-numeric) sort before any release.
func Compare(a, b string) int {
	pa, okA := parse(a)
	pb, okB := parse(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	for i := range pa {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// parse reads major.minor.patch, ignoring a leading v and any pre-release suffix.
func parse(v string) ([3]int, bool) {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return out, false
	}

	parts := strings.Split(v, ".")
	if len(parts) > 3 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return out, false
		}
		out[i] = n
	}
	return out, true
}
