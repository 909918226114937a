package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pelosub/pelosub/pkg/logger"
)

// PullRequester opens a review request for a pushed branch.
type PullRequester interface {
	OpenPullRequest(ctx context.Context, branch, title, body string) (string, error)
}

// GitHubPullRequester opens pull requests through the GitHub REST API.
type GitHubPullRequester struct {
	apiBase string
	repo    string // owner/name
	base    string
	token   string
	client  *http.Client
}

func NewGitHubPullRequester(repo, base, token string) *GitHubPullRequester {
	return &GitHubPullRequester{
		apiBase: "https://api.github.com",
		repo:    repo,
		base:    base,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// OpenPullRequest opens a pull request from branch into the configured base
// and returns its URL.
func (g *GitHubPullRequester) OpenPullRequest(ctx context.Context, branch, title, body string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"title": title,
		"body":  body,
		"head":  branch,
		"base":  g.base,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/repos/%s/pulls", g.apiBase, g.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("opening pull request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("opening pull request: %s: %s", resp.Status, bytes.TrimSpace(raw))
	}

	var created struct {
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("decoding pull request response: %w", err)
	}

	logger.FromCtx(ctx).Infow("opened pull request", "url", created.HTMLURL)
	return created.HTMLURL, nil
}
