package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRepoWithRemote initializes a worktree repository with one commit and a
// local bare repository wired up as its origin.
func newRepoWithRemote(t *testing.T) (string, *git.Repository) {
	t.Helper()

	tmp := t.TempDir()
	workDir := filepath.Join(tmp, "work")
	remoteDir := filepath.Join(tmp, "remote")

	remote, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	repo, err := git.PlainInit(workDir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "subscriptions.yaml"), []byte("Plex TV Show by Date: {}\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("subscriptions.yaml")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteDir},
	})
	require.NoError(t, err)

	return workDir, remote
}

func TestGitPublisher_Publish(t *testing.T) {
	workDir, remote := newRepoWithRemote(t)

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "subscriptions.yaml"), []byte("Plex TV Show by Date:\n  changed: {}\n"), 0o644))

	pub := NewGitPublisher(workDir, "origin", "")
	branch, err := pub.Publish(context.Background(), "run-42", []string{filepath.Join(workDir, "subscriptions.yaml")}, "Update subscriptions")
	require.NoError(t, err)
	assert.Equal(t, "pelosub/run-42", branch)

	ref, err := remote.Reference(plumbing.NewBranchReferenceName("pelosub/run-42"), true)
	require.NoError(t, err)

	repo, err := git.PlainOpen(workDir)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Update subscriptions", commit.Message)
}

func TestGitPublisher_NothingToPublish(t *testing.T) {
	workDir, _ := newRepoWithRemote(t)

	pub := NewGitPublisher(workDir, "origin", "")
	_, err := pub.Publish(context.Background(), "run-43", []string{filepath.Join(workDir, "subscriptions.yaml")}, "Update subscriptions")
	assert.ErrorIs(t, err, ErrNothingToPublish)
}

func TestGitHubPullRequester_OpenPullRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"html_url": "https://github.com/owner/repo/pull/7"})
	}))
	defer srv.Close()

	pr := NewGitHubPullRequester("owner/repo", "main", "tok")
	pr.apiBase = srv.URL

	url, err := pr.OpenPullRequest(context.Background(), "pelosub/run-42", "Update subscriptions", "details")
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/owner/repo/pull/7", url)
	assert.Equal(t, "/repos/owner/repo/pulls", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, map[string]string{
		"title": "Update subscriptions",
		"body":  "details",
		"head":  "pelosub/run-42",
		"base":  "main",
	}, gotBody)
}

func TestGitHubPullRequester_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Validation Failed"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	pr := NewGitHubPullRequester("owner/repo", "main", "tok")
	pr.apiBase = srv.URL

	_, err := pr.OpenPullRequest(context.Background(), "pelosub/run-42", "t", "b")
	assert.ErrorContains(t, err, "Validation Failed")
}
