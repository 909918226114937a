package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pelosub/pelosub/pkg/logger"
)

// ErrNothingToPublish is returned when the store file did not change.
var ErrNothingToPublish = errors.New("nothing to publish")

// Publisher pushes a rewritten store file somewhere reviewers can see it.
type Publisher interface {
	// Publish commits the given paths on a fresh branch named after the run
	// and pushes it. It returns the branch name.
	Publish(ctx context.Context, runID string, paths []string, message string) (string, error)
}

// GitPublisher publishes through a local clone. The branch is always created
// from the current HEAD; merging is left to the pull request.
type GitPublisher struct {
	repoDir    string
	remote     string
	token      string
	authorName string
	authorMail string
	now        func() time.Time
}

func NewGitPublisher(repoDir, remote, token string) *GitPublisher {
	return &GitPublisher{
		repoDir:    repoDir,
		remote:     remote,
		token:      token,
		authorName: "pelosub",
		authorMail: "pelosub@localhost",
		now:        time.Now,
	}
}

func (p *GitPublisher) Publish(ctx context.Context, runID string, paths []string, message string) (string, error) {
	log := logger.FromCtx(ctx)

	repo, err := git.PlainOpen(p.repoDir)
	if err != nil {
		return "", fmt.Errorf("opening repository %s: %w", p.repoDir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}

	branch := fmt.Sprintf("pelosub/%s", runID)
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return "", fmt.Errorf("creating branch %s: %w", branch, err)
	}

	for _, path := range paths {
		rel, err := filepath.Rel(p.repoDir, path)
		if err != nil || filepath.IsAbs(rel) {
			rel = path
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return "", fmt.Errorf("staging %s: %w", rel, err)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}
	if status.IsClean() {
		return "", ErrNothingToPublish
	}

	when := p.now()
	commit, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.authorName,
			Email: p.authorMail,
			When:  when,
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	refspec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: p.remote,
		RefSpecs:   []config.RefSpec{refspec},
		Auth:       p.auth(),
	})
	if err != nil {
		return "", fmt.Errorf("pushing %s: %w", branch, err)
	}

	log.Infow("published store update", "branch", branch, "commit", commit.String())
	return branch, nil
}

func (p *GitPublisher) auth() *http.BasicAuth {
	if p.token == "" {
		return nil
	}
	// GitHub ignores the username when a token is supplied
	return &http.BasicAuth{Username: p.authorName, Password: p.token}
}
