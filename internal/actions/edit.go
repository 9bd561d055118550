package actions

import (
	"context"
	"fmt"

	"reposcanner/internal/github"
	"reposcanner/internal/models"
)

// CommitEdit commits new content for one file of the current branch.
func (r *Runner) CommitEdit(ctx context.Context, auth models.AuthState, repo models.Repository, path, content, message string) (*github.CommitResult, error) {
	if auth.Token == "" {
		return nil, fmt.Errorf("commit edit: %w: GitHub token", models.ErrMissingCredential)
	}
	owner, name, err := github.ParseRepoURL(repo.URL)
	if err != nil {
		return nil, err
	}
	if message == "" {
		message = "Update " + path
	}

	return r.Committer.CommitFiles(ctx, github.CommitRequest{
		Owner:   owner,
		Repo:    name,
		Branch:  repo.Branch,
		Files:   []github.FileChange{{Path: path, Content: content}},
		Message: message,
		Token:   auth.Token,
	})
}
