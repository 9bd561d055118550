package github

import (
	"context"
	"log"

	"github.com/google/go-github/v80/github"

	"reposcanner/internal/models"
)

// ListBranches lists every branch of the repository at repoURL with its head
// commit, following pagination.
func (c *Client) ListBranches(ctx context.Context, repoURL, token string) ([]models.Branch, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	gh := c.Factory.GetUserClient(ctx, token)
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}

	var branches []models.Branch
	for {
		page, resp, err := gh.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, apiError("list branches", err)
		}
		for _, b := range page {
			branches = append(branches, models.Branch{
				Name: b.GetName(),
				Commit: models.BranchCommit{
					SHA: b.GetCommit().GetSHA(),
					URL: b.GetCommit().GetURL(),
				},
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return branches, nil
}

// GetAuthenticatedUser returns the profile behind token, or nil when the
// lookup fails for any reason.
func (c *Client) GetAuthenticatedUser(ctx context.Context, token string) *models.UserProfile {
	if token == "" {
		return nil
	}

	gh := c.Factory.GetUserClient(ctx, token)
	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		log.Printf("Failed to fetch authenticated user: %v", err)
		return nil
	}

	return &models.UserProfile{
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
		Login:     user.GetLogin(),
	}
}
