package github

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/go-github/v80/github"
	"golang.org/x/sync/errgroup"

	"reposcanner/internal/models"
)

// ListRepositoryFiles walks the repository's content tree and returns every
// entry that is not a directory as a flat list. Directories are listed level by level, siblings in
// parallel, and each directory is requested once. The result keeps the
// listing order: a directory's files appear where the directory was listed.
func (c *Client) ListRepositoryFiles(ctx context.Context, owner, repo, token string) ([]models.RepoFileEntry, error) {
	gh := c.Factory.GetUserClient(ctx, token)

	listings := map[string][]*github.RepositoryContent{}
	visited := map[string]bool{"": true}
	level := []string{""}

	for len(level) > 0 {
		results := make([][]*github.RepositoryContent, len(level))

		g, gctx := errgroup.WithContext(ctx)
		if c.WalkConcurrency > 0 {
			g.SetLimit(c.WalkConcurrency)
		}
		for i, dir := range level {
			g.Go(func() error {
				_, entries, _, err := gh.Repositories.GetContents(gctx, owner, repo, dir, nil)
				if err != nil {
					return apiError(fmt.Sprintf("list contents of %s/%s/%s", owner, repo, dir), err)
				}
				results[i] = entries
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []string
		for i, dir := range level {
			listings[dir] = results[i]
			for _, e := range results[i] {
				if e.GetType() == "dir" && !visited[e.GetPath()] {
					visited[e.GetPath()] = true
					next = append(next, e.GetPath())
				}
			}
		}
		level = next
	}

	return flatten(listings), nil
}

func flatten(listings map[string][]*github.RepositoryContent) []models.RepoFileEntry {
	var files []models.RepoFileEntry

	stack := slices.Clone(listings[""])
	slices.Reverse(stack)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch e.GetType() {
		case "dir":
			children := slices.Clone(listings[e.GetPath()])
			slices.Reverse(children)
			stack = append(stack, children...)
		default:
			// symlinks and submodules are kept with their own type
			files = append(files, models.RepoFileEntry{
				Name:        e.GetName(),
				Path:        e.GetPath(),
				Type:        e.GetType(),
				DownloadURL: e.DownloadURL,
			})
		}
	}
	return files
}
