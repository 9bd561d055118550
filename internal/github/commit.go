package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v80/github"
	"golang.org/x/sync/errgroup"

	"reposcanner/internal/models"
)

type FileChange struct {
	Path    string
	Content string
}

type CommitRequest struct {
	Owner   string
	Repo    string
	Branch  string
	Files   []FileChange
	Message string
	Token   string
}

// CommitResult describes the commit the branch now points at.
type CommitResult struct {
	SHA     string `json:"sha"`
	TreeSHA string `json:"tree_sha"`
	Parent  string `json:"parent"`
}

var commitSteps = [...]string{
	1: "read ref",
	2: "read commit",
	3: "create blobs",
	4: "create tree",
	5: "create commit",
	6: "update ref",
}

// CommitError reports the step a commit stopped at. Objects created by the
// earlier steps stay in the repository as unreferenced objects.
type CommitError struct {
	Step     int
	StepName string
	Created  []string
	Err      error
}

func (e *CommitError) Error() string {
	msg := fmt.Sprintf("commit files: step %d (%s) failed: %v", e.Step, e.StepName, e.Err)
	if len(e.Created) > 0 {
		msg += fmt.Sprintf(" (left behind: %s)", strings.Join(e.Created, ", "))
	}
	return msg
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

func (r CommitRequest) validate() error {
	switch {
	case r.Owner == "" || r.Repo == "":
		return fmt.Errorf("commit files: %w: owner and repository are required", models.ErrInvalidURL)
	case r.Branch == "":
		return fmt.Errorf("commit files: %w: no branch selected", models.ErrInvalidURL)
	case r.Token == "":
		return fmt.Errorf("commit files: %w: GitHub token", models.ErrMissingCredential)
	case len(r.Files) == 0:
		return errors.New("commit files: no files to commit")
	}
	return nil
}

// CommitFiles writes all files to the branch as one commit using the Git
// data API: read ref, read commit, create blobs, create tree on top of the
// base tree, create commit, move the ref.
//
// The ref update is not forced and the ref is not re-read before it, so a
// branch that moved in the meantime makes the last step fail with the new
// objects left unreferenced. The sequence is not transactional.
func (c *Client) CommitFiles(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	gh := c.Factory.GetUserClient(ctx, req.Token)
	var created []string
	fail := func(step int, err error) (*CommitResult, error) {
		return nil, &CommitError{
			Step:     step,
			StepName: commitSteps[step],
			Created:  created,
			Err:      apiError(commitSteps[step], err),
		}
	}

	// 1
	ref, _, err := gh.Git.GetRef(ctx, req.Owner, req.Repo, "heads/"+req.Branch)
	if err != nil {
		return fail(1, err)
	}
	parentSHA := ref.GetObject().GetSHA()

	// 2
	parent, _, err := gh.Git.GetCommit(ctx, req.Owner, req.Repo, parentSHA)
	if err != nil {
		return fail(2, err)
	}
	baseTree := parent.GetTree().GetSHA()

	// 3
	blobs, err := c.createBlobs(ctx, gh, req)
	for _, sha := range blobs {
		if sha != "" {
			created = append(created, sha)
		}
	}
	if err != nil {
		return fail(3, err)
	}

	// 4
	entries := make([]*github.TreeEntry, len(req.Files))
	for i, f := range req.Files {
		entries[i] = &github.TreeEntry{
			Path: github.Ptr(f.Path),
			Mode: github.Ptr("100644"),
			Type: github.Ptr("blob"),
			SHA:  github.Ptr(blobs[i]),
		}
	}
	tree, _, err := gh.Git.CreateTree(ctx, req.Owner, req.Repo, baseTree, entries)
	if err != nil {
		return fail(4, err)
	}
	created = append(created, tree.GetSHA())

	// 5
	commit, _, err := gh.Git.CreateCommit(ctx, req.Owner, req.Repo, github.Commit{
		Message: github.Ptr(req.Message),
		Tree:    &github.Tree{SHA: tree.SHA},
		Parents: []*github.Commit{{SHA: github.Ptr(parentSHA)}},
	}, nil)
	if err != nil {
		return fail(5, err)
	}
	created = append(created, commit.GetSHA())

	// 6
	_, _, err = gh.Git.UpdateRef(ctx, req.Owner, req.Repo, "heads/"+req.Branch, github.UpdateRef{
		SHA:   commit.GetSHA(),
		Force: github.Ptr(false),
	})
	if err != nil {
		return fail(6, err)
	}

	return &CommitResult{SHA: commit.GetSHA(), TreeSHA: tree.GetSHA(), Parent: parentSHA}, nil
}

// createBlobs uploads every file concurrently. The returned SHAs are indexed
// like req.Files; entries are empty for uploads that did not finish.
func (c *Client) createBlobs(ctx context.Context, gh *github.Client, req CommitRequest) ([]string, error) {
	shas := make([]string, len(req.Files))

	g, gctx := errgroup.WithContext(ctx)
	if c.BlobConcurrency > 0 {
		g.SetLimit(c.BlobConcurrency)
	}
	for i, f := range req.Files {
		g.Go(func() error {
			blob, _, err := gh.Git.CreateBlob(gctx, req.Owner, req.Repo, github.Blob{
				Content:  github.Ptr(f.Content),
				Encoding: github.Ptr("utf-8"),
			})
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			shas[i] = blob.GetSHA()
			return nil
		})
	}
	return shas, g.Wait()
}
