// Package actions implements the operations that change a repository: the
// single-file editor commit and the bulk description generator.
package actions

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"reposcanner/internal/browse"
	"reposcanner/internal/frontmatter"
	"reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/rigobot"
)

const DefaultMaxLength = 150

type FileSource interface {
	FetchRawFile(ctx context.Context, rawURL string) (string, error)
}

type Describer interface {
	Complete(ctx context.Context, token string, inputs rigobot.Inputs) (*rigobot.Completion, error)
}

type Committer interface {
	CommitFiles(ctx context.Context, req github.CommitRequest) (*github.CommitResult, error)
}

type Runner struct {
	Files     FileSource
	Describer Describer
	Committer Committer
	// Workers bounds how many files are processed at once.
	Workers int
}

type DescribeOptions struct {
	MaxLength      int
	GenerateForAll bool
	CommitMessage  string
}

type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	err   error
}

// Err returns the underlying error, for errors.Is checks.
func (f FileFailure) Err() error {
	return f.err
}

// DescribeResult reports what happened to each selected file. Updated
// files were committed, in selection order; Skipped Markdown files already
// had a long enough description; Ignored files are not Markdown.
type DescribeResult struct {
	Updated         []string             `json:"updated"`
	Skipped         []string             `json:"skipped"`
	Ignored         []string             `json:"ignored"`
	Failures        []FileFailure        `json:"failures"`
	NothingToCommit bool                 `json:"nothing_to_commit"`
	Commit          *github.CommitResult `json:"commit,omitempty"`
	// Descriptions holds the generated description of each updated file.
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

type fileOutcome struct {
	content string
	answer  string
	changed bool
	err     error
}

// RequireCredentials fails unless both the GitHub and the Rigobot token are
// set. Callers check it before any network work.
func RequireCredentials(auth models.AuthState) error {
	if auth.Token == "" {
		return fmt.Errorf("generate descriptions: %w: GitHub token", models.ErrMissingCredential)
	}
	if auth.RigobotToken == "" {
		return fmt.Errorf("generate descriptions: %w: Rigobot token", models.ErrMissingCredential)
	}
	return nil
}

// GenerateDescriptions writes a description into the frontmatter of every
// selected Markdown file that needs one and commits the changed files
// together. A file that cannot be fetched, parsed or described is reported
// in the result and does not stop the others; a failed commit fails the
// whole run.
func (r *Runner) GenerateDescriptions(ctx context.Context, auth models.AuthState, repo models.Repository, selected []models.RepoFileEntry, opts DescribeOptions) (*DescribeResult, error) {
	if err := RequireCredentials(auth); err != nil {
		return nil, err
	}
	owner, name, err := github.ParseRepoURL(repo.URL)
	if err != nil {
		return nil, err
	}
	if repo.Branch == "" {
		return nil, fmt.Errorf("generate descriptions: %w: no branch selected", models.ErrInvalidURL)
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	result := &DescribeResult{}
	var markdown []models.RepoFileEntry
	for _, f := range selected {
		if browse.IsMarkdown(f.Name) {
			markdown = append(markdown, f)
		} else {
			result.Ignored = append(result.Ignored, f.Path)
		}
	}

	outcomes := make([]fileOutcome, len(markdown))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))
	for i, f := range markdown {
		g.Go(func() error {
			content, answer, changed, err := r.describeFile(gctx, auth, f, opts)
			outcomes[i] = fileOutcome{content: content, answer: answer, changed: changed, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var changes []github.FileChange
	for i, f := range markdown {
		o := outcomes[i]
		switch {
		case o.err != nil:
			log.Printf("Skipping %s: %v", f.Path, o.err)
			result.Failures = append(result.Failures, FileFailure{Path: f.Path, Error: o.err.Error(), err: o.err})
		case o.changed:
			changes = append(changes, github.FileChange{Path: f.Path, Content: o.content})
			result.Updated = append(result.Updated, f.Path)
			if result.Descriptions == nil {
				result.Descriptions = make(map[string]string)
			}
			result.Descriptions[f.Path] = o.answer
		default:
			result.Skipped = append(result.Skipped, f.Path)
		}
	}

	if len(changes) == 0 {
		result.NothingToCommit = true
		return result, nil
	}

	message := opts.CommitMessage
	if message == "" {
		message = fmt.Sprintf("Add description to %d files", len(selected))
	}

	commit, err := r.Committer.CommitFiles(ctx, github.CommitRequest{
		Owner:   owner,
		Repo:    name,
		Branch:  repo.Branch,
		Files:   changes,
		Message: message,
		Token:   auth.Token,
	})
	if err != nil {
		return result, err
	}
	result.Commit = commit
	return result, nil
}

func (r *Runner) describeFile(ctx context.Context, auth models.AuthState, f models.RepoFileEntry, opts DescribeOptions) (content, answer string, changed bool, err error) {
	if f.DownloadURL == nil {
		return "", "", false, fmt.Errorf("fetch raw file: %w: %s has no download url", models.ErrNotFound, f.Path)
	}
	raw, err := r.Files.FetchRawFile(ctx, *f.DownloadURL)
	if err != nil {
		return "", "", false, err
	}

	doc, err := frontmatter.Extract(raw)
	if err != nil {
		return "", "", false, err
	}
	if !NeedsDescription(doc.Frontmatter, opts.MaxLength, opts.GenerateForAll) {
		return "", "", false, nil
	}

	title := "PATH: " + f.Path
	if t := doc.Frontmatter["title"]; truthy(t) {
		title = fmt.Sprint(t)
	}

	completion, err := r.Describer.Complete(ctx, auth.RigobotToken, rigobot.Inputs{Title: title, Content: raw})
	if err != nil {
		return "", "", false, err
	}

	doc.Frontmatter["description"] = completion.Answer
	content, err = frontmatter.Insert(doc.Content, doc.Frontmatter)
	if err != nil {
		return "", "", false, err
	}
	return content, completion.Answer, true, nil
}

// NeedsDescription decides whether a file gets a generated description:
// always when all is set, when the description or subtitle is a string
// shorter than maxLength characters, or when it has neither. A non-string
// value counts as present and not short.
func NeedsDescription(fm map[string]any, maxLength int, all bool) bool {
	if all {
		return true
	}

	desc, sub := fm["description"], fm["subtitle"]
	hasDesc, hasSub := truthy(desc), truthy(sub)

	if hasDesc && shorter(desc, maxLength) {
		return true
	}
	if hasSub && shorter(sub, maxLength) {
		return true
	}
	return !hasDesc && !hasSub
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case uint64:
		return v != 0
	case float64:
		return v != 0
	}
	return true
}

func shorter(v any, n int) bool {
	s, ok := v.(string)
	return ok && utf8.RuneCountInString(s) < n
}
