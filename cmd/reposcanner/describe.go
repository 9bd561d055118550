package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reposcanner/internal/actions"
	"reposcanner/internal/browse"
	"reposcanner/internal/models"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Generate frontmatter descriptions for Markdown files and commit them",
	Long: `Generate a description with Rigobot for every selected Markdown file whose
frontmatter lacks a good one, and commit the changed files to the branch in a
single commit. Without --path every Markdown file is selected.`,
	RunE: runDescribe,
}

var describeOpts struct {
	repo    string
	branch  string
	paths   []string
	all     bool
	max     int
	message string
	refresh bool
}

func init() {
	f := describeCmd.Flags()
	f.StringVar(&describeOpts.repo, "repo", "", "repository URL, e.g. https://github.com/owner/repo")
	f.StringVar(&describeOpts.branch, "branch", "", "branch to commit to (default: the first listed branch)")
	f.StringSliceVar(&describeOpts.paths, "path", nil, "file to process, repeatable")
	f.BoolVar(&describeOpts.all, "all", false, "regenerate descriptions that are already long enough")
	f.IntVar(&describeOpts.max, "max", 0, "description length below which a description is regenerated")
	f.StringVarP(&describeOpts.message, "message", "m", "", "commit message")
	f.BoolVar(&describeOpts.refresh, "refresh", false, "fetch the repository from GitHub even when cached")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	web, err := a.webStore(ctx)
	if err != nil {
		return err
	}
	if err := actions.RequireCredentials(web.Auth()); err != nil {
		return err
	}

	st, _, err := a.loadRepo(ctx, describeOpts.repo, describeOpts.refresh)
	if err != nil {
		return err
	}
	if describeOpts.branch != "" {
		if err := st.SelectBranch(describeOpts.branch); err != nil {
			return err
		}
	}
	repo := st.Repo()

	if len(describeOpts.paths) == 0 {
		for i := range repo.Files {
			repo.Files[i].Selected = browse.IsMarkdown(repo.Files[i].Name)
		}
	} else if missing := browse.SelectPaths(repo.Files, describeOpts.paths); len(missing) > 0 {
		return fmt.Errorf("%w: %s", models.ErrNotFound, strings.Join(missing, ", "))
	}

	maxLength := describeOpts.max
	if maxLength == 0 {
		maxLength = a.cfg.DescriptionMaxLength
	}

	res, err := a.runner.GenerateDescriptions(ctx, st.Auth(), repo, browse.Selected(repo.Files), actions.DescribeOptions{
		MaxLength:      maxLength,
		GenerateForAll: describeOpts.all,
		CommitMessage:  describeOpts.message,
	})
	if res != nil {
		printResult(cmd, res)
	}
	return err
}

func printResult(cmd *cobra.Command, res *actions.DescribeResult) {
	out := cmd.OutOrStdout()
	for _, p := range res.Updated {
		fmt.Fprintf(out, "updated  %s\n", p)
	}
	for _, p := range res.Skipped {
		fmt.Fprintf(out, "skipped  %s\n", p)
	}
	for _, p := range res.Ignored {
		fmt.Fprintf(out, "ignored  %s\n", p)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "failed   %s: %s\n", f.Path, f.Error)
	}

	switch {
	case res.Commit != nil:
		fmt.Fprintf(out, "\ncommitted %d files as %s\n", len(res.Updated), res.Commit.SHA)
	case res.NothingToCommit:
		fmt.Fprintln(out, "\nnothing to commit")
	}
}
