package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reposcanner/internal/browse"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files of a repository",
	Long: `List the files of a repository grouped by directory. The listing comes from
the local cache when the repository was loaded before; use --refresh to fetch
it from GitHub again.`,
	RunE: runFiles,
}

var filesOpts struct {
	repo    string
	ext     string
	dirs    []string
	refresh bool
}

func init() {
	filesCmd.Flags().StringVar(&filesOpts.repo, "repo", "", "repository URL, e.g. https://github.com/owner/repo")
	filesCmd.Flags().StringVar(&filesOpts.ext, "ext", "", "only files with this extension, e.g. .md")
	filesCmd.Flags().StringSliceVar(&filesOpts.dirs, "dir", nil, "only files directly in these directories (/ for the root)")
	filesCmd.Flags().BoolVar(&filesOpts.refresh, "refresh", false, "fetch the repository from GitHub even when cached")
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	_, repo, err := a.loadRepo(ctx, filesOpts.repo, filesOpts.refresh)
	if err != nil {
		return err
	}

	filters := browse.Filters{Extension: filesOpts.ext}
	for _, d := range filesOpts.dirs {
		if d = strings.Trim(d, "/"); d == "" {
			d = browse.RootGroup
		}
		filters = filters.ToggleDirectory(d)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s @ %s\n", repo.URL, repo.Branch)
	for _, g := range browse.GroupByDirectory(filters.Apply(repo.Files)) {
		fmt.Fprintf(out, "\n%s\n", g.Directory)
		for _, f := range g.Files {
			fmt.Fprintf(out, "  %s\n", f.Path)
		}
	}
	return nil
}
