package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"reposcanner/internal/actions"
	"reposcanner/internal/config"
	gh "reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/rigobot"
	"reposcanner/internal/session"
	"reposcanner/internal/storage"
	"reposcanner/internal/store"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "reposcanner",
	Short: "Browse GitHub repositories and describe their Markdown files",
	Long: `RepoScanner lists the files of a GitHub repository, shows and edits them,
and writes frontmatter descriptions for Markdown files with Rigobot.

Get started:
  1. Set your tokens: export GITHUB_TOKEN=... RIGOBOT_TOKEN=...
  2. List files:      reposcanner files --repo https://github.com/owner/repo
  3. Run the server:  reposcanner serve (add TELEGRAM_TOKEN to start the bot)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("reposcanner %s\n", Version)
	},
}

// app holds the services every command composes.
type app struct {
	cfg      *config.Config
	backend  storage.Backend
	github   *gh.Client
	runner   *actions.Runner
	sessions *session.Registry
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	factory, err := gh.NewClientFactory(cfg.GitHubAPIURL)
	if err != nil {
		return nil, err
	}
	client := gh.NewClient(factory, cfg.RawContentURL, cfg.WalkConcurrency)

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		backend: backend,
		github:  client,
		runner: &actions.Runner{
			Files:     client,
			Describer: rigobot.NewClient(cfg.RigobotURL, cfg.RigobotPromptID),
			Committer: client,
			Workers:   cfg.BulkConcurrency,
		},
		sessions: session.NewRegistry(backend, client),
	}, nil
}

// webStore returns the local user's store with the environment tokens
// filled in where none are saved.
func (a *app) webStore(ctx context.Context) (*store.Store, error) {
	return a.sessions.Seed(ctx, session.WebUser, models.AuthState{
		Token:        a.cfg.GitHubToken,
		RigobotToken: a.cfg.RigobotToken,
	})
}

func (a *app) close() {
	if err := a.backend.Close(context.Background()); err != nil {
		log.Printf("Failed to close storage: %v", err)
	}
}

// loadRepo opens url for the CLI, refetching it when refresh is set.
func (a *app) loadRepo(ctx context.Context, url string, refresh bool) (*store.Store, models.Repository, error) {
	st, err := a.webStore(ctx)
	if err != nil {
		return nil, models.Repository{}, err
	}
	if url == "" {
		return nil, models.Repository{}, fmt.Errorf("%w: --repo is required", models.ErrInvalidURL)
	}

	var repo models.Repository
	if refresh {
		repo, err = st.FetchRepo(ctx, url)
	} else {
		repo, _, err = st.LoadRepo(ctx, url)
	}
	return st, repo, err
}
