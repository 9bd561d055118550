package main

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"reposcanner/internal/bot"
	"reposcanner/internal/cache"
	gh "reposcanner/internal/github"
	"reposcanner/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, and the Telegram bot when TELEGRAM_TOKEN is set",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.webStore(ctx); err != nil {
		return err
	}

	var oauth *gh.OAuth
	if a.cfg.OAuthEnabled() {
		oauth = gh.NewOAuth(a.cfg)
	} else {
		log.Printf("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, GitHub sign-in is disabled")
	}

	stop := make(chan struct{})
	defer close(stop)

	stateCache := cache.New[string, int64]()
	stateCache.StartJanitor(time.Minute, stop)
	a.sessions.StartJanitor(stop)

	srv := server.New(a.cfg, a.sessions, a.runner, oauth, stateCache)

	if a.cfg.TelegramToken != "" {
		b, err := bot.New(bot.Deps{
			Config:     a.cfg,
			Sessions:   a.sessions,
			GitHub:     a.github,
			Runner:     a.runner,
			OAuth:      oauth,
			StateCache: stateCache,
		})
		if err != nil {
			return err
		}
		if err := b.Start(); err != nil {
			return err
		}
		defer func() {
			if err := b.Stop(); err != nil {
				log.Printf("Failed to stop bot: %v", err)
			}
		}()

		srv.Notifier = b
		srv.BotUsername = b.User.Username
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	log.Printf("Server stopped")
	return nil
}
