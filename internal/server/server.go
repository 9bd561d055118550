// Package server is the HTTP surface: the JSON API of the local web user,
// the GitHub OAuth flow and the webhook that invalidates cached snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"reposcanner/internal/actions"
	"reposcanner/internal/cache"
	"reposcanner/internal/config"
	gh "reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
)

const oauthStateTTL = 10 * time.Minute

// Notifier delivers a message to a Telegram user. It is nil when the bot is
// not running.
type Notifier interface {
	Notify(userID int64, text string) error
}

type Server struct {
	Config     *config.Config
	Sessions   *session.Registry
	Runner     *actions.Runner
	OAuth      *gh.OAuth
	StateCache *cache.Cache[string, int64]
	Webhooks   *gh.WebhookServer
	Notifier   Notifier
	// BotUsername links the status and OAuth pages to the bot, if any.
	BotUsername string
}

func New(cfg *config.Config, sessions *session.Registry, runner *actions.Runner, oauth *gh.OAuth, stateCache *cache.Cache[string, int64]) *Server {
	s := &Server{
		Config:     cfg,
		Sessions:   sessions,
		Runner:     runner,
		OAuth:      oauth,
		StateCache: stateCache,
	}
	if cfg.GitHubWebhookSecret == "" {
		log.Printf("GITHUB_WEBHOOK_SECRET is not set, webhook signatures are not checked")
	}
	s.Webhooks = gh.NewWebhookServer(cfg.GitHubWebhookSecret, s.invalidate)
	return s
}

func (s *Server) invalidate(ctx context.Context, change gh.RepoChange) {
	if err := s.Sessions.InvalidateRepo(ctx, change.Owner, change.Repo); err != nil {
		log.Printf("Failed to invalidate %s/%s: %v", change.Owner, change.Repo, err)
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/auth", s.handleGetAuth)
	mux.HandleFunc("PUT /api/auth", s.handlePutAuth)
	mux.HandleFunc("DELETE /api/auth", s.handleLogout)
	mux.HandleFunc("GET /api/user", s.handleUser)

	mux.HandleFunc("POST /api/repos", s.handleLoadRepo)
	mux.HandleFunc("GET /api/repos/{id}", s.handleGetRepo)
	mux.HandleFunc("POST /api/repos/{id}/sync", s.handleSync)
	mux.HandleFunc("DELETE /api/repos/{id}/cache", s.handleForget)
	mux.HandleFunc("PUT /api/repos/{id}/branch", s.handleBranch)
	mux.HandleFunc("GET /api/repos/{id}/files", s.handleFiles)
	mux.HandleFunc("GET /api/repos/{id}/file", s.handleFile)
	mux.HandleFunc("POST /api/repos/{id}/commit", s.handleCommit)
	mux.HandleFunc("POST /api/repos/{id}/descriptions", s.handleDescriptions)

	mux.HandleFunc("GET /oauth/login", s.handleOAuthLogin)
	mux.HandleFunc("GET /oauth/callback", s.handleOAuthCallback)
	mux.HandleFunc("POST /webhook/github", s.Webhooks.Handler)

	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on port %s", s.Config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidURL), errors.Is(err, models.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w: %w", models.ErrParse, err)
	}
	return nil
}
