package github

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/go-github/v80/github"
)

// RepoChange identifies a repository whose cached snapshot is stale.
type RepoChange struct {
	Event string
	Owner string
	Repo  string
}

// WebhookServer receives GitHub webhooks and reports repository changes.
type WebhookServer struct {
	Secret   []byte
	OnChange func(ctx context.Context, change RepoChange)
}

func NewWebhookServer(secret string, onChange func(ctx context.Context, change RepoChange)) *WebhookServer {
	return &WebhookServer{Secret: []byte(secret), OnChange: onChange}
}

func (s *WebhookServer) Handler(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, s.Secret)
	if err != nil {
		log.Printf("Error: Webhook signature validation failed. Ensure GITHUB_WEBHOOK_SECRET matches. Error: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	if !IsCacheEvent(eventType) {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		log.Printf("Error: Webhook parsing failed: %v", err)
		http.Error(w, "Parse error", http.StatusBadRequest)
		return
	}

	change, ok := repoChange(eventType, event)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	log.Printf("Webhook %s for %s/%s, dropping cached snapshots", change.Event, change.Owner, change.Repo)
	if s.OnChange != nil {
		s.OnChange(r.Context(), change)
	}
	w.WriteHeader(http.StatusOK)
}

func repoChange(eventType string, event interface{}) (RepoChange, bool) {
	var fullName string
	switch e := event.(type) {
	case *github.PushEvent:
		fullName = e.GetRepo().GetFullName()
	case *github.CreateEvent:
		fullName = e.GetRepo().GetFullName()
	case *github.DeleteEvent:
		fullName = e.GetRepo().GetFullName()
	case *github.RepositoryEvent:
		fullName = e.GetRepo().GetFullName()
		if from := e.GetChanges().GetRepo().GetName().GetFrom(); from != "" {
			// a rename: the snapshot is cached under the old name
			owner, _, _ := strings.Cut(fullName, "/")
			fullName = owner + "/" + from
		}
	default:
		return RepoChange{}, false
	}

	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return RepoChange{}, false
	}
	return RepoChange{Event: eventType, Owner: owner, Repo: repo}, true
}
