// Package session maps users to their stores. The HTTP surface is user 0;
// Telegram users are keyed by their Telegram id.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"reposcanner/internal/cache"
	"reposcanner/internal/models"
	"reposcanner/internal/storage"
	"reposcanner/internal/store"
)

// WebUser is the single local user of the HTTP API and the CLI.
const WebUser int64 = 0

// IdleTTL is how long an unused store stays in memory. Its state survives
// in the local cache.
const IdleTTL = 12 * time.Hour

// Namespace returns the local cache namespace of a user.
func Namespace(id int64) string {
	if id == WebUser {
		return "web"
	}
	return "tg-" + strconv.FormatInt(id, 10)
}

type Registry struct {
	backend storage.Backend
	source  store.RepoSource

	mu     sync.Mutex
	stores *cache.Cache[int64, *store.Store]
}

func NewRegistry(backend storage.Backend, source store.RepoSource) *Registry {
	return &Registry{
		backend: backend,
		source:  source,
		stores:  cache.New[int64, *store.Store](),
	}
}

// For returns the initialized store of a user, creating it on first use.
func (r *Registry) For(ctx context.Context, id int64) (*store.Store, error) {
	r.mu.Lock()
	st, ok := r.stores.Get(id)
	if !ok {
		st = store.New(r.backend.Namespace(Namespace(id)), r.source)
	}
	r.stores.Set(id, st, IdleTTL)
	r.mu.Unlock()

	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// Seed fills credentials the user has not set yet, e.g. from the
// environment. Saved credentials win.
func (r *Registry) Seed(ctx context.Context, id int64, seed models.AuthState) (*store.Store, error) {
	st, err := r.For(ctx, id)
	if err != nil {
		return nil, err
	}

	auth := st.Auth()
	merged := auth
	if merged.Token == "" {
		merged.Token = seed.Token
	}
	if merged.RigobotToken == "" {
		merged.RigobotToken = seed.RigobotToken
	}
	if merged != auth {
		if err := st.SetAuth(ctx, merged); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Active returns the stores currently held in memory.
func (r *Registry) Active() []*store.Store {
	var active []*store.Store
	for _, id := range r.stores.Keys() {
		if st, ok := r.stores.Get(id); ok {
			active = append(active, st)
		}
	}
	return active
}

// InvalidateRepo drops cached snapshots of owner/repo from every active
// session.
func (r *Registry) InvalidateRepo(ctx context.Context, owner, repo string) error {
	for _, st := range r.Active() {
		if err := st.InvalidateRepo(ctx, owner, repo); err != nil {
			return err
		}
	}
	return nil
}

// StartJanitor evicts idle stores until stop is closed.
func (r *Registry) StartJanitor(stop <-chan struct{}) {
	r.stores.StartJanitor(time.Hour, stop)
}
