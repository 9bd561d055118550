// Package store holds one user's application state: credentials, the
// repository being browsed and the GitHub profile. Credentials and fetched
// repositories are persisted to the local cache.
package store

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/storage"
)

const authKey = "auth"

// RepoKey is the cache key of a repository snapshot.
func RepoKey(url string) string {
	return "repo-" + url
}

// RepoSource is the part of the GitHub client the store composes.
type RepoSource interface {
	ListRepositoryFiles(ctx context.Context, owner, repo, token string) ([]models.RepoFileEntry, error)
	ListBranches(ctx context.Context, repoURL, token string) ([]models.Branch, error)
	GetAuthenticatedUser(ctx context.Context, token string) *models.UserProfile
}

// Store is safe for concurrent use. Every mutation replaces the previous
// value; the last writer wins.
type Store struct {
	mu          sync.RWMutex
	initialized bool
	auth        models.AuthState
	repo        models.Repository
	user        *models.UserProfile

	kv storage.KV
	gh RepoSource
}

func New(kv storage.KV, gh RepoSource) *Store {
	return &Store{kv: kv, gh: gh}
}

// Init loads the saved credentials. Calls after the first successful one do
// nothing.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}

	var auth models.AuthState
	if _, err := s.kv.Get(ctx, authKey, &auth); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load auth: %w", err)
	}
	s.auth = auth
	s.initialized = true
	s.mu.Unlock()

	if auth.Token != "" {
		s.RefreshUser(ctx)
	}
	return nil
}

func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Store) Auth() models.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// SetAuth replaces and persists the credentials. A new GitHub token also
// refreshes the user profile.
func (s *Store) SetAuth(ctx context.Context, auth models.AuthState) error {
	s.mu.Lock()
	changed := s.auth.Token != auth.Token
	s.auth = auth
	s.mu.Unlock()

	if err := s.kv.Set(ctx, authKey, auth); err != nil {
		return fmt.Errorf("persist auth: %w", err)
	}

	if changed {
		s.RefreshUser(ctx)
	}
	return nil
}

// Logout forgets the credentials and the profile.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.auth = models.AuthState{}
	s.user = nil
	s.mu.Unlock()

	return s.kv.Remove(ctx, authKey)
}

// Reset drops all state of this user, cached repositories included.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.auth = models.AuthState{}
	s.repo = models.Repository{}
	s.user = nil
	s.mu.Unlock()

	return s.kv.Clear(ctx)
}

func (s *Store) User() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) SetUser(user *models.UserProfile) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
}

// RefreshUser looks the profile up with the current token. A failed lookup
// clears it.
func (s *Store) RefreshUser(ctx context.Context) *models.UserProfile {
	user := s.gh.GetAuthenticatedUser(ctx, s.Auth().Token)
	s.SetUser(user)
	return user
}

// Repo returns a copy of the current repository snapshot.
func (s *Store) Repo() models.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRepo(s.repo)
}

// SetRepo replaces the current repository. It is not persisted.
func (s *Store) SetRepo(repo models.Repository) {
	s.mu.Lock()
	s.repo = cloneRepo(repo)
	s.mu.Unlock()
}

// SelectBranch makes name the active branch of the current repository.
func (s *Store) SelectBranch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo.IsZero() {
		return fmt.Errorf("select branch: %w: no repository selected", models.ErrNotFound)
	}
	idx := slices.IndexFunc(s.repo.Branches, func(b models.Branch) bool { return b.Name == name })
	if idx < 0 {
		return fmt.Errorf("select branch: %w: %q", models.ErrNotFound, name)
	}

	for i := range s.repo.Branches {
		s.repo.Branches[i].Selected = i == idx
	}
	s.repo.Branch = name
	return nil
}

// FetchRepo loads url from GitHub, makes it the current repository and
// caches it. The first listed branch becomes the active one.
func (s *Store) FetchRepo(ctx context.Context, url string) (models.Repository, error) {
	owner, name, err := github.ParseRepoURL(url)
	if err != nil {
		return models.Repository{}, err
	}
	token := s.Auth().Token

	var (
		files    []models.RepoFileEntry
		branches []models.Branch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = s.gh.ListRepositoryFiles(gctx, owner, name, token)
		return err
	})
	g.Go(func() error {
		var err error
		branches, err = s.gh.ListBranches(gctx, url, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Repository{}, err
	}

	repo := models.Repository{
		Owner:    owner,
		URL:      url,
		Files:    files,
		Branches: slices.Clone(branches),
	}
	if len(branches) > 0 {
		repo.Branch = branches[0].Name
		repo.Branches[0].Selected = true
	}

	s.SetRepo(repo)
	if err := s.kv.Set(ctx, RepoKey(url), repo); err != nil {
		return repo, fmt.Errorf("cache repository: %w", err)
	}

	log.Printf("Fetched %s: %d files, %d branches", url, len(files), len(branches))
	return repo, nil
}

// CachedRepo returns the snapshot saved for url, if any.
func (s *Store) CachedRepo(ctx context.Context, url string) (models.Repository, bool, error) {
	var repo models.Repository
	ok, err := s.kv.Get(ctx, RepoKey(url), &repo)
	if err != nil {
		return models.Repository{}, false, fmt.Errorf("read cached repository: %w", err)
	}
	return repo, ok, nil
}

// LoadRepo makes url the current repository, from the cache when a snapshot
// exists and from GitHub otherwise. It reports whether the cache was used.
func (s *Store) LoadRepo(ctx context.Context, url string) (models.Repository, bool, error) {
	repo, ok, err := s.CachedRepo(ctx, url)
	if err != nil {
		log.Printf("Ignoring unreadable cache entry for %s: %v", url, err)
	}
	if ok && err == nil {
		s.SetRepo(repo)
		return repo, true, nil
	}

	repo, err = s.FetchRepo(ctx, url)
	return repo, false, err
}

// ForgetRepo removes the cached snapshot of url. The current repository in
// memory is left as is.
func (s *Store) ForgetRepo(ctx context.Context, url string) error {
	return s.kv.Remove(ctx, RepoKey(url))
}

// InvalidateRepo removes cached snapshots of owner/repo under the URL forms
// the application produces, plus the current repository's own URL when it
// names the same repository.
func (s *Store) InvalidateRepo(ctx context.Context, owner, repo string) error {
	canonical := github.CanonicalRepoURL(owner, repo)
	urls := []string{canonical, canonical + "/", canonical + ".git"}

	if current := s.Repo().URL; current != "" {
		if o, r, err := github.ParseRepoURL(current); err == nil && o == owner && r == repo {
			urls = append(urls, current)
		}
	}

	for _, u := range urls {
		if err := s.ForgetRepo(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func cloneRepo(r models.Repository) models.Repository {
	r.Files = slices.Clone(r.Files)
	r.Branches = slices.Clone(r.Branches)
	return r
}
