package server

import (
	"fmt"
	"net/http"
	"strings"

	"reposcanner/internal/actions"
	"reposcanner/internal/browse"
	"reposcanner/internal/frontmatter"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
	"reposcanner/internal/store"
)

type authStatus struct {
	HasToken        bool                `json:"has_token"`
	HasRigobotToken bool                `json:"has_rigobot_token"`
	User            *models.UserProfile `json:"user"`
}

type repoResponse struct {
	ID     string            `json:"id"`
	Cached bool              `json:"cached"`
	Repo   models.Repository `json:"repo"`
}

type filesResponse struct {
	Groups      []browse.Group `json:"groups"`
	Directories []string       `json:"directories"`
}

type fileResponse struct {
	Path             string         `json:"path"`
	DownloadURL      string         `json:"download_url"`
	Image            bool           `json:"image"`
	Content          string         `json:"content,omitempty"`
	Frontmatter      map[string]any `json:"frontmatter,omitempty"`
	FrontmatterError string         `json:"frontmatter_error,omitempty"`
}

type commitRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Message string `json:"message"`
}

type descriptionsRequest struct {
	Paths          []string `json:"paths"`
	MaxLength      int      `json:"max_length"`
	GenerateForAll bool     `json:"generate_for_all"`
	CommitMessage  string   `json:"commit_message"`
}

func (s *Server) web(r *http.Request) (*store.Store, error) {
	return s.Sessions.For(r.Context(), session.WebUser)
}

// repo resolves the {id} segment and makes that repository current, loading
// it when another one is selected.
func (s *Server) repo(r *http.Request) (*store.Store, models.Repository, error) {
	url, ok := browse.DecodeRepoURL(r.PathValue("id"))
	if !ok {
		return nil, models.Repository{}, fmt.Errorf("%w: no repository", models.ErrNotFound)
	}
	st, err := s.web(r)
	if err != nil {
		return nil, models.Repository{}, err
	}
	if repo := st.Repo(); repo.URL == url {
		return st, repo, nil
	}
	repo, _, err := st.LoadRepo(r.Context(), url)
	if err != nil {
		return nil, models.Repository{}, err
	}
	return st, repo, nil
}

func (s *Server) handleGetAuth(w http.ResponseWriter, r *http.Request) {
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth := st.Auth()
	writeJSON(w, http.StatusOK, authStatus{
		HasToken:        auth.Token != "",
		HasRigobotToken: auth.RigobotToken != "",
		User:            st.User(),
	})
}

func (s *Server) handlePutAuth(w http.ResponseWriter, r *http.Request) {
	var auth models.AuthState
	if err := decodeBody(w, r, &auth); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.SetAuth(r.Context(), auth); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authStatus{
		HasToken:        auth.Token != "",
		HasRigobotToken: auth.RigobotToken != "",
		User:            st.User(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := st.User()
	if user == nil {
		writeError(w, r, fmt.Errorf("%w: not signed in to GitHub", models.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLoadRepo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	repo, cached, err := st.LoadRepo(r.Context(), strings.TrimSpace(body.URL))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repoResponse{ID: browse.EncodeRepoURL(repo.URL), Cached: cached, Repo: repo})
}

func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	_, repo, err := s.repo(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	url, ok := browse.DecodeRepoURL(r.PathValue("id"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: no repository", models.ErrNotFound))
		return
	}
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	repo, err := st.FetchRepo(r.Context(), url)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repoResponse{ID: browse.EncodeRepoURL(repo.URL), Repo: repo})
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	url, ok := browse.DecodeRepoURL(r.PathValue("id"))
	if !ok {
		writeError(w, r, fmt.Errorf("%w: no repository", models.ErrNotFound))
		return
	}
	st, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.ForgetRepo(r.Context(), url); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBranch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	st, _, err := s.repo(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.SelectBranch(body.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Repo())
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	_, repo, err := s.repo(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filters := browse.Filters{Extension: q.Get("ext"), Directories: q["dir"]}
	writeJSON(w, http.StatusOK, filesResponse{
		Groups:      browse.GroupByDirectory(filters.Apply(repo.Files)),
		Directories: browse.Directories(repo.Files),
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	_, repo, err := s.repo(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := r.URL.Query().Get("path")
	file, ok := repo.FindFile(path)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: %q is not in %s", models.ErrNotFound, path, repo.URL))
		return
	}

	resp := fileResponse{Path: file.Path, DownloadURL: file.GetDownloadURL(), Image: browse.IsImage(file.Name)}
	if resp.Image {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if file.DownloadURL == nil {
		writeError(w, r, fmt.Errorf("%w: %s has no download url", models.ErrNotFound, file.Path))
		return
	}

	content, err := s.Runner.Files.FetchRawFile(r.Context(), *file.DownloadURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp.Content = content
	if browse.IsMarkdown(file.Name) {
		doc, err := frontmatter.Extract(content)
		if err != nil {
			resp.FrontmatterError = err.Error()
		} else {
			resp.Frontmatter = doc.Frontmatter
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var body commitRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Path == "" {
		writeError(w, r, fmt.Errorf("commit: %w: path is required", models.ErrInvalidURL))
		return
	}
	st, repo, err := s.repo(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Runner.CommitEdit(r.Context(), st.Auth(), repo, strings.TrimPrefix(body.Path, "/"), body.Content, body.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDescriptions(w http.ResponseWriter, r *http.Request) {
	var body descriptionsRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	web, err := s.web(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := actions.RequireCredentials(web.Auth()); err != nil {
		writeError(w, r, err)
		return
	}
	st, repo, err := s.repo(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if len(body.Paths) == 0 {
		for i := range repo.Files {
			repo.Files[i].Selected = browse.IsMarkdown(repo.Files[i].Name)
		}
	} else if missing := browse.SelectPaths(repo.Files, body.Paths); len(missing) > 0 {
		writeError(w, r, fmt.Errorf("%w: %s", models.ErrNotFound, strings.Join(missing, ", ")))
		return
	}

	res, err := s.Runner.GenerateDescriptions(r.Context(), st.Auth(), repo, browse.Selected(repo.Files), actions.DescribeOptions{
		MaxLength:      body.MaxLength,
		GenerateForAll: body.GenerateForAll,
		CommitMessage:  body.CommitMessage,
	})
	if err != nil {
		if res == nil {
			writeError(w, r, err)
			return
		}
		// the commit failed after the files were processed
		writeJSON(w, StatusCode(err), map[string]any{"error": err.Error(), "result": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
