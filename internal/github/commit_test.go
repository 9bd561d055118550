package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposcanner/internal/models"
)

// Request bodies as GitHub receives them.
type wireBlob struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type wireTreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type wireTree struct {
	BaseTree string          `json:"base_tree"`
	Tree     []wireTreeEntry `json:"tree"`
}

type wireCommit struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`
}

type wireUpdateRef struct {
	SHA   string `json:"sha"`
	Force *bool  `json:"force"`
}

// fakeGitData serves the Git data endpoints used by CommitFiles and records
// the order in which they are called.
type fakeGitData struct {
	mu    sync.Mutex
	calls []string

	blobs  []wireBlob
	tree   wireTree
	commit wireCommit
	update wireUpdateRef

	failStep string
}

func (f *fakeGitData) record(step string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, step)
	return step == f.failStep
}

func (f *fakeGitData) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const base = "/repos/acme/widgets/git/"
	var step string
	switch r.Method + " " + r.URL.Path {
	case "GET " + base + "ref/heads/main":
		step = "ref"
	case "GET " + base + "commits/parent-sha":
		step = "commit"
	case "POST " + base + "blobs":
		step = "blob"
	case "POST " + base + "trees":
		step = "tree"
	case "POST " + base + "commits":
		step = "create-commit"
	case "PATCH " + base + "refs/heads/main":
		step = "update-ref"
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	if f.record(step) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
		return
	}

	switch step {
	case "ref":
		writeJSON(w, http.StatusOK, map[string]any{"ref": "refs/heads/main", "object": map[string]string{"sha": "parent-sha", "type": "commit"}})
	case "commit":
		writeJSON(w, http.StatusOK, map[string]any{"sha": "parent-sha", "tree": map[string]string{"sha": "base-tree"}})
	case "blob":
		var req wireBlob
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.blobs = append(f.blobs, req)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"sha": "blob-" + req.Content})
	case "tree":
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.tree)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"sha": "new-tree"})
	case "create-commit":
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.commit)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"sha": "new-commit"})
	case "update-ref":
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.update)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ref": "refs/heads/main", "object": map[string]string{"sha": "new-commit"}})
	}
}

func commitRequestFixture() CommitRequest {
	return CommitRequest{
		Owner:  "acme",
		Repo:   "widgets",
		Branch: "main",
		Files: []FileChange{
			{Path: "docs/a.md", Content: "A"},
			{Path: "docs/b.md", Content: "B"},
			{Path: "README.md", Content: "C"},
		},
		Message: "Add description to 3 files",
		Token:   "token",
	}
}

func TestCommitFilesSequence(t *testing.T) {
	fake := &fakeGitData{}
	client, _ := newTestClient(t, fake)

	result, err := client.CommitFiles(context.Background(), commitRequestFixture())
	require.NoError(t, err)
	assert.Equal(t, &CommitResult{SHA: "new-commit", TreeSHA: "new-tree", Parent: "parent-sha"}, result)

	assert.Equal(t, []string{"ref", "commit", "blob", "blob", "blob", "tree", "create-commit", "update-ref"}, fake.calls)

	assert.Equal(t, "base-tree", fake.tree.BaseTree, "tree is layered on the commit-read tree")
	assert.ElementsMatch(t, []wireBlob{
		{Content: "A", Encoding: "utf-8"},
		{Content: "B", Encoding: "utf-8"},
		{Content: "C", Encoding: "utf-8"},
	}, fake.blobs)

	assert.Equal(t, []wireTreeEntry{
		{Path: "docs/a.md", Mode: "100644", Type: "blob", SHA: "blob-A"},
		{Path: "docs/b.md", Mode: "100644", Type: "blob", SHA: "blob-B"},
		{Path: "README.md", Mode: "100644", Type: "blob", SHA: "blob-C"},
	}, fake.tree.Tree)

	assert.Equal(t, wireCommit{Message: "Add description to 3 files", Tree: "new-tree", Parents: []string{"parent-sha"}}, fake.commit)
	assert.Equal(t, "new-commit", fake.update.SHA)
	require.NotNil(t, fake.update.Force, "force is sent explicitly")
	assert.False(t, *fake.update.Force)
}

func TestCommitFilesStepFailure(t *testing.T) {
	fake := &fakeGitData{failStep: "tree"}
	client, _ := newTestClient(t, fake)

	_, err := client.CommitFiles(context.Background(), commitRequestFixture())

	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr), "got %v", err)
	assert.Equal(t, 4, commitErr.Step)
	assert.Equal(t, "create tree", commitErr.StepName)
	assert.ElementsMatch(t, []string{"blob-A", "blob-B", "blob-C"}, commitErr.Created)
	assert.ErrorIs(t, err, models.ErrNetwork)

	assert.NotContains(t, fake.calls, "create-commit")
	assert.NotContains(t, fake.calls, "update-ref")
}

func TestCommitFilesValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CommitRequest)
		wantErr error
	}{
		{name: "No token", mutate: func(r *CommitRequest) { r.Token = "" }, wantErr: models.ErrMissingCredential},
		{name: "No owner", mutate: func(r *CommitRequest) { r.Owner = "" }, wantErr: models.ErrInvalidURL},
		{name: "No branch", mutate: func(r *CommitRequest) { r.Branch = "" }, wantErr: models.ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGitData{}
			client, _ := newTestClient(t, fake)

			req := commitRequestFixture()
			tt.mutate(&req)
			_, err := client.CommitFiles(context.Background(), req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, fake.calls, "validation happens before any request")
		})
	}
}
