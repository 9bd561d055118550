package rigobot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposcanner/internal/models"
)

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/prompting/completion/258/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Token rigo", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "status": "SUCCESS", "answer": "A short guide."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0)
	completion, err := c.Complete(context.Background(), "rigo", Inputs{Title: "PATH: docs/a.md", Content: "# A"})
	require.NoError(t, err)

	assert.Equal(t, "A short guide.", completion.Answer)
	assert.Equal(t, map[string]any{
		"inputs":                    map[string]any{"title": "PATH: docs/a.md", "content": "# A"},
		"include_purpose_objective": false,
		"execute_async":             false,
	}, got)
}

func TestCompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Invalid token."}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 300)

	_, err := c.Complete(context.Background(), "bad", Inputs{})
	if !errors.Is(err, models.ErrNetwork) {
		t.Fatalf("Complete() error = %v, want ErrNetwork", err)
	}
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid token.")

	_, err = c.Complete(context.Background(), "", Inputs{})
	assert.ErrorIs(t, err, models.ErrMissingCredential)
}

func TestPreviewAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{name: "Plain text", answer: "  A short guide.\n", want: "A short guide."},
		{name: "HTML paragraph", answer: "<p>A <strong>short</strong> guide.</p>", want: "A **short** guide."},
		{name: "Comparison is not HTML", answer: "Use a < b to compare", want: "Use a < b to compare"},
		{name: "Generic type is not HTML", answer: "A generic List<T> container for Go.", want: "A generic List<T> container for Go."},
		{name: "Tag name in prose", answer: "Explains the <details> element and *emphasis* rules.", want: "Explains the <details> element and *emphasis* rules."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviewAnswer(tt.answer); got != tt.want {
				t.Errorf("PreviewAnswer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompleteUsesContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 0)
	assert.Zero(t, c.httpClient.Timeout, "the caller's context is the only bound")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, "rigo", Inputs{})
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
