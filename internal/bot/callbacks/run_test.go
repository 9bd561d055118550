package callbacks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reposcanner/internal/actions"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
	"reposcanner/internal/storage"
)

type countingSource struct {
	walks int
}

func (s *countingSource) ListRepositoryFiles(context.Context, string, string, string) ([]models.RepoFileEntry, error) {
	s.walks++
	return []models.RepoFileEntry{{Path: "README.md", Type: "file"}}, nil
}

func (s *countingSource) ListBranches(context.Context, string, string) ([]models.Branch, error) {
	return []models.Branch{{Name: "main"}}, nil
}

func (s *countingSource) GetAuthenticatedUser(_ context.Context, token string) *models.UserProfile {
	if token == "" {
		return nil
	}
	return &models.UserProfile{Login: "octocat"}
}

func TestRunChecksCredentialsFirst(t *testing.T) {
	source := &countingSource{}
	reg := session.NewRegistry(storage.NewMemory(), source)
	_, err := reg.Seed(context.Background(), 42, models.AuthState{Token: "gh"})
	require.NoError(t, err)

	h := NewCallbackHandler(reg, &actions.Runner{}, nil)
	res, err := h.run(models.DescribeJob{UserID: 42, RepoURL: "https://github.com/acme/widgets", Branch: "main"})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, models.ErrMissingCredential)
	assert.Equal(t, 0, source.walks)
}
