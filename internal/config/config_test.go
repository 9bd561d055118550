package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reposcanner.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REPOSCANNER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://raw.githubusercontent.com/", cfg.RawContentURL)
	assert.Equal(t, "https://rigobot.herokuapp.com", cfg.RigobotURL)
	assert.Equal(t, 258, cfg.RigobotPromptID)
	assert.Equal(t, 150, cfg.DescriptionMaxLength)
	assert.Equal(t, StorageSQLite, cfg.StorageDriver)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeSettings(t, `
[server]
port = "9090"

[rigobot]
prompt_id = 300

[descriptions]
max_length = 120

[storage]
driver = "memory"
`)
	t.Setenv("REPOSCANNER_CONFIG", path)
	t.Setenv("DESCRIPTION_MAX_LENGTH", "80")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port, "file overrides default")
	assert.Equal(t, 300, cfg.RigobotPromptID, "file overrides default")
	assert.Equal(t, 80, cfg.DescriptionMaxLength, "environment overrides file")
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{
			name: "Non numeric integer",
			env:  map[string]string{"WALK_CONCURRENCY": "many"},
		},
		{
			name: "Unknown storage driver",
			env:  map[string]string{"STORAGE_DRIVER": "redis"},
		},
		{
			name: "Mongo without URI",
			env:  map[string]string{"STORAGE_DRIVER": "mongo", "MONGODB_URI": ""},
		},
		{
			name: "Broken settings file",
			file: "[server\nport = ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.file != "" {
				t.Setenv("REPOSCANNER_CONFIG", writeSettings(t, tt.file))
			} else {
				t.Setenv("REPOSCANNER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestOAuthEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.OAuthEnabled())

	cfg.GitHubClientID = "id"
	cfg.GitHubClientSecret = "secret"
	assert.True(t, cfg.OAuthEnabled())
}
