package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Token string   `json:"token"`
	Paths []string `json:"paths"`
}

func openBackends(t *testing.T) map[string]Backend {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)

	sealed, err := Sealed(NewMemory(), "12345678901234567890123456789012")
	require.NoError(t, err)

	backends := map[string]Backend{
		"memory": NewMemory(),
		"sqlite": sqlite,
		"sealed": sealed,
	}
	t.Cleanup(func() {
		for _, b := range backends {
			_ = b.Close(context.Background())
		}
	})
	return backends
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, backend := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			kv := backend.Namespace("web")

			var missing record
			ok, err := kv.Get(ctx, "auth", &missing)
			require.NoError(t, err)
			assert.False(t, ok, "absent key")

			want := record{Token: "ghp_x", Paths: []string{"a.md", "b/c.md"}}
			require.NoError(t, kv.Set(ctx, "auth", want))

			var got record
			ok, err = kv.Get(ctx, "auth", &got)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)

			// last write wins
			require.NoError(t, kv.Set(ctx, "auth", record{Token: "ghp_y"}))
			ok, err = kv.Get(ctx, "auth", &got)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "ghp_y", got.Token)

			require.NoError(t, kv.Remove(ctx, "auth"))
			ok, err = kv.Get(ctx, "auth", &got)
			require.NoError(t, err)
			assert.False(t, ok, "removed key")
		})
	}
}

func TestKVClearIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()

	for name, backend := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			web := backend.Namespace("web")
			tg := backend.Namespace("tg-42")

			require.NoError(t, web.Set(ctx, "auth", "a"))
			require.NoError(t, web.Set(ctx, "repo-x", "b"))
			require.NoError(t, tg.Set(ctx, "auth", "c"))

			require.NoError(t, web.Clear(ctx))

			var s string
			ok, err := web.Get(ctx, "repo-x", &s)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = tg.Get(ctx, "auth", &s)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "c", s)
		})
	}
}

func TestSealedStoresCiphertext(t *testing.T) {
	ctx := context.Background()
	plain := NewMemory()

	sealed, err := Sealed(plain, "12345678901234567890123456789012")
	require.NoError(t, err)
	require.NoError(t, sealed.Namespace("web").Set(ctx, "auth", "ghp_secret"))

	var raw string
	ok, err := plain.Namespace("web").Get(ctx, "auth", &raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "ghp_secret")

	// a different key cannot open the value
	other, err := Sealed(plain, "abcdefghijklmnopqrstuvwxyz012345")
	require.NoError(t, err)
	var s string
	_, err = other.Namespace("web").Get(ctx, "auth", &s)
	assert.Error(t, err)
}
