package securekv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSecretRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.db")
	s, err := OpenFileStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetSecret("missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, s.PutSecret("auth_token", "very-secret-value"))
	got, err := s.GetSecret("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "very-secret-value", got)

	require.NoError(t, s.Delete("auth_token"))
	_, err = s.GetSecret("auth_token")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestFileStoreEncryptsAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.db")
	s, err := OpenFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.PutSecret("k", "plaintext-marker-value"))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "plaintext-marker-value"),
		"secret must not appear in cleartext on disk")
}

func TestFileStoreKeyStableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.db")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	key, err := s.GetOrCreateKey("notes")
	require.NoError(t, err)
	require.Len(t, key, 32)
	require.NoError(t, s.Close())

	s2, err := OpenFileStore(path)
	require.NoError(t, err)
	defer s2.Close()
	again, err := s2.GetOrCreateKey("notes")
	require.NoError(t, err)
	assert.Equal(t, key, again)

	other, err := s2.GetOrCreateKey("other")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.PutSecret("k", "v"))
	got, err := s.GetSecret("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	key, err := s.GetOrCreateKey("a")
	require.NoError(t, err)
	again, err := s.GetOrCreateKey("a")
	require.NoError(t, err)
	assert.Equal(t, key, again)
}
