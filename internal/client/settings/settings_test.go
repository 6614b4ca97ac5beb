package settings

import (
	"testing"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/securekv"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigured(t *testing.T) {
	m := NewManager(securekv.NewMemoryStore())
	assert.False(t, m.Configured())

	require.NoError(t, m.SetServerURL("https://sync.example.com"))
	assert.False(t, m.Configured())

	require.NoError(t, m.SetAuthToken("device-credential-0123456789"))
	assert.False(t, m.Configured())

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	require.NoError(t, m.SetEncryptionSalt(salt))
	assert.True(t, m.Configured())
}

func TestEncryptionSaltRoundTrip(t *testing.T) {
	m := NewManager(securekv.NewMemoryStore())

	got, err := m.EncryptionSalt()
	require.NoError(t, err)
	assert.Nil(t, got)

	salt, err := m.EnsureEncryptionSalt()
	require.NoError(t, err)
	assert.Len(t, salt, crypto.SaltLength)

	// 再次调用返回同一份盐
	again, err := m.EnsureEncryptionSalt()
	require.NoError(t, err)
	assert.Equal(t, salt, again)
}

func TestDeviceUserIDStablePerInstall(t *testing.T) {
	m := NewManager(securekv.NewMemoryStore())

	id, err := m.DeviceUserID()
	require.NoError(t, err)
	assert.Len(t, id, crypto.DeviceUserIDLength)

	again, err := m.DeviceUserID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestLastSyncTimestamp(t *testing.T) {
	m := NewManager(securekv.NewMemoryStore())
	assert.Zero(t, m.LastSyncTimestamp())

	require.NoError(t, m.SetLastSyncTimestamp(12345))
	assert.Equal(t, int64(12345), m.LastSyncTimestamp())
}

func TestBoolDefaults(t *testing.T) {
	m := NewManager(securekv.NewMemoryStore())
	assert.False(t, m.WifiOnly())
	assert.True(t, m.AutoSync())

	require.NoError(t, m.SetWifiOnly(true))
	require.NoError(t, m.SetAutoSync(false))
	assert.True(t, m.WifiOnly())
	assert.False(t, m.AutoSync())
}
