// Package settings 管理客户端同步配置
// All values live in the secure key-value store so credentials and the
// encryption salt never hit a plain config file.
package settings

import (
	"encoding/base64"
	"strconv"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/securekv"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"

	"github.com/pkg/errors"
)

const (
	keyServerURL    = "server_url"
	keyAuthToken    = "auth_token"
	keyUserID       = "user_id"
	keySalt         = "encryption_salt"
	keyPassphrase   = "encryption_passphrase"
	keyDeviceUserID = "device_user_id"
	keyWifiOnly     = "wifi_only"
	keyAutoSync     = "auto_sync"
	keyLastSync     = "last_sync_timestamp"
)

// Manager 同步设置管理器
type Manager struct {
	kv securekv.SecureStore
}

func NewManager(kv securekv.SecureStore) *Manager {
	return &Manager{kv: kv}
}

// Configured 服务器地址、凭证和加密盐齐备时才可同步
func (m *Manager) Configured() bool {
	url, _ := m.ServerURL()
	token, _ := m.AuthToken()
	salt, _ := m.EncryptionSalt()
	return url != "" && token != "" && len(salt) > 0
}

func (m *Manager) ServerURL() (string, error) {
	return m.getString(keyServerURL)
}

func (m *Manager) SetServerURL(url string) error {
	return m.kv.PutSecret(keyServerURL, url)
}

func (m *Manager) AuthToken() (string, error) {
	return m.getString(keyAuthToken)
}

func (m *Manager) SetAuthToken(token string) error {
	return m.kv.PutSecret(keyAuthToken, token)
}

func (m *Manager) UserID() (string, error) {
	return m.getString(keyUserID)
}

func (m *Manager) SetUserID(id string) error {
	return m.kv.PutSecret(keyUserID, id)
}

// DeviceUserID 返回设备用户标识，首次调用时生成并持久化
func (m *Manager) DeviceUserID() (string, error) {
	id, err := m.kv.GetSecret(keyDeviceUserID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, securekv.ErrSecretNotFound) {
		return "", err
	}
	id = crypto.CreateDeviceUserID()
	if err := m.kv.PutSecret(keyDeviceUserID, id); err != nil {
		return "", err
	}
	return id, nil
}

// EncryptionSalt 返回加密盐字节，未配置时返回 nil
func (m *Manager) EncryptionSalt() ([]byte, error) {
	s, err := m.getString(keySalt)
	if err != nil || s == "" {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "settings: malformed encryption salt")
	}
	return salt, nil
}

func (m *Manager) SetEncryptionSalt(salt []byte) error {
	return m.kv.PutSecret(keySalt, base64.StdEncoding.EncodeToString(salt))
}

// EnsureEncryptionSalt 返回加密盐，缺失时生成新盐
func (m *Manager) EnsureEncryptionSalt() ([]byte, error) {
	salt, err := m.EncryptionSalt()
	if err != nil {
		return nil, err
	}
	if len(salt) > 0 {
		return salt, nil
	}
	salt, err = crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := m.SetEncryptionSalt(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Passphrase 内容加密口令,与盐一起派生对称密钥
func (m *Manager) Passphrase() (string, error) {
	return m.getString(keyPassphrase)
}

func (m *Manager) SetPassphrase(p string) error {
	return m.kv.PutSecret(keyPassphrase, p)
}

func (m *Manager) WifiOnly() bool {
	return m.getBool(keyWifiOnly, false)
}

func (m *Manager) SetWifiOnly(v bool) error {
	return m.kv.PutSecret(keyWifiOnly, strconv.FormatBool(v))
}

func (m *Manager) AutoSync() bool {
	return m.getBool(keyAutoSync, true)
}

func (m *Manager) SetAutoSync(v bool) error {
	return m.kv.PutSecret(keyAutoSync, strconv.FormatBool(v))
}

// LastSyncTimestamp 最近一次完整同步的服务器基线
func (m *Manager) LastSyncTimestamp() int64 {
	s, err := m.getString(keyLastSync)
	if err != nil || s == "" {
		return 0
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func (m *Manager) SetLastSyncTimestamp(ts int64) error {
	return m.kv.PutSecret(keyLastSync, strconv.FormatInt(ts, 10))
}

func (m *Manager) getString(key string) (string, error) {
	v, err := m.kv.GetSecret(key)
	if errors.Is(err, securekv.ErrSecretNotFound) {
		return "", nil
	}
	return v, err
}

func (m *Manager) getBool(key string, def bool) bool {
	s, err := m.getString(key)
	if err != nil || s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
