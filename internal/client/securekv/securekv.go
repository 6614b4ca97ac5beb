// Package securekv 提供客户端机密的键值存储
// Values are encrypted at rest with a key derived from the machine id, so a
// copied store file is useless on another device.
package securekv

import "github.com/pkg/errors"

// ErrSecretNotFound 请求的机密不存在
var ErrSecretNotFound = errors.New("securekv: secret not found")

// SecureStore 安全键值存储契约
type SecureStore interface {
	// GetOrCreateKey 按别名返回 32 字节对称密钥，不存在时生成并持久化
	GetOrCreateKey(alias string) ([]byte, error)
	// GetSecret 读取机密，不存在返回 ErrSecretNotFound
	GetSecret(key string) (string, error)
	// PutSecret 写入机密
	PutSecret(key, value string) error
	// Delete 删除机密，不存在时不报错
	Delete(key string) error
}
