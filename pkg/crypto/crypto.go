// Package crypto 提供笔记内容的端到端加密原语
// Package crypto implements the note content encryption primitives:
// PBKDF2 key derivation, AES-CBC payload encryption and RSA key wrapping.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations PBKDF2 迭代次数
	KeyIterations = 10000
	// KeyLength 派生密钥长度（字节）
	KeyLength = 32
	// SaltLength 盐长度（字节）
	SaltLength = 16
	// RSAKeyBits RSA 密钥长度
	RSAKeyBits = 2048
)

var (
	ErrInvalidKeySize    = errors.New("crypto: key must be 32 bytes")
	ErrInvalidCiphertext = errors.New("crypto: ciphertext is malformed")
	ErrInvalidPadding    = errors.New("crypto: invalid padding, wrong key or corrupted data")
)

// EncryptedData 加密结果，IV 与密文分开保存
type EncryptedData struct {
	IV   []byte
	Data []byte
}

// Encode 序列化为 "base64(iv):base64(data)" 传输格式
func (e EncryptedData) Encode() string {
	return base64.StdEncoding.EncodeToString(e.IV) + ":" + base64.StdEncoding.EncodeToString(e.Data)
}

// DecodeEncrypted 从传输格式还原 EncryptedData
func DecodeEncrypted(s string) (EncryptedData, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return EncryptedData{}, ErrInvalidCiphertext
	}
	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return EncryptedData{}, errors.Wrap(ErrInvalidCiphertext, err.Error())
	}
	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return EncryptedData{}, errors.Wrap(ErrInvalidCiphertext, err.Error())
	}
	return EncryptedData{IV: iv, Data: data}, nil
}

// DeriveKey 使用 PBKDF2-HMAC-SHA256 从密码派生对称密钥
// DeriveKey derives a symmetric key from the password using
// PBKDF2-HMAC-SHA256 with 10000 iterations.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, KeyIterations, KeyLength, sha256.New)
}

// GenerateSalt 生成随机盐
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "generate salt")
	}
	return salt, nil
}

// Encrypt 使用 AES-256-CBC 和 PKCS7 填充加密明文，每次使用新的随机 IV
// Encrypt encrypts the plaintext with AES-256-CBC and PKCS7 padding.
// A fresh random IV is generated for every call.
func Encrypt(plaintext, key []byte) (EncryptedData, error) {
	if len(key) != KeyLength {
		return EncryptedData{}, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedData{}, errors.Wrap(err, "new cipher")
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedData{}, errors.Wrap(err, "generate iv")
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return EncryptedData{IV: iv, Data: ciphertext}, nil
}

// Decrypt 解密 AES-256-CBC 密文并去除 PKCS7 填充
// 填充校验失败说明密钥错误或数据损坏，绝不返回部分明文
// Decrypt decrypts AES-256-CBC ciphertext and strips the PKCS7 padding.
// A padding failure means a wrong key or corrupted data; no partial
// plaintext is ever returned.
func Decrypt(enc EncryptedData, key []byte) ([]byte, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeySize
	}
	if len(enc.IV) != aes.BlockSize {
		return nil, ErrInvalidCiphertext
	}
	if len(enc.Data) == 0 || len(enc.Data)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "new cipher")
	}

	plaintext := make([]byte, len(enc.Data))
	cipher.NewCBCDecrypter(block, enc.IV).CryptBlocks(plaintext, enc.Data)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// pkcs7Pad 填充到块大小的整数倍
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

// pkcs7Unpad 去除填充并校验填充字节
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-padding], nil
}

// GenerateKeyPair 生成 RSA-2048 密钥对，用于跨设备密钥交换
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, errors.Wrap(err, "generate rsa key")
	}
	return key, nil
}

// EncryptKeyForRecipient 使用接收方公钥加密对称密钥（RSA PKCS1v15）
func EncryptKeyForRecipient(symmetricKey []byte, pub *rsa.PublicKey) ([]byte, error) {
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, symmetricKey)
	if err != nil {
		return nil, errors.Wrap(err, "rsa encrypt")
	}
	return out, nil
}

// DecryptKeyFromSender 使用本地私钥解密对称密钥
func DecryptKeyFromSender(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	out, err := rsa.DecryptPKCS1v15(rand.Reader, priv, wrapped)
	if err != nil {
		return nil, errors.Wrap(err, "rsa decrypt")
	}
	return out, nil
}

// MarshalPublicKey 将公钥序列化为 PEM 字符串
func MarshalPublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", errors.Wrap(err, "marshal public key")
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParsePublicKey 从 PEM 字符串解析公钥
func ParsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("crypto: no pem block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse public key")
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("crypto: not an rsa public key")
	}
	return rsaPub, nil
}
