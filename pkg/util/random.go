package util

import (
	"crypto/rand"
	"math/big"
)

const randomCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GetRandomString 生成指定长度的随机字符串,用于签发默认密钥
func GetRandomString(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(randomCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 不可用时退化为固定字符,调用方生成的密钥仍会触发默认密钥告警
			b[i] = randomCharset[0]
			continue
		}
		b[i] = randomCharset[n.Int64()]
	}
	return string(b)
}
