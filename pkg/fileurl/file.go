// Package fileurl 提供配置文件发现需要的路径工具
package fileurl

import (
	"os"
	"path/filepath"
)

// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	if _, err := os.Stat(dst); err != nil {
		return os.IsExist(err)
	}
	return true
}

// IsDir 判断所给路径是否为目录
func IsDir(path string) bool {
	s, err := os.Stat(path)
	if err != nil {
		return false
	}
	return s.IsDir()
}

// CreatePath 创建目标文件所在的目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}
