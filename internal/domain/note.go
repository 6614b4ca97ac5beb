// Package domain 定义领域模型和接口
package domain

// NoteType 笔记类型
type NoteType string

const (
	NoteTypeText NoteType = "TEXT"
	NoteTypeList NoteType = "LIST"
)

// AccessLevel 共享访问级别
type AccessLevel string

const (
	AccessReadOnly  AccessLevel = "READ_ONLY"
	AccessReadWrite AccessLevel = "READ_WRITE"
)

// Note 笔记领域模型，内容为密文
type Note struct {
	SyncID                string
	OwnerUserID           string
	Title                 string
	Content               string
	EncryptionIV          string
	Type                  NoteType
	IsArchived            bool
	IsPinned              bool
	IsShared              bool
	Labels                []string
	CreatedTimestamp      int64
	LastModifiedTimestamp int64
	LastSyncedTimestamp   int64
}

// IsOwnedBy 判断笔记是否属于指定用户
func (n *Note) IsOwnedBy(userID string) bool {
	return n.OwnerUserID == userID
}

// ContentEquals 判断密文内容是否一致
// 服务端只见密文，内容比较即密文比较
func (n *Note) ContentEquals(content string) bool {
	return n.Content == content
}
