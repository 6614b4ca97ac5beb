package model

// Note 笔记表
// Content 为客户端加密后的 base64 密文，服务端从不接触明文
type Note struct {
	SyncID                string `gorm:"column:sync_id;primaryKey;size:64" json:"syncId"`
	OwnerUserID           string `gorm:"column:owner_user_id;index;size:64;not null" json:"ownerUserId"`
	Title                 string `gorm:"column:title;size:512" json:"title"`
	Content               string `gorm:"column:content;type:text" json:"content"`
	EncryptionIV          string `gorm:"column:encryption_iv;size:64" json:"encryptionIv"`
	Type                  string `gorm:"column:type;size:16;default:TEXT" json:"type"`
	IsArchived            bool   `gorm:"column:is_archived" json:"isArchived"`
	IsPinned              bool   `gorm:"column:is_pinned" json:"isPinned"`
	IsShared              bool   `gorm:"column:is_shared" json:"isShared"`
	Labels                string `gorm:"column:labels;type:text" json:"labels"`
	CreatedTimestamp      int64  `gorm:"column:created_timestamp" json:"createdTimestamp"`
	LastModifiedTimestamp int64  `gorm:"column:last_modified_timestamp;index" json:"lastModifiedTimestamp"`
	LastSyncedTimestamp   int64  `gorm:"column:last_synced_timestamp" json:"lastSyncedTimestamp"`
}

// TableName 返回表名
func (*Note) TableName() string {
	return "note"
}
