// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

// SharedAccessDto 授权信息传输对象
type SharedAccessDto struct {
	UserID           string `json:"userId" form:"userId"`
	AccessLevel      string `json:"accessLevel" form:"accessLevel"`
	GrantedTimestamp int64  `json:"grantedTimestamp" form:"grantedTimestamp"`
}

// NoteDto Note data transfer object, content is ciphertext base64
// NoteDto 笔记数据传输对象，content 为密文 base64
type NoteDto struct {
	SyncID                string            `json:"syncId" form:"syncId"`
	OwnerUserID           string            `json:"ownerUserId" form:"ownerUserId"`
	Title                 string            `json:"title" form:"title"`
	Content               string            `json:"content" form:"content"`
	EncryptionIV          string            `json:"encryptionIv" form:"encryptionIv"`
	Type                  string            `json:"type" form:"type"`
	IsArchived            bool              `json:"isArchived" form:"isArchived"`
	IsPinned              bool              `json:"isPinned" form:"isPinned"`
	IsShared              bool              `json:"isShared" form:"isShared"`
	Labels                []string          `json:"labels" form:"labels"`
	CreatedTimestamp      int64             `json:"createdTimestamp" form:"createdTimestamp"`
	LastModifiedTimestamp int64             `json:"lastModifiedTimestamp" form:"lastModifiedTimestamp"`
	LastSyncedTimestamp   int64             `json:"lastSyncedTimestamp" form:"lastSyncedTimestamp"`
	SharedAccesses        []SharedAccessDto `json:"sharedAccesses,omitempty" form:"sharedAccesses"`
}

// NoteUpsertRequest 单笔记上传请求参数
type NoteUpsertRequest struct {
	Title                 string   `json:"title" form:"title"`
	Content               string   `json:"content" form:"content" binding:"required"`
	EncryptionIV          string   `json:"encryptionIv" form:"encryptionIv" binding:"required"`
	Type                  string   `json:"type" form:"type"`
	IsArchived            bool     `json:"isArchived" form:"isArchived"`
	IsPinned              bool     `json:"isPinned" form:"isPinned"`
	Labels                []string `json:"labels" form:"labels"`
	CreatedTimestamp      int64    `json:"createdTimestamp" form:"createdTimestamp"`
	LastModifiedTimestamp int64    `json:"lastModifiedTimestamp" form:"lastModifiedTimestamp" binding:"required"`
}

// NoteListRequest 笔记列表请求参数
type NoteListRequest struct {
	Since int64 `json:"since" form:"since"`
}
