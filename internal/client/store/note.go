// Package store 定义本地笔记存储契约
// Package store defines the local note store contract the sync core
// consumes. The actual storage backend lives outside the core.
package store

import "github.com/sleepyyui/notallyxo-sync-service/internal/dto"

// SyncStatus 本地笔记同步状态
type SyncStatus string

const (
	StatusNotSynced     SyncStatus = "NOT_SYNCED"
	StatusPendingUpload SyncStatus = "PENDING_UPLOAD"
	StatusPendingDelete SyncStatus = "PENDING_DELETE"
	StatusSyncing       SyncStatus = "SYNCING"
	StatusSynced        SyncStatus = "SYNCED"
	StatusConflict      SyncStatus = "CONFLICT"
	StatusFailed        SyncStatus = "FAILED"
)

// Item 清单笔记的一项
type Item struct {
	Body    string `json:"body"`
	Checked bool   `json:"checked"`
	Order   int    `json:"order"`
}

// Span 正文富文本样式区间
type Span struct {
	Start         int    `json:"start"`
	End           int    `json:"end"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Monospace     bool   `json:"monospace,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Link          string `json:"link,omitempty"`
}

// Note 本地笔记，明文内容只存在于客户端
// LocalID 由本地存储分配，SyncID 一经分配不再改变
type Note struct {
	LocalID             int64
	SyncID              string
	SyncStatus          SyncStatus
	Title               string
	Body                string
	Items               []Item
	Spans               []Span
	Type                string
	Labels              []string
	Pinned              bool
	Archived            bool
	IsShared            bool
	OwnerUserID         string
	CreatedTimestamp    int64
	ModifiedTimestamp   int64
	LastSyncedTimestamp int64
	SharedAccesses      []dto.SharedAccessDto
}

// Clone 返回深拷贝，切片不与原笔记共享
func (n *Note) Clone() *Note {
	c := *n
	c.Items = append([]Item(nil), n.Items...)
	c.Spans = append([]Span(nil), n.Spans...)
	c.Labels = append([]string(nil), n.Labels...)
	c.SharedAccesses = append([]dto.SharedAccessDto(nil), n.SharedAccesses...)
	return &c
}

// NoteStore 本地笔记存储契约，由外部协作方实现
// NoteStore is implemented by the host application's storage layer.
type NoteStore interface {
	// NotesNeedingUpload 返回状态为 PENDING_UPLOAD 的笔记
	NotesNeedingUpload() ([]*Note, error)
	// NotesNeedingDeletion 返回等待删除同步的笔记
	NotesNeedingDeletion() ([]*Note, error)
	// FindBySyncID 按同步标识查找，未找到返回 (nil, nil)
	FindBySyncID(syncID string) (*Note, error)
	// Upsert 按 SyncID 插入或更新，返回存储后的笔记
	Upsert(note *Note) (*Note, error)
	// Delete 按本地标识删除
	Delete(localID int64) error
	// UpdateSyncStatus 更新同步状态和最近同步时间
	UpdateSyncStatus(localID int64, status SyncStatus, syncedAt int64) error
}
