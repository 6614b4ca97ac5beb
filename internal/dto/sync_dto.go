package dto

// SyncRequest Batch synchronization request sent by the client
// SyncRequest 客户端发送的批量同步请求
type SyncRequest struct {
	ChangedNotes      []NoteDto `json:"changedNotes" form:"changedNotes"`
	DeletedNoteIDs    []string  `json:"deletedNoteIds" form:"deletedNoteIds"`
	LastSyncTimestamp int64     `json:"lastSyncTimestamp" form:"lastSyncTimestamp"`
}

// NoteConflictDto 服务端返回的冲突对，两个版本都不会被覆盖
type NoteConflictDto struct {
	SyncID     string  `json:"syncId"`
	LocalNote  NoteDto `json:"localNote"`
	RemoteNote NoteDto `json:"remoteNote"`
}

// SyncResponse Batch synchronization response
// SyncResponse 批量同步响应
type SyncResponse struct {
	Success          bool              `json:"success"`
	Message          string            `json:"message,omitempty"`
	UpdatedNotes     []NoteDto         `json:"updatedNotes"`
	DeletedNoteIDs   []string          `json:"deletedNoteIds"`
	Conflicts        []NoteConflictDto `json:"conflicts"`
	NewSyncTimestamp int64             `json:"newSyncTimestamp"`
}
