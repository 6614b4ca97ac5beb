package dto

// UpdateType WebSocket push envelope type
// WebSocket 推送消息类型
type UpdateType = string

const (
	// NoteUpdated a note was created or modified
	// NoteUpdated 笔记被创建或修改
	NoteUpdated UpdateType = "NOTE_UPDATED"
	// NoteDeleted a note was deleted
	// NoteDeleted 笔记被删除
	NoteDeleted UpdateType = "NOTE_DELETED"
	// NoteShared a note was shared with this user
	// NoteShared 笔记被分享给当前用户
	NoteShared UpdateType = "NOTE_SHARED"
)

// UpdateMessage Push envelope sent to connected clients
// 推送给在线客户端的消息信封
type UpdateMessage struct {
	Type   UpdateType `json:"type"`
	SyncID string     `json:"syncId"`
}

// Ping/Pong plain text heartbeat frames
// 纯文本心跳帧
const (
	PingMessage = "ping"
	PongMessage = "pong"
)
