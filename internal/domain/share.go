// Package domain 定义领域模型和接口
package domain

// SharedAccess 共享访问授权
type SharedAccess struct {
	ID               int64
	NoteID           string
	UserID           string
	AccessLevel      AccessLevel
	GrantedTimestamp int64
	UsedToken        string
}

// CanWrite 判断授权是否允许写入
func (a *SharedAccess) CanWrite() bool {
	return a.AccessLevel == AccessReadWrite
}

// SharingToken 一次性分享令牌
type SharingToken struct {
	Token               string
	NoteID              string
	AccessLevel         AccessLevel
	CreatedTimestamp    int64
	ExpirationTimestamp int64
	IsUsed              bool
	UsedByUserID        string
}

// IsValid 判断令牌在给定时间是否可用
// 未使用且（永不过期或未过期）
func (t *SharingToken) IsValid(nowMilli int64) bool {
	return !t.IsUsed && (t.ExpirationTimestamp == 0 || t.ExpirationTimestamp > nowMilli)
}
