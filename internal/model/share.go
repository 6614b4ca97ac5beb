package model

// SharedAccess 共享访问授权表
// 同一笔记对同一用户只能有一条授权记录
type SharedAccess struct {
	ID               int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	NoteID           string `gorm:"column:note_id;size:64;not null;uniqueIndex:idx_note_user" json:"noteId"`
	UserID           string `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_note_user" json:"userId"`
	AccessLevel      string `gorm:"column:access_level;size:16;default:READ_ONLY" json:"accessLevel"`
	GrantedTimestamp int64  `gorm:"column:granted_timestamp" json:"grantedTimestamp"`
	UsedToken        string `gorm:"column:used_token;size:64" json:"usedToken"`
}

// TableName 返回表名
func (*SharedAccess) TableName() string {
	return "shared_access"
}

// SharingToken 一次性分享令牌表
type SharingToken struct {
	Token               string `gorm:"column:token;primaryKey;size:64" json:"token"`
	NoteID              string `gorm:"column:note_id;index;size:64;not null" json:"noteId"`
	AccessLevel         string `gorm:"column:access_level;size:16;default:READ_ONLY" json:"accessLevel"`
	CreatedTimestamp    int64  `gorm:"column:created_timestamp" json:"createdTimestamp"`
	ExpirationTimestamp int64  `gorm:"column:expiration_timestamp" json:"expirationTimestamp"`
	IsUsed              bool   `gorm:"column:is_used" json:"isUsed"`
	UsedByUserID        string `gorm:"column:used_by_user_id;size:64" json:"usedByUserId"`
}

// TableName 返回表名
func (*SharingToken) TableName() string {
	return "sharing_token"
}
