// Package model 定义数据模型
package model

// User 用户表
// UserID 是对外公开的用户标识（设备生成），UID 仅作数据库主键
type User struct {
	UID         int64  `gorm:"column:uid;primaryKey;autoIncrement" json:"uid"`
	UserID      string `gorm:"column:user_id;uniqueIndex;size:64;not null" json:"userId"`
	Username    string `gorm:"column:username;index;size:64" json:"username"`
	DisplayName string `gorm:"column:display_name;size:128" json:"displayName"`
	PublicKey   string `gorm:"column:public_key;type:text" json:"publicKey"`
	AuthKeyHash string `gorm:"column:auth_key_hash;size:128" json:"-"`
	CreatedAt   int64  `gorm:"column:created_at;autoCreateTime:milli" json:"createdAt"`
	UpdatedAt   int64  `gorm:"column:updated_at;autoUpdateTime:milli" json:"updatedAt"`
}

// TableName 返回表名
func (*User) TableName() string {
	return "user"
}
