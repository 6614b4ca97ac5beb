package model

import (
	"gorm.io/gorm"
)

// AutoMigrate 迁移全部数据表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Note{},
		&SharedAccess{},
		&SharingToken{},
	)
}
