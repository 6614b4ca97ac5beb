// Package domain 定义领域模型和接口
package domain

import "context"

// NoteRepository 笔记仓储接口
type NoteRepository interface {
	// GetBySyncID 根据同步ID获取笔记
	GetBySyncID(ctx context.Context, syncID string) (*Note, error)

	// Create 创建笔记
	Create(ctx context.Context, note *Note) (*Note, error)

	// Update 更新笔记
	Update(ctx context.Context, note *Note) error

	// Delete 物理删除笔记
	Delete(ctx context.Context, syncID string) error

	// ListByOwner 获取用户拥有的全部笔记
	ListByOwner(ctx context.Context, ownerUserID string) ([]*Note, error)

	// ListChangedSince 获取用户可见（拥有或被共享）且在某时间之后修改的笔记
	ListChangedSince(ctx context.Context, userID string, since int64) ([]*Note, error)
	// ListChangedSincePaged 同 ListChangedSince,但按页返回并附带总数
	ListChangedSincePaged(ctx context.Context, userID string, since int64, limit, offset int) ([]*Note, int64, error)

	// ListVisible 获取用户可见的全部笔记
	ListVisible(ctx context.Context, userID string) ([]*Note, error)
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// GetByUID 根据数据库主键获取用户
	GetByUID(ctx context.Context, uid int64) (*User, error)

	// GetByUserID 根据公开用户ID获取用户
	GetByUserID(ctx context.Context, userID string) (*User, error)

	// Create 创建用户
	Create(ctx context.Context, user *User) (*User, error)

	// Update 更新用户资料
	Update(ctx context.Context, user *User) error
}

// ShareRepository 共享仓储接口
type ShareRepository interface {
	// GetAccess 获取某笔记对某用户的授权
	GetAccess(ctx context.Context, noteID, userID string) (*SharedAccess, error)

	// ListAccessByNote 获取某笔记的全部授权
	ListAccessByNote(ctx context.Context, noteID string) ([]*SharedAccess, error)

	// ListAccessByUser 获取授予某用户的全部授权
	ListAccessByUser(ctx context.Context, userID string) ([]*SharedAccess, error)

	// GrantAccess 创建授权
	GrantAccess(ctx context.Context, access *SharedAccess) error

	// RevokeAccess 撤销授权
	RevokeAccess(ctx context.Context, noteID, userID string) error

	// RevokeAllByNote 撤销某笔记的全部授权
	RevokeAllByNote(ctx context.Context, noteID string) error

	// CreateToken 创建分享令牌
	CreateToken(ctx context.Context, token *SharingToken) error

	// GetToken 获取分享令牌
	GetToken(ctx context.Context, token string) (*SharingToken, error)

	// RedeemToken 原子地将令牌标记为已使用并授权
	// 令牌已被使用时返回 false，不产生授权
	RedeemToken(ctx context.Context, token, userID string, grantedAt int64) (bool, error)

	// DeleteExpiredTokens 删除过期或已使用超过保留期的令牌
	DeleteExpiredTokens(ctx context.Context, expiredBefore, usedBefore int64) (int64, error)
}
