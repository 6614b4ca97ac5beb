// Package dao 实现数据访问层
package dao

import (
	"context"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/model"
)

// userRepository 实现 domain.UserRepository 接口
type userRepository struct {
	dao *Dao
}

var _ domain.UserRepository = (*userRepository)(nil)

// NewUserRepository 创建 UserRepository 实例
func NewUserRepository(dao *Dao) domain.UserRepository {
	return &userRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *userRepository) toDomain(m *model.User) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		UID:         m.UID,
		UserID:      m.UserID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
		PublicKey:   m.PublicKey,
		AuthKeyHash: m.AuthKeyHash,
		CreatedAt:   time.UnixMilli(m.CreatedAt),
		UpdatedAt:   time.UnixMilli(m.UpdatedAt),
	}
}

// toModel 将领域模型转换为数据库模型
func (r *userRepository) toModel(u *domain.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		UID:         u.UID,
		UserID:      u.UserID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		PublicKey:   u.PublicKey,
		AuthKeyHash: u.AuthKeyHash,
	}
}

// GetByUID 根据数据库主键获取用户
func (r *userRepository) GetByUID(ctx context.Context, uid int64) (*domain.User, error) {
	var m model.User
	err := r.dao.DB().WithContext(ctx).Where("uid = ?", uid).First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// GetByUserID 根据公开用户ID获取用户
func (r *userRepository) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	var m model.User
	err := r.dao.DB().WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := r.toModel(user)
	if err := r.dao.DB().WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// Update 更新用户资料
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	m := r.toModel(user)
	return r.dao.DB().WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", m.UID).
		Updates(map[string]interface{}{
			"username":     m.Username,
			"display_name": m.DisplayName,
			"public_key":   m.PublicKey,
		}).Error
}
