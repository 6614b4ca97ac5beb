// Package dao 实现数据访问层
package dao

import (
	"context"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/model"

	"gorm.io/gorm"
)

// shareRepository 实现 domain.ShareRepository 接口
type shareRepository struct {
	dao *Dao
}

var _ domain.ShareRepository = (*shareRepository)(nil)

// NewShareRepository 创建 ShareRepository 实例
func NewShareRepository(dao *Dao) domain.ShareRepository {
	return &shareRepository{dao: dao}
}

func (r *shareRepository) accessToDomain(m *model.SharedAccess) *domain.SharedAccess {
	if m == nil {
		return nil
	}
	return &domain.SharedAccess{
		ID:               m.ID,
		NoteID:           m.NoteID,
		UserID:           m.UserID,
		AccessLevel:      domain.AccessLevel(m.AccessLevel),
		GrantedTimestamp: m.GrantedTimestamp,
		UsedToken:        m.UsedToken,
	}
}

func (r *shareRepository) tokenToDomain(m *model.SharingToken) *domain.SharingToken {
	if m == nil {
		return nil
	}
	return &domain.SharingToken{
		Token:               m.Token,
		NoteID:              m.NoteID,
		AccessLevel:         domain.AccessLevel(m.AccessLevel),
		CreatedTimestamp:    m.CreatedTimestamp,
		ExpirationTimestamp: m.ExpirationTimestamp,
		IsUsed:              m.IsUsed,
		UsedByUserID:        m.UsedByUserID,
	}
}

// GetAccess 获取某笔记对某用户的授权
func (r *shareRepository) GetAccess(ctx context.Context, noteID, userID string) (*domain.SharedAccess, error) {
	var m model.SharedAccess
	err := r.dao.DB().WithContext(ctx).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.accessToDomain(&m), nil
}

// ListAccessByNote 获取某笔记的全部授权
func (r *shareRepository) ListAccessByNote(ctx context.Context, noteID string) ([]*domain.SharedAccess, error) {
	var ms []model.SharedAccess
	err := r.dao.DB().WithContext(ctx).Where("note_id = ?", noteID).Find(&ms).Error
	if err != nil {
		return nil, err
	}
	list := make([]*domain.SharedAccess, 0, len(ms))
	for i := range ms {
		list = append(list, r.accessToDomain(&ms[i]))
	}
	return list, nil
}

// ListAccessByUser 获取授予某用户的全部授权
func (r *shareRepository) ListAccessByUser(ctx context.Context, userID string) ([]*domain.SharedAccess, error) {
	var ms []model.SharedAccess
	err := r.dao.DB().WithContext(ctx).Where("user_id = ?", userID).Find(&ms).Error
	if err != nil {
		return nil, err
	}
	list := make([]*domain.SharedAccess, 0, len(ms))
	for i := range ms {
		list = append(list, r.accessToDomain(&ms[i]))
	}
	return list, nil
}

// GrantAccess 创建授权
func (r *shareRepository) GrantAccess(ctx context.Context, access *domain.SharedAccess) error {
	m := &model.SharedAccess{
		NoteID:           access.NoteID,
		UserID:           access.UserID,
		AccessLevel:      string(access.AccessLevel),
		GrantedTimestamp: access.GrantedTimestamp,
		UsedToken:        access.UsedToken,
	}
	if err := r.dao.DB().WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	access.ID = m.ID
	return nil
}

// RevokeAccess 撤销授权
func (r *shareRepository) RevokeAccess(ctx context.Context, noteID, userID string) error {
	return r.dao.DB().WithContext(ctx).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		Delete(&model.SharedAccess{}).Error
}

// RevokeAllByNote 撤销某笔记的全部授权
func (r *shareRepository) RevokeAllByNote(ctx context.Context, noteID string) error {
	return r.dao.DB().WithContext(ctx).
		Where("note_id = ?", noteID).
		Delete(&model.SharedAccess{}).Error
}

// CreateToken 创建分享令牌
func (r *shareRepository) CreateToken(ctx context.Context, token *domain.SharingToken) error {
	m := &model.SharingToken{
		Token:               token.Token,
		NoteID:              token.NoteID,
		AccessLevel:         string(token.AccessLevel),
		CreatedTimestamp:    token.CreatedTimestamp,
		ExpirationTimestamp: token.ExpirationTimestamp,
		IsUsed:              token.IsUsed,
		UsedByUserID:        token.UsedByUserID,
	}
	return r.dao.DB().WithContext(ctx).Create(m).Error
}

// GetToken 获取分享令牌
func (r *shareRepository) GetToken(ctx context.Context, token string) (*domain.SharingToken, error) {
	var m model.SharingToken
	err := r.dao.DB().WithContext(ctx).Where("token = ?", token).First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.tokenToDomain(&m), nil
}

// RedeemToken 原子地将令牌标记为已使用并授权
// UPDATE 带 is_used = false 条件，并发兑换只有一个事务能改到行
func (r *shareRepository) RedeemToken(ctx context.Context, token, userID string, grantedAt int64) (bool, error) {
	redeemed := false
	err := r.dao.Transaction(func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Model(&model.SharingToken{}).
			Where("token = ? AND is_used = ?", token, false).
			Updates(map[string]interface{}{
				"is_used":         true,
				"used_by_user_id": userID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var m model.SharingToken
		if err := tx.WithContext(ctx).Where("token = ?", token).First(&m).Error; err != nil {
			return err
		}

		access := &model.SharedAccess{
			NoteID:           m.NoteID,
			UserID:           userID,
			AccessLevel:      m.AccessLevel,
			GrantedTimestamp: grantedAt,
			UsedToken:        token,
		}
		if err := tx.WithContext(ctx).Create(access).Error; err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	return redeemed, err
}

// DeleteExpiredTokens 删除过期或已使用超过保留期的令牌
func (r *shareRepository) DeleteExpiredTokens(ctx context.Context, expiredBefore, usedBefore int64) (int64, error) {
	res := r.dao.DB().WithContext(ctx).
		Where("(expiration_timestamp > 0 AND expiration_timestamp < ?)", expiredBefore).
		Or("(is_used = ? AND created_timestamp < ?)", true, usedBefore).
		Delete(&model.SharingToken{})
	return res.RowsAffected, res.Error
}
