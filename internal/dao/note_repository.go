// Package dao 实现数据访问层
package dao

import (
	"context"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/model"

	"github.com/bytedance/sonic"
)

// noteRepository 实现 domain.NoteRepository 接口
type noteRepository struct {
	dao *Dao
}

var _ domain.NoteRepository = (*noteRepository)(nil)

// NewNoteRepository 创建 NoteRepository 实例
func NewNoteRepository(dao *Dao) domain.NoteRepository {
	return &noteRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *noteRepository) toDomain(m *model.Note) *domain.Note {
	if m == nil {
		return nil
	}
	var labels []string
	if m.Labels != "" {
		_ = sonic.Unmarshal([]byte(m.Labels), &labels)
	}
	return &domain.Note{
		SyncID:                m.SyncID,
		OwnerUserID:           m.OwnerUserID,
		Title:                 m.Title,
		Content:               m.Content,
		EncryptionIV:          m.EncryptionIV,
		Type:                  domain.NoteType(m.Type),
		IsArchived:            m.IsArchived,
		IsPinned:              m.IsPinned,
		IsShared:              m.IsShared,
		Labels:                labels,
		CreatedTimestamp:      m.CreatedTimestamp,
		LastModifiedTimestamp: m.LastModifiedTimestamp,
		LastSyncedTimestamp:   m.LastSyncedTimestamp,
	}
}

// toModel 将领域模型转换为数据库模型
func (r *noteRepository) toModel(n *domain.Note) *model.Note {
	if n == nil {
		return nil
	}
	labels := ""
	if len(n.Labels) > 0 {
		if b, err := sonic.Marshal(n.Labels); err == nil {
			labels = string(b)
		}
	}
	return &model.Note{
		SyncID:                n.SyncID,
		OwnerUserID:           n.OwnerUserID,
		Title:                 n.Title,
		Content:               n.Content,
		EncryptionIV:          n.EncryptionIV,
		Type:                  string(n.Type),
		IsArchived:            n.IsArchived,
		IsPinned:              n.IsPinned,
		IsShared:              n.IsShared,
		Labels:                labels,
		CreatedTimestamp:      n.CreatedTimestamp,
		LastModifiedTimestamp: n.LastModifiedTimestamp,
		LastSyncedTimestamp:   n.LastSyncedTimestamp,
	}
}

// GetBySyncID 根据同步ID获取笔记
func (r *noteRepository) GetBySyncID(ctx context.Context, syncID string) (*domain.Note, error) {
	var m model.Note
	err := r.dao.DB().WithContext(ctx).Where("sync_id = ?", syncID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Create 创建笔记
func (r *noteRepository) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	m := r.toModel(note)
	if err := r.dao.DB().WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// Update 更新笔记
// Select 全量列，布尔字段归零时也会被写入
func (r *noteRepository) Update(ctx context.Context, note *domain.Note) error {
	m := r.toModel(note)
	return r.dao.DB().WithContext(ctx).
		Model(&model.Note{}).
		Where("sync_id = ?", m.SyncID).
		Select("*").Omit("sync_id").
		Updates(m).Error
}

// Delete 物理删除笔记
func (r *noteRepository) Delete(ctx context.Context, syncID string) error {
	return r.dao.DB().WithContext(ctx).Where("sync_id = ?", syncID).Delete(&model.Note{}).Error
}

// ListByOwner 获取用户拥有的全部笔记
func (r *noteRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Note, error) {
	var ms []model.Note
	err := r.dao.DB().WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("last_modified_timestamp DESC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(ms), nil
}

// ListChangedSince 获取用户可见且在 since 之后修改的笔记
// 可见 = 自己拥有的 + 被授权共享的
func (r *noteRepository) ListChangedSince(ctx context.Context, userID string, since int64) ([]*domain.Note, error) {
	var ms []model.Note
	err := r.dao.DB().WithContext(ctx).
		Where("last_modified_timestamp > ?", since).
		Where(
			r.dao.DB().Where("owner_user_id = ?", userID).
				Or("sync_id IN (?)", r.sharedNoteIDs(userID)),
		).
		Order("last_modified_timestamp ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(ms), nil
}

// ListChangedSincePaged 按页返回变更笔记,total 为分页前的总条数
func (r *noteRepository) ListChangedSincePaged(ctx context.Context, userID string, since int64, limit, offset int) ([]*domain.Note, int64, error) {
	base := r.dao.DB().WithContext(ctx).
		Model(&model.Note{}).
		Where("last_modified_timestamp > ?", since).
		Where(
			r.dao.DB().Where("owner_user_id = ?", userID).
				Or("sync_id IN (?)", r.sharedNoteIDs(userID)),
		)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []model.Note
	err := base.
		Order("last_modified_timestamp ASC").
		Limit(limit).Offset(offset).
		Find(&ms).Error
	if err != nil {
		return nil, 0, err
	}
	return r.toDomainList(ms), total, nil
}

// ListVisible 获取用户可见的全部笔记
func (r *noteRepository) ListVisible(ctx context.Context, userID string) ([]*domain.Note, error) {
	return r.ListChangedSince(ctx, userID, -1)
}

// sharedNoteIDs 子查询：授予该用户的笔记ID
func (r *noteRepository) sharedNoteIDs(userID string) interface{} {
	return r.dao.DB().Model(&model.SharedAccess{}).
		Select("note_id").
		Where("user_id = ?", userID)
}

func (r *noteRepository) toDomainList(ms []model.Note) []*domain.Note {
	notes := make([]*domain.Note, 0, len(ms))
	for i := range ms {
		notes = append(notes, r.toDomain(&ms[i]))
	}
	return notes
}
