// Package service 实现业务逻辑层
package service

import (
	"context"
	"errors"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateNotifier 推送接口，由 hub 实现
// 服务层只关心"通知哪些用户哪条笔记变了"
type UpdateNotifier interface {
	NotifyNoteUpdate(userIDs []string, updateType dto.UpdateType, syncID string)
}

// NopNotifier 空实现，测试和后台任务使用
type NopNotifier struct{}

func (NopNotifier) NotifyNoteUpdate([]string, dto.UpdateType, string) {}

// NoteService 定义笔记业务服务接口
type NoteService interface {
	// Get 获取单条笔记，要求 owner 或被共享
	Get(ctx context.Context, userID, syncID string) (*dto.NoteDto, error)

	// Upsert 创建或覆盖单条笔记，写入要求 owner 或 READ_WRITE
	Upsert(ctx context.Context, userID, syncID string, params *dto.NoteUpsertRequest) (*dto.NoteDto, error)

	// Delete 删除笔记，仅 owner 可删
	Delete(ctx context.Context, userID, syncID string) error

	// List 获取用户可见且在 since 之后修改的笔记
	List(ctx context.Context, userID string, since int64, limit, offset int) ([]dto.NoteDto, int, error)
}

// noteService 实现 NoteService 接口
type noteService struct {
	noteRepo  domain.NoteRepository
	shareRepo domain.ShareRepository
	notifier  UpdateNotifier
	logger    *zap.Logger
}

var _ NoteService = (*noteService)(nil)

// NewNoteService 创建 NoteService 实例
func NewNoteService(noteRepo domain.NoteRepository, shareRepo domain.ShareRepository, notifier UpdateNotifier, logger *zap.Logger) NoteService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &noteService{
		noteRepo:  noteRepo,
		shareRepo: shareRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// noteToDto 领域模型转 DTO，accesses 仅 owner 可见时传入
func noteToDto(n *domain.Note, accesses []*domain.SharedAccess) dto.NoteDto {
	d := dto.NoteDto{
		SyncID:                n.SyncID,
		OwnerUserID:           n.OwnerUserID,
		Title:                 n.Title,
		Content:               n.Content,
		EncryptionIV:          n.EncryptionIV,
		Type:                  string(n.Type),
		IsArchived:            n.IsArchived,
		IsPinned:              n.IsPinned,
		IsShared:              n.IsShared,
		Labels:                n.Labels,
		CreatedTimestamp:      n.CreatedTimestamp,
		LastModifiedTimestamp: n.LastModifiedTimestamp,
		LastSyncedTimestamp:   n.LastSyncedTimestamp,
	}
	for _, a := range accesses {
		d.SharedAccesses = append(d.SharedAccesses, dto.SharedAccessDto{
			UserID:           a.UserID,
			AccessLevel:      string(a.AccessLevel),
			GrantedTimestamp: a.GrantedTimestamp,
		})
	}
	return d
}

// visibleUserIDs 返回需要收到该笔记推送的用户（owner + 被共享用户）
func visibleUserIDs(ctx context.Context, shareRepo domain.ShareRepository, note *domain.Note) []string {
	ids := []string{note.OwnerUserID}
	accesses, err := shareRepo.ListAccessByNote(ctx, note.SyncID)
	if err != nil {
		return ids
	}
	for _, a := range accesses {
		ids = append(ids, a.UserID)
	}
	return ids
}

// canRead owner 或任意共享授权
func canRead(ctx context.Context, shareRepo domain.ShareRepository, note *domain.Note, userID string) bool {
	if note.IsOwnedBy(userID) {
		return true
	}
	access, err := shareRepo.GetAccess(ctx, note.SyncID, userID)
	return err == nil && access != nil
}

// canWrite owner 或 READ_WRITE 共享授权
func canWrite(ctx context.Context, shareRepo domain.ShareRepository, note *domain.Note, userID string) bool {
	if note.IsOwnedBy(userID) {
		return true
	}
	access, err := shareRepo.GetAccess(ctx, note.SyncID, userID)
	return err == nil && access != nil && access.CanWrite()
}

// Get 获取单条笔记
func (s *noteService) Get(ctx context.Context, userID, syncID string) (*dto.NoteDto, error) {
	note, err := s.noteRepo.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorNoteNotFound
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	if !canRead(ctx, s.shareRepo, note, userID) {
		return nil, code.ErrorNoteAccessDenied
	}

	var accesses []*domain.SharedAccess
	if note.IsOwnedBy(userID) {
		accesses, _ = s.shareRepo.ListAccessByNote(ctx, syncID)
	}
	d := noteToDto(note, accesses)
	return &d, nil
}

// Upsert 创建或覆盖单条笔记
func (s *noteService) Upsert(ctx context.Context, userID, syncID string, params *dto.NoteUpsertRequest) (*dto.NoteDto, error) {
	now := util.NowMilli()

	existing, err := s.noteRepo.GetBySyncID(ctx, syncID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}

	var note *domain.Note
	if existing == nil {
		note = &domain.Note{
			SyncID:      syncID,
			OwnerUserID: userID,
		}
		applyUpsert(note, params, now)
		note, err = s.noteRepo.Create(ctx, note)
		if err != nil {
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}
	} else {
		if !canWrite(ctx, s.shareRepo, existing, userID) {
			return nil, code.ErrorNoteAccessDenied
		}
		note = existing
		applyUpsert(note, params, now)
		if err := s.noteRepo.Update(ctx, note); err != nil {
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}
	}

	s.notifier.NotifyNoteUpdate(visibleUserIDs(ctx, s.shareRepo, note), dto.NoteUpdated, note.SyncID)

	d := noteToDto(note, nil)
	return &d, nil
}

func applyUpsert(note *domain.Note, params *dto.NoteUpsertRequest, now int64) {
	note.Title = params.Title
	note.Content = params.Content
	note.EncryptionIV = params.EncryptionIV
	note.Type = domain.NoteType(params.Type)
	if note.Type != domain.NoteTypeList {
		note.Type = domain.NoteTypeText
	}
	note.IsArchived = params.IsArchived
	note.IsPinned = params.IsPinned
	note.Labels = params.Labels
	if params.CreatedTimestamp > 0 && note.CreatedTimestamp == 0 {
		note.CreatedTimestamp = params.CreatedTimestamp
	}
	note.LastModifiedTimestamp = params.LastModifiedTimestamp
	note.LastSyncedTimestamp = now
}

// Delete 删除笔记，级联清理授权与令牌由调用方不感知
func (s *noteService) Delete(ctx context.Context, userID, syncID string) error {
	note, err := s.noteRepo.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code.ErrorNoteNotFound
		}
		return code.ErrorDBQuery.WithDetails(err.Error())
	}
	if !note.IsOwnedBy(userID) {
		return code.ErrorNoteNotOwner
	}

	recipients := visibleUserIDs(ctx, s.shareRepo, note)

	if err := s.noteRepo.Delete(ctx, syncID); err != nil {
		return code.ErrorDBQuery.WithDetails(err.Error())
	}
	if err := s.shareRepo.RevokeAllByNote(ctx, syncID); err != nil {
		s.logger.Warn("revoke shares after delete failed",
			zap.String("syncId", syncID), zap.Error(err))
	}

	s.notifier.NotifyNoteUpdate(recipients, dto.NoteDeleted, syncID)
	return nil
}

// List 按页获取用户可见且在 since 之后修改的笔记
func (s *noteService) List(ctx context.Context, userID string, since int64, limit, offset int) ([]dto.NoteDto, int, error) {
	notes, total, err := s.noteRepo.ListChangedSincePaged(ctx, userID, since, limit, offset)
	if err != nil {
		return nil, 0, code.ErrorDBQuery.WithDetails(err.Error())
	}
	out := make([]dto.NoteDto, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteToDto(n, nil))
	}
	return out, int(total), nil
}
