// Package service 实现业务逻辑层
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SyncService 定义批量同步服务接口
type SyncService interface {
	// SyncNotes 执行一次批量同步：应用客户端变更、检测冲突、返回服务端变更
	SyncNotes(ctx context.Context, userID string, since int64, req *dto.SyncRequest) (*dto.SyncResponse, error)
}

// syncService 实现 SyncService 接口
type syncService struct {
	noteRepo  domain.NoteRepository
	shareRepo domain.ShareRepository
	notifier  UpdateNotifier
	logger    *zap.Logger
}

var _ SyncService = (*syncService)(nil)

// NewSyncService 创建 SyncService 实例
func NewSyncService(noteRepo domain.NoteRepository, shareRepo domain.ShareRepository, notifier UpdateNotifier, logger *zap.Logger) SyncService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &syncService{
		noteRepo:  noteRepo,
		shareRepo: shareRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// SyncNotes 批量同步
//
// 冲突判定：服务端副本在 since 之后被修改 且 密文内容与提交不一致。
// 冲突笔记不会被覆盖，两个版本打包返回由客户端决定。
// 授权失败的单条笔记收集进 message，批次继续。
func (s *syncService) SyncNotes(ctx context.Context, userID string, since int64, req *dto.SyncRequest) (*dto.SyncResponse, error) {
	now := util.NowMilli()

	resp := &dto.SyncResponse{
		Success:          true,
		UpdatedNotes:     []dto.NoteDto{},
		DeletedNoteIDs:   []string{},
		Conflicts:        []dto.NoteConflictDto{},
		NewSyncTimestamp: now,
	}

	var authErrors []string
	pushed := make(map[string]struct{})

	for i := range req.ChangedNotes {
		submitted := &req.ChangedNotes[i]
		if submitted.SyncID == "" {
			authErrors = append(authErrors, "note without syncId rejected")
			continue
		}

		existing, err := s.noteRepo.GetBySyncID(ctx, submitted.SyncID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}

		if existing == nil {
			note := dtoToNote(submitted)
			note.OwnerUserID = userID
			note.LastSyncedTimestamp = now
			if _, err := s.noteRepo.Create(ctx, note); err != nil {
				return nil, code.ErrorDBQuery.WithDetails(err.Error())
			}
			pushed[note.SyncID] = struct{}{}
			s.notifier.NotifyNoteUpdate(visibleUserIDs(ctx, s.shareRepo, note), dto.NoteUpdated, note.SyncID)
			continue
		}

		if !canWrite(ctx, s.shareRepo, existing, userID) {
			authErrors = append(authErrors,
				fmt.Sprintf("no write access to note %s", submitted.SyncID))
			continue
		}

		// 双方都改过且内容不同才是冲突；内容相同只推进时间戳
		if existing.LastModifiedTimestamp > since && !existing.ContentEquals(submitted.Content) {
			resp.Conflicts = append(resp.Conflicts, dto.NoteConflictDto{
				SyncID:     existing.SyncID,
				LocalNote:  *submitted,
				RemoteNote: noteToDto(existing, nil),
			})
			continue
		}

		applyDto(existing, submitted, now)
		if err := s.noteRepo.Update(ctx, existing); err != nil {
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}
		pushed[existing.SyncID] = struct{}{}
		s.notifier.NotifyNoteUpdate(visibleUserIDs(ctx, s.shareRepo, existing), dto.NoteUpdated, existing.SyncID)
	}

	for _, syncID := range req.DeletedNoteIDs {
		existing, err := s.noteRepo.GetBySyncID(ctx, syncID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 已经不存在，视为删除成功
				resp.DeletedNoteIDs = append(resp.DeletedNoteIDs, syncID)
				continue
			}
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}
		if !existing.IsOwnedBy(userID) {
			authErrors = append(authErrors,
				fmt.Sprintf("only the owner may delete note %s", syncID))
			continue
		}

		recipients := visibleUserIDs(ctx, s.shareRepo, existing)
		if err := s.noteRepo.Delete(ctx, syncID); err != nil {
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}
		if err := s.shareRepo.RevokeAllByNote(ctx, syncID); err != nil {
			s.logger.Warn("revoke shares after delete failed",
				zap.String("syncId", syncID), zap.Error(err))
		}
		resp.DeletedNoteIDs = append(resp.DeletedNoteIDs, syncID)
		s.notifier.NotifyNoteUpdate(recipients, dto.NoteDeleted, syncID)
	}

	// 服务端变更回传，刚被本次请求写入的不必回流
	changed, err := s.noteRepo.ListChangedSince(ctx, userID, since)
	if err != nil {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	for _, n := range changed {
		if _, ok := pushed[n.SyncID]; ok {
			continue
		}
		resp.UpdatedNotes = append(resp.UpdatedNotes, noteToDto(n, nil))
	}

	if len(resp.Conflicts) > 0 {
		resp.Success = false
		resp.Message = fmt.Sprintf("%d note(s) in conflict", len(resp.Conflicts))
	}
	if len(authErrors) > 0 {
		resp.Success = false
		if resp.Message != "" {
			resp.Message += "; "
		}
		resp.Message += strings.Join(authErrors, "; ")
	}

	s.logger.Info("sync completed",
		zap.String("userId", userID),
		zap.Int64("since", since),
		zap.Int("pushed", len(pushed)),
		zap.Int("returned", len(resp.UpdatedNotes)),
		zap.Int("conflicts", len(resp.Conflicts)))

	return resp, nil
}

// dtoToNote 提交的 DTO 转领域模型
func dtoToNote(d *dto.NoteDto) *domain.Note {
	t := domain.NoteType(d.Type)
	if t != domain.NoteTypeList {
		t = domain.NoteTypeText
	}
	return &domain.Note{
		SyncID:                d.SyncID,
		OwnerUserID:           d.OwnerUserID,
		Title:                 d.Title,
		Content:               d.Content,
		EncryptionIV:          d.EncryptionIV,
		Type:                  t,
		IsArchived:            d.IsArchived,
		IsPinned:              d.IsPinned,
		IsShared:              d.IsShared,
		Labels:                d.Labels,
		CreatedTimestamp:      d.CreatedTimestamp,
		LastModifiedTimestamp: d.LastModifiedTimestamp,
	}
}

// applyDto 把提交的变更套到已有笔记上，owner 和共享状态不受客户端控制
func applyDto(note *domain.Note, d *dto.NoteDto, now int64) {
	note.Title = d.Title
	note.Content = d.Content
	note.EncryptionIV = d.EncryptionIV
	if t := domain.NoteType(d.Type); t == domain.NoteTypeList {
		note.Type = t
	} else {
		note.Type = domain.NoteTypeText
	}
	note.IsArchived = d.IsArchived
	note.IsPinned = d.IsPinned
	note.Labels = d.Labels
	note.LastModifiedTimestamp = d.LastModifiedTimestamp
	note.LastSyncedTimestamp = now
}
