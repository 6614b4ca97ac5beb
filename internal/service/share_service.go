// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShareService 定义笔记分享服务接口
type ShareService interface {
	// ShareNote 直接把笔记授权给指定用户，仅 owner 可操作
	ShareNote(ctx context.Context, ownerUserID, syncID string, params *dto.ShareNoteRequest) error

	// CreateSharingToken 创建一次性分享令牌，仅 owner 可操作
	CreateSharingToken(ctx context.Context, ownerUserID, syncID string, params *dto.SharingTokenRequest) (*dto.SharingTokenResponse, error)

	// AcceptSharedNote 兑换一次性分享令牌，令牌只能用一次
	AcceptSharedNote(ctx context.Context, userID, token string) (*dto.AcceptShareResponse, error)

	// CleanupTokens 清理过期与陈旧的已使用令牌，供后台任务调用
	CleanupTokens(ctx context.Context) (int64, error)
}

// shareService 实现 ShareService 接口
type shareService struct {
	noteRepo  domain.NoteRepository
	userRepo  domain.UserRepository
	shareRepo domain.ShareRepository
	notifier  UpdateNotifier
	logger    *zap.Logger
	config    *ServiceConfig
}

var _ ShareService = (*shareService)(nil)

// NewShareService 创建 ShareService 实例
func NewShareService(noteRepo domain.NoteRepository, userRepo domain.UserRepository, shareRepo domain.ShareRepository, notifier UpdateNotifier, logger *zap.Logger, config *ServiceConfig) ShareService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &shareService{
		noteRepo:  noteRepo,
		userRepo:  userRepo,
		shareRepo: shareRepo,
		notifier:  notifier,
		logger:    logger,
		config:    config,
	}
}

// ShareNote 直接授权
func (s *shareService) ShareNote(ctx context.Context, ownerUserID, syncID string, params *dto.ShareNoteRequest) error {
	note, err := s.noteRepo.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code.ErrorNoteNotFound
		}
		return code.ErrorDBQuery.WithDetails(err.Error())
	}
	if !note.IsOwnedBy(ownerUserID) {
		return code.ErrorNoteNotOwner
	}
	if params.UserID == ownerUserID {
		return code.ErrorShareWithSelf
	}

	if _, err := s.userRepo.GetByUserID(ctx, params.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code.ErrorUserNotExist
		}
		return code.ErrorDBQuery.WithDetails(err.Error())
	}

	existing, err := s.shareRepo.GetAccess(ctx, syncID, params.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return code.ErrorDBQuery.WithDetails(err.Error())
	}
	if existing != nil {
		return code.ErrorShareAlreadyExists
	}

	if err := s.shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID:           syncID,
		UserID:           params.UserID,
		AccessLevel:      domain.AccessLevel(params.AccessLevel),
		GrantedTimestamp: util.NowMilli(),
	}); err != nil {
		return code.ErrorDBQuery.WithDetails(err.Error())
	}

	if err := s.markShared(ctx, note); err != nil {
		return err
	}

	s.logger.Info("note shared",
		zap.String("syncId", syncID),
		zap.String("ownerUserId", ownerUserID),
		zap.String("userId", params.UserID),
		zap.String("accessLevel", params.AccessLevel))

	s.notifier.NotifyNoteUpdate([]string{params.UserID}, dto.NoteShared, syncID)
	return nil
}

// CreateSharingToken 创建一次性分享令牌
func (s *shareService) CreateSharingToken(ctx context.Context, ownerUserID, syncID string, params *dto.SharingTokenRequest) (*dto.SharingTokenResponse, error) {
	note, err := s.noteRepo.GetBySyncID(ctx, syncID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorNoteNotFound
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	if !note.IsOwnedBy(ownerUserID) {
		return nil, code.ErrorNoteNotOwner
	}

	level := domain.AccessLevel(params.AccessLevel)
	if level != domain.AccessReadWrite {
		level = domain.AccessReadOnly
	}

	now := util.NowMilli()
	expiration := params.ExpiryTime
	if expiration == 0 && s.config != nil && s.config.Share.DefaultTokenExpiry != "" {
		if d, err := util.ParseDuration(s.config.Share.DefaultTokenExpiry); err == nil && d > 0 {
			expiration = now + d.Milliseconds()
		}
	}

	token := &domain.SharingToken{
		Token:               uuid.NewString(),
		NoteID:              syncID,
		AccessLevel:         level,
		CreatedTimestamp:    now,
		ExpirationTimestamp: expiration,
	}
	if err := s.shareRepo.CreateToken(ctx, token); err != nil {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}

	s.logger.Info("sharing token created",
		zap.String("syncId", syncID),
		zap.String("ownerUserId", ownerUserID),
		zap.String("accessLevel", string(level)))

	return &dto.SharingTokenResponse{Token: token.Token}, nil
}

// AcceptSharedNote 兑换分享令牌
// 标记已用和授权在一个事务里完成，并发兑换只有一个成功
func (s *shareService) AcceptSharedNote(ctx context.Context, userID, token string) (*dto.AcceptShareResponse, error) {
	t, err := s.shareRepo.GetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorShareTokenInvalid
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}

	now := util.NowMilli()
	if t.IsUsed {
		return nil, code.ErrorShareTokenUsed
	}
	if !t.IsValid(now) {
		return nil, code.ErrorShareTokenExpired
	}

	note, err := s.noteRepo.GetBySyncID(ctx, t.NoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorNoteNotFound
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	if note.IsOwnedBy(userID) {
		return nil, code.ErrorShareWithSelf
	}

	existing, err := s.shareRepo.GetAccess(ctx, t.NoteID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	if existing != nil {
		return nil, code.ErrorShareAlreadyExists
	}

	redeemed, err := s.shareRepo.RedeemToken(ctx, token, userID, now)
	if err != nil {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	if !redeemed {
		return nil, code.ErrorShareTokenUsed
	}

	if err := s.markShared(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info("sharing token redeemed",
		zap.String("syncId", t.NoteID),
		zap.String("userId", userID))

	s.notifier.NotifyNoteUpdate([]string{userID}, dto.NoteShared, t.NoteID)

	d := noteToDto(note, nil)
	return &dto.AcceptShareResponse{Note: d}, nil
}

// CleanupTokens 清理令牌
func (s *shareService) CleanupTokens(ctx context.Context) (int64, error) {
	now := util.NowMilli()

	retention := 7 * 24 * time.Hour
	if s.config != nil && s.config.Share.UsedTokenRetention != "" {
		if d, err := util.ParseDuration(s.config.Share.UsedTokenRetention); err == nil && d > 0 {
			retention = d
		}
	}

	return s.shareRepo.DeleteExpiredTokens(ctx, now, now-retention.Milliseconds())
}

func (s *shareService) markShared(ctx context.Context, note *domain.Note) error {
	if note.IsShared {
		return nil
	}
	note.IsShared = true
	if err := s.noteRepo.Update(ctx, note); err != nil {
		return code.ErrorDBQuery.WithDetails(err.Error())
	}
	return nil
}
