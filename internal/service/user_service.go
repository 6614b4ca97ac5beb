// Package service 实现业务逻辑层
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 定义用户业务服务接口
type UserService interface {
	// AuthByToken 设备凭证认证，首次出现的设备自动注册
	AuthByToken(ctx context.Context, params *dto.AuthTokenRequest, clientIP string) (*dto.AuthTokenResponse, error)

	// Profile 获取用户资料
	Profile(ctx context.Context, uid int64) (*dto.UserProfileResponse, error)

	// UpdateProfile 更新用户资料
	UpdateProfile(ctx context.Context, uid int64, params *dto.UserProfileUpdateRequest) (*dto.UserProfileResponse, error)
}

// userService 实现 UserService 接口
type userService struct {
	userRepo     domain.UserRepository
	tokenManager app.TokenManager
	logger       *zap.Logger
	config       *ServiceConfig
}

var _ UserService = (*userService)(nil)

// NewUserService 创建 UserService 实例
func NewUserService(userRepo domain.UserRepository, tokenManager app.TokenManager, logger *zap.Logger, config *ServiceConfig) UserService {
	return &userService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		logger:       logger,
		config:       config,
	}
}

func (s *userService) profileDTO(user *domain.User) *dto.UserProfileResponse {
	if user == nil {
		return nil
	}
	return &dto.UserProfileResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		PublicKey:   user.PublicKey,
		CreatedAt:   user.CreatedAt.UnixMilli(),
	}
}

// AuthByToken 设备凭证认证
// 设备提交稳定的 userId 和本机派生的 authKey，服务器只存 bcrypt 哈希
func (s *userService) AuthByToken(ctx context.Context, params *dto.AuthTokenRequest, clientIP string) (*dto.AuthTokenResponse, error) {
	user, err := s.userRepo.GetByUserID(ctx, params.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}

	if user == nil {
		// 首次认证即注册
		if s.config == nil || !s.config.User.RegisterIsEnable {
			return nil, code.ErrorUserNotExist
		}
		hash, err := util.GeneratePasswordHash(params.AuthKey)
		if err != nil {
			return nil, code.ErrorUserAuthFailed
		}
		username := params.Username
		if username == "" {
			username = params.UserID
		}
		user, err = s.userRepo.Create(ctx, &domain.User{
			UserID:      params.UserID,
			Username:    username,
			DisplayName: params.DisplayName,
			PublicKey:   params.PublicKey,
			AuthKeyHash: hash,
		})
		if err != nil {
			return nil, code.ErrorDBQuery.WithDetails(err.Error())
		}
		s.logger.Info("user registered",
			zap.String("userId", user.UserID), zap.String("ip", clientIP))
	} else if !util.CheckPasswordHash(user.AuthKeyHash, params.AuthKey) {
		s.logger.Warn("auth key mismatch",
			zap.String("userId", params.UserID), zap.String("ip", clientIP))
		return nil, code.ErrorUserAuthFailed
	}

	token, err := s.tokenManager.Generate(user.UID, user.UserID, user.Username, clientIP)
	if err != nil {
		return nil, code.ErrorServerInternal.WithDetails(err.Error())
	}

	expiry, err := util.ParseDuration(s.config.User.TokenExpiry)
	if err != nil || expiry <= 0 {
		expiry = 720 * time.Hour
	}

	return &dto.AuthTokenResponse{
		UserID:    user.UserID,
		Token:     token,
		ExpiresAt: time.Now().Add(expiry).UnixMilli(),
	}, nil
}

// Profile 获取用户资料
func (s *userService) Profile(ctx context.Context, uid int64) (*dto.UserProfileResponse, error) {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorUserNotExist
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	return s.profileDTO(user), nil
}

// UpdateProfile 更新用户资料
func (s *userService) UpdateProfile(ctx context.Context, uid int64, params *dto.UserProfileUpdateRequest) (*dto.UserProfileResponse, error) {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorUserNotExist
		}
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}

	if params.Username != "" {
		if !util.IsValidUsername(params.Username) {
			return nil, code.ErrorInvalidParams.WithDetails("username")
		}
		user.Username = params.Username
	}
	if params.DisplayName != "" {
		user.DisplayName = params.DisplayName
	}
	if params.PublicKey != "" {
		user.PublicKey = params.PublicKey
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, code.ErrorDBQuery.WithDetails(err.Error())
	}
	return s.profileDTO(user), nil
}
