package service

import (
	"context"
	"testing"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newUserFixture(registerEnabled bool) (*fakeUserRepo, UserService) {
	userRepo := newFakeUserRepo()
	tm := app.NewTokenManager(app.TokenConfig{
		SecretKey: "unit-test-secret",
		Expiry:    time.Hour,
		Issuer:    "test",
	})
	cfg := &ServiceConfig{
		User: UserServiceConfig{RegisterIsEnable: registerEnabled, TokenExpiry: "1h"},
	}
	return userRepo, NewUserService(userRepo, tm, zap.NewNop(), cfg)
}

func TestAuthByTokenRegistersFirstSeenDevice(t *testing.T) {
	ctx := context.Background()
	userRepo, svc := newUserFixture(true)

	resp, err := svc.AuthByToken(ctx, &dto.AuthTokenRequest{
		UserID:  "device-user-0001",
		AuthKey: "a-long-random-device-key",
	}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "device-user-0001", resp.UserID)
	assert.NotEmpty(t, resp.Token)
	assert.Greater(t, resp.ExpiresAt, int64(0))

	// 凭证只存哈希
	stored, err := userRepo.GetByUserID(ctx, "device-user-0001")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.AuthKeyHash)
	assert.NotContains(t, stored.AuthKeyHash, "a-long-random-device-key")
}

func TestAuthByTokenVerifiesExistingDevice(t *testing.T) {
	ctx := context.Background()
	_, svc := newUserFixture(true)

	req := &dto.AuthTokenRequest{
		UserID:  "device-user-0001",
		AuthKey: "a-long-random-device-key",
	}
	_, err := svc.AuthByToken(ctx, req, "127.0.0.1")
	require.NoError(t, err)

	// 相同凭证再次认证成功
	_, err = svc.AuthByToken(ctx, req, "127.0.0.1")
	require.NoError(t, err)

	// 错误凭证被拒
	_, err = svc.AuthByToken(ctx, &dto.AuthTokenRequest{
		UserID:  "device-user-0001",
		AuthKey: "wrong-key-wrong-key",
	}, "127.0.0.1")
	assert.ErrorIs(t, err, code.ErrorUserAuthFailed)
}

func TestAuthByTokenRegistrationDisabled(t *testing.T) {
	ctx := context.Background()
	_, svc := newUserFixture(false)

	_, err := svc.AuthByToken(ctx, &dto.AuthTokenRequest{
		UserID:  "device-user-0001",
		AuthKey: "a-long-random-device-key",
	}, "127.0.0.1")
	assert.ErrorIs(t, err, code.ErrorUserNotExist)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	userRepo, svc := newUserFixture(true)

	authResp, err := svc.AuthByToken(ctx, &dto.AuthTokenRequest{
		UserID:      "device-user-0001",
		AuthKey:     "a-long-random-device-key",
		Username:    "alice",
		DisplayName: "Alice",
	}, "127.0.0.1")
	require.NoError(t, err)
	_ = authResp

	stored, err := userRepo.GetByUserID(ctx, "device-user-0001")
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, stored.UID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "Alice", profile.DisplayName)

	updated, err := svc.UpdateProfile(ctx, stored.UID, &dto.UserProfileUpdateRequest{
		DisplayName: "Alice B",
		PublicKey:   "-----BEGIN PUBLIC KEY-----",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.DisplayName)
	assert.Equal(t, "-----BEGIN PUBLIC KEY-----", updated.PublicKey)

	_, err = svc.Profile(ctx, 9999)
	assert.ErrorIs(t, err, code.ErrorUserNotExist)
}
