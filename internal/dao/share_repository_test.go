package dao

import (
	"context"
	"sync"
	"testing"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newTestDao(t *testing.T) *Dao {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库串行访问
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, model.AutoMigrate(db))
	return New(db, zap.NewNop())
}

func TestRedeemTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	repo := NewShareRepository(newTestDao(t))

	require.NoError(t, repo.CreateToken(ctx, &domain.SharingToken{
		Token:            "tok-1",
		NoteID:           "n1",
		AccessLevel:      domain.AccessReadWrite,
		CreatedTimestamp: 100,
	}))

	ok, err := repo.RedeemToken(ctx, "tok-1", "bob", 200)
	require.NoError(t, err)
	assert.True(t, ok)

	// 二次兑换不再成功，也不产生第二条授权
	ok, err = repo.RedeemToken(ctx, "tok-1", "carol", 201)
	require.NoError(t, err)
	assert.False(t, ok)

	accesses, err := repo.ListAccessByNote(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, accesses, 1)
	assert.Equal(t, "bob", accesses[0].UserID)
	assert.Equal(t, "tok-1", accesses[0].UsedToken)
	assert.True(t, accesses[0].CanWrite())

	stored, err := repo.GetToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, stored.IsUsed)
	assert.Equal(t, "bob", stored.UsedByUserID)
}

func TestRedeemTokenConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewShareRepository(newTestDao(t))

	require.NoError(t, repo.CreateToken(ctx, &domain.SharingToken{
		Token:            "tok-race",
		NoteID:           "n1",
		AccessLevel:      domain.AccessReadOnly,
		CreatedTimestamp: 100,
	}))

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := repo.RedeemToken(ctx, "tok-race", "user", 200+int64(n))
			if err != nil {
				t.Errorf("redeem: %v", err)
				return
			}
			results <- ok
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent redeem may win")

	accesses, err := repo.ListAccessByNote(ctx, "n1")
	require.NoError(t, err)
	assert.Len(t, accesses, 1)
}

func TestRedeemTokenUnknown(t *testing.T) {
	ctx := context.Background()
	repo := NewShareRepository(newTestDao(t))

	ok, err := repo.RedeemToken(ctx, "missing", "bob", 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteExpiredTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewShareRepository(newTestDao(t))

	seed := []*domain.SharingToken{
		{Token: "expired", NoteID: "n1", CreatedTimestamp: 1, ExpirationTimestamp: 50},
		{Token: "stale-used", NoteID: "n1", CreatedTimestamp: 1, IsUsed: true},
		{Token: "fresh-used", NoteID: "n1", CreatedTimestamp: 900, IsUsed: true},
		{Token: "live-forever", NoteID: "n1", CreatedTimestamp: 1},
		{Token: "live-later", NoteID: "n1", CreatedTimestamp: 1, ExpirationTimestamp: 5000},
	}
	for _, tok := range seed {
		require.NoError(t, repo.CreateToken(ctx, tok))
	}

	removed, err := repo.DeleteExpiredTokens(ctx, 100, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	for _, token := range []string{"fresh-used", "live-forever", "live-later"} {
		_, err := repo.GetToken(ctx, token)
		assert.NoError(t, err, token)
	}
}
