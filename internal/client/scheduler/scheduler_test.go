package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/conflict"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/mapper"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/securekv"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/settings"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	clientsync "github.com/sleepyyui/notallyxo-sync-service/internal/client/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyAllChecker struct{ calls int }

func (c *denyAllChecker) Satisfied(Constraints) bool {
	c.calls++
	return false
}

type allowAllChecker struct{}

func (allowAllChecker) Satisfied(Constraints) bool { return true }

// newIdleOrchestrator 构造一个未配置的编排器,SyncNow 立即返回 NOT_CONFIGURED
func newIdleOrchestrator(t *testing.T) *clientsync.Orchestrator {
	t.Helper()
	conflicts, err := conflict.Open(filepath.Join(t.TempDir(), "c.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conflicts.Close() })

	return clientsync.NewOrchestrator(
		settings.NewManager(securekv.NewMemoryStore()),
		store.NewMemoryStore(),
		conflicts,
		mapper.New(nil),
		nil,
		nil,
	)
}

func TestConstraintsBlockExecution(t *testing.T) {
	checker := &denyAllChecker{}
	s := New(newIdleOrchestrator(t), checker, nil)

	res := s.SyncNow(context.Background())
	assert.ErrorIs(t, res.Err, clientsync.ErrNetworkUnavailable)
	assert.Equal(t, 1, checker.calls)
}

func TestConfigurationErrorNotRetried(t *testing.T) {
	s := New(newIdleOrchestrator(t), allowAllChecker{}, nil)

	start := time.Now()
	res := s.SyncNow(context.Background())
	elapsed := time.Since(start)

	assert.ErrorIs(t, res.Err, clientsync.ErrNotConfigured)
	// 非瞬态错误不进入退避重试
	assert.Less(t, elapsed, time.Second)
}

func TestSchedulePeriodicPolicies(t *testing.T) {
	s := New(newIdleOrchestrator(t), allowAllChecker{}, nil)

	require.NoError(t, s.SchedulePeriodic(time.Hour, Constraints{NetworkType: NetworkWifi}, PolicyReplace))
	first := s.entryID

	// KEEP 保留已有任务
	require.NoError(t, s.SchedulePeriodic(30*time.Minute, Constraints{}, PolicyKeep))
	assert.Equal(t, first, s.entryID)
	assert.Equal(t, NetworkWifi, s.constraints.NetworkType)

	// REPLACE 重建任务并更新约束
	require.NoError(t, s.SchedulePeriodic(30*time.Minute, Constraints{NetworkType: NetworkAny}, PolicyReplace))
	assert.NotEqual(t, first, s.entryID)
	assert.Equal(t, NetworkAny, s.constraints.NetworkType)
}

func TestIntervalFloor(t *testing.T) {
	s := New(newIdleOrchestrator(t), allowAllChecker{}, nil)

	// 低于最小周期的请求被抬升,不会高频轰炸服务器
	require.NoError(t, s.SchedulePeriodic(time.Minute, Constraints{}, PolicyReplace))
	entry := s.cron.Entry(s.entryID)
	assert.NotZero(t, entry.ID)

	s.Start()
	defer s.Stop()
	next := s.cron.Entry(s.entryID).Next
	assert.True(t, next.After(time.Now().Add(10*time.Minute)),
		"next run respects the minimum interval")
}
