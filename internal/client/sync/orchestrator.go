// Package sync 驱动一次完整的同步回合
// Package sync drives one reconciliation round trip: auth, status probe,
// push local changes, pull server changes, apply, advance the baseline.
package sync

import (
	"context"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/api"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/conflict"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/mapper"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/settings"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/logger"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/observable"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status 同步状态机状态
type Status string

const (
	StatusIdle          Status = "IDLE"
	StatusSyncing       Status = "SYNCING"
	StatusSynced        Status = "SYNCED"
	StatusFailed        Status = "FAILED"
	StatusNotConfigured Status = "NOT_CONFIGURED"
)

// statusDisplayDuration 临时状态展示时长,之后自动回到 IDLE
const statusDisplayDuration = 3 * time.Second

// ErrNotConfigured 服务器地址、凭证或加密盐未配置
var ErrNotConfigured = errors.New("sync: not configured")

// ErrNetworkUnavailable 网络不可用或不满足约束
var ErrNetworkUnavailable = errors.New("sync: network unavailable")

// Result 一次同步回合的结果
type Result struct {
	Status     Status
	Uploaded   int
	Downloaded int
	Deleted    int
	Conflicts  int
	Message    string
	Err        error
}

// Reachability 网络可达性检查,wifiOnly 表示仅允许 Wi-Fi
type Reachability func(wifiOnly bool) bool

// Orchestrator 同步编排器
// 同一时刻至多一轮在执行,并发调用加入在途回合
type Orchestrator struct {
	settings  *settings.Manager
	notes     store.NoteStore
	conflicts *conflict.Store
	mapper    *mapper.Mapper
	reachable Reachability
	logger    *zap.Logger

	status *observable.Value[Status]
	group  singleflight.Group

	// newClient 按当前配置构造 API 客户端,测试可替换
	newClient func(baseURL, token string) *api.Client
}

func NewOrchestrator(s *settings.Manager, notes store.NoteStore, conflicts *conflict.Store, m *mapper.Mapper, reachable Reachability, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		settings:  s,
		notes:     notes,
		conflicts: conflicts,
		mapper:    m,
		reachable: reachable,
		logger:    log,
		status:    observable.NewValue(StatusIdle),
		newClient: api.NewClient,
	}
}

// Status 当前状态
func (o *Orchestrator) Status() Status {
	return o.status.Get()
}

// SubscribeStatus 订阅状态变化,立即收到当前状态
func (o *Orchestrator) SubscribeStatus() (<-chan Status, func()) {
	return o.status.Subscribe()
}

// SyncNow 执行一轮同步
// 已有回合在途时不启动第二轮,调用方拿到在途回合的结果
func (o *Orchestrator) SyncNow(ctx context.Context) *Result {
	v, _, _ := o.group.Do("sync", func() (interface{}, error) {
		return o.runOnce(ctx), nil
	})
	return v.(*Result)
}

// runOnce 执行一轮同步的全部步骤
func (o *Orchestrator) runOnce(ctx context.Context) *Result {
	o.status.Set(StatusSyncing)

	res := o.doSync(ctx)

	switch {
	case errors.Is(res.Err, ErrNotConfigured):
		res.Status = StatusNotConfigured
	case res.Err != nil:
		res.Status = StatusFailed
	default:
		res.Status = StatusSynced
	}
	o.setTemporary(res.Status)

	if res.Err != nil {
		o.logger.Warn("sync round failed",
			zap.String(logger.FieldState, string(res.Status)),
			zap.Error(res.Err))
	} else {
		o.logger.Info("sync round complete",
			zap.Int("uploaded", res.Uploaded),
			zap.Int("downloaded", res.Downloaded),
			zap.Int("deleted", res.Deleted),
			zap.Int("conflicts", res.Conflicts))
	}
	return res
}

// setTemporary 设置临时状态,展示时长过后回到 IDLE
func (o *Orchestrator) setTemporary(s Status) {
	o.status.Set(s)
	time.AfterFunc(statusDisplayDuration, func() {
		// 期间有新回合启动时不抢状态
		if o.status.Get() == s {
			o.status.Set(StatusIdle)
		}
	})
}

func (o *Orchestrator) doSync(parent context.Context) *Result {
	res := &Result{}

	// 1. 配置检查
	if !o.settings.Configured() {
		res.Err = ErrNotConfigured
		return res
	}

	// 2. 网络可达性,Wi-Fi 限制由设置决定
	if o.reachable != nil && !o.reachable(o.settings.WifiOnly()) {
		res.Err = ErrNetworkUnavailable
		return res
	}

	ctx, cancel := context.WithTimeout(parent, api.SyncRoundTimeout)
	defer cancel()

	serverURL, err := o.settings.ServerURL()
	if err != nil {
		res.Err = err
		return res
	}
	client := o.newClient(serverURL, "")

	// 3. 认证,失败终止本轮
	if err := o.authenticate(ctx, client); err != nil {
		res.Err = err
		return res
	}

	// 4. 状态探测,仅作连通性检查
	if _, err := client.SyncStatus(ctx); err != nil {
		res.Err = errors.Wrap(err, "sync: status probe")
		return res
	}

	key, err := o.encryptionKey()
	if err != nil {
		res.Err = err
		return res
	}

	// 5. 收集待上传与待删除
	pending, err := o.notes.NotesNeedingUpload()
	if err != nil {
		res.Err = errors.Wrap(err, "sync: collect pending uploads")
		return res
	}
	deleting, err := o.notes.NotesNeedingDeletion()
	if err != nil {
		res.Err = errors.Wrap(err, "sync: collect pending deletions")
		return res
	}

	// 6. 加密并提交一个批量请求
	req := &dto.SyncRequest{
		ChangedNotes:      make([]dto.NoteDto, 0, len(pending)),
		DeletedNoteIDs:    make([]string, 0, len(deleting)),
		LastSyncTimestamp: o.settings.LastSyncTimestamp(),
	}
	pushed := make(map[string]*store.Note, len(pending))
	for _, n := range pending {
		d, err := o.mapper.ToWire(n, key)
		if err != nil {
			// 单条笔记加密失败降级,不拖垮整轮
			o.logger.Warn("encrypt note failed, skipping",
				zap.String(logger.FieldSyncID, n.SyncID),
				zap.Error(err))
			continue
		}
		// ToWire 可能分配了新 SyncID
		if _, err := o.notes.Upsert(n); err != nil {
			res.Err = errors.Wrap(err, "sync: persist assigned syncId")
			return res
		}
		req.ChangedNotes = append(req.ChangedNotes, *d)
		pushed[d.SyncID] = n
	}
	deletingByID := make(map[string]*store.Note, len(deleting))
	for _, n := range deleting {
		if n.SyncID == "" {
			// 从未同步过的笔记直接本地删除
			if err := o.notes.Delete(n.LocalID); err != nil {
				o.logger.Warn("deleting unsynced note failed", zap.Error(err))
			}
			continue
		}
		req.DeletedNoteIDs = append(req.DeletedNoteIDs, n.SyncID)
		deletingByID[n.SyncID] = n
	}

	since := req.LastSyncTimestamp
	resp, err := client.SyncNotes(ctx, since, req)
	if err != nil {
		res.Err = errors.Wrap(err, "sync: submit")
		return res
	}
	res.Message = resp.Message

	// 7. 应用响应
	conflicted := make(map[string]bool, len(resp.Conflicts))
	for i := range resp.Conflicts {
		c := &resp.Conflicts[i]
		local := pushed[c.SyncID]
		if local == nil {
			if local, _ = o.notes.FindBySyncID(c.SyncID); local == nil {
				continue
			}
		}
		summary := ""
		if serverBody, err := o.mapper.DecryptContent(&c.RemoteNote, key); err == nil {
			summary = conflict.DiffSummary(local.Body, serverBody)
		}
		if err := o.conflicts.Add(local, &c.RemoteNote, summary); err != nil {
			res.Err = errors.Wrap(err, "sync: record conflict")
			return res
		}
		conflicted[c.SyncID] = true
		if err := o.notes.UpdateSyncStatus(local.LocalID, store.StatusConflict, 0); err != nil {
			res.Err = errors.Wrap(err, "sync: mark conflict")
			return res
		}
	}
	res.Conflicts = len(resp.Conflicts)

	for i := range resp.UpdatedNotes {
		d := &resp.UpdatedNotes[i]
		if conflicted[d.SyncID] {
			continue
		}
		existing, err := o.notes.FindBySyncID(d.SyncID)
		if err != nil {
			res.Err = errors.Wrap(err, "sync: lookup updated note")
			return res
		}
		merged := o.mapper.FromWire(d, key, existing)
		merged.SyncStatus = store.StatusSynced
		if _, err := o.notes.Upsert(merged); err != nil {
			res.Err = errors.Wrap(err, "sync: apply updated note")
			return res
		}
		res.Downloaded++
	}

	for _, id := range resp.DeletedNoteIDs {
		local := deletingByID[id]
		if local == nil {
			if local, _ = o.notes.FindBySyncID(id); local == nil {
				continue
			}
		}
		if err := o.notes.Delete(local.LocalID); err != nil && !errors.Is(err, store.ErrNoteNotFound) {
			res.Err = errors.Wrap(err, "sync: apply deletion")
			return res
		}
		res.Deleted++
	}

	for id, n := range pushed {
		if conflicted[id] {
			continue
		}
		if err := o.notes.UpdateSyncStatus(n.LocalID, store.StatusSynced, resp.NewSyncTimestamp); err != nil {
			res.Err = errors.Wrap(err, "sync: mark synced")
			return res
		}
		res.Uploaded++
	}

	// 8. 全部应用成功后才推进基线
	if err := o.settings.SetLastSyncTimestamp(resp.NewSyncTimestamp); err != nil {
		res.Err = errors.Wrap(err, "sync: advance baseline")
		return res
	}
	return res
}

// authenticate 用设备凭证换取本轮的访问令牌
// 首次认证成功后保存服务端返回的用户标识
func (o *Orchestrator) authenticate(ctx context.Context, client *api.Client) error {
	deviceID, err := o.settings.DeviceUserID()
	if err != nil {
		return errors.Wrap(err, "sync: device id")
	}
	authKey, err := o.settings.AuthToken()
	if err != nil {
		return errors.Wrap(err, "sync: credential")
	}

	resp, err := client.AuthToken(ctx, &dto.AuthTokenRequest{
		UserID:  deviceID,
		AuthKey: authKey,
	})
	if err != nil {
		return errors.Wrap(err, "sync: authenticate")
	}
	client.SetToken(resp.Token)

	if stored, _ := o.settings.UserID(); stored == "" {
		if err := o.settings.SetUserID(resp.UserID); err != nil {
			o.logger.Warn("persisting user id failed", zap.Error(err))
		}
	}
	return nil
}

// encryptionKey 从口令和盐派生内容密钥
func (o *Orchestrator) encryptionKey() ([]byte, error) {
	salt, err := o.settings.EncryptionSalt()
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, ErrNotConfigured
	}
	passphrase, err := o.settings.Passphrase()
	if err != nil {
		return nil, err
	}
	return crypto.DeriveKey(passphrase, salt), nil
}
