package sync

import (
	"context"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IncrementalSync 拉取并合并单条笔记,由推送通知触发
// 不走完整状态机,不会阻塞或被在途的完整回合阻塞
// 服务端未找到该笔记时回退为一轮完整同步
func (o *Orchestrator) IncrementalSync(ctx context.Context, syncID string) error {
	if !o.settings.Configured() {
		return ErrNotConfigured
	}

	serverURL, err := o.settings.ServerURL()
	if err != nil {
		return err
	}
	client := o.newClient(serverURL, "")
	if err := o.authenticate(ctx, client); err != nil {
		return err
	}

	d, err := client.GetNote(ctx, syncID)
	if err != nil {
		// 可能是刚分享给本设备的未知笔记,交给完整回合处理
		o.logger.Info("incremental fetch failed, falling back to full sync",
			zap.String(logger.FieldSyncID, syncID),
			zap.Error(err))
		res := o.SyncNow(ctx)
		return res.Err
	}

	key, err := o.encryptionKey()
	if err != nil {
		return err
	}

	existing, err := o.notes.FindBySyncID(syncID)
	if err != nil {
		return errors.Wrap(err, "sync: lookup local note")
	}
	if existing != nil && existing.SyncStatus == store.StatusConflict {
		// 冲突未解决前不覆盖本地版本
		return nil
	}
	if existing != nil && existing.ModifiedTimestamp > d.LastModifiedTimestamp {
		// 本地有更新的未上传修改,留给下一轮完整同步裁决
		return nil
	}

	merged := o.mapper.FromWire(d, key, existing)
	merged.SyncStatus = store.StatusSynced
	if _, err := o.notes.Upsert(merged); err != nil {
		return errors.Wrap(err, "sync: apply incremental note")
	}
	return nil
}

// RemoveLocal 删除推送通知指向的本地副本
// 本设备作者的笔记不会被推送删除,避免误删未同步内容
func (o *Orchestrator) RemoveLocal(syncID string) error {
	selfID, err := o.settings.UserID()
	if err != nil || selfID == "" {
		selfID, err = o.settings.DeviceUserID()
		if err != nil {
			return err
		}
	}
	local, err := o.notes.FindBySyncID(syncID)
	if err != nil || local == nil {
		return err
	}
	if local.OwnerUserID == selfID {
		return nil
	}
	if err := o.notes.Delete(local.LocalID); err != nil && !errors.Is(err, store.ErrNoteNotFound) {
		return err
	}
	// 该笔记的未解决冲突一并清除
	if o.conflicts != nil {
		_ = o.conflicts.Remove(syncID)
	}
	return nil
}
