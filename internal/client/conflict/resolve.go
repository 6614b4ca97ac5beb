package conflict

import (
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/mapper"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/diff"

	"github.com/pkg/errors"
)

// Resolve 应用用户对冲突的裁决并销毁冲突记录
// KeepLocal 将本地版本重新标记待上传,KeepServer 用服务端版本覆盖本地,
// Merged 写入调用方提供的合并结果并标记待上传
func (s *Store) Resolve(syncID string, res Resolution, merged *store.Note, notes store.NoteStore, m *mapper.Mapper, key []byte) error {
	rec, err := s.Get(syncID)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()

	switch res {
	case KeepLocal:
		local := rec.LocalVersion.Clone()
		local.SyncStatus = store.StatusPendingUpload
		// 推进本地时钟,下一轮同步时本地版本胜出
		local.ModifiedTimestamp = now
		if _, err := notes.Upsert(local); err != nil {
			return errors.Wrap(err, "conflict: keep local")
		}

	case KeepServer:
		existing, err := notes.FindBySyncID(syncID)
		if err != nil {
			return errors.Wrap(err, "conflict: load local note")
		}
		note := m.FromWire(&rec.ServerVersion, key, existing)
		note.SyncStatus = store.StatusSynced
		if _, err := notes.Upsert(note); err != nil {
			return errors.Wrap(err, "conflict: keep server")
		}

	case Merged:
		if merged == nil {
			return errors.New("conflict: merged resolution requires a note")
		}
		merged.SyncStatus = store.StatusPendingUpload
		merged.ModifiedTimestamp = now
		if _, err := notes.Upsert(merged); err != nil {
			return errors.Wrap(err, "conflict: apply merge")
		}

	default:
		return errors.Errorf("conflict: unknown resolution %q", res)
	}

	return s.Remove(syncID)
}

// ProposeMerge 给出一份自动合并的正文草稿供用户确认
// 较新的一侧先应用,其改动在交叉编辑时排在前面
// 服务端内容无法解密或合并失败时返回 ok=false
func (r *Record) ProposeMerge(m *mapper.Mapper, key []byte) (body string, ok bool) {
	serverBody, err := m.DecryptContent(&r.ServerVersion, key)
	if err != nil {
		return "", false
	}
	localFirst := r.NewerSide() == "local"
	return diff.Merge("", r.LocalVersion.Body, serverBody, localFirst)
}
