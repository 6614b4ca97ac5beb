// Package conflict 持久化未解决的笔记冲突
// Conflicts survive restarts (bbolt) and subscribers always receive the
// full current snapshot, never deltas.
package conflict

import (
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/diff"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/logger"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/observable"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var conflictsBucket = []byte("conflicts")

// ErrConflictNotFound 冲突记录不存在
var ErrConflictNotFound = errors.New("conflict: record not found")

// Resolution 冲突解决方式
type Resolution string

const (
	KeepLocal  Resolution = "KEEP_LOCAL"
	KeepServer Resolution = "KEEP_SERVER"
	Merged     Resolution = "MERGED"
)

// Record 一条未解决的冲突
// LocalVersion 是检测时的本地明文笔记,ServerVersion 是服务端密文版本
type Record struct {
	SyncID           string      `json:"syncId"`
	NoteID           int64       `json:"noteId"`
	Title            string      `json:"title"`
	DetectedAt       int64       `json:"detectedAt"`
	LocalVersion     store.Note  `json:"localVersion"`
	ServerVersion    dto.NoteDto `json:"serverVersion"`
	LocalModifiedAt  int64       `json:"localModifiedAt"`
	ServerModifiedAt int64       `json:"serverModifiedAt"`
	// DiffSummary 两侧正文的差异摘要,服务端内容无法解密时为空
	DiffSummary string `json:"diffSummary,omitempty"`
}

// TimeDifference 两侧修改时间差
func (r *Record) TimeDifference() time.Duration {
	d := r.ServerModifiedAt - r.LocalModifiedAt
	if d < 0 {
		d = -d
	}
	return time.Duration(d) * time.Millisecond
}

// NewerSide 返回较新的一侧,"local" 或 "server"
func (r *Record) NewerSide() string {
	if r.LocalModifiedAt >= r.ServerModifiedAt {
		return "local"
	}
	return "server"
}

// Store bbolt 持久化的冲突存储
type Store struct {
	db       *bolt.DB
	logger   *zap.Logger
	snapshot *observable.Value[[]Record]
}

// Open 打开冲突存储,启动时加载已持久化的冲突
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "conflict: open store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conflictsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "conflict: init bucket")
	}

	s := &Store{
		db:     db,
		logger: log,
	}
	s.snapshot = observable.NewValue(s.load())
	return s, nil
}

// Close 关闭底层数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe 订阅冲突列表快照,立即收到当前快照
func (s *Store) Subscribe() (<-chan []Record, func()) {
	return s.snapshot.Subscribe()
}

// load 读出全部冲突,损坏的记录跳过并记日志,不会崩溃
func (s *Store) load() []Record {
	records := []Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conflictsBucket).ForEach(func(k, v []byte) error {
			var r Record
			if err := sonic.Unmarshal(v, &r); err != nil {
				s.logger.Warn("skipping corrupt conflict record",
					zap.String(logger.FieldSyncID, string(k)),
					zap.Error(err))
				return nil
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		s.logger.Error("loading conflicts failed, starting empty", zap.Error(err))
		return []Record{}
	}
	return records
}

// publish 向订阅者发布当前完整快照
func (s *Store) publish() {
	s.snapshot.Set(s.load())
}

// Add 记录一条冲突,同一 SyncID 的旧记录被替换(最后检测获胜)
func (s *Store) Add(local *store.Note, remote *dto.NoteDto, diffSummary string) error {
	r := Record{
		SyncID:           remote.SyncID,
		NoteID:           local.LocalID,
		Title:            local.Title,
		DetectedAt:       time.Now().UnixMilli(),
		LocalVersion:     *local.Clone(),
		ServerVersion:    *remote,
		LocalModifiedAt:  local.ModifiedTimestamp,
		ServerModifiedAt: remote.LastModifiedTimestamp,
		DiffSummary:      diffSummary,
	}

	payload, err := sonic.Marshal(&r)
	if err != nil {
		return errors.Wrap(err, "conflict: marshal record")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conflictsBucket).Put([]byte(r.SyncID), payload)
	})
	if err != nil {
		return errors.Wrap(err, "conflict: persist record")
	}

	s.publish()
	return nil
}

// Remove 删除一条冲突
func (s *Store) Remove(syncID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conflictsBucket).Delete([]byte(syncID))
	})
	if err != nil {
		return errors.Wrap(err, "conflict: remove record")
	}
	s.publish()
	return nil
}

// Get 按 SyncID 查找
func (s *Store) Get(syncID string) (*Record, error) {
	var r *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(conflictsBucket).Get([]byte(syncID))
		if v == nil {
			return ErrConflictNotFound
		}
		var rec Record
		if err := sonic.Unmarshal(v, &rec); err != nil {
			return errors.Wrap(err, "conflict: decode record")
		}
		r = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List 返回全部冲突
func (s *Store) List() []Record {
	return s.load()
}

// Count 当前冲突数量
func (s *Store) Count() int {
	n := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(conflictsBucket).Stats().KeyN
		return nil
	})
	return n
}

// DiffSummary 计算两段明文正文的差异摘要
func DiffSummary(localBody, serverBody string) string {
	return diff.Summary(localBody, serverBody)
}
