package store

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrNoteNotFound 本地笔记不存在
var ErrNoteNotFound = errors.New("store: note not found")

// MemoryStore 内存实现，供客户端守护进程和测试使用
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	notes  map[int64]*Note
}

var _ NoteStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		notes:  make(map[int64]*Note),
	}
}

func (s *MemoryStore) NotesNeedingUpload() ([]*Note, error) {
	return s.listByStatus(StatusPendingUpload, StatusNotSynced)
}

func (s *MemoryStore) NotesNeedingDeletion() ([]*Note, error) {
	return s.listByStatus(StatusPendingDelete)
}

func (s *MemoryStore) listByStatus(statuses ...SyncStatus) ([]*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Note
	for _, n := range s.notes {
		for _, st := range statuses {
			if n.SyncStatus == st {
				out = append(out, n.Clone())
				break
			}
		}
	}
	return out, nil
}

// Get 按本地标识读取,测试用
func (s *MemoryStore) Get(localID int64) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[localID]
	if !ok {
		return nil, ErrNoteNotFound
	}
	return n.Clone(), nil
}

func (s *MemoryStore) FindBySyncID(syncID string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notes {
		if n.SyncID == syncID && n.SyncID != "" {
			return n.Clone(), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Upsert(note *Note) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := note.Clone()
	if stored.LocalID == 0 && stored.SyncID != "" {
		// 先按 SyncID 匹配已有行
		for id, n := range s.notes {
			if n.SyncID == stored.SyncID {
				stored.LocalID = id
				break
			}
		}
	}
	if stored.LocalID == 0 {
		stored.LocalID = s.nextID
		s.nextID++
	}
	s.notes[stored.LocalID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Delete(localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[localID]; !ok {
		return ErrNoteNotFound
	}
	delete(s.notes, localID)
	return nil
}

func (s *MemoryStore) UpdateSyncStatus(localID int64, status SyncStatus, syncedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[localID]
	if !ok {
		return ErrNoteNotFound
	}
	n.SyncStatus = status
	if syncedAt > 0 {
		n.LastSyncedTimestamp = syncedAt
	}
	return nil
}

// Count 当前笔记数量
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}
