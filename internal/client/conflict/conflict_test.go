package conflict

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/mapper"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conflicts.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func localNote(syncID, body string, modified int64) *store.Note {
	return &store.Note{
		LocalID:           1,
		SyncID:            syncID,
		Title:             "t",
		Body:              body,
		ModifiedTimestamp: modified,
	}
}

func serverNote(syncID string, modified int64) *dto.NoteDto {
	return &dto.NoteDto{
		SyncID:                syncID,
		Title:                 "t",
		Content:               "aGVsbG8=",
		EncryptionIV:          "aXZpdml2aXZpdml2aXY=",
		LastModifiedTimestamp: modified,
	}
}

func TestAddUpsertsBySyncID(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(localNote("n1", "a", 100), serverNote("n1", 200), ""))
	require.NoError(t, s.Add(localNote("n2", "b", 100), serverNote("n2", 300), ""))
	assert.Equal(t, 2, s.Count())

	// 同一笔记再次检测到冲突,旧记录被替换
	require.NoError(t, s.Add(localNote("n1", "a2", 150), serverNote("n1", 400), ""))
	assert.Equal(t, 2, s.Count())

	rec, err := s.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, "a2", rec.LocalVersion.Body)
	assert.Equal(t, int64(400), rec.ServerModifiedAt)
	assert.Equal(t, "server", rec.NewerSide())
	assert.Equal(t, 250*time.Millisecond, rec.TimeDifference())
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conflicts.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(localNote("n1", "a", 100), serverNote("n1", 200), "diff"))
	require.NoError(t, s.Close())

	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, 1, s2.Count())
	rec, err := s2.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, "diff", rec.DiffSummary)
}

func TestCorruptRecordDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conflicts.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(localNote("n1", "a", 100), serverNote("n1", 200), ""))
	require.NoError(t, s.Close())

	// 直接破坏持久化的记录
	db, err := bolt.Open(path, 0600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte("conflicts")).Put([]byte("n1"), []byte("{not json"))
	}))
	require.NoError(t, db.Close())

	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()
	assert.Empty(t, s2.List(), "corrupt record is skipped, not fatal")
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s, _ := newTestStore(t)

	ch, cancel := s.Subscribe()
	defer cancel()

	first := <-ch
	assert.Empty(t, first, "subscriber immediately gets current snapshot")

	require.NoError(t, s.Add(localNote("n1", "a", 100), serverNote("n1", 200), ""))
	snap := <-ch
	require.Len(t, snap, 1)
	assert.Equal(t, "n1", snap[0].SyncID)

	require.NoError(t, s.Remove("n1"))
	snap = <-ch
	assert.Empty(t, snap)
}

func TestResolveKeepLocal(t *testing.T) {
	s, _ := newTestStore(t)
	notes := store.NewMemoryStore()
	m := mapper.New(nil)
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	key := crypto.DeriveKey("pw", salt)

	local := localNote("n1", "local body", 100)
	stored, err := notes.Upsert(local)
	require.NoError(t, err)

	remote, err := m.ToWire(&store.Note{SyncID: "n1", Body: "server body", ModifiedTimestamp: 200}, key)
	require.NoError(t, err)
	require.NoError(t, s.Add(stored, remote, ""))

	require.NoError(t, s.Resolve("n1", KeepLocal, nil, notes, m, key))

	got, err := notes.FindBySyncID("n1")
	require.NoError(t, err)
	assert.Equal(t, "local body", got.Body)
	assert.Equal(t, store.StatusPendingUpload, got.SyncStatus)
	assert.Equal(t, 0, s.Count())
}

func TestResolveKeepServer(t *testing.T) {
	s, _ := newTestStore(t)
	notes := store.NewMemoryStore()
	m := mapper.New(nil)
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	key := crypto.DeriveKey("pw", salt)

	stored, err := notes.Upsert(localNote("n1", "local body", 100))
	require.NoError(t, err)

	remote, err := m.ToWire(&store.Note{SyncID: "n1", Body: "server body", ModifiedTimestamp: 200}, key)
	require.NoError(t, err)
	require.NoError(t, s.Add(stored, remote, ""))

	require.NoError(t, s.Resolve("n1", KeepServer, nil, notes, m, key))

	got, err := notes.FindBySyncID("n1")
	require.NoError(t, err)
	assert.Equal(t, "server body", got.Body)
	assert.Equal(t, store.StatusSynced, got.SyncStatus)
	assert.Equal(t, 0, s.Count())
}

func TestResolveUnknownConflict(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Resolve("missing", KeepLocal, nil, store.NewMemoryStore(), mapper.New(nil), nil)
	assert.ErrorIs(t, err, ErrConflictNotFound)
}

func TestDiffSummary(t *testing.T) {
	sum := DiffSummary("milk and eggs", "milk and bread")
	assert.Contains(t, sum, "milk and ")
}

func TestProposeMerge(t *testing.T) {
	s, _ := newTestStore(t)
	notes := store.NewMemoryStore()
	m := mapper.New(nil)
	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	key := crypto.DeriveKey("pw", salt)

	stored, err := notes.Upsert(localNote("n1", "groceries: milk", 100))
	require.NoError(t, err)

	remote, err := m.ToWire(&store.Note{SyncID: "n1", Body: "groceries: bread", ModifiedTimestamp: 200}, key)
	require.NoError(t, err)
	require.NoError(t, s.Add(stored, remote, ""))

	rec, err := s.Get("n1")
	require.NoError(t, err)

	body, ok := rec.ProposeMerge(m, key)
	require.True(t, ok)
	assert.Contains(t, body, "milk")
	assert.Contains(t, body, "bread")

	// 密钥不对时拿不到服务端明文,给不出草稿
	wrongSalt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	_, ok = rec.ProposeMerge(m, crypto.DeriveKey("other", wrongSalt))
	assert.False(t, ok)
}
