package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpsertAssignsLocalID(t *testing.T) {
	s := NewMemoryStore()

	n, err := s.Upsert(&Note{SyncID: "n1", Title: "a", SyncStatus: StatusPendingUpload})
	require.NoError(t, err)
	assert.Positive(t, n.LocalID)

	// 同一 SyncID 更新复用本地行
	n2, err := s.Upsert(&Note{SyncID: "n1", Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, n.LocalID, n2.LocalID)
	assert.Equal(t, 1, s.Count())
}

func TestMemoryStorePendingQueries(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Upsert(&Note{SyncID: "up", SyncStatus: StatusPendingUpload})
	require.NoError(t, err)
	_, err = s.Upsert(&Note{SyncID: "del", SyncStatus: StatusPendingDelete})
	require.NoError(t, err)
	_, err = s.Upsert(&Note{SyncID: "ok", SyncStatus: StatusSynced})
	require.NoError(t, err)

	uploads, err := s.NotesNeedingUpload()
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "up", uploads[0].SyncID)

	deletions, err := s.NotesNeedingDeletion()
	require.NoError(t, err)
	require.Len(t, deletions, 1)
	assert.Equal(t, "del", deletions[0].SyncID)
}

func TestMemoryStoreUpdateSyncStatus(t *testing.T) {
	s := NewMemoryStore()

	n, err := s.Upsert(&Note{SyncID: "n1", SyncStatus: StatusPendingUpload})
	require.NoError(t, err)

	require.NoError(t, s.UpdateSyncStatus(n.LocalID, StatusSynced, 500))
	got, err := s.Get(n.LocalID)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, got.SyncStatus)
	assert.Equal(t, int64(500), got.LastSyncedTimestamp)

	assert.ErrorIs(t, s.UpdateSyncStatus(999, StatusSynced, 0), ErrNoteNotFound)
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	s := NewMemoryStore()

	n, err := s.Upsert(&Note{SyncID: "n1", Labels: []string{"a"}})
	require.NoError(t, err)

	// 修改返回值不影响存储内的副本
	n.Labels[0] = "mutated"
	got, err := s.FindBySyncID("n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Labels)
}
