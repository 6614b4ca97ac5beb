package dao

import (
	"context"
	"testing"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNoteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(newTestDao(t))

	note := &domain.Note{
		SyncID:                "n1",
		OwnerUserID:           "alice",
		Title:                 "t",
		Content:               "cipher",
		EncryptionIV:          "iv",
		Type:                  domain.NoteTypeList,
		IsPinned:              true,
		Labels:                []string{"work", "todo"},
		CreatedTimestamp:      100,
		LastModifiedTimestamp: 200,
		LastSyncedTimestamp:   200,
	}
	_, err := repo.Create(ctx, note)
	require.NoError(t, err)

	got, err := repo.GetBySyncID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, note.Content, got.Content)
	assert.Equal(t, domain.NoteTypeList, got.Type)
	assert.Equal(t, []string{"work", "todo"}, got.Labels)
	assert.True(t, got.IsPinned)

	// 布尔字段清零也要持久化
	got.IsPinned = false
	got.Labels = nil
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.GetBySyncID(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, got.IsPinned)
	assert.Empty(t, got.Labels)

	require.NoError(t, repo.Delete(ctx, "n1"))
	_, err = repo.GetBySyncID(ctx, "n1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListChangedSinceIncludesSharedNotes(t *testing.T) {
	ctx := context.Background()
	d := newTestDao(t)
	noteRepo := NewNoteRepository(d)
	shareRepo := NewShareRepository(d)

	seed := []*domain.Note{
		{SyncID: "own-old", OwnerUserID: "bob", LastModifiedTimestamp: 50},
		{SyncID: "own-new", OwnerUserID: "bob", LastModifiedTimestamp: 150},
		{SyncID: "alien", OwnerUserID: "alice", LastModifiedTimestamp: 150},
		{SyncID: "shared", OwnerUserID: "alice", LastModifiedTimestamp: 160, IsShared: true},
	}
	for _, n := range seed {
		_, err := noteRepo.Create(ctx, n)
		require.NoError(t, err)
	}
	require.NoError(t, shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID:      "shared",
		UserID:      "bob",
		AccessLevel: domain.AccessReadOnly,
	}))

	notes, err := noteRepo.ListChangedSince(ctx, "bob", 100)
	require.NoError(t, err)

	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.SyncID)
	}
	assert.ElementsMatch(t, []string{"own-new", "shared"}, ids)

	// 时间戳升序
	for i := 1; i < len(notes); i++ {
		assert.LessOrEqual(t, notes[i-1].LastModifiedTimestamp, notes[i].LastModifiedTimestamp)
	}

	all, err := noteRepo.ListVisible(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
