package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNoteFixture() (*fakeNoteRepo, *fakeShareRepo, *recordingNotifier, NoteService) {
	noteRepo := newFakeNoteRepo()
	shareRepo := newFakeShareRepo()
	notifier := &recordingNotifier{}
	svc := NewNoteService(noteRepo, shareRepo, notifier, zap.NewNop())
	return noteRepo, shareRepo, notifier, svc
}

func TestNoteUpsertCreatesThenOverwrites(t *testing.T) {
	ctx := context.Background()
	_, _, notifier, svc := newNoteFixture()

	created, err := svc.Upsert(ctx, "alice", "n1", &dto.NoteUpsertRequest{
		Title:                 "t1",
		Content:               "cipher-1",
		EncryptionIV:          "iv-1",
		LastModifiedTimestamp: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.OwnerUserID)
	assert.Positive(t, created.LastSyncedTimestamp)

	updated, err := svc.Upsert(ctx, "alice", "n1", &dto.NoteUpsertRequest{
		Title:                 "t2",
		Content:               "cipher-2",
		EncryptionIV:          "iv-2",
		LastModifiedTimestamp: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "cipher-2", updated.Content)
	assert.Len(t, notifier.eventsFor("n1"), 2)
}

func TestNoteUpsertDeniedWithoutWriteAccess(t *testing.T) {
	ctx := context.Background()
	_, shareRepo, _, svc := newNoteFixture()

	_, err := svc.Upsert(ctx, "alice", "n1", &dto.NoteUpsertRequest{
		Content: "cipher-1", EncryptionIV: "iv-1", LastModifiedTimestamp: 100,
	})
	require.NoError(t, err)

	// 只读共享用户不能覆盖
	require.NoError(t, shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID: "n1", UserID: "bob", AccessLevel: domain.AccessReadOnly,
	}))
	_, err = svc.Upsert(ctx, "bob", "n1", &dto.NoteUpsertRequest{
		Content: "cipher-x", EncryptionIV: "iv-x", LastModifiedTimestamp: 200,
	})
	assert.ErrorIs(t, err, code.ErrorNoteAccessDenied)
}

func TestNoteDeleteOwnerOnly(t *testing.T) {
	ctx := context.Background()
	noteRepo, shareRepo, _, svc := newNoteFixture()

	_, err := svc.Upsert(ctx, "alice", "n1", &dto.NoteUpsertRequest{
		Content: "cipher-1", EncryptionIV: "iv-1", LastModifiedTimestamp: 100,
	})
	require.NoError(t, err)
	require.NoError(t, shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID: "n1", UserID: "bob", AccessLevel: domain.AccessReadWrite,
	}))

	assert.ErrorIs(t, svc.Delete(ctx, "bob", "n1"), code.ErrorNoteNotOwner)

	require.NoError(t, svc.Delete(ctx, "alice", "n1"))
	_, err = noteRepo.GetBySyncID(ctx, "n1")
	assert.Error(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "alice", "n1"), code.ErrorNoteNotFound)
}

func TestNoteGetSharedVisibility(t *testing.T) {
	ctx := context.Background()
	_, shareRepo, _, svc := newNoteFixture()

	_, err := svc.Upsert(ctx, "alice", "n1", &dto.NoteUpsertRequest{
		Content: "cipher-1", EncryptionIV: "iv-1", LastModifiedTimestamp: 100,
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bob", "n1")
	assert.ErrorIs(t, err, code.ErrorNoteAccessDenied)

	require.NoError(t, shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID: "n1", UserID: "bob", AccessLevel: domain.AccessReadOnly,
	}))

	got, err := svc.Get(ctx, "bob", "n1")
	require.NoError(t, err)
	assert.Equal(t, "cipher-1", got.Content)
	// 授权清单仅 owner 可见
	assert.Empty(t, got.SharedAccesses)

	asOwner, err := svc.Get(ctx, "alice", "n1")
	require.NoError(t, err)
	assert.Len(t, asOwner.SharedAccesses, 1)
}

func TestNoteListPaged(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newNoteFixture()

	for i := 1; i <= 5; i++ {
		_, err := svc.Upsert(ctx, "alice", fmt.Sprintf("n%d", i), &dto.NoteUpsertRequest{
			Content:               "cipher",
			EncryptionIV:          "iv",
			LastModifiedTimestamp: int64(i * 100),
		})
		require.NoError(t, err)
	}

	page1, total, err := svc.List(ctx, "alice", 0, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "n1", page1[0].SyncID)
	assert.Equal(t, "n2", page1[1].SyncID)

	page3, total, err := svc.List(ctx, "alice", 0, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page3, 1)
	assert.Equal(t, "n5", page3[0].SyncID)

	// since 过滤先于分页
	filtered, total, err := svc.List(ctx, "alice", 300, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, filtered, 2)
}
