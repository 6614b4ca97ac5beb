package service

import (
	"context"
	"testing"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSyncFixture() (*fakeNoteRepo, *fakeShareRepo, *recordingNotifier, SyncService) {
	noteRepo := newFakeNoteRepo()
	shareRepo := newFakeShareRepo()
	notifier := &recordingNotifier{}
	svc := NewSyncService(noteRepo, shareRepo, notifier, zap.NewNop())
	return noteRepo, shareRepo, notifier, svc
}

func TestSyncNotesInsertsUnknownNote(t *testing.T) {
	ctx := context.Background()
	noteRepo, _, notifier, svc := newSyncFixture()

	resp, err := svc.SyncNotes(ctx, "alice", 0, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "n1",
			Title:                 "t",
			Content:               "cipher-a",
			EncryptionIV:          "iv-a",
			LastModifiedTimestamp: 100,
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Conflicts)

	stored, err := noteRepo.GetBySyncID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.OwnerUserID)
	assert.Equal(t, "cipher-a", stored.Content)
	assert.NotZero(t, stored.LastSyncedTimestamp)

	events := notifier.eventsFor("n1")
	require.Len(t, events, 1)
	assert.Equal(t, dto.NoteUpdated, events[0].updateType)
}

func TestSyncNotesConflictDeterminism(t *testing.T) {
	ctx := context.Background()
	noteRepo, _, _, svc := newSyncFixture()

	// 服务端副本在基线 T=100 之后（T=150）被其他设备修改
	baseline := int64(100)
	_, err := noteRepo.Create(ctx, &domain.Note{
		SyncID:                "n1",
		OwnerUserID:           "alice",
		Content:               "cipher-server",
		EncryptionIV:          "iv-s",
		LastModifiedTimestamp: 150,
	})
	require.NoError(t, err)

	// 内容相同：只推进时间戳，不算冲突
	resp, err := svc.SyncNotes(ctx, "alice", baseline, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "n1",
			Content:               "cipher-server",
			LastModifiedTimestamp: 160,
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Conflicts)

	// 内容不同：冲突，服务端副本保持不变
	_, err = noteRepo.Create(ctx, &domain.Note{
		SyncID:                "n2",
		OwnerUserID:           "alice",
		Content:               "cipher-server-2",
		LastModifiedTimestamp: 150,
	})
	require.NoError(t, err)

	resp, err = svc.SyncNotes(ctx, "alice", baseline, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "n2",
			Content:               "cipher-client-2",
			LastModifiedTimestamp: 170,
		}},
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "n2", resp.Conflicts[0].SyncID)
	assert.Equal(t, "cipher-client-2", resp.Conflicts[0].LocalNote.Content)
	assert.Equal(t, "cipher-server-2", resp.Conflicts[0].RemoteNote.Content)

	stored, err := noteRepo.GetBySyncID(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, "cipher-server-2", stored.Content, "conflicting note must not be overwritten")
}

func TestSyncNotesNoConflictWhenServerUnchanged(t *testing.T) {
	ctx := context.Background()
	noteRepo, _, _, svc := newSyncFixture()

	_, err := noteRepo.Create(ctx, &domain.Note{
		SyncID:                "n1",
		OwnerUserID:           "alice",
		Content:               "cipher-old",
		LastModifiedTimestamp: 90,
	})
	require.NoError(t, err)

	resp, err := svc.SyncNotes(ctx, "alice", 100, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "n1",
			Content:               "cipher-new",
			LastModifiedTimestamp: 200,
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, err := noteRepo.GetBySyncID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "cipher-new", stored.Content)
}

func TestSyncNotesAuthorizationCollected(t *testing.T) {
	ctx := context.Background()
	noteRepo, shareRepo, _, svc := newSyncFixture()

	_, err := noteRepo.Create(ctx, &domain.Note{
		SyncID:                "owned-by-alice",
		OwnerUserID:           "alice",
		Content:               "cipher",
		LastModifiedTimestamp: 50,
	})
	require.NoError(t, err)

	// READ_ONLY 共享用户尝试写入
	require.NoError(t, shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID:      "owned-by-alice",
		UserID:      "bob",
		AccessLevel: domain.AccessReadOnly,
	}))

	resp, err := svc.SyncNotes(ctx, "bob", 100, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{
			{SyncID: "owned-by-alice", Content: "hijack", LastModifiedTimestamp: 200},
			{SyncID: "bobs-own", Content: "cipher-b", LastModifiedTimestamp: 200},
		},
	})
	require.NoError(t, err)

	// 批次继续：bob 自己的笔记写入成功，越权的那条被拒并记录
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "owned-by-alice")

	stored, err := noteRepo.GetBySyncID(ctx, "owned-by-alice")
	require.NoError(t, err)
	assert.Equal(t, "cipher", stored.Content)

	_, err = noteRepo.GetBySyncID(ctx, "bobs-own")
	require.NoError(t, err)
}

func TestSyncNotesReadWriteSharedUserMayWrite(t *testing.T) {
	ctx := context.Background()
	noteRepo, shareRepo, _, svc := newSyncFixture()

	_, err := noteRepo.Create(ctx, &domain.Note{
		SyncID:                "shared-note",
		OwnerUserID:           "alice",
		Content:               "cipher",
		LastModifiedTimestamp: 50,
	})
	require.NoError(t, err)

	require.NoError(t, shareRepo.GrantAccess(ctx, &domain.SharedAccess{
		NoteID:      "shared-note",
		UserID:      "bob",
		AccessLevel: domain.AccessReadWrite,
	}))

	resp, err := svc.SyncNotes(ctx, "bob", 100, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "shared-note",
			Content:               "cipher-by-bob",
			LastModifiedTimestamp: 200,
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	stored, err := noteRepo.GetBySyncID(ctx, "shared-note")
	require.NoError(t, err)
	assert.Equal(t, "cipher-by-bob", stored.Content)
}

func TestSyncNotesDeletionOwnerOnly(t *testing.T) {
	ctx := context.Background()
	noteRepo, _, notifier, svc := newSyncFixture()

	_, err := noteRepo.Create(ctx, &domain.Note{
		SyncID:                "n1",
		OwnerUserID:           "alice",
		LastModifiedTimestamp: 50,
	})
	require.NoError(t, err)

	// 非 owner 删除被拒
	resp, err := svc.SyncNotes(ctx, "bob", 100, &dto.SyncRequest{
		DeletedNoteIDs: []string{"n1"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.DeletedNoteIDs)

	// owner 删除成功并收到确认
	resp, err = svc.SyncNotes(ctx, "alice", 100, &dto.SyncRequest{
		DeletedNoteIDs: []string{"n1"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"n1"}, resp.DeletedNoteIDs)

	events := notifier.eventsFor("n1")
	require.Len(t, events, 1)
	assert.Equal(t, dto.NoteDeleted, events[0].updateType)

	// 重复删除幂等：已不存在仍然确认
	resp, err = svc.SyncNotes(ctx, "alice", 100, &dto.SyncRequest{
		DeletedNoteIDs: []string{"n1"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"n1"}, resp.DeletedNoteIDs)
}

func TestSyncNotesIdempotentResync(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newSyncFixture()

	req := &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "n1",
			Content:               "cipher",
			LastModifiedTimestamp: 100,
		}},
	}

	resp1, err := svc.SyncNotes(ctx, "alice", 0, req)
	require.NoError(t, err)
	require.True(t, resp1.Success)

	// 同一批次重放：内容一致不产生冲突
	resp2, err := svc.SyncNotes(ctx, "alice", resp1.NewSyncTimestamp, req)
	require.NoError(t, err)
	assert.True(t, resp2.Success)
	assert.Empty(t, resp2.Conflicts)
}

func TestSyncNotesReturnsServerChanges(t *testing.T) {
	ctx := context.Background()
	noteRepo, _, _, svc := newSyncFixture()

	_, err := noteRepo.Create(ctx, &domain.Note{
		SyncID:                "from-other-device",
		OwnerUserID:           "alice",
		Content:               "cipher-x",
		LastModifiedTimestamp: 150,
	})
	require.NoError(t, err)

	resp, err := svc.SyncNotes(ctx, "alice", 100, &dto.SyncRequest{
		ChangedNotes: []dto.NoteDto{{
			SyncID:                "pushed-now",
			Content:               "cipher-y",
			LastModifiedTimestamp: 160,
		}},
	})
	require.NoError(t, err)

	// 其他设备的变更回传，本次刚推送的不回流
	ids := make([]string, 0, len(resp.UpdatedNotes))
	for _, n := range resp.UpdatedNotes {
		ids = append(ids, n.SyncID)
	}
	assert.Contains(t, ids, "from-other-device")
	assert.NotContains(t, ids, "pushed-now")
}
