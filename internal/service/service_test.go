package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sleepyyui/notallyxo-sync-service/internal/domain"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"

	"gorm.io/gorm"
)

// fakeNoteRepo 内存版 NoteRepository
type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[string]*domain.Note
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*domain.Note)}
}

func (r *fakeNoteRepo) clone(n *domain.Note) *domain.Note {
	c := *n
	c.Labels = append([]string(nil), n.Labels...)
	return &c
}

func (r *fakeNoteRepo) GetBySyncID(ctx context.Context, syncID string) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[syncID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.clone(n), nil
}

func (r *fakeNoteRepo) Create(ctx context.Context, note *domain.Note) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[note.SyncID] = r.clone(note)
	return r.clone(note), nil
}

func (r *fakeNoteRepo) Update(ctx context.Context, note *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[note.SyncID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.notes[note.SyncID] = r.clone(note)
	return nil
}

func (r *fakeNoteRepo) Delete(ctx context.Context, syncID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notes, syncID)
	return nil
}

func (r *fakeNoteRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Note
	for _, n := range r.notes {
		if n.OwnerUserID == ownerUserID {
			out = append(out, r.clone(n))
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) ListChangedSince(ctx context.Context, userID string, since int64) ([]*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Note
	for _, n := range r.notes {
		if n.LastModifiedTimestamp <= since {
			continue
		}
		if n.OwnerUserID == userID {
			out = append(out, r.clone(n))
		}
	}
	return out, nil
}

func (r *fakeNoteRepo) ListChangedSincePaged(ctx context.Context, userID string, since int64, limit, offset int) ([]*domain.Note, int64, error) {
	all, err := r.ListChangedSince(ctx, userID, since)
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastModifiedTimestamp != all[j].LastModifiedTimestamp {
			return all[i].LastModifiedTimestamp < all[j].LastModifiedTimestamp
		}
		return all[i].SyncID < all[j].SyncID
	})
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeNoteRepo) ListVisible(ctx context.Context, userID string) ([]*domain.Note, error) {
	return r.ListChangedSince(ctx, userID, -1)
}

// fakeUserRepo 内存版 UserRepository
type fakeUserRepo struct {
	mu      sync.Mutex
	nextUID int64
	users   map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) GetByUID(ctx context.Context, uid int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UID == uid {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextUID++
	user.UID = r.nextUID
	c := *user
	r.users[user.UserID] = &c
	return user, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *user
	r.users[user.UserID] = &c
	return nil
}

// fakeShareRepo 内存版 ShareRepository
type fakeShareRepo struct {
	mu       sync.Mutex
	nextID   int64
	accesses []*domain.SharedAccess
	tokens   map[string]*domain.SharingToken
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{tokens: make(map[string]*domain.SharingToken)}
}

func (r *fakeShareRepo) GetAccess(ctx context.Context, noteID, userID string) (*domain.SharedAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accesses {
		if a.NoteID == noteID && a.UserID == userID {
			c := *a
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeShareRepo) ListAccessByNote(ctx context.Context, noteID string) ([]*domain.SharedAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SharedAccess
	for _, a := range r.accesses {
		if a.NoteID == noteID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeShareRepo) ListAccessByUser(ctx context.Context, userID string) ([]*domain.SharedAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SharedAccess
	for _, a := range r.accesses {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeShareRepo) GrantAccess(ctx context.Context, access *domain.SharedAccess) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	access.ID = r.nextID
	c := *access
	r.accesses = append(r.accesses, &c)
	return nil
}

func (r *fakeShareRepo) RevokeAccess(ctx context.Context, noteID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.accesses[:0]
	for _, a := range r.accesses {
		if !(a.NoteID == noteID && a.UserID == userID) {
			out = append(out, a)
		}
	}
	r.accesses = out
	return nil
}

func (r *fakeShareRepo) RevokeAllByNote(ctx context.Context, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.accesses[:0]
	for _, a := range r.accesses {
		if a.NoteID != noteID {
			out = append(out, a)
		}
	}
	r.accesses = out
	return nil
}

func (r *fakeShareRepo) CreateToken(ctx context.Context, token *domain.SharingToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *token
	r.tokens[token.Token] = &c
	return nil
}

func (r *fakeShareRepo) GetToken(ctx context.Context, token string) (*domain.SharingToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeShareRepo) RedeemToken(ctx context.Context, token, userID string, grantedAt int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.IsUsed {
		return false, nil
	}
	t.IsUsed = true
	t.UsedByUserID = userID
	r.nextID++
	r.accesses = append(r.accesses, &domain.SharedAccess{
		ID:               r.nextID,
		NoteID:           t.NoteID,
		UserID:           userID,
		AccessLevel:      t.AccessLevel,
		GrantedTimestamp: grantedAt,
		UsedToken:        token,
	})
	return true, nil
}

func (r *fakeShareRepo) DeleteExpiredTokens(ctx context.Context, expiredBefore, usedBefore int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for k, t := range r.tokens {
		if (t.ExpirationTimestamp > 0 && t.ExpirationTimestamp < expiredBefore) ||
			(t.IsUsed && t.CreatedTimestamp < usedBefore) {
			delete(r.tokens, k)
			removed++
		}
	}
	return removed, nil
}

// recordingNotifier 记录推送调用
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifyEvent
}

type notifyEvent struct {
	userIDs    []string
	updateType dto.UpdateType
	syncID     string
}

func (n *recordingNotifier) NotifyNoteUpdate(userIDs []string, updateType dto.UpdateType, syncID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifyEvent{
		userIDs:    append([]string(nil), userIDs...),
		updateType: updateType,
		syncID:     syncID,
	})
}

func (n *recordingNotifier) eventsFor(syncID string) []notifyEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifyEvent
	for _, e := range n.events {
		if e.syncID == syncID {
			out = append(out, e)
		}
	}
	return out
}
