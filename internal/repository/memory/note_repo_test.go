package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
	"github.com/laatu08/Offline-Note-App/internal/reconcile"
	"github.com/laatu08/Offline-Note-App/internal/repository"
)

var _ repository.NoteRepository = (*NoteRepo)(nil)

func newNote(user uuid.UUID, ver int64, at int64) model.Note {
	return model.Note{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    user,
		Title:     "t",
		Content:   "c",
		CreatedAt: time.UnixMilli(at),
		UpdatedAt: time.UnixMilli(at),
		Version:   ver,
	}
}

func TestNoteRepo_CreateGetList(t *testing.T) {
	ctx := context.Background()
	r := NewNoteRepo()
	user := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())

	a := newNote(user, 1, 100)
	b := newNote(user, 1, 200)
	c := newNote(other, 1, 300)
	for _, n := range []model.Note{a, b, c} {
		require.NoError(t, r.Create(ctx, n))
	}
	require.ErrorIs(t, r.Create(ctx, a), errs.ErrAlreadyExists)

	got, err := r.Get(ctx, user, a.ID)
	require.NoError(t, err)
	require.Equal(t, a, *got)

	_, err = r.Get(ctx, other, a.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	list, err := r.ListSince(ctx, user, time.UnixMilli(0))
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, b.ID, list[0].ID, "newest first")

	list, err = r.ListSince(ctx, user, time.UnixMilli(100))
	require.NoError(t, err)
	require.Len(t, list, 1, "since is exclusive")
}

func TestNoteRepo_SoftDelete_Idempotent_HiddenFromList(t *testing.T) {
	ctx := context.Background()
	r := NewNoteRepo()
	user := uuid.Must(uuid.NewV4())
	n := newNote(user, 2, 100)
	require.NoError(t, r.Create(ctx, n))

	first, err := r.SoftDelete(ctx, user, n.ID, time.UnixMilli(500))
	require.NoError(t, err)
	require.True(t, first.Deleted)
	require.Equal(t, int64(3), first.Version)

	second, err := r.SoftDelete(ctx, user, n.ID, time.UnixMilli(900))
	require.NoError(t, err)
	require.Equal(t, first, second)

	list, err := r.ListSince(ctx, user, time.UnixMilli(0))
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = r.SoftDelete(ctx, user, uuid.Must(uuid.NewV4()), time.Now())
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestNoteRepo_Update(t *testing.T) {
	ctx := context.Background()
	r := NewNoteRepo()
	user := uuid.Must(uuid.NewV4())
	n := newNote(user, 4, 100)
	require.NoError(t, r.Create(ctx, n))

	content := "new"
	out, err := r.Update(ctx, user, n.ID, model.NotePatch{Content: &content})
	require.NoError(t, err)
	require.Equal(t, "new", out.Content)
	require.Equal(t, int64(4), out.Version)

	_, err = r.Update(ctx, user, uuid.Must(uuid.NewV4()), model.NotePatch{})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestNoteRepo_Reconcile_ConflictLeavesRecord(t *testing.T) {
	ctx := context.Background()
	r := NewNoteRepo()
	user := uuid.Must(uuid.NewV4())
	server := newNote(user, 5, 100)
	require.NoError(t, r.Create(ctx, server))

	client := server
	client.Version = 3
	client.Content = "stale"

	out, err := r.Reconcile(ctx, user, client)
	require.NoError(t, err)
	require.Equal(t, reconcile.Reject, out.Action)

	got, err := r.Get(ctx, user, server.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Version)
	require.Equal(t, "c", got.Content)
}

func TestNoteRepo_Reconcile_ConcurrentVersionsNeverRegress(t *testing.T) {
	ctx := context.Background()
	r := NewNoteRepo()
	user := uuid.Must(uuid.NewV4())
	base := newNote(user, 1, 100)

	var wg sync.WaitGroup
	for v := int64(1); v <= 20; v++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			c := base
			c.Version = v
			_, err := r.Reconcile(ctx, user, c)
			require.NoError(t, err)
		}(v)
	}
	wg.Wait()

	got, err := r.Get(ctx, user, base.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20), got.Version)
}
