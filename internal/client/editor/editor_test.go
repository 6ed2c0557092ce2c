package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laatu08/Offline-Note-App/internal/client/netstate"
	"github.com/laatu08/Offline-Note-App/internal/client/store"
	"github.com/laatu08/Offline-Note-App/internal/client/syncer"
	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
	"github.com/laatu08/Offline-Note-App/internal/repository/memory"
	"github.com/laatu08/Offline-Note-App/internal/service"
)

type fakeSyncer struct {
	mu     sync.Mutex
	rounds int
	marked []uuid.UUID
}

func (f *fakeSyncer) RunOnce(context.Context, string) (syncer.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds++
	return syncer.Outcome{}, nil
}

func (f *fakeSyncer) MarkDeletedLocally(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
}

func (f *fakeSyncer) roundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rounds
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newEditor(t *testing.T, debounce time.Duration) (*Editor, *fakeSyncer, *store.Serialized) {
	t.Helper()
	local := store.NewSerialized(store.NewMemory())
	fs := &fakeSyncer{}
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	ed := New(local, fs, "tok", uuid.Must(uuid.NewV4()), Options{
		Debounce: debounce,
		Log:      zaptest.NewLogger(t),
		Now:      c.now,
	})
	return ed, fs, local
}

func TestEditor_CreateDefaults(t *testing.T) {
	ed, fs, _ := newEditor(t, 0)
	n, err := ed.Create(context.Background(), "", "<p>x</p>")
	require.NoError(t, err)
	require.Equal(t, model.DefaultTitle, n.Title)
	require.Equal(t, int64(1), n.Version)
	require.Equal(t, model.StatusPending, n.SyncStatus)
	require.Equal(t, ed.user, n.UserID)
	require.Equal(t, n.CreatedAt, n.UpdatedAt)
	require.Zero(t, fs.roundCount())

	got, err := ed.Get(context.Background(), n.ID)
	require.NoError(t, err)
	require.Equal(t, n, got)
}

func TestEditor_SaveBumpsVersionAndSkipsNoop(t *testing.T) {
	ctx := context.Background()
	ed, _, local := newEditor(t, 0)
	n, err := ed.Create(ctx, "a", "b")
	require.NoError(t, err)

	// pretend it was synced
	n.SyncStatus = model.StatusSynced
	require.NoError(t, local.Put(ctx, n))

	same, changed, err := ed.Save(ctx, n.ID, "a", "b")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, n, same)

	out, changed, err := ed.Save(ctx, n.ID, "a", "c")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, int64(2), out.Version)
	require.Equal(t, model.StatusPending, out.SyncStatus)
	require.True(t, out.UpdatedAt.After(n.UpdatedAt))

	_, _, err = ed.Save(ctx, uuid.Must(uuid.NewV4()), "a", "b")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEditor_EditDebouncesIntoOneSave(t *testing.T) {
	ctx := context.Background()
	ed, fs, _ := newEditor(t, 30*time.Millisecond)
	n, err := ed.Create(ctx, "t", "")
	require.NoError(t, err)

	for _, s := range []string{"h", "he", "hel", "hell", "hello"} {
		ed.Edit(n.ID, "t", s)
	}
	require.Eventually(t, func() bool { return fs.roundCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	got, err := ed.Get(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Content)
	require.Equal(t, int64(2), got.Version, "one save per quiet period")

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, fs.roundCount())
}

func TestEditor_FlushSavesPendingDrafts(t *testing.T) {
	ctx := context.Background()
	ed, fs, _ := newEditor(t, time.Hour)
	a, err := ed.Create(ctx, "a", "")
	require.NoError(t, err)
	b, err := ed.Create(ctx, "b", "")
	require.NoError(t, err)

	ed.Edit(a.ID, "a", "one")
	ed.Edit(b.ID, "b", "two")
	require.NoError(t, ed.Flush(ctx))
	require.Equal(t, 1, fs.roundCount())

	ga, _ := ed.Get(ctx, a.ID)
	gb, _ := ed.Get(ctx, b.ID)
	require.Equal(t, "one", ga.Content)
	require.Equal(t, "two", gb.Content)

	require.NoError(t, ed.Flush(ctx))
	require.Equal(t, 1, fs.roundCount(), "nothing left to flush")
}

func TestEditor_DeleteGuardsThenRemoves(t *testing.T) {
	ctx := context.Background()
	ed, fs, _ := newEditor(t, time.Hour)
	n, err := ed.Create(ctx, "t", "c")
	require.NoError(t, err)
	ed.Edit(n.ID, "t", "draft that must not be saved")

	require.NoError(t, ed.Delete(ctx, n.ID))
	require.Equal(t, []uuid.UUID{n.ID}, fs.marked)
	require.Equal(t, 1, fs.roundCount())
	_, err = ed.Get(ctx, n.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, ed.Flush(ctx))
	require.ErrorIs(t, ed.Delete(ctx, n.ID), errs.ErrNotFound)
}

func TestEditor_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	ed, _, _ := newEditor(t, 0)
	first, _ := ed.Create(ctx, "1", "")
	second, _ := ed.Create(ctx, "2", "")
	_, _, err := ed.Save(ctx, first.ID, "1", "touched")
	require.NoError(t, err)

	ns, err := ed.List(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	require.Equal(t, first.ID, ns[0].ID)
	require.Equal(t, second.ID, ns[1].ID)
}

// serviceRemote talks to the reconciliation service in-process.
type serviceRemote struct {
	svc  *service.NoteServiceImpl
	user uuid.UUID
}

func (r serviceRemote) List(ctx context.Context, _ string, since time.Time) ([]model.Note, error) {
	return r.svc.List(ctx, r.user, since)
}

func (r serviceRemote) BulkSync(ctx context.Context, _ string, ns []model.Note) (model.BulkSyncResult, error) {
	return r.svc.BulkSync(ctx, r.user, ns)
}

func (r serviceRemote) SoftDelete(ctx context.Context, _ string, id uuid.UUID) error {
	_, err := r.svc.SoftDelete(ctx, r.user, id)
	return err
}

func TestEditor_WithOrchestrator(t *testing.T) {
	ctx := context.Background()
	user := uuid.Must(uuid.NewV4())
	remote := serviceRemote{svc: service.NewNoteService(memory.NewNoteRepo(), 0, nil), user: user}
	local := store.NewSerialized(store.NewMemory())
	orch := syncer.New(local, remote, netstate.Static(true), syncer.Options{Log: zaptest.NewLogger(t)})
	ed := New(local, orch, "tok", user, Options{Debounce: 10 * time.Millisecond})

	n, err := ed.Create(ctx, "t", "c")
	require.NoError(t, err)
	ed.Edit(n.ID, "t", "typed")
	require.Eventually(t, func() bool {
		got, err := ed.Get(ctx, n.ID)
		return err == nil && got.SyncStatus == model.StatusSynced
	}, 2*time.Second, 5*time.Millisecond)

	live, err := remote.svc.List(ctx, user, time.Time{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, "typed", live[0].Content)
	require.Equal(t, int64(2), live[0].Version)

	require.NoError(t, ed.Delete(ctx, n.ID))
	live, err = remote.svc.List(ctx, user, time.Time{})
	require.NoError(t, err)
	require.Empty(t, live)

	_, err = orch.RunOnce(ctx, "tok")
	require.NoError(t, err)
	_, err = ed.Get(ctx, n.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEditor_ResolveConflicts(t *testing.T) {
	ctx := context.Background()
	ed, fs, local := newEditor(t, 0)
	n, err := ed.Create(ctx, "t", "mine")
	require.NoError(t, err)

	srv := n
	srv.Version, srv.Content, srv.SyncStatus = 4, "theirs", ""
	require.NoError(t, ed.KeepLocal(ctx, srv))
	got, _ := local.Get(ctx, n.ID)
	require.Equal(t, int64(5), got.Version)
	require.Equal(t, "mine", got.Content)
	require.Equal(t, model.StatusPending, got.SyncStatus)
	require.Equal(t, 1, fs.roundCount())

	require.ErrorIs(t, ed.KeepServer(ctx, srv), errs.ErrValidation)

	srv.Version = 7
	require.NoError(t, ed.KeepServer(ctx, srv))
	got, _ = local.Get(ctx, n.ID)
	require.Equal(t, int64(7), got.Version)
	require.Equal(t, "theirs", got.Content)
	require.Equal(t, model.StatusSynced, got.SyncStatus)
	require.False(t, got.LastSyncedAt.IsZero())

	missing := srv
	missing.ID = uuid.Must(uuid.NewV4())
	require.ErrorIs(t, ed.KeepLocal(ctx, missing), errs.ErrNotFound)
}

func TestEditor_ResolveAgainstServerTombstone(t *testing.T) {
	ctx := context.Background()
	ed, fs, local := newEditor(t, 0)
	n, err := ed.Create(ctx, "t", "mine")
	require.NoError(t, err)

	tomb := n
	tomb.Version, tomb.Deleted, tomb.SyncStatus = 3, true, ""
	require.ErrorIs(t, ed.KeepLocal(ctx, tomb), errs.ErrValidation)
	got, err := local.Get(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
	require.Equal(t, 0, fs.roundCount())

	require.NoError(t, ed.KeepServer(ctx, tomb))
	_, err = local.Get(ctx, n.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, ed.KeepServer(ctx, tomb))
}
