// Package editor implements note lifecycle operations on the local replica
// and debounced auto-save for the note being edited.
package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/laatu08/Offline-Note-App/internal/client/store"
	"github.com/laatu08/Offline-Note-App/internal/client/syncer"
	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

// DefaultDebounce is how long edits must quiesce before they are saved.
const DefaultDebounce = time.Second

// Syncer is the part of the orchestrator the editor drives.
type Syncer interface {
	RunOnce(ctx context.Context, cred string) (syncer.Outcome, error)
	MarkDeletedLocally(id uuid.UUID)
}

// Options tune an Editor; zero values pick defaults.
type Options struct {
	Debounce time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

type draft struct {
	seq     uint64
	timer   *time.Timer
	title   string
	content string
}

// Editor owns local writes for one signed-in user.
type Editor struct {
	local  store.Updater
	sync   Syncer
	cred   string
	user   uuid.UUID
	delay  time.Duration
	log    *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
	seq    uint64
	drafts map[uuid.UUID]*draft
	fires  sync.WaitGroup
}

func New(local store.Updater, s Syncer, cred string, user uuid.UUID, opts Options) *Editor {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Editor{
		local:  local,
		sync:   s,
		cred:   cred,
		user:   user,
		delay:  opts.Debounce,
		log:    opts.Log,
		now:    opts.Now,
		drafts: make(map[uuid.UUID]*draft),
	}
}

// Create stores a new pending note at version 1.
func (e *Editor) Create(ctx context.Context, title, content string) (model.Note, error) {
	if title == "" {
		title = model.DefaultTitle
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Note{}, err
	}
	now := e.now().UTC()
	n := model.Note{
		ID:         id,
		UserID:     e.user,
		Title:      title,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
		SyncStatus: model.StatusPending,
	}
	if err := e.local.Put(ctx, n); err != nil {
		return model.Note{}, err
	}
	return n, nil
}

// Save writes title and content as a new local version. It reports false,
// and bumps nothing, when neither changed.
func (e *Editor) Save(ctx context.Context, id uuid.UUID, title, content string) (model.Note, bool, error) {
	if title == "" {
		title = model.DefaultTitle
	}
	var (
		out     model.Note
		changed bool
	)
	err := e.local.Update(ctx, id, func(cur model.Note, ok bool) (model.Note, bool, error) {
		if !ok {
			return cur, false, fmt.Errorf("save %s: %w", id, errs.ErrNotFound)
		}
		next := cur
		next.Title, next.Content = title, content
		if next.ContentHash() == cur.ContentHash() {
			out = cur
			return cur, false, nil
		}
		next.Version++
		next.SyncStatus = model.StatusPending
		next.UpdatedAt = e.now().UTC()
		out, changed = next, true
		return next, true, nil
	})
	return out, changed, err
}

// Edit records a keystroke-level change. The save and the following sync
// round happen once edits to the note have been quiet for the debounce
// window; each new edit restarts the window.
func (e *Editor) Edit(id uuid.UUID, title, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d, ok := e.drafts[id]; ok && d.timer.Stop() {
		e.fires.Done()
	}
	e.seq++
	seq := e.seq
	e.fires.Add(1)
	e.drafts[id] = &draft{
		seq:     seq,
		title:   title,
		content: content,
		timer:   time.AfterFunc(e.delay, func() { e.fire(id, seq) }),
	}
}

func (e *Editor) fire(id uuid.UUID, seq uint64) {
	defer e.fires.Done()

	e.mu.Lock()
	d, ok := e.drafts[id]
	if !ok || d.seq != seq {
		e.mu.Unlock()
		return
	}
	delete(e.drafts, id)
	e.mu.Unlock()

	ctx := context.Background()
	_, changed, err := e.Save(ctx, id, d.title, d.content)
	if err != nil {
		e.log.Warn("auto-save failed", zap.String("note", id.String()), zap.Error(err))
		return
	}
	if changed {
		e.kick(ctx)
	}
}

// Flush saves every outstanding draft now and runs one round if anything
// changed.
func (e *Editor) Flush(ctx context.Context) error {
	e.mu.Lock()
	drafts := make(map[uuid.UUID]*draft, len(e.drafts))
	for id, d := range e.drafts {
		if d.timer.Stop() {
			e.fires.Done()
		}
		drafts[id] = d
	}
	e.drafts = make(map[uuid.UUID]*draft)
	e.mu.Unlock()

	e.fires.Wait()

	saved := false
	for id, d := range drafts {
		_, changed, err := e.Save(ctx, id, d.title, d.content)
		if err != nil {
			return err
		}
		saved = saved || changed
	}
	if saved {
		e.kick(ctx)
	}
	return nil
}

// Delete removes the note locally, guards it against being pulled back and
// runs a round to carry the tombstone to the server.
func (e *Editor) Delete(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	if d, ok := e.drafts[id]; ok {
		if d.timer.Stop() {
			e.fires.Done()
		}
		delete(e.drafts, id)
	}
	e.mu.Unlock()

	if _, err := e.local.Get(ctx, id); err != nil {
		return err
	}
	// guard first: a round in flight must not re-insert the note
	e.sync.MarkDeletedLocally(id)
	if err := e.local.Delete(ctx, id); err != nil {
		return err
	}
	e.kick(ctx)
	return nil
}

// KeepServer resolves a conflict by adopting the server's copy. A server
// tombstone removes the local copy.
func (e *Editor) KeepServer(ctx context.Context, srv model.Note) error {
	if srv.Deleted {
		return e.local.Delete(ctx, srv.ID)
	}
	return e.local.Update(ctx, srv.ID, func(cur model.Note, ok bool) (model.Note, bool, error) {
		if ok && cur.Version > srv.Version {
			return cur, false, fmt.Errorf("%w: local v%d is newer than server v%d", errs.ErrValidation, cur.Version, srv.Version)
		}
		srv.SyncStatus = model.StatusSynced
		srv.LastSyncedAt = e.now().UTC()
		return srv, true, nil
	})
}

// KeepLocal resolves a conflict in favor of the local copy by moving it past
// the server's version, then pushes it. A server tombstone cannot be
// outvoted: any push of that id comes back deleted.
func (e *Editor) KeepLocal(ctx context.Context, srv model.Note) error {
	if srv.Deleted {
		return fmt.Errorf("%w: note %s was deleted on the server", errs.ErrValidation, srv.ID)
	}
	err := e.local.Update(ctx, srv.ID, func(cur model.Note, ok bool) (model.Note, bool, error) {
		if !ok {
			return cur, false, fmt.Errorf("keep local %s: %w", srv.ID, errs.ErrNotFound)
		}
		cur.Version = max(cur.Version, srv.Version) + 1
		cur.SyncStatus = model.StatusPending
		cur.UpdatedAt = e.now().UTC()
		return cur, true, nil
	})
	if err != nil {
		return err
	}
	e.kick(ctx)
	return nil
}

// List returns all local notes, newest first.
func (e *Editor) List(ctx context.Context) ([]model.Note, error) {
	ns, err := e.local.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	model.SortForDisplay(ns)
	return ns, nil
}

func (e *Editor) Get(ctx context.Context, id uuid.UUID) (model.Note, error) {
	return e.local.Get(ctx, id)
}

// kick runs a round; failures surface through orchestrator events.
func (e *Editor) kick(ctx context.Context) {
	if _, err := e.sync.RunOnce(ctx, e.cred); err != nil {
		e.log.Debug("sync after write failed", zap.Error(err))
	}
}
