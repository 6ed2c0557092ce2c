// Package memory provides an in-process NoteRepository for development mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
	"github.com/laatu08/Offline-Note-App/internal/reconcile"
)

type key struct{ user, id uuid.UUID }

// NoteRepo keeps notes in a map guarded by a mutex. Every method holds the
// lock for its whole duration, which gives each record the same isolation
// the SQL backend gets from SELECT ... FOR UPDATE.
type NoteRepo struct {
	mu    sync.Mutex
	notes map[key]model.Note
}

// NewNoteRepo returns an empty repository.
func NewNoteRepo() *NoteRepo {
	return &NoteRepo{notes: make(map[key]model.Note)}
}

func (r *NoteRepo) ListSince(_ context.Context, userID uuid.UUID, since time.Time) ([]model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.Note{}
	for k, n := range r.notes {
		if k.user != userID || n.Deleted || !n.UpdatedAt.After(since) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *NoteRepo) Get(_ context.Context, userID, id uuid.UUID) (*model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notes[key{userID, id}]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &n, nil
}

func (r *NoteRepo) Create(_ context.Context, n model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{n.UserID, n.ID}
	if _, ok := r.notes[k]; ok {
		return errs.ErrAlreadyExists
	}
	r.notes[k] = n
	return nil
}

func (r *NoteRepo) Update(_ context.Context, userID, id uuid.UUID, patch model.NotePatch) (model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{userID, id}
	cur, ok := r.notes[k]
	if !ok {
		return model.Note{}, errs.ErrNotFound
	}
	out := patch.Apply(cur)
	r.notes[k] = out
	return out, nil
}

func (r *NoteRepo) SoftDelete(_ context.Context, userID, id uuid.UUID, at time.Time) (model.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{userID, id}
	cur, ok := r.notes[k]
	if !ok {
		return model.Note{}, errs.ErrNotFound
	}
	if cur.Deleted {
		return cur, nil
	}
	cur.Deleted = true
	cur.Version++
	cur.UpdatedAt = at
	r.notes[k] = cur
	return cur, nil
}

func (r *NoteRepo) Reconcile(_ context.Context, userID uuid.UUID, client model.Note) (reconcile.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{userID, client.ID}
	var server *model.Note
	if cur, ok := r.notes[k]; ok {
		server = &cur
	}
	out := reconcile.Apply(userID, server, client)
	if out.Action != reconcile.Reject {
		r.notes[k] = out.Note
	}
	return out, nil
}
