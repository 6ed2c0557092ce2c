package store

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

// UpdateFunc receives the current record (ok is false when absent) and
// returns the record to store. write=false leaves the store untouched.
type UpdateFunc func(cur model.Note, ok bool) (next model.Note, write bool, err error)

// Updater is a Store with an atomic read-modify-write.
type Updater interface {
	Store
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) error
}

// Serialized orders writes from the editor and the sync orchestrator so a
// read-modify-write by one never interleaves with a write by the other.
// The lock is held only around local storage calls.
type Serialized struct {
	Store
	mu sync.Mutex
}

var _ Updater = (*Serialized)(nil)

func NewSerialized(s Store) *Serialized { return &Serialized{Store: s} }

func (s *Serialized) Put(ctx context.Context, n model.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Put(ctx, n)
}

func (s *Serialized) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Delete(ctx, id)
}

func (s *Serialized) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Clear(ctx)
}

func (s *Serialized) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Store.Get(ctx, id)
	ok := err == nil
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	next, write, err := fn(cur, ok)
	if err != nil || !write {
		return err
	}
	return s.Store.Put(ctx, next)
}
