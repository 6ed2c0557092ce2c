package store

import (
	"context"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

// Memory is a non-durable Store for tests and throwaway sessions.
type Memory struct {
	mu    sync.RWMutex
	notes map[uuid.UUID]model.Note
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{notes: make(map[uuid.UUID]model.Note)} }

func (m *Memory) GetAll(context.Context) ([]model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Note, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n)
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notes[id]
	if !ok {
		return model.Note{}, errs.ErrNotFound
	}
	return n, nil
}

func (m *Memory) Put(_ context.Context, n model.Note) error {
	if n.ID == uuid.Nil {
		return errs.ErrValidation
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[n.ID] = n
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notes, id)
	return nil
}

func (m *Memory) GetByStatus(_ context.Context, s model.SyncStatus) ([]model.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Note
	for _, n := range m.notes {
		if n.SyncStatus == s {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = make(map[uuid.UUID]model.Note)
	return nil
}
