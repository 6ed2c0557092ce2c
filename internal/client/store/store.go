// Package store is the client's local durable replica of notes.
package store

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/model"
)

// Store is a key-value table of notes keyed by id with a secondary lookup by
// sync status. It makes no merge decisions: Put is a plain upsert.
type Store interface {
	GetAll(ctx context.Context) ([]model.Note, error)
	// Get returns errs.ErrNotFound when the id is absent.
	Get(ctx context.Context, id uuid.UUID) (model.Note, error)
	Put(ctx context.Context, n model.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByStatus(ctx context.Context, s model.SyncStatus) ([]model.Note, error)
	Clear(ctx context.Context) error
}
