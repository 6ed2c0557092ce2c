// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/model"
	"github.com/laatu08/Offline-Note-App/internal/reconcile"
)

// NoteRepository provides versioned access to the authoritative note table.
// Every method is scoped to a single principal.
type NoteRepository interface {
	// ListSince returns non-tombstoned notes with UpdatedAt strictly after since,
	// newest first.
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Note, error)

	// Get returns a single note (tombstones included) or errs.ErrNotFound.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error)

	// Create inserts a new note; errs.ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, n model.Note) error

	// Update applies patch to an existing note; errs.ErrNotFound if absent.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.NotePatch) (model.Note, error)

	// SoftDelete sets the tombstone (version+1, UpdatedAt=at) once; repeated
	// calls return the existing tombstone. errs.ErrNotFound if absent.
	SoftDelete(ctx context.Context, userID, id uuid.UUID, at time.Time) (model.Note, error)

	// Reconcile merges one client record under a row lock and persists the result.
	Reconcile(ctx context.Context, userID uuid.UUID, client model.Note) (reconcile.Outcome, error)
}
