package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
	"github.com/laatu08/Offline-Note-App/internal/reconcile"
)

// NoteRepo implements NoteRepository using PostgreSQL.
type NoteRepo struct{ db *DB }

// NewNoteRepo constructs a note repository.
func NewNoteRepo(db *DB) *NoteRepo { return &NoteRepo{db: db} }

const (
	selForUpdate = `
SELECT id, user_id, title, content, created_at, updated_at, version, deleted
FROM notes WHERE id=$1 AND user_id=$2 FOR UPDATE`
	insNote = `
INSERT INTO notes (id, user_id, title, content, created_at, updated_at, version, deleted)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	updNote = `UPDATE notes SET title=$3, content=$4, updated_at=$5, version=$6 WHERE id=$1 AND user_id=$2`
	delNote = `UPDATE notes SET deleted=true, version=$3, updated_at=$4 WHERE id=$1 AND user_id=$2`
)

func scanNote(row pgx.Row) (model.Note, error) {
	var n model.Note
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt, &n.Version, &n.Deleted)
	return n, err
}

// inTx runs fn inside a transaction, committing on success.
func (r *NoteRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(tx)
}

// lockNote selects the row for update; nil when absent.
func lockNote(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*model.Note, error) {
	n, err := scanNote(tx.QueryRow(ctx, selForUpdate, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListSince returns live notes changed strictly after since, newest first.
func (r *NoteRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Note, error) {
	const q = `
SELECT id, user_id, title, content, created_at, updated_at, version, deleted
FROM notes
WHERE user_id=$1 AND updated_at>$2 AND deleted=false
ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Get returns a single note by id.
func (r *NoteRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error) {
	const q = `
SELECT id, user_id, title, content, created_at, updated_at, version, deleted
FROM notes WHERE user_id=$1 AND id=$2`
	n, err := scanNote(r.db.Pool.QueryRow(ctx, q, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Create inserts a new note row.
func (r *NoteRepo) Create(ctx context.Context, n model.Note) error {
	_, err := r.db.Pool.Exec(ctx, insNote,
		n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt, n.Version, n.Deleted)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update applies a patch to an existing note without arbitrating versions.
func (r *NoteRepo) Update(
	ctx context.Context, userID, id uuid.UUID, patch model.NotePatch,
) (out model.Note, err error) {
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		cur, err := lockNote(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errs.ErrNotFound
		}
		out = patch.Apply(*cur)
		_, err = tx.Exec(ctx, updNote, id, userID, out.Title, out.Content, out.UpdatedAt, out.Version)
		return err
	})
	if err != nil {
		return model.Note{}, err
	}
	return out, nil
}

// SoftDelete marks a note as deleted (tombstone) with a version increment.
func (r *NoteRepo) SoftDelete(
	ctx context.Context, userID, id uuid.UUID, at time.Time,
) (out model.Note, err error) {
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		cur, err := lockNote(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return errs.ErrNotFound
		}
		out = *cur
		if out.Deleted {
			return nil
		}
		out.Deleted = true
		out.Version++
		out.UpdatedAt = at
		_, err = tx.Exec(ctx, delNote, id, userID, out.Version, out.UpdatedAt)
		return err
	})
	if err != nil {
		return model.Note{}, err
	}
	return out, nil
}

// Reconcile merges one client record with the locked authoritative row.
// FOR UPDATE locks nothing while the row does not exist, so a concurrent
// first push of the same id can win the insert; the merge is then redone
// against the row it committed.
func (r *NoteRepo) Reconcile(
	ctx context.Context, userID uuid.UUID, client model.Note,
) (reconcile.Outcome, error) {
	out, err := r.reconcileOnce(ctx, userID, client)
	if isUniqueViolation(err) {
		out, err = r.reconcileOnce(ctx, userID, client)
	}
	if err != nil {
		return reconcile.Outcome{}, fmt.Errorf("note %s: %w", client.ID, err)
	}
	return out, nil
}

func (r *NoteRepo) reconcileOnce(
	ctx context.Context, userID uuid.UUID, client model.Note,
) (out reconcile.Outcome, err error) {
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		cur, err := lockNote(ctx, tx, userID, client.ID)
		if err != nil {
			return err
		}
		out = reconcile.Apply(userID, cur, client)
		n := out.Note
		switch out.Action {
		case reconcile.Insert:
			_, err = tx.Exec(ctx, insNote,
				n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt, n.Version, n.Deleted)
		case reconcile.Overwrite:
			_, err = tx.Exec(ctx, updNote, n.ID, userID, n.Title, n.Content, n.UpdatedAt, n.Version)
		}
		return err
	})
	return out, err
}
