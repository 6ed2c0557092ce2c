package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid/v5"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/laatu08/Offline-Note-App/internal/convert"
	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	title          TEXT NOT NULL,
	content        TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	version        INTEGER NOT NULL,
	sync_status    TEXT NOT NULL,
	last_synced_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_notes_sync_status ON notes(sync_status);
CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at);`

const (
	cols   = `id, user_id, title, content, created_at, updated_at, version, sync_status, last_synced_at`
	upsert = `
INSERT INTO notes (` + cols + `) VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
	user_id=excluded.user_id, title=excluded.title, content=excluded.content,
	created_at=excluded.created_at, updated_at=excluded.updated_at, version=excluded.version,
	sync_status=excluded.sync_status, last_synced_at=excluded.last_synced_at`
)

// SQLite is the on-disk Store backed by an embedded SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// single writer; the orchestrator and editor share one handle
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

type scanner interface{ Scan(dest ...any) error }

func scanNote(row scanner) (model.Note, error) {
	var (
		n                    model.Note
		id, user, status     string
		created, updated, ls int64
	)
	if err := row.Scan(&id, &user, &n.Title, &n.Content, &created, &updated, &n.Version, &status, &ls); err != nil {
		return model.Note{}, err
	}
	var err error
	if n.ID, err = uuid.FromString(id); err != nil {
		return model.Note{}, fmt.Errorf("bad id %q: %w", id, err)
	}
	if n.UserID, err = uuid.FromString(user); err != nil {
		return model.Note{}, fmt.Errorf("bad user id %q: %w", user, err)
	}
	n.CreatedAt = convert.FromMillis(created)
	n.UpdatedAt = convert.FromMillis(updated)
	n.LastSyncedAt = convert.FromMillis(ls)
	n.SyncStatus = model.SyncStatus(status)
	return n, nil
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]model.Note, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) GetAll(ctx context.Context) ([]model.Note, error) {
	return s.query(ctx, `SELECT `+cols+` FROM notes`)
}

func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (model.Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, `SELECT `+cols+` FROM notes WHERE id=?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, errs.ErrNotFound
	}
	return n, err
}

func (s *SQLite) Put(ctx context.Context, n model.Note) error {
	if n.ID == uuid.Nil {
		return fmt.Errorf("%w: nil note id", errs.ErrValidation)
	}
	if !n.SyncStatus.Valid() {
		return fmt.Errorf("%w: sync status %q", errs.ErrValidation, n.SyncStatus)
	}
	_, err := s.db.ExecContext(ctx, upsert,
		n.ID.String(), n.UserID.String(), n.Title, n.Content,
		convert.Millis(n.CreatedAt), convert.Millis(n.UpdatedAt), n.Version,
		string(n.SyncStatus), convert.Millis(n.LastSyncedAt),
	)
	return err
}

// Delete removes the record; deleting an absent id is not an error.
func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id=?`, id.String())
	return err
}

func (s *SQLite) GetByStatus(ctx context.Context, st model.SyncStatus) ([]model.Note, error) {
	return s.query(ctx, `SELECT `+cols+` FROM notes WHERE sync_status=?`, string(st))
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes`)
	return err
}
