package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
	"github.com/laatu08/Offline-Note-App/internal/reconcile"
	"github.com/laatu08/Offline-Note-App/internal/repository"
)

// NoteService is the remote reconciliation service over a principal's notes.
type NoteService interface {
	// List returns non-deleted notes updated strictly after since, newest first.
	List(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Note, error)
	// Create inserts a new note; errs.ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, userID uuid.UUID, n model.Note) (model.Note, error)
	// Update applies a patch without version arbitration.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.NotePatch) (model.Note, error)
	// SoftDelete tombstones a note. Idempotent.
	SoftDelete(ctx context.Context, userID, id uuid.UUID) (model.Note, error)
	// BulkSync merges each client record independently, last writer wins by version.
	BulkSync(ctx context.Context, userID uuid.UUID, notes []model.Note) (model.BulkSyncResult, error)
}

type NoteServiceImpl struct {
	repo     repository.NoteRepository
	maxBatch int
	log      *zap.Logger
	now      func() time.Time
}

// NewNoteService constructs NoteService with batch limits.
func NewNoteService(repo repository.NoteRepository, maxBatch int, log *zap.Logger) *NoteServiceImpl {
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NoteServiceImpl{repo: repo, maxBatch: maxBatch, log: log, now: time.Now}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrValidation}, args...)...)
}

func (s *NoteServiceImpl) List(ctx context.Context, userID uuid.UUID, since time.Time) ([]model.Note, error) {
	if userID == uuid.Nil {
		return nil, invalid("empty userID")
	}
	return s.repo.ListSince(ctx, userID, since)
}

// Create fills server defaults (owner, version 1, default title, timestamps)
// and inserts the record.
func (s *NoteServiceImpl) Create(ctx context.Context, userID uuid.UUID, n model.Note) (model.Note, error) {
	if userID == uuid.Nil || n.ID == uuid.Nil {
		return model.Note{}, invalid("empty userID/id")
	}
	if n.Version < 0 {
		return model.Note{}, invalid("negative version")
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = s.now()
	}
	n = reconcile.Inserted(userID, n)
	if err := s.repo.Create(ctx, n); err != nil {
		return model.Note{}, err
	}
	return n, nil
}

func (s *NoteServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch model.NotePatch) (model.Note, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return model.Note{}, invalid("empty userID/id")
	}
	if patch.Version != nil && *patch.Version < 1 {
		return model.Note{}, invalid("version must be >= 1")
	}
	return s.repo.Update(ctx, userID, id, patch)
}

func (s *NoteServiceImpl) SoftDelete(ctx context.Context, userID, id uuid.UUID) (model.Note, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return model.Note{}, invalid("empty userID/id")
	}
	return s.repo.SoftDelete(ctx, userID, id, s.now())
}

// BulkSync validates the whole batch first, then reconciles record by record.
// A storage failure aborts the request; records processed before it stay
// committed and are safe to resubmit.
func (s *NoteServiceImpl) BulkSync(ctx context.Context, userID uuid.UUID, notes []model.Note) (model.BulkSyncResult, error) {
	res := model.BulkSyncResult{Synced: []model.Note{}, Conflicts: []model.Conflict{}}
	if userID == uuid.Nil {
		return res, invalid("empty userID")
	}
	if len(notes) == 0 {
		return res, nil
	}
	if len(notes) > s.maxBatch {
		return res, invalid("batch too large (%d > %d)", len(notes), s.maxBatch)
	}
	for i := range notes {
		if notes[i].ID == uuid.Nil {
			return res, invalid("note[%d] empty id", i)
		}
		if notes[i].Version < 1 {
			return res, invalid("note[%d] version must be >= 1", i)
		}
	}

	for _, c := range notes {
		out, err := s.repo.Reconcile(ctx, userID, c)
		if err != nil {
			return model.BulkSyncResult{}, err
		}
		switch out.Action {
		case reconcile.Reject:
			res.Conflicts = append(res.Conflicts, model.Conflict{Client: c, Server: out.Note})
		default:
			if out.ContentDiverged {
				s.log.Warn("equal-version overwrite with different content",
					zap.String("user", userID.String()),
					zap.String("note", c.ID.String()),
					zap.Int64("version", c.Version))
			}
			res.Synced = append(res.Synced, out.Note)
		}
	}
	return res, nil
}
