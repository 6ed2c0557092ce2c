// Package convert maps domain notes to and from the notesv1 wire messages.
package convert

import (
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/api/notesv1"
	model "github.com/laatu08/Offline-Note-App/internal/model"
)

// --- helpers ---

// Millis returns t as Unix milliseconds; zero time maps to 0.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis is the inverse of Millis.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// --- Note ---

// ToWireNote converts a domain note; client-only fields are dropped.
func ToWireNote(n model.Note) *notesv1.Note {
	w := &notesv1.Note{
		ID:        n.ID.String(),
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: Millis(n.CreatedAt),
		UpdatedAt: Millis(n.UpdatedAt),
		Version:   n.Version,
		Deleted:   n.Deleted,
	}
	if n.UserID != u.Nil {
		w.UserID = n.UserID.String()
	}
	return w
}

// FromWireNote converts a wire note into the domain struct.
func FromWireNote(in *notesv1.Note) (model.Note, error) {
	if in == nil {
		return model.Note{}, fmt.Errorf("nil note")
	}
	id, err := u.FromString(in.ID)
	if err != nil {
		return model.Note{}, fmt.Errorf("invalid id: %w", err)
	}
	var owner u.UUID
	if in.UserID != "" {
		if owner, err = u.FromString(in.UserID); err != nil {
			return model.Note{}, fmt.Errorf("invalid userId: %w", err)
		}
	}
	return model.Note{
		ID:        id,
		UserID:    owner,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: FromMillis(in.CreatedAt),
		UpdatedAt: FromMillis(in.UpdatedAt),
		Version:   in.Version,
		Deleted:   in.Deleted,
	}, nil
}

// ToWireNotes converts a slice of domain notes.
func ToWireNotes(ns []model.Note) []*notesv1.Note {
	out := make([]*notesv1.Note, 0, len(ns))
	for _, n := range ns {
		out = append(out, ToWireNote(n))
	}
	return out
}

// FromWireNotes converts a slice of wire notes, failing on the first bad entry.
func FromWireNotes(in []*notesv1.Note) ([]model.Note, error) {
	out := make([]model.Note, 0, len(in))
	for i, n := range in {
		m, err := FromWireNote(n)
		if err != nil {
			return nil, fmt.Errorf("note[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// --- Update ---

// ToWireUpdate builds an UpdateRequest from a patch.
func ToWireUpdate(id u.UUID, p model.NotePatch) *notesv1.UpdateRequest {
	req := &notesv1.UpdateRequest{ID: id.String(), Title: p.Title, Content: p.Content, Version: p.Version}
	if p.UpdatedAt != nil {
		ms := Millis(*p.UpdatedAt)
		req.UpdatedAt = &ms
	}
	return req
}

// FromWireUpdate extracts the target id and patch.
func FromWireUpdate(in *notesv1.UpdateRequest) (u.UUID, model.NotePatch, error) {
	if in == nil {
		return u.Nil, model.NotePatch{}, fmt.Errorf("nil update")
	}
	id, err := u.FromString(in.ID)
	if err != nil {
		return u.Nil, model.NotePatch{}, fmt.Errorf("invalid id: %w", err)
	}
	p := model.NotePatch{Title: in.Title, Content: in.Content, Version: in.Version}
	if in.UpdatedAt != nil {
		t := FromMillis(*in.UpdatedAt)
		p.UpdatedAt = &t
	}
	return id, p, nil
}

// --- BulkSync ---

// ToWireBulkSync converts a reconciliation result.
func ToWireBulkSync(r model.BulkSyncResult) *notesv1.BulkSyncResponse {
	out := &notesv1.BulkSyncResponse{
		Synced:    ToWireNotes(r.Synced),
		Conflicts: make([]*notesv1.Conflict, 0, len(r.Conflicts)),
	}
	for _, c := range r.Conflicts {
		out.Conflicts = append(out.Conflicts, &notesv1.Conflict{
			ClientNote: ToWireNote(c.Client),
			ServerNote: ToWireNote(c.Server),
		})
	}
	return out
}

// FromWireBulkSync converts a reconciliation response back to the domain result.
func FromWireBulkSync(in *notesv1.BulkSyncResponse) (model.BulkSyncResult, error) {
	if in == nil {
		return model.BulkSyncResult{}, fmt.Errorf("nil response")
	}
	synced, err := FromWireNotes(in.Synced)
	if err != nil {
		return model.BulkSyncResult{}, fmt.Errorf("synced: %w", err)
	}
	res := model.BulkSyncResult{Synced: synced, Conflicts: make([]model.Conflict, 0, len(in.Conflicts))}
	for i, c := range in.Conflicts {
		if c == nil {
			return model.BulkSyncResult{}, fmt.Errorf("conflict[%d]: nil", i)
		}
		cl, err := FromWireNote(c.ClientNote)
		if err != nil {
			return model.BulkSyncResult{}, fmt.Errorf("conflict[%d] client: %w", i, err)
		}
		sv, err := FromWireNote(c.ServerNote)
		if err != nil {
			return model.BulkSyncResult{}, fmt.Errorf("conflict[%d] server: %w", i, err)
		}
		res.Conflicts = append(res.Conflicts, model.Conflict{Client: cl, Server: sv})
	}
	return res, nil
}
