// Package model defines domain entities used by services, repositories and the sync client.
package model

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/blake2b"
)

// DefaultTitle is assigned to notes saved without a title.
const DefaultTitle = "Untitled Note"

// SyncStatus is the client-side replication state of a note.
type SyncStatus string

const (
	// StatusPending marks a note not yet confirmed by the server at its current version.
	StatusPending SyncStatus = "pending"
	// StatusSynced marks a note the server has accepted at its current version.
	StatusSynced SyncStatus = "synced"
)

// Valid reports whether s is a known status.
func (s SyncStatus) Valid() bool {
	return s == StatusPending || s == StatusSynced
}

// Note is the unit of replication.
type Note struct {
	ID        uuid.UUID // client-generated, stable for the note's lifetime
	UserID    uuid.UUID // owning principal
	Title     string
	Content   string // rich-text markup, opaque to the engine
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64 // starts at 1, +1 per accepted write; sole conflict signal

	Deleted bool // server-only tombstone

	SyncStatus   SyncStatus // client-only
	LastSyncedAt time.Time  // client-only; zero until first reconciliation
}

// ContentHash returns the hex BLAKE2b-256 digest of title and content.
func (n Note) ContentHash() string {
	h, _ := blake2b.New256(nil)
	_, _ = h.Write([]byte(n.Title))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(n.Content))
	return hex.EncodeToString(h.Sum(nil))
}

// NotePatch is a partial update; nil fields are left untouched.
type NotePatch struct {
	Title     *string
	Content   *string
	UpdatedAt *time.Time
	Version   *int64
}

// Apply returns n with the non-nil patch fields applied.
func (p NotePatch) Apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.UpdatedAt != nil {
		n.UpdatedAt = *p.UpdatedAt
	}
	if p.Version != nil {
		n.Version = *p.Version
	}
	return n
}

// Conflict pairs a client submission with the authoritative record that beat it.
type Conflict struct {
	Client Note
	Server Note
}

// BulkSyncResult is the outcome of reconciling a batch of client records.
type BulkSyncResult struct {
	Synced    []Note
	Conflicts []Conflict
}

// SortForDisplay orders notes by UpdatedAt, newest first.
func SortForDisplay(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}
