// Package reconcile holds the per-record merge policy applied by bulk sync.
//
// The policy is last-writer-wins by version: a client record replaces the
// authoritative one unless the server already holds a strictly greater
// version, in which case the pair is reported as a conflict and nothing is
// written. Equal versions go to the client so that a resubmitted batch
// (retry after a lost response) lands in synced instead of conflicts.
package reconcile

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/laatu08/Offline-Note-App/internal/model"
)

// Action is the outcome of comparing a client record with the authoritative one.
type Action int

const (
	// Insert: no authoritative record exists yet.
	Insert Action = iota + 1
	// Overwrite: the client copy is at least as fresh as the server's.
	Overwrite
	// Reject: the server is strictly ahead; report a conflict.
	Reject
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "insert"
	case Overwrite:
		return "overwrite"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decide picks the action for client given the current authoritative record (nil if absent).
func Decide(server *model.Note, client model.Note) Action {
	if server == nil {
		return Insert
	}
	if server.Version > client.Version {
		return Reject
	}
	return Overwrite
}

// Inserted builds the first authoritative copy of a client record.
func Inserted(userID uuid.UUID, client model.Note) model.Note {
	n := client
	n.UserID = userID
	n.Deleted = false
	if n.Version < 1 {
		n.Version = 1
	}
	if n.Title == "" {
		n.Title = model.DefaultTitle
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = n.UpdatedAt
	}
	n.SyncStatus = ""
	n.LastSyncedAt = time.Time{}
	return n
}

// Overwritten applies the client's fields onto the authoritative record.
// Identity, ownership, creation time and the tombstone stay with the server.
func Overwritten(server, client model.Note) model.Note {
	out := server
	out.Title = client.Title
	if out.Title == "" {
		out.Title = model.DefaultTitle
	}
	out.Content = client.Content
	out.UpdatedAt = client.UpdatedAt
	out.Version = client.Version
	return out
}

// Outcome is the result of reconciling one record.
type Outcome struct {
	Action Action
	// Note is the authoritative record after the merge (unchanged on Reject).
	Note model.Note
	// ContentDiverged is set on an equal-version overwrite whose content differs.
	ContentDiverged bool
}

// Apply runs Decide and returns the record that should be persisted.
func Apply(userID uuid.UUID, server *model.Note, client model.Note) Outcome {
	switch a := Decide(server, client); a {
	case Insert:
		return Outcome{Action: a, Note: Inserted(userID, client)}
	case Reject:
		return Outcome{Action: a, Note: *server}
	default:
		diverged := server.Version == client.Version && server.ContentHash() != client.ContentHash()
		return Outcome{Action: a, Note: Overwritten(*server, client), ContentDiverged: diverged}
	}
}
