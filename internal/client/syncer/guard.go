package syncer

import (
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
)

const (
	DefaultGuardTTL      = 10 * time.Minute
	DefaultGuardCapacity = 1024
)

type guardEntry struct {
	markedAt time.Time
	// confirmedRound is the round in which the server acknowledged the
	// tombstone; 0 while unconfirmed.
	confirmedRound uint64
}

// deletionGuard suppresses re-insertion of ids deleted on this device.
// An entry lives until the server confirmed the deletion, one more full
// round has completed, and the TTL has passed. The limit bounds confirmed
// entries only: when full, the oldest confirmed entry is evicted, and an
// unconfirmed entry is never dropped since its tombstone is still owed to
// the server.
type deletionGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	entries map[uuid.UUID]guardEntry
}

func newDeletionGuard(ttl time.Duration, capacity int) *deletionGuard {
	if ttl <= 0 {
		ttl = DefaultGuardTTL
	}
	if capacity <= 0 {
		capacity = DefaultGuardCapacity
	}
	return &deletionGuard{ttl: ttl, limit: capacity, entries: make(map[uuid.UUID]guardEntry)}
}

func (g *deletionGuard) mark(id uuid.UUID, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.entries[id]; !ok && len(g.entries) >= g.limit {
		g.evictConfirmedLocked()
	}
	g.entries[id] = guardEntry{markedAt: now}
}

// evictConfirmedLocked drops the oldest confirmed entry, if any.
func (g *deletionGuard) evictConfirmedLocked() {
	var (
		victim uuid.UUID
		oldest time.Time
		found  bool
	)
	for id, e := range g.entries {
		if e.confirmedRound == 0 {
			continue
		}
		if !found || e.markedAt.Before(oldest) {
			victim, oldest, found = id, e.markedAt, true
		}
	}
	if found {
		delete(g.entries, victim)
	}
}

func (g *deletionGuard) has(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.entries[id]
	return ok
}

// unconfirmed returns ids the server has not acknowledged, oldest first.
func (g *deletionGuard) unconfirmed() []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	type item struct {
		id uuid.UUID
		at time.Time
	}
	var items []item
	for id, e := range g.entries {
		if e.confirmedRound == 0 {
			items = append(items, item{id, e.markedAt})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].at.Before(items[j].at) })
	out := make([]uuid.UUID, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func (g *deletionGuard) confirm(id uuid.UUID, round uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[id]; ok && e.confirmedRound == 0 {
		e.confirmedRound = round
		g.entries[id] = e
	}
}

// sweep drops entries confirmed before round whose TTL has passed.
func (g *deletionGuard) sweep(round uint64, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for id, e := range g.entries {
		if e.confirmedRound != 0 && e.confirmedRound < round && now.Sub(e.markedAt) >= g.ttl {
			delete(g.entries, id)
			n++
		}
	}
	return n
}

func (g *deletionGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
