package syncer

import (
	"sync"

	"github.com/laatu08/Offline-Note-App/internal/model"
)

// Kind tags an orchestrator event.
type Kind string

const (
	SyncStart   Kind = "SYNC_START"
	SyncSuccess Kind = "SYNC_SUCCESS"
	SyncError   Kind = "SYNC_ERROR"
	// ConflictsDetected carries the conflicts the server reported for a push.
	ConflictsDetected Kind = "CONFLICTS_DETECTED"
	// ConflictDetected carries one pulled record that is newer than an
	// unpushed local edit.
	ConflictDetected Kind = "CONFLICT_DETECTED"
)

// Event is delivered to observers for feedback only; nothing in a round
// depends on how observers react.
type Event struct {
	Kind      Kind
	Err       error            // SyncError only
	Conflicts []model.Conflict // ConflictsDetected, ConflictDetected
}

// Observer receives events synchronously on the goroutine running the round.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

type subscription struct {
	id uint64
	o  Observer
}

// bus fans events out in registration order.
type bus struct {
	mu   sync.Mutex
	next uint64
	subs []subscription
}

func (b *bus) subscribe(o Observer) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, o: o})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *bus) emit(e Event) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		s.o.OnEvent(e)
	}
}
