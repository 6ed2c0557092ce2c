// Package syncer reconciles the local note replica with the remote
// reconciliation service, one round at a time.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/laatu08/Offline-Note-App/internal/client/store"
	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

// Remote is the subset of the reconciliation service a round needs.
type Remote interface {
	List(ctx context.Context, cred string, since time.Time) ([]model.Note, error)
	BulkSync(ctx context.Context, cred string, notes []model.Note) (model.BulkSyncResult, error)
	SoftDelete(ctx context.Context, cred string, id uuid.UUID) error
}

// Connectivity reports whether the remote is reachable right now.
type Connectivity interface {
	Online() bool
}

// Options tune an Orchestrator; zero values pick defaults.
type Options struct {
	GuardTTL      time.Duration
	GuardCapacity int
	Log           *zap.Logger
	Now           func() time.Time
}

// SkipReason explains a round that did not run.
type SkipReason string

const (
	SkipOffline SkipReason = "offline"
	SkipBusy    SkipReason = "busy"
)

// Outcome summarizes one RunOnce call.
type Outcome struct {
	Skipped SkipReason

	DeletionsConfirmed int
	Pushed             int
	Purged             int
	Pulled             int
	// PushConflicts are records the server was ahead on; the local pending
	// copies were left untouched.
	PushConflicts []model.Conflict
	// PullConflicts are pulled records newer than an unpushed local edit.
	PullConflicts []model.Conflict
}

// Orchestrator owns sync state for one credential's session. Construct one
// per session; there is no shared instance.
type Orchestrator struct {
	local  store.Updater
	remote Remote
	net    Connectivity
	log    *zap.Logger
	now    func() time.Time

	syncing atomic.Bool
	rounds  atomic.Uint64
	guard   *deletionGuard
	events  bus

	periodicMu sync.Mutex
	stop       context.CancelFunc
	loopDone   chan struct{}
}

// New builds an orchestrator over the given collaborators.
func New(local store.Updater, remote Remote, net Connectivity, opts Options) *Orchestrator {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		local:  local,
		remote: remote,
		net:    net,
		log:    opts.Log,
		now:    opts.Now,
		guard:  newDeletionGuard(opts.GuardTTL, opts.GuardCapacity),
	}
}

// Subscribe registers o and returns its removal function.
func (o *Orchestrator) Subscribe(obs Observer) func() { return o.events.subscribe(obs) }

// Syncing reports whether a round is in flight.
func (o *Orchestrator) Syncing() bool { return o.syncing.Load() }

// MarkDeletedLocally keeps id out of the local store for the rest of this
// session and queues its remote tombstone for the next round.
func (o *Orchestrator) MarkDeletedLocally(id uuid.UUID) {
	o.guard.mark(id, o.now())
}

// PendingDeletions returns ids whose deletion the server has not yet
// acknowledged, oldest first.
func (o *Orchestrator) PendingDeletions() []uuid.UUID { return o.guard.unconfirmed() }

// RunOnce performs one sync round. It returns immediately with a Skipped
// outcome when offline or when another round is in flight.
func (o *Orchestrator) RunOnce(ctx context.Context, cred string) (Outcome, error) {
	if !o.net.Online() {
		o.log.Debug("sync skipped", zap.String("reason", string(SkipOffline)))
		return Outcome{Skipped: SkipOffline}, nil
	}
	if !o.syncing.CompareAndSwap(false, true) {
		o.log.Debug("sync skipped", zap.String("reason", string(SkipBusy)))
		return Outcome{Skipped: SkipBusy}, nil
	}
	defer o.syncing.Store(false)

	o.events.emit(Event{Kind: SyncStart})
	start := time.Now()
	out, err := o.round(ctx, cred, o.rounds.Add(1))
	if err != nil {
		o.log.Warn("sync failed", zap.Error(err), zap.Duration("dur", time.Since(start)))
		o.events.emit(Event{Kind: SyncError, Err: err})
		return out, err
	}
	o.log.Info("sync done",
		zap.Int("deletions", out.DeletionsConfirmed),
		zap.Int("pushed", out.Pushed),
		zap.Int("purged", out.Purged),
		zap.Int("pulled", out.Pulled),
		zap.Int("push_conflicts", len(out.PushConflicts)),
		zap.Int("pull_conflicts", len(out.PullConflicts)),
		zap.Duration("dur", time.Since(start)),
	)
	o.events.emit(Event{Kind: SyncSuccess})
	return out, nil
}

func (o *Orchestrator) round(ctx context.Context, cred string, n uint64) (Outcome, error) {
	var out Outcome

	// the watermark predates any lastSyncedAt stamped by this round
	watermark, err := o.watermark(ctx)
	if err != nil {
		return out, fmt.Errorf("watermark: %w", err)
	}

	if out.DeletionsConfirmed, err = o.pushDeletions(ctx, cred, n); err != nil {
		return out, fmt.Errorf("push deletions: %w", err)
	}

	skip, err := o.push(ctx, cred, &out)
	if err != nil {
		return out, fmt.Errorf("push: %w", err)
	}

	if err := o.pull(ctx, cred, watermark, skip, &out); err != nil {
		return out, fmt.Errorf("pull: %w", err)
	}

	if swept := o.guard.sweep(n, o.now()); swept > 0 {
		o.log.Debug("deletion guard swept", zap.Int("entries", swept), zap.Int("left", o.guard.size()))
	}
	return out, nil
}

func (o *Orchestrator) watermark(ctx context.Context) (time.Time, error) {
	all, err := o.local.GetAll(ctx)
	if err != nil {
		return time.Time{}, err
	}
	var w time.Time
	for _, n := range all {
		if n.LastSyncedAt.After(w) {
			w = n.LastSyncedAt
		}
	}
	return w, nil
}

// pushDeletions sends tombstones for ids deleted on this device. NotFound
// means the note never reached the server, which settles it as well.
func (o *Orchestrator) pushDeletions(ctx context.Context, cred string, round uint64) (int, error) {
	confirmed := 0
	for _, id := range o.guard.unconfirmed() {
		err := o.remote.SoftDelete(ctx, cred, id)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return confirmed, err
		}
		o.guard.confirm(id, round)
		confirmed++
	}
	return confirmed, nil
}

// push sends pending records and applies the server's answer. It returns
// the ids reported as conflicts so the pull phase leaves them alone.
func (o *Orchestrator) push(ctx context.Context, cred string, out *Outcome) (map[uuid.UUID]struct{}, error) {
	pending, err := o.local.GetByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, err
	}
	batch := pending[:0:0]
	for _, n := range pending {
		if !o.guard.has(n.ID) {
			batch = append(batch, n)
		}
	}
	if len(batch) == 0 {
		return nil, nil
	}

	res, err := o.remote.BulkSync(ctx, cred, batch)
	if err != nil {
		return nil, err
	}

	now := o.now()
	for _, srv := range res.Synced {
		if srv.Deleted {
			if err := o.local.Delete(ctx, srv.ID); err != nil {
				return nil, err
			}
			out.Purged++
			continue
		}
		var wrote bool
		err := o.local.Update(ctx, srv.ID, func(cur model.Note, ok bool) (model.Note, bool, error) {
			// gone locally, deleted, or edited again while the batch was in flight
			if !ok || o.guard.has(srv.ID) || cur.Version > srv.Version {
				return cur, false, nil
			}
			srv.SyncStatus = model.StatusSynced
			srv.LastSyncedAt = now
			wrote = true
			return srv, true, nil
		})
		if err != nil {
			return nil, err
		}
		if wrote {
			out.Pushed++
		}
	}

	if len(res.Conflicts) == 0 {
		return nil, nil
	}
	skip := make(map[uuid.UUID]struct{}, len(res.Conflicts))
	for _, c := range res.Conflicts {
		skip[c.Client.ID] = struct{}{}
	}
	out.PushConflicts = res.Conflicts
	o.events.emit(Event{Kind: ConflictsDetected, Conflicts: res.Conflicts})
	return skip, nil
}

func (o *Orchestrator) pull(ctx context.Context, cred string, since time.Time, skip map[uuid.UUID]struct{}, out *Outcome) error {
	remote, err := o.remote.List(ctx, cred, since)
	if err != nil {
		return err
	}

	now := o.now()
	for _, srv := range remote {
		if _, ok := skip[srv.ID]; ok {
			continue
		}
		var (
			conflict *model.Conflict
			wrote    bool
		)
		err := o.local.Update(ctx, srv.ID, func(cur model.Note, ok bool) (model.Note, bool, error) {
			// checked under the store lock so a concurrent local delete cannot slip between
			if o.guard.has(srv.ID) || (ok && cur.Version >= srv.Version) {
				return cur, false, nil
			}
			// an unpushed local edit is never overwritten
			if ok && cur.SyncStatus == model.StatusPending {
				conflict = &model.Conflict{Client: cur, Server: srv}
				return cur, false, nil
			}
			srv.SyncStatus = model.StatusSynced
			srv.LastSyncedAt = now
			wrote = true
			return srv, true, nil
		})
		if err != nil {
			return err
		}
		if conflict != nil {
			out.PullConflicts = append(out.PullConflicts, *conflict)
			o.events.emit(Event{Kind: ConflictDetected, Conflicts: []model.Conflict{*conflict}})
		}
		if wrote {
			out.Pulled++
		}
	}
	return nil
}
