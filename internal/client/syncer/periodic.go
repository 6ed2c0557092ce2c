package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when StartPeriodic gets a non-positive interval.
const DefaultInterval = 30 * time.Second

// StartPeriodic runs one round now and then every interval while online.
// Calling it again replaces the previous schedule.
func (o *Orchestrator) StartPeriodic(ctx context.Context, cred string, interval time.Duration) {
	if interval <= 0 {
		o.log.Warn("non-positive sync interval, using default",
			zap.Duration("interval", interval), zap.Duration("default", DefaultInterval))
		interval = DefaultInterval
	}
	o.periodicMu.Lock()
	defer o.periodicMu.Unlock()

	if o.stop != nil {
		o.stop()
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.stop, o.loopDone = cancel, done
	go o.loop(ctx, cred, interval, done)
}

// StopPeriodic cancels the schedule. A round already in flight runs to
// completion. Safe to call repeatedly.
func (o *Orchestrator) StopPeriodic() {
	o.periodicMu.Lock()
	defer o.periodicMu.Unlock()
	if o.stop != nil {
		o.stop()
		o.stop = nil
	}
}

// Wait blocks until the most recent periodic schedule has exited,
// including any round it had in flight.
func (o *Orchestrator) Wait() {
	o.periodicMu.Lock()
	done := o.loopDone
	o.periodicMu.Unlock()
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) loop(ctx context.Context, cred string, interval time.Duration, done chan struct{}) {
	defer close(done)
	o.tick(ctx, cred)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if o.net.Online() {
				o.tick(ctx, cred)
			}
		}
	}
}

// tick detaches the round from ctx so that stopping never cuts one short.
func (o *Orchestrator) tick(ctx context.Context, cred string) {
	if _, err := o.RunOnce(context.WithoutCancel(ctx), cred); err != nil {
		o.log.Debug("periodic round failed", zap.Error(err))
	}
}

// SyncOnReconnect runs a round on every offline-to-online transition read
// from changes until ctx is done or changes is closed.
func (o *Orchestrator) SyncOnReconnect(ctx context.Context, cred string, changes <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			if online {
				o.tick(ctx, cred)
			}
		}
	}
}
