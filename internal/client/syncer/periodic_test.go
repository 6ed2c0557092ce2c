package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/laatu08/Offline-Note-App/internal/model"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartPeriodic_RunsImmediatelyAndRepeats(t *testing.T) {
	h := newHarness(t, true)
	h.orch.StartPeriodic(context.Background(), cred, 10*time.Millisecond)
	waitFor(t, func() bool { return h.rec.count(SyncSuccess) >= 3 })

	h.orch.StopPeriodic()
	h.orch.StopPeriodic()
	h.orch.Wait()

	n := h.rec.count(SyncSuccess)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, n, h.rec.count(SyncSuccess))
}

func TestStartPeriodic_RestartReplacesSchedule(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	h.orch.StartPeriodic(ctx, cred, time.Hour)
	waitFor(t, func() bool { return h.rec.count(SyncSuccess) == 1 && !h.orch.Syncing() })

	h.orch.StartPeriodic(ctx, cred, time.Hour)
	waitFor(t, func() bool { return h.rec.count(SyncSuccess) == 2 })

	h.orch.StopPeriodic()
	h.orch.Wait()
}

func TestStartPeriodic_NonPositiveIntervalUsesDefault(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		h := newHarness(t, true)
		h.orch.StartPeriodic(context.Background(), cred, interval)
		waitFor(t, func() bool { return h.rec.count(SyncSuccess) == 1 && !h.orch.Syncing() })

		// the default interval is far longer than the wait below
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, 1, h.rec.count(SyncSuccess))

		h.orch.StopPeriodic()
		h.orch.Wait()
	}
}

func TestStopPeriodic_DoesNotCancelInFlightRound(t *testing.T) {
	h := newHarness(t, true)
	a := newNote(1, model.StatusPending, 1000)
	h.put(t, a)

	entered, release := make(chan struct{}), make(chan struct{})
	h.remote.beforeBulkReturn = func() {
		close(entered)
		<-release
	}
	h.orch.StartPeriodic(context.Background(), cred, time.Hour)
	<-entered

	h.orch.StopPeriodic()
	close(release)
	h.orch.Wait()

	require.Equal(t, []Kind{SyncStart, SyncSuccess}, h.rec.kinds())
	got, _ := h.get(t, a.ID)
	require.Equal(t, model.StatusSynced, got.SyncStatus)
}

func TestSyncOnReconnect(t *testing.T) {
	h := newHarness(t, true)
	changes := make(chan bool)
	done := make(chan struct{})
	go func() {
		h.orch.SyncOnReconnect(context.Background(), cred, changes)
		close(done)
	}()

	changes <- false
	changes <- true
	waitFor(t, func() bool { return h.rec.count(SyncSuccess) == 1 && !h.orch.Syncing() })
	changes <- true
	waitFor(t, func() bool { return h.rec.count(SyncSuccess) == 2 })

	close(changes)
	<-done
	require.Equal(t, 2, h.rec.count(SyncStart))
}
