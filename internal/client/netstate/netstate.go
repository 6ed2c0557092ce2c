// Package netstate reports client connectivity derived from a gRPC channel.
package netstate

import (
	"context"
	"sync"

	"google.golang.org/grpc/connectivity"
)

// stateSource is the part of *grpc.ClientConn the monitor needs.
type stateSource interface {
	GetState() connectivity.State
	WaitForStateChange(ctx context.Context, from connectivity.State) bool
	Connect()
}

// Monitor tracks whether the channel is Ready and publishes transitions.
type Monitor struct {
	src stateSource

	mu      sync.Mutex
	online  bool
	changes chan bool
}

// NewMonitor starts in the source's current state; call Run to follow it.
func NewMonitor(src stateSource) *Monitor {
	return &Monitor{
		src:     src,
		online:  src.GetState() == connectivity.Ready,
		changes: make(chan bool, 1),
	}
}

// Online reports whether the channel is currently Ready.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Changes delivers online/offline transitions. Only the latest unread
// transition is kept.
func (m *Monitor) Changes() <-chan bool { return m.changes }

// Run follows channel state until ctx is done. An idle channel is asked to
// reconnect so that the online signal eventually comes back on its own.
func (m *Monitor) Run(ctx context.Context) {
	for {
		s := m.src.GetState()
		if s == connectivity.Idle {
			m.src.Connect()
		}
		m.set(s == connectivity.Ready)
		if !m.src.WaitForStateChange(ctx, s) {
			return
		}
	}
}

func (m *Monitor) set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	select {
	case <-m.changes:
	default:
	}
	m.changes <- online
}

// Static is a fixed connectivity answer for one-shot commands and tests.
type Static bool

func (s Static) Online() bool { return bool(s) }
