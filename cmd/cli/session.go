package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/laatu08/Offline-Note-App/internal/client/editor"
	"github.com/laatu08/Offline-Note-App/internal/client/netstate"
	"github.com/laatu08/Offline-Note-App/internal/client/remote"
	"github.com/laatu08/Offline-Note-App/internal/client/store"
	"github.com/laatu08/Offline-Note-App/internal/client/syncer"
	"github.com/laatu08/Offline-Note-App/internal/config"
	"github.com/laatu08/Offline-Note-App/internal/logging"
)

type globals struct {
	cfg     config.Client
	verbose bool
}

func (g *globals) logger() (*zap.Logger, error) {
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, File: g.cfg.LogFile, Development: g.cfg.LogFile == ""})
}

// session wires the client components for one signed-in user.
type session struct {
	log   *zap.Logger
	tok   tokenFile
	db    *store.SQLite
	local *store.Serialized
	cc    *grpc.ClientConn
	mon   *netstate.Monitor // nil when connectivity is fixed
	api   *remote.Client
	orch  *syncer.Orchestrator
	ed    *editor.Editor
}

// openSession opens the replica and the channel. When net is nil the
// channel's own connectivity state is used.
func openSession(ctx context.Context, g *globals, net syncer.Connectivity) (*session, error) {
	tok, err := loadToken()
	if err != nil {
		return nil, err
	}
	log, err := g.logger()
	if err != nil {
		return nil, err
	}
	db, err := store.OpenSQLite(ctx, g.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cc, err := remote.Dial(g.cfg.Addr, remote.DialOptions{
		CACert:    g.cfg.CACert,
		Insecure:  g.cfg.Insecure,
		Plaintext: g.cfg.Plaintext,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("dial %s: %w", g.cfg.Addr, err)
	}

	s := &session{log: log, tok: tok, db: db, local: store.NewSerialized(db), cc: cc, api: remote.New(cc, !g.cfg.Plaintext)}
	if net == nil {
		s.mon = netstate.NewMonitor(cc)
		net = s.mon
	}
	s.orch = syncer.New(s.local, s.api, net, syncer.Options{Log: log.Named("sync")})
	s.ed = editor.New(s.local, s.orch, tok.AccessToken, tok.UserID, editor.Options{Log: log.Named("editor")})

	ids, err := loadDeletions()
	if err != nil {
		log.Warn("pending deletions unreadable", zap.Error(err))
	}
	for _, id := range ids {
		s.orch.MarkDeletedLocally(id)
	}
	return s, nil
}

func (s *session) close() {
	if err := saveDeletions(s.orch.PendingDeletions()); err != nil {
		s.log.Warn("save pending deletions", zap.Error(err))
	}
	_ = s.cc.Close()
	_ = s.db.Close()
	_ = s.log.Sync()
}

// sync runs one round and reports problems on w without failing the command:
// local changes are already durable.
func (s *session) sync(ctx context.Context, w io.Writer) (syncer.Outcome, error) {
	out, err := s.orch.RunOnce(ctx, s.tok.AccessToken)
	if err != nil {
		fmt.Fprintf(w, "saved locally; sync failed: %v\n", err)
	}
	return out, err
}

// reportConflicts prints conflict events as they happen.
func reportConflicts(w io.Writer) syncer.Observer {
	return syncer.ObserverFunc(func(e syncer.Event) {
		switch e.Kind {
		case syncer.ConflictsDetected, syncer.ConflictDetected:
			for _, c := range e.Conflicts {
				fmt.Fprintf(w, "conflict %s: local v%d, server v%d (notes resolve %s --keep local|server)\n",
					c.Client.ID, c.Client.Version, c.Server.Version, c.Client.ID)
			}
		}
	})
}
