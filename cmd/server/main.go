// Command notes-server serves the note reconciliation API over gRPC and REST.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/laatu08/Offline-Note-App/internal/api/notesv1"
	"github.com/laatu08/Offline-Note-App/internal/auth"
	"github.com/laatu08/Offline-Note-App/internal/config"
	"github.com/laatu08/Offline-Note-App/internal/logging"
	"github.com/laatu08/Offline-Note-App/internal/migrate"
	"github.com/laatu08/Offline-Note-App/internal/repository"
	"github.com/laatu08/Offline-Note-App/internal/repository/memory"
	"github.com/laatu08/Offline-Note-App/internal/repository/postgres"
	grpcserver "github.com/laatu08/Offline-Note-App/internal/server/grpc"
	httpserver "github.com/laatu08/Offline-Note-App/internal/server/http"
	"github.com/laatu08/Offline-Note-App/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.IssueToken != uuid.Nil {
		tok, exp, err := auth.Issue([]byte(cfg.JWTKey), cfg.IssueToken, cfg.AccessTTL, time.Now())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(tok)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
		return
	}

	logger, err := logging.New(logging.Options{Development: cfg.Dev})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("grpc", cfg.GRPCAddr),
		zap.String("http", cfg.HTTPAddr),
		zap.String("store", cfg.Store),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Server, logger *zap.Logger) error {
	repo, ping, closeRepo, err := openRepo(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	notes := service.NewNoteService(repo, cfg.MaxBatch, logger.Named("service"))
	verifier := auth.NewVerifier([]byte(cfg.JWTKey))

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(verifier, "/grpc.health.v1.Health/", "/grpc.reflection."),
		),
	}
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("TLS disabled; bearer tokens travel in plaintext")
	}
	gs := grpc.NewServer(opts...)
	notesv1.RegisterNoteSyncServer(gs, grpcserver.New(notes))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(notesv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Dev {
		reflection.Register(gs)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", cfg.TLSCert != ""))
		errCh <- gs.Serve(lis)
	}()

	var hsrv *http.Server
	if cfg.HTTPAddr != "" {
		hsrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpserver.NewRouter(notes, verifier, logger.Named("http"), ping),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
			var err error
			if cfg.TLSCert != "" {
				err = hsrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			} else {
				err = hsrv.ListenAndServe()
			}
			if !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if hsrv != nil {
		if err := hsrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}
	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		gs.Stop()
	}
	return serveErr
}

// openRepo picks the storage backend. The returned ping backs /healthz.
func openRepo(ctx context.Context, cfg config.Server, logger *zap.Logger) (repository.NoteRepository, func(context.Context) error, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("memory store: notes are lost on restart")
		return memory.NewNoteRepo(), nil, func() {}, nil
	}

	ver, err := migrate.Up(ctx, cfg.DSN, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("migrate up: %w", err)
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: %w", err)
	}
	return postgres.NewNoteRepo(db), db.Ping, db.Close, nil
}
