package grpcserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/laatu08/Offline-Note-App/internal/auth"
)

type fakeAddr struct{}

func (fakeAddr) Network() string { return "tcp" }
func (fakeAddr) String() string  { return "127.0.0.1:12345" }

func TestLoggingUnary_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ic := LoggingUnary(log)

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: fakeAddr{}})

	h := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.v1.NoteSync/List"}

	resp, err := ic(ctx, "req", info, h)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s, _ := resp.(string); s != "ok" {
		t.Fatalf("resp mismatch: %v", resp)
	}

	wantErr := errors.New("boom")
	hErr := func(ctx context.Context, req any) (any, error) { return nil, wantErr }
	_, err = ic(ctx, "req", info, hErr)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestLoggingUnary_LevelByCode(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ic := LoggingUnary(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.v1.NoteSync/BulkSync"}

	for _, c := range []codes.Code{codes.OK, codes.InvalidArgument, codes.Internal} {
		c := c
		_, _ = ic(context.Background(), nil, info, func(context.Context, any) (any, error) {
			if c == codes.OK {
				return nil, nil
			}
			return nil, status.Error(c, "x")
		})
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d: level %v, want %v", i, e.Level, want[i])
		}
	}
}

func TestRecoverUnary_CatchesPanic(t *testing.T) {
	t.Parallel()

	ic := RecoverUnary(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.v1.NoteSync/Panic"}

	_, err := ic(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("oh no")
	})
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Internal {
		t.Fatalf("want codes.Internal, got: %v", err)
	}
}

func TestRecoverUnary_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	ic := RecoverUnary(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.v1.NoteSync/Ok"}

	resp, err := ic(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) { return 42, nil })
	if err != nil || resp.(int) != 42 {
		t.Fatalf("unexpected result: %v, %v", resp, err)
	}
}

func TestAuthUnary(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ic := AuthUnary(auth.NewVerifier(key), "/grpc.health.v1.Health/")
	user := uuid.Must(uuid.NewV4())
	tok, _, err := auth.Issue(key, user, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen uuid.UUID
	h := func(ctx context.Context, req any) (any, error) {
		seen, _ = auth.UserIDFromCtx(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.v1.NoteSync/List"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tok))
	if _, err := ic(ctx, nil, info, h); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if seen != user {
		t.Fatalf("user mismatch: %s vs %s", seen, user)
	}

	if _, err := ic(context.Background(), nil, info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated without metadata, got %v", err)
	}

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))
	if _, err := ic(bad, nil, info, h); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated on garbage token, got %v", err)
	}

	health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	if _, err := ic(context.Background(), nil, health, h); err != nil {
		t.Fatalf("health must be public: %v", err)
	}
}
