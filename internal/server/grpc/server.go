// Package grpcserver exposes the NoteSync gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/laatu08/Offline-Note-App/internal/api/notesv1"
	"github.com/laatu08/Offline-Note-App/internal/auth"
	"github.com/laatu08/Offline-Note-App/internal/convert"
	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/service"
)

// Server wires the reconciliation service into gRPC handlers.
type Server struct {
	notes    service.NoteService
	validate *validator.Validate
}

var _ notesv1.NoteSyncServer = (*Server)(nil)

// New constructs a gRPC server with the injected service.
func New(notes service.NoteService) *Server {
	return &Server{notes: notes, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "note not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "note already exists")
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "no auth")
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

func (s *Server) prepare(ctx context.Context, req any) (uuid.UUID, error) {
	userID, ok := auth.UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "no auth")
	}
	if err := s.validate.Struct(req); err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	return userID, nil
}

// List returns live notes changed after req.Since.
func (s *Server) List(ctx context.Context, req *notesv1.ListRequest) (*notesv1.ListResponse, error) {
	userID, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	ns, err := s.notes.List(ctx, userID, convert.FromMillis(req.Since))
	if err != nil {
		return nil, toStatus("list", err)
	}
	return &notesv1.ListResponse{Notes: convert.ToWireNotes(ns)}, nil
}

// Create inserts a new note; AlreadyExists if the id is taken.
func (s *Server) Create(ctx context.Context, req *notesv1.CreateRequest) (*notesv1.NoteResponse, error) {
	userID, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	n, err := convert.FromWireNote(req.Note)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad note: %v", err)
	}
	out, err := s.notes.Create(ctx, userID, n)
	if err != nil {
		return nil, toStatus("create", err)
	}
	return &notesv1.NoteResponse{Note: convert.ToWireNote(out)}, nil
}

// Update applies a partial update without version arbitration.
func (s *Server) Update(ctx context.Context, req *notesv1.UpdateRequest) (*notesv1.NoteResponse, error) {
	userID, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	id, patch, err := convert.FromWireUpdate(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad update: %v", err)
	}
	out, err := s.notes.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, toStatus("update", err)
	}
	return &notesv1.NoteResponse{Note: convert.ToWireNote(out)}, nil
}

// SoftDelete tombstones a note.
func (s *Server) SoftDelete(ctx context.Context, req *notesv1.SoftDeleteRequest) (*emptypb.Empty, error) {
	userID, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := uuid.FromString(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	if _, err := s.notes.SoftDelete(ctx, userID, id); err != nil {
		return nil, toStatus("soft delete", err)
	}
	return &emptypb.Empty{}, nil
}

// BulkSync reconciles a batch of client records.
func (s *Server) BulkSync(ctx context.Context, req *notesv1.BulkSyncRequest) (*notesv1.BulkSyncResponse, error) {
	userID, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	ns, err := convert.FromWireNotes(req.Notes)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad notes: %v", err)
	}
	res, err := s.notes.BulkSync(ctx, userID, ns)
	if err != nil {
		return nil, toStatus("bulk sync", err)
	}
	return convert.ToWireBulkSync(res), nil
}
