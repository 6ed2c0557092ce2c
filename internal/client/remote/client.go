// Package remote is the client side of the NoteSync reconciliation API.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/laatu08/Offline-Note-App/internal/api/notesv1"
	"github.com/laatu08/Offline-Note-App/internal/convert"
	"github.com/laatu08/Offline-Note-App/internal/errs"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

// Client calls the reconciliation service on behalf of a bearer credential
// supplied per call.
type Client struct {
	api        notesv1.NoteSyncClient
	requireTLS bool
}

// New wraps a connection. requireTLS must be false for plaintext channels,
// otherwise the bearer credential is refused by gRPC.
func New(cc grpc.ClientConnInterface, requireTLS bool) *Client {
	return &Client{api: notesv1.NewNoteSyncClient(cc), requireTLS: requireTLS}
}

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func (c *Client) auth(cred string) grpc.CallOption {
	return grpc.PerRPCCredentials(bearerCreds{token: cred, secure: c.requireTLS})
}

// fromStatus maps gRPC failures onto the shared sentinels. Anything that is
// not a definite answer from the service is a transport failure.
func fromStatus(op string, err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, errs.ErrAlreadyExists)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %s", op, errs.ErrValidation, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%s: %w", op, errs.ErrUnauthorized)
	default:
		return fmt.Errorf("%s: %w: %s", op, errs.ErrTransport, st.Message())
	}
}

// List returns live notes updated strictly after since.
func (c *Client) List(ctx context.Context, cred string, since time.Time) ([]model.Note, error) {
	resp, err := c.api.List(ctx, &notesv1.ListRequest{Since: convert.Millis(since)}, c.auth(cred))
	if err != nil {
		return nil, fromStatus("list", err)
	}
	ns, err := convert.FromWireNotes(resp.Notes)
	if err != nil {
		return nil, fmt.Errorf("list: %w: %v", errs.ErrTransport, err)
	}
	return ns, nil
}

func (c *Client) Create(ctx context.Context, cred string, n model.Note) (model.Note, error) {
	resp, err := c.api.Create(ctx, &notesv1.CreateRequest{Note: convert.ToWireNote(n)}, c.auth(cred))
	if err != nil {
		return model.Note{}, fromStatus("create", err)
	}
	return c.note("create", resp)
}

func (c *Client) Update(ctx context.Context, cred string, id uuid.UUID, patch model.NotePatch) (model.Note, error) {
	resp, err := c.api.Update(ctx, convert.ToWireUpdate(id, patch), c.auth(cred))
	if err != nil {
		return model.Note{}, fromStatus("update", err)
	}
	return c.note("update", resp)
}

func (c *Client) note(op string, resp *notesv1.NoteResponse) (model.Note, error) {
	n, err := convert.FromWireNote(resp.Note)
	if err != nil {
		return model.Note{}, fmt.Errorf("%s: %w: %v", op, errs.ErrTransport, err)
	}
	return n, nil
}

// SoftDelete tombstones id remotely; repeated calls succeed.
func (c *Client) SoftDelete(ctx context.Context, cred string, id uuid.UUID) error {
	if _, err := c.api.SoftDelete(ctx, &notesv1.SoftDeleteRequest{ID: id.String()}, c.auth(cred)); err != nil {
		return fromStatus("soft delete", err)
	}
	return nil
}

// BulkSync pushes a batch and returns the per-record outcome.
func (c *Client) BulkSync(ctx context.Context, cred string, notes []model.Note) (model.BulkSyncResult, error) {
	resp, err := c.api.BulkSync(ctx, &notesv1.BulkSyncRequest{Notes: convert.ToWireNotes(notes)}, c.auth(cred))
	if err != nil {
		return model.BulkSyncResult{}, fromStatus("bulk sync", err)
	}
	res, err := convert.FromWireBulkSync(resp)
	if err != nil {
		return model.BulkSyncResult{}, fmt.Errorf("bulk sync: %w: %v", errs.ErrTransport, err)
	}
	return res, nil
}
