package notesv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "notes.v1.NoteSync"

const (
	NoteSync_List_FullMethodName       = "/" + ServiceName + "/List"
	NoteSync_Create_FullMethodName     = "/" + ServiceName + "/Create"
	NoteSync_Update_FullMethodName     = "/" + ServiceName + "/Update"
	NoteSync_SoftDelete_FullMethodName = "/" + ServiceName + "/SoftDelete"
	NoteSync_BulkSync_FullMethodName   = "/" + ServiceName + "/BulkSync"
)

// NoteSyncServer is the server API for the NoteSync service.
type NoteSyncServer interface {
	List(context.Context, *ListRequest) (*ListResponse, error)
	Create(context.Context, *CreateRequest) (*NoteResponse, error)
	Update(context.Context, *UpdateRequest) (*NoteResponse, error)
	SoftDelete(context.Context, *SoftDeleteRequest) (*emptypb.Empty, error)
	BulkSync(context.Context, *BulkSyncRequest) (*BulkSyncResponse, error)
}

// RegisterNoteSyncServer registers srv on s.
func RegisterNoteSyncServer(s grpc.ServiceRegistrar, srv NoteSyncServer) {
	s.RegisterService(&NoteSync_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](
	method string, call func(NoteSyncServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if ic == nil {
			return call(srv.(NoteSyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NoteSyncServer), ctx, req.(*Req))
		}
		return ic(ctx, in, info, handler)
	}
}

// NoteSync_ServiceDesc is the grpc.ServiceDesc for the NoteSync service.
var NoteSync_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NoteSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: unaryHandler(NoteSync_List_FullMethodName, NoteSyncServer.List)},
		{MethodName: "Create", Handler: unaryHandler(NoteSync_Create_FullMethodName, NoteSyncServer.Create)},
		{MethodName: "Update", Handler: unaryHandler(NoteSync_Update_FullMethodName, NoteSyncServer.Update)},
		{MethodName: "SoftDelete", Handler: unaryHandler(NoteSync_SoftDelete_FullMethodName, NoteSyncServer.SoftDelete)},
		{MethodName: "BulkSync", Handler: unaryHandler(NoteSync_BulkSync_FullMethodName, NoteSyncServer.BulkSync)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notes/v1",
}

// NoteSyncClient is the client API for the NoteSync service.
type NoteSyncClient interface {
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*NoteResponse, error)
	SoftDelete(ctx context.Context, in *SoftDeleteRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	BulkSync(ctx context.Context, in *BulkSyncRequest, opts ...grpc.CallOption) (*BulkSyncResponse, error)
}

type noteSyncClient struct {
	cc grpc.ClientConnInterface
}

// NewNoteSyncClient returns a client that always speaks the JSON codec.
func NewNoteSyncClient(cc grpc.ClientConnInterface) NoteSyncClient {
	return &noteSyncClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *noteSyncClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, NoteSync_List_FullMethodName, in, opts)
}

func (c *noteSyncClient) Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, NoteSync_Create_FullMethodName, in, opts)
}

func (c *noteSyncClient) Update(ctx context.Context, in *UpdateRequest, opts ...grpc.CallOption) (*NoteResponse, error) {
	return invoke[NoteResponse](ctx, c.cc, NoteSync_Update_FullMethodName, in, opts)
}

func (c *noteSyncClient) SoftDelete(ctx context.Context, in *SoftDeleteRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, NoteSync_SoftDelete_FullMethodName, in, opts)
}

func (c *noteSyncClient) BulkSync(ctx context.Context, in *BulkSyncRequest, opts ...grpc.CallOption) (*BulkSyncResponse, error) {
	return invoke[BulkSyncResponse](ctx, c.cc, NoteSync_BulkSync_FullMethodName, in, opts)
}
