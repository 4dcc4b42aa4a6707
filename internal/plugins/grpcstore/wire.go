package grpcstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/remote"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The note store service is described with protobuf well-known types only,
// so both ends share this file instead of generated stubs.
const (
	ServiceName = "alephnote.notestore.v1.NoteStore"

	PingMethod   = "/" + ServiceName + "/Ping"
	ListMethod   = "/" + ServiceName + "/List"
	FetchMethod  = "/" + ServiceName + "/Fetch"
	PushMethod   = "/" + ServiceName + "/Push"
	DeleteMethod = "/" + ServiceName + "/Delete"
)

// NoteStoreServer is implemented by the hub.
type NoteStoreServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	List(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	Fetch(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Push(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Delete(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
}

func unary[Req any, Resp any](method string, call func(NoteStoreServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NoteStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NoteStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NoteStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(PingMethod, NoteStoreServer.Ping)},
		{MethodName: "List", Handler: unary(ListMethod, NoteStoreServer.List)},
		{MethodName: "Fetch", Handler: unary(FetchMethod, NoteStoreServer.Fetch)},
		{MethodName: "Push", Handler: unary(PushMethod, NoteStoreServer.Push)},
		{MethodName: "Delete", Handler: unary(DeleteMethod, NoteStoreServer.Delete)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alephnote/notestore.proto",
}

func RegisterNoteStoreServer(s grpc.ServiceRegistrar, srv NoteStoreServer) {
	s.RegisterService(&serviceDesc, srv)
}

type noteStoreClient struct {
	cc grpc.ClientConnInterface
}

func (c *noteStoreClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.cc.Invoke(ctx, PingMethod, in, out, opts...)
}

func (c *noteStoreClient) List(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	return out, c.cc.Invoke(ctx, ListMethod, in, out, opts...)
}

func (c *noteStoreClient) Fetch(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FetchMethod, in, out, opts...)
}

func (c *noteStoreClient) Push(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	return out, c.cc.Invoke(ctx, PushMethod, in, out, opts...)
}

func (c *noteStoreClient) Delete(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	return out, c.cc.Invoke(ctx, DeleteMethod, in, out, opts...)
}

// EncodeNote converts a note into its wire form. Dirty is local state and
// never leaves the device.
func EncodeNote(n *models.Note) *structpb.Struct {
	tags := make([]*structpb.Value, 0, len(n.Tags))
	for _, t := range n.Tags {
		tags = append(tags, structpb.NewStringValue(t))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":       structpb.NewStringValue(n.ID),
		"title":    structpb.NewStringValue(n.Title),
		"text":     structpb.NewStringValue(n.Text),
		"tags":     structpb.NewListValue(&structpb.ListValue{Values: tags}),
		"modified": structpb.NewStringValue(n.ModifiedAt.UTC().Format(time.RFC3339Nano)),
		"revision": structpb.NewStringValue(n.Revision),
	}}
}

func DecodeNote(s *structpb.Struct) (*models.Note, error) {
	f := s.GetFields()
	id := strings.TrimSpace(f["id"].GetStringValue())
	if id == "" {
		return nil, fmt.Errorf("%w: note without id", common.ErrSerialization)
	}
	mod, err := time.Parse(time.RFC3339Nano, f["modified"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: note %s: bad modified time: %v", common.ErrSerialization, id, err)
	}

	n := &models.Note{
		ID:         id,
		Title:      f["title"].GetStringValue(),
		Text:       f["text"].GetStringValue(),
		ModifiedAt: mod,
		Revision:   f["revision"].GetStringValue(),
	}
	for _, v := range f["tags"].GetListValue().GetValues() {
		if _, ok := v.GetKind().(*structpb.Value_StringValue); !ok {
			return nil, fmt.Errorf("%w: note %s: non-string tag", common.ErrSerialization, id)
		}
		n.Tags = append(n.Tags, v.GetStringValue())
	}
	return n, nil
}

func EncodeRefs(refs []remote.Ref) *structpb.ListValue {
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(refs))}
	for _, r := range refs {
		out.Values = append(out.Values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":       structpb.NewStringValue(r.ID),
			"revision": structpb.NewStringValue(r.Revision),
		}}))
	}
	return out
}

func DecodeRefs(l *structpb.ListValue) ([]remote.Ref, error) {
	refs := make([]remote.Ref, 0, len(l.GetValues()))
	for i, v := range l.GetValues() {
		f := v.GetStructValue().GetFields()
		id := f["id"].GetStringValue()
		if id == "" {
			return nil, fmt.Errorf("%w: listing entry %d without id", common.ErrSerialization, i)
		}
		refs = append(refs, remote.Ref{ID: id, Revision: f["revision"].GetStringValue()})
	}
	return refs, nil
}
