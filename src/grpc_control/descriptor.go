package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "symbollist.control.v1.SymbolListControl"

// ControlServer is the server API of the control service. Messages are
// protobuf well-known types, so no generated code is needed.
type ControlServer interface {
	SendRequest(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	CloseRequest(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	CloseAllRequest(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetSymbolList(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	IsRefreshComplete(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	GetWatchList(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

func unary[Req, Resp any](name string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(ControlServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SendRequest", ControlServer.SendRequest),
		unary("CloseRequest", ControlServer.CloseRequest),
		unary("CloseAllRequest", ControlServer.CloseAllRequest),
		unary("GetSymbolList", ControlServer.GetSymbolList),
		unary("IsRefreshComplete", ControlServer.IsRefreshComplete),
		unary("GetWatchList", ControlServer.GetWatchList),
		unary("GetStatus", ControlServer.GetStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "symbollist/control/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) SendRequest(ctx context.Context, item string, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, "SendRequest", wrapperspb.String(item), opts...)
	return err
}

func (c *ControlClient) CloseRequest(ctx context.Context, item string, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, "CloseRequest", wrapperspb.String(item), opts...)
	return err
}

func (c *ControlClient) CloseAllRequest(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c.cc, "CloseAllRequest", &emptypb.Empty{}, opts...)
	return err
}

func (c *ControlClient) GetSymbolList(ctx context.Context, item string, opts ...grpc.CallOption) ([]string, error) {
	list, err := invoke[structpb.ListValue](ctx, c.cc, "GetSymbolList", wrapperspb.String(item), opts...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out, nil
}

func (c *ControlClient) IsRefreshComplete(ctx context.Context, item string, opts ...grpc.CallOption) (bool, error) {
	v, err := invoke[wrapperspb.BoolValue](ctx, c.cc, "IsRefreshComplete", wrapperspb.String(item), opts...)
	if err != nil {
		return false, err
	}
	return v.GetValue(), nil
}

func (c *ControlClient) GetWatchList(ctx context.Context, opts ...grpc.CallOption) (map[string]string, error) {
	st, err := invoke[structpb.Struct](ctx, c.cc, "GetWatchList", &emptypb.Empty{}, opts...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(st.GetFields()))
	for k, v := range st.GetFields() {
		out[k] = v.GetStringValue()
	}
	return out, nil
}

func (c *ControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (map[string]any, error) {
	st, err := invoke[structpb.Struct](ctx, c.cc, "GetStatus", &emptypb.Empty{}, opts...)
	if err != nil {
		return nil, err
	}
	return st.AsMap(), nil
}
