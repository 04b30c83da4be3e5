// Package rpc declares the coordinator gRPC service shared by the
// coordinator, workers and mrctl. Messages travel as JSON using the codec
// registered by this package.
package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "mrsched.Coordinator"

const (
	SubmitJobMethod  = "/" + ServiceName + "/SubmitJob"
	PollJobMethod    = "/" + ServiceName + "/PollJob"
	GetTaskMethod    = "/" + ServiceName + "/GetTask"
	FinishTaskMethod = "/" + ServiceName + "/FinishTask"
)

type CoordinatorServer interface {
	SubmitJob(context.Context, *SubmitJobRequest) (*SubmitJobResponse, error)
	PollJob(context.Context, *PollJobRequest) (*PollJobResponse, error)
	GetTask(context.Context, *GetTaskRequest) (*GetTaskResponse, error)
	FinishTask(context.Context, *FinishTaskRequest) (*FinishTaskResponse, error)
}

func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitJob",
			Handler:    unaryHandler(SubmitJobMethod, CoordinatorServer.SubmitJob),
		},
		{
			MethodName: "PollJob",
			Handler:    unaryHandler(PollJobMethod, CoordinatorServer.PollJob),
		},
		{
			MethodName: "GetTask",
			Handler:    unaryHandler(GetTaskMethod, CoordinatorServer.GetTask),
		},
		{
			MethodName: "FinishTask",
			Handler:    unaryHandler(FinishTaskMethod, CoordinatorServer.FinishTask),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mrsched/coordinator",
}

func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(CoordinatorServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CoordinatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CoordinatorServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type CoordinatorClient interface {
	SubmitJob(ctx context.Context, in *SubmitJobRequest, opts ...grpc.CallOption) (*SubmitJobResponse, error)
	PollJob(ctx context.Context, in *PollJobRequest, opts ...grpc.CallOption) (*PollJobResponse, error)
	GetTask(ctx context.Context, in *GetTaskRequest, opts ...grpc.CallOption) (*GetTaskResponse, error)
	FinishTask(ctx context.Context, in *FinishTaskRequest, opts ...grpc.CallOption) (*FinishTaskResponse, error)
}

type coordinatorClient struct {
	cc grpc.ClientConnInterface
}

func NewCoordinatorClient(cc grpc.ClientConnInterface) CoordinatorClient {
	return &coordinatorClient{cc: cc}
}

func (c *coordinatorClient) SubmitJob(ctx context.Context, in *SubmitJobRequest, opts ...grpc.CallOption) (*SubmitJobResponse, error) {
	return invoke[SubmitJobResponse](ctx, c.cc, SubmitJobMethod, in, opts)
}

func (c *coordinatorClient) PollJob(ctx context.Context, in *PollJobRequest, opts ...grpc.CallOption) (*PollJobResponse, error) {
	return invoke[PollJobResponse](ctx, c.cc, PollJobMethod, in, opts)
}

func (c *coordinatorClient) GetTask(ctx context.Context, in *GetTaskRequest, opts ...grpc.CallOption) (*GetTaskResponse, error) {
	return invoke[GetTaskResponse](ctx, c.cc, GetTaskMethod, in, opts)
}

func (c *coordinatorClient) FinishTask(ctx context.Context, in *FinishTaskRequest, opts ...grpc.CallOption) (*FinishTaskResponse, error) {
	return invoke[FinishTaskResponse](ctx, c.cc, FinishTaskMethod, in, opts)
}

func invoke[Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}
