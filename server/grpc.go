package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---------------------------------------------------------------------------
// gRPC service descriptors
//
// The services exchange google.protobuf.Struct messages, so the descriptors
// are written out by hand rather than generated from a .proto file.
// ---------------------------------------------------------------------------

type evaluationServer interface {
	evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	checkSyntax(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type sessionServer interface {
	createSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	destroySession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	complete(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var evaluationServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluationServiceName,
	HandlerType: (*evaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(EvaluationServiceName, "Evaluate", func(srv interface{}, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(evaluationServer).evaluate(ctx, in)
		}),
		unaryMethod(EvaluationServiceName, "CheckSyntax", func(srv interface{}, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(evaluationServer).checkSyntax(ctx, in)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*sessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(SessionServiceName, "CreateSession", func(srv interface{}, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(sessionServer).createSession(ctx, in)
		}),
		unaryMethod(SessionServiceName, "DestroySession", func(srv interface{}, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(sessionServer).destroySession(ctx, in)
		}),
		unaryMethod(SessionServiceName, "Complete", func(srv interface{}, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(sessionServer).complete(ctx, in)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

type unaryFunc func(srv interface{}, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(service, name string, call unaryFunc) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				out, err := call(srv, ctx, req.(*structpb.Struct))
				if err != nil {
					return nil, grpcError(err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// grpcError converts a Connect error into a gRPC status. The two share
// code numbering.
func grpcError(err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return status.Error(codes.Code(ce.Code()), ce.Message())
	}
	return status.Error(codes.Internal, err.Error())
}

// RegisterGRPC registers the evaluation and session services on gs.
func (s *Server) RegisterGRPC(gs *grpc.Server) {
	gs.RegisterService(&evaluationServiceDesc, s.eval)
	gs.RegisterService(&sessionServiceDesc, s.sessionSvc)
}
