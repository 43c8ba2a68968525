package transport

import (
	"context"

	"github.com/mohammadhprp/batchgate/internal/identity"
	"github.com/mohammadhprp/batchgate/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// gRPC names of the batch service.
const (
	BatchServiceName    = "batchgate.v1.Batch"
	BatchValidateMethod = "/batchgate.v1.Batch/Validate"
)

// BatchServer is the server API for the batchgate.v1.Batch service.
//
//	service Batch {
//	  rpc Validate(google.protobuf.Value) returns (google.protobuf.Struct);
//	}
type BatchServer interface {
	Validate(ctx context.Context, in *structpb.Value) (*structpb.Struct, error)
}

var batchServiceDesc = grpc.ServiceDesc{
	ServiceName: BatchServiceName,
	HandlerType: (*BatchServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Validate",
			Handler:    batchValidateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "batchgate/v1/batch.proto",
}

// RegisterBatchServer registers srv on s.
func RegisterBatchServer(s grpc.ServiceRegistrar, srv BatchServer) {
	s.RegisterService(&batchServiceDesc, srv)
}

func batchValidateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BatchServer).Validate(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: BatchValidateMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BatchServer).Validate(ctx, req.(*structpb.Value))
	}
	return interceptor(ctx, in, info, handler)
}

// BatchServiceImpl serves Validate with the same admission and validation
// rules as POST /endpoint.
type BatchServiceImpl struct {
	batch     *service.BatchService
	admission *service.AdmissionService
	resolver  *identity.Resolver
	logger    *zap.Logger
}

// Validate admits the caller, then tallies the records of a list payload.
func (s *BatchServiceImpl) Validate(ctx context.Context, in *structpb.Value) (*structpb.Struct, error) {
	id := s.identify(ctx)

	if _, err := s.admission.Admit(ctx, id); err != nil {
		return nil, s.toStatus(err)
	}

	items, err := service.AsList(in.AsInterface())
	if err != nil {
		return nil, s.toStatus(err)
	}

	result := s.batch.Evaluate(items)

	out, err := structpb.NewStruct(map[string]any{
		"valid":   result.Valid,
		"invalid": result.Invalid,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return out, nil
}

func (s *BatchServiceImpl) identify(ctx context.Context) identity.Identity {
	var presented string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(identity.HeaderAPIKey); len(vals) > 0 {
			presented = vals[0]
		}
	}

	var addr string
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr = p.Addr.String()
	}

	return s.resolver.ResolveKey(presented, addr)
}

// toStatus is the gRPC counterpart of the HTTP error mapping.
func (s *BatchServiceImpl) toStatus(err error) error {
	kind := service.KindOf(err)

	var code codes.Code
	switch kind {
	case service.KindRateLimited:
		code = codes.ResourceExhausted
	case service.KindMalformedInput, service.KindNotList:
		code = codes.InvalidArgument
	case service.KindForbidden:
		code = codes.PermissionDenied
	default:
		code = codes.Internal
		s.logger.Error("grpc request failed", zap.String("kind", kind.String()), zap.Error(err))
	}

	return status.Error(code, service.PublicMessage(err))
}
