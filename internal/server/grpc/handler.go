package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors onto gRPC codes the client understands.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return gatewayrpc.NewStatusResponse(), nil
}

func (s *GRPCServer) Fetch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	entity, filter := gatewayrpc.ParseFetchRequest(in)

	records, err := s.records.Fetch(ctx, userID, entity, filter)
	if err != nil {
		return nil, s.toStatus(ctx, gatewayrpc.MethodFetch, err)
	}
	out, err := gatewayrpc.NewRecordsResponse(records)
	if err != nil {
		return nil, s.toStatus(ctx, gatewayrpc.MethodFetch, err)
	}
	return out, nil
}

func (s *GRPCServer) Upsert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	entity, records, err := gatewayrpc.ParseUpsertRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.records.Upsert(ctx, userID, entity, records); err != nil {
		return nil, s.toStatus(ctx, gatewayrpc.MethodUpsert, err)
	}
	s.logger.Debug(ctx, "upserted", "user", userID, "entity", entity, "count", len(records))
	return gatewayrpc.Empty(), nil
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	entity, id := gatewayrpc.ParseDeleteRequest(in)

	if err := s.records.Delete(ctx, userID, entity, id); err != nil {
		return nil, s.toStatus(ctx, gatewayrpc.MethodDelete, err)
	}
	return gatewayrpc.Empty(), nil
}

func (s *GRPCServer) SignBlob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.Sign(ctx, userID, gatewayrpc.ParseSignRequest(in))
	if err != nil {
		return nil, s.toStatus(ctx, gatewayrpc.MethodSignBlob, err)
	}
	return gatewayrpc.NewURLResponse(url), nil
}

func (s *GRPCServer) RemoveBlob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.blobs.Remove(ctx, userID, gatewayrpc.Path(in)); err != nil {
		return nil, s.toStatus(ctx, gatewayrpc.MethodRemoveBlob, err)
	}
	return gatewayrpc.Empty(), nil
}
