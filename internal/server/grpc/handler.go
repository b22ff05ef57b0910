package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/controlapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) ForceReconcile(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.logger.Info(ctx, "Forced reconciliation requested")

	res, err := s.scheduler.ForceReconcile(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(res)
}

func (s *GRPCServer) PlaylistStatus(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "playlist id must be positive")
	}

	st, err := s.scheduler.Status(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(st)
}

func (s *GRPCServer) ProbeDevice(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "device id is required")
	}

	st, err := s.monitor.Probe(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(st)
}

func (s *GRPCServer) ProbeAll(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sum, err := s.monitor.ProbeAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(sum)
}

func (s *GRPCServer) DesiredContent(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	playlists, err := s.content.DesiredContent(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := controlapi.ToList(playlists)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	out, err := controlapi.ToStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
