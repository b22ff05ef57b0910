package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	started := time.Now()
	resp, err := handler(ctx, req)

	args := []any{"method", info.FullMethod, "code", status.Code(err).String(), "took", time.Since(started).String()}
	if err != nil {
		s.logger.Warn(ctx, "control call failed", append(args, "error", err)...)
	} else {
		s.logger.Debug(ctx, "control call", args...)
	}
	return resp, err
}
