// Package grpc exposes the scheduler, the monitor and the desired-content
// read model to operators over the fleetsync.v1.Control gRPC service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/controlapi"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
	"github.com/dmitrijs2005/fleetsync/internal/server/scheduler"
	"google.golang.org/grpc"
)

type Reconciler interface {
	ForceReconcile(ctx context.Context) (*scheduler.Result, error)
	Status(ctx context.Context, playlistID int64) (*models.PlaylistStatus, error)
}

type LivenessProber interface {
	Probe(ctx context.Context, deviceID string) (*models.DeviceStatus, error)
	ProbeAll(ctx context.Context) (*models.FleetSummary, error)
}

type ContentReader interface {
	DesiredContent(ctx context.Context, deviceID string) ([]contentapi.Playlist, error)
}

type GRPCServer struct {
	address   string
	scheduler Reconciler
	monitor   LivenessProber
	content   ContentReader
	logger    logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, rec Reconciler, mon LivenessProber, cr ContentReader) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		scheduler: rec,
		monitor:   mon,
		content:   cr,
	}
}

// newServer builds the gRPC server with the control service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	controlapi.RegisterControlServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
