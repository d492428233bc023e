// Package grpc runs the gRPC listener of the identity server: the
// authenticated Identity service, the standard health service and
// reflection, behind logging and bearer-token interceptors.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type TokenVerifier interface {
	ParseToken(token string) (*auth.Claims, error)
}

// Probe reports whether a dependency the server needs is reachable.
type Probe func(ctx context.Context) error

type GRPCServer struct {
	address       string
	logger        logging.Logger
	tokens        TokenVerifier
	roles         RoleLookup
	health        *health.Server
	probe         Probe
	probeInterval time.Duration
}

func NewGRPCServer(address string, l logging.Logger, tokens TokenVerifier, roles RoleLookup, probe Probe) *GRPCServer {
	return &GRPCServer{
		address:       address,
		logger:        l.With("module", "grpc_server"),
		tokens:        tokens,
		roles:         roles,
		health:        health.NewServer(),
		probe:         probe,
		probeInterval: 10 * time.Second,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	srv.RegisterService(&identityServiceDesc, &identityHandler{roles: s.roles})
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	s.updateHealth(ctx)

	go s.watchHealth(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
