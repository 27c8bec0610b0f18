// Package grpc runs the gRPC health endpoint of the bookshelf server.
// The reported status follows the reachability of the metadata database.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/bookshelf/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name clients may query besides "".
const ServiceName = "bookshelf"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthServer struct {
	address  string
	pinger   Pinger
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

// NewHealthServer creates a server probing p every interval. A nil p
// reports SERVING unconditionally.
func NewHealthServer(a string, p Pinger, interval time.Duration, l logging.Logger) *HealthServer {
	return &HealthServer{
		address:  a,
		pinger:   p,
		interval: interval,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_health"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *HealthServer) watch(ctx context.Context) {
	if s.pinger == nil || s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

// probe pings the database once and publishes the result.
func (s *HealthServer) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "database unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
