package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"cloudkv/internal/storage"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServerOptions configures a Listener.
type ServerOptions struct {
	ServerID string
	Logger   *slog.Logger
}

// Listener serves one store on a network listener.
type Listener struct {
	lis        net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	serverID   string
	logger     *slog.Logger
}

// Listen opens a TCP listener on addr and prepares a server for store.
func Listen(addr string, store storage.Store, opts ServerOptions) (*Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return NewListener(lis, store, opts), nil
}

// NewListener prepares a server for store on an existing listener.
func NewListener(lis net.Listener, store storage.Store, opts ServerOptions) *Listener {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterStoreServer(grpcServer, NewServer(store, opts.ServerID, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Listener{
		lis:        lis,
		grpcServer: grpcServer,
		health:     healthServer,
		serverID:   opts.ServerID,
		logger:     logger,
	}
}

// Addr returns the listener address.
func (l *Listener) Addr() string {
	if l == nil || l.lis == nil {
		return ""
	}
	return l.lis.Addr().String()
}

// Serve blocks until ctx is cancelled or the server fails.
func (l *Listener) Serve(ctx context.Context) error {
	l.logger.Info("starting store server", slog.String("server_id", l.serverID), slog.String("addr", l.Addr()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- l.grpcServer.Serve(l.lis)
	}()

	select {
	case <-ctx.Done():
		l.Stop()
		<-serveErr
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	}
}

// Stop marks the server as not serving and drains in-flight calls.
func (l *Listener) Stop() {
	l.logger.Info("stopping store server", slog.String("server_id", l.serverID))
	l.health.Shutdown()
	l.grpcServer.GracefulStop()
}
