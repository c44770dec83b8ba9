package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"parkspace-backend/internal/api/grpc/interceptor"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/repository"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "parkspace.BookingEngine"

// HealthReporter mirrors store reachability into the gRPC health service.
type HealthReporter struct {
	store  repository.Pinger
	health *health.Server
}

func NewHealthReporter(store repository.Pinger, hs *health.Server) *HealthReporter {
	return &HealthReporter{store: store, health: hs}
}

// Check pings the store once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		logger.Warn("Store health check failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(ServiceName, st)
	return st
}

// Run checks every interval until ctx is done, then marks the server as
// shutting down so load balancers drain it.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	h.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer builds the gRPC server exposing grpc.health.v1 and reflection.
func NewServer(store repository.Pinger) (*grpc.Server, *HealthReporter) {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.NewLoggingInterceptor().Unary()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	// Register reflection service for grpcurl
	reflection.Register(s)

	return s, NewHealthReporter(store, hs)
}
