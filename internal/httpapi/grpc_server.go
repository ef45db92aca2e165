package httpapi

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"cityinit.org/internal/obs"
)

// GRPCServiceName is the service name accepted by health checks besides "".
const GRPCServiceName = "cityinit.portal"

// GRPCServer implements grpc.health.v1.Health on top of the store readiness probe.
type GRPCServer struct {
	healthpb.UnimplementedHealthServer

	readiness ReadyProbe
}

// NewGRPCServer creates the gRPC health service.
func NewGRPCServer(r ReadyProbe) *GRPCServer {
	return &GRPCServer{readiness: r}
}

// Check reports SERVING while the store answers.
func (s *GRPCServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch req.GetService() {
	case "", GRPCServiceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	if err := s.readiness.Ready(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
