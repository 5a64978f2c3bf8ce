package grpc

import (
	"net"

	"mention-bot/utils"

	"github.com/m-mizutani/goerr/v2"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name probes ask for.
const ServiceName = "mention-bot"

// StatusServer exposes the standard gRPC health service. The bot reports SERVING while
// its gateway session is connected.
type StatusServer struct {
	server *grpc.Server
	health *health.Server
	addr   string
	lis    net.Listener
}

// NewStatusServer creates a status server listening on addr. Both the overall status and
// ServiceName start as NOT_SERVING.
func NewStatusServer(addr string) *StatusServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &StatusServer{server: srv, health: hs, addr: addr}
}

// Start begins serving in the background.
func (s *StatusServer) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen for status server", goerr.V("addr", s.addr))
	}
	s.lis = lis

	go func() {
		if err := s.server.Serve(lis); err != nil {
			utils.Logger().Warnw("status server stopped", "error", err)
		}
	}()
	utils.Logger().Infow("status server listening", "addr", lis.Addr().String())
	return nil
}

// Addr returns the bound address once started.
func (s *StatusServer) Addr() string {
	if s.lis == nil {
		return s.addr
	}
	return s.lis.Addr().String()
}

// SetServing flips the reported status.
func (s *StatusServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop marks the service as shutting down and stops the server.
func (s *StatusServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
