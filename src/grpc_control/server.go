package grpc_control

import (
	"context"
	"fmt"
	"net"
	"time"

	"symbollist-observer/src/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// Server hosts the control service.
type Server struct {
	Addr   string
	Logger *logger.Logger
	grpc   *grpc.Server
}

// NewServer creates a gRPC server with logging and the control service
// registered.
func NewServer(host string, port int, svc ControlServer, log *logger.Logger) *Server {
	s := &Server{
		Addr:   fmt.Sprintf("%s:%d", host, port),
		Logger: log,
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logCalls))
	RegisterControlServer(s.grpc, svc)
	reflection.Register(s.grpc)
	return s
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	if err != nil {
		s.Logger.Warning("gRPC %s failed after %v: %v", info.FullMethod, time.Since(start), err)
	} else {
		s.Logger.Debug("gRPC %s took %v", info.FullMethod, time.Since(start))
	}
	return resp, err
}

// -----------------------------------------------------------------------------

// Start listens on Addr and blocks serving.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	return s.Serve(lis)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.Logger.Info("gRPC control listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
