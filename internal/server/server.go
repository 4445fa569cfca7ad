package server

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// Server is the gRPC listener with health reporting.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.SugaredLogger
}

// New registers the voucher service and the standard health service.
func New(svc InvoiceService, log *zap.SugaredLogger) *Server {
	log = logger.OrNop(log)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryRequestID(log)))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterVoucherServiceServer(gs, NewVoucherServer(svc, log))
	return &Server{grpc: gs, health: hs, logger: log}
}

// GRPC exposes the underlying server.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Serve accepts on lis until ctx is done, then drains in-flight calls.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("grpc.serve", "addr", lis.Addr().String())
		errCh <- s.grpc.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "grpc serve")
	case <-ctx.Done():
		s.logger.Infow("grpc.shutdown")
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	}
}
