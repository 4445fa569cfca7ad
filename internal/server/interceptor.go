package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
)

// RequestIDHeader is read from incoming metadata and echoed in the response header.
const RequestIDHeader = "x-request-id"

// UnaryRequestID attaches a request id to the context (generated when the
// caller sends none) and logs each call.
func UnaryRequestID(log *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDHeader); len(vals) > 0 {
				rid = vals[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, rid)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, rid))

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if err != nil {
			log.Warnw("grpc.call.failed", "method", info.FullMethod, "request_id", rid, "code", code.String(),
				"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		} else {
			log.Infow("grpc.call.ok", "method", info.FullMethod, "request_id", rid,
				"elapsed_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
