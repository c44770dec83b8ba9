package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"parkspace-backend/internal/logger"
)

const requestIDKey = "x-request-id"

type LoggingInterceptor struct{}

func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{}
}

// Unary returns a server interceptor that tags each call with a request id,
// logs its outcome and turns handler panics into codes.Internal.
func (i *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		ctx = logger.NewContext(ctx, "request_id", requestID(ctx), "rpc", info.FullMethod)
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "gRPC handler panic recovered", "panic", rec)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			if code == codes.OK || code == codes.NotFound || code == codes.InvalidArgument {
				logger.DebugContext(ctx, "gRPC call", "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
			} else {
				logger.WarnContext(ctx, "gRPC call failed", "code", code.String(), "duration_ms", time.Since(start).Milliseconds(), "error", err)
			}
		}()

		return handler(ctx, req)
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(requestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.NewString()
}
