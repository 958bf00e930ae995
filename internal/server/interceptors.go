package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/cfgseed/internal/rpc"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// rpcAttrs returns the account a call concerns, taken from the request or,
// for account creation, from the response.
func rpcAttrs(req, resp any) []any {
	var attrs []any
	for _, m := range []any{req, resp} {
		if s, ok := m.(rpc.AccountScoped); ok && s.ScopeAccountID() != "" {
			attrs = append(attrs, "account_id", s.ScopeAccountID())
			break
		}
	}
	if r, ok := resp.(*rpc.CreateAccountResponse); ok && r != nil {
		attrs = append(attrs, "copied", r.Copied)
	}
	return attrs
}

// LoggingInterceptor logs every unary call with its duration, status code
// and the account it concerns. Client errors log at warn, server errors at
// error.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := append([]any{
			"method", info.FullMethod,
			"code", code.String(),
			"duration", time.Since(start),
		}, rpcAttrs(req, resp)...)

		switch code {
		case codes.OK:
			logger.Info("rpc completed", attrs...)
		case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.Unauthenticated:
			logger.Warn("rpc rejected", append(attrs, "error", err)...)
		default:
			logger.Error("rpc failed", append(attrs, "error", err)...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns a handler panic into codes.Internal and logs the
// method, the account the request addressed and the stack.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				attrs := append([]any{"method", info.FullMethod}, rpcAttrs(req, nil)...)
				logger.Error("panic recovered in gRPC handler", append(attrs,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)...)
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// checkBearer validates an Authorization header value against token and
// returns a reason for rejection, or "" when it matches.
func checkBearer(header, token string) string {
	if header == "" {
		return "missing authorization header"
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "invalid authorization scheme"
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return "invalid token"
	}
	return ""
}

// AuthInterceptor requires "authorization: Bearer <token>" metadata on
// every call except the standard health check. An empty token disables it.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token == "" || info.FullMethod == healthCheckMethod {
			return handler(ctx, req)
		}
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				header = vals[0]
			}
		}
		if reason := checkBearer(header, token); reason != "" {
			return nil, status.Error(codes.Unauthenticated, reason)
		}
		return handler(ctx, req)
	}
}

// AuthMiddleware is the HTTP counterpart of AuthInterceptor. GET /v1/health
// is exempt.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		if reason := checkBearer(r.Header.Get("Authorization"), token); reason != "" {
			writeError(w, http.StatusUnauthorized, reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}
