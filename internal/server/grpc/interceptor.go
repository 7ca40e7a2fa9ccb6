package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// accessTokenInterceptor authenticates calls to protected methods using the
// bearer token in the "authorization" metadata key.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protected[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if token, ok := auth.BearerToken(accessToken); ok {
			accessToken = token
		}
		if len(accessToken) == 0 {
			return nil, toStatus(common.ErrorUnauthorized)
		}

		claims, err := s.authn.Authenticate(ctx, accessToken)
		if err != nil {
			s.logger.Warn(ctx, "Bearer rejected", "method", info.FullMethod, "error", err)
			return nil, toStatus(err)
		}

		ctx = auth.WithClaims(ctx, claims)
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Info(ctx, "Call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
