package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"google.golang.org/grpc"
)

const ServiceName = "gophauth.v1.AuthService"

// FullMethod returns the gRPC method path for a method of AuthService.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// protected lists the methods that need a bearer token.
var protected = map[string]bool{
	FullMethod("GetUserInfo"):    true,
	FullMethod("ChangePassword"): true,
	FullMethod("RefreshToken"):   true,
	FullMethod("Logout"):         true,
}

// serviceDesc is written by hand: payloads are plain Go structs carried by
// the JSON codec.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", func(s *GRPCServer, ctx context.Context, in *CredentialsRequest) (any, error) {
			return s.engine.Register(ctx, in.Email, in.Password)
		}),
		unary("Login", func(s *GRPCServer, ctx context.Context, in *CredentialsRequest) (any, error) {
			return s.engine.Login(ctx, in.Email, in.Password)
		}),
		unary("VerifyEmail", func(s *GRPCServer, ctx context.Context, in *TokenRequest) (any, error) {
			return s.engine.VerifyEmail(ctx, in.Token)
		}),
		unary("RequestPasswordReset", func(s *GRPCServer, ctx context.Context, in *EmailRequest) (any, error) {
			return s.engine.RequestPasswordReset(ctx, in.Email)
		}),
		unary("ConfirmPasswordReset", func(s *GRPCServer, ctx context.Context, in *ConfirmPasswordResetRequest) (any, error) {
			return s.engine.ConfirmPasswordReset(ctx, in.Token, in.NewPassword)
		}),
		unary("GetUserInfo", func(s *GRPCServer, ctx context.Context, _ *Empty) (any, error) {
			claims, ok := auth.ClaimsFromContext(ctx)
			if !ok {
				return nil, common.ErrorUnauthorized
			}
			return s.engine.GetUserInfo(ctx, claims.Subject)
		}),
		unary("ChangePassword", func(s *GRPCServer, ctx context.Context, in *ChangePasswordRequest) (any, error) {
			claims, ok := auth.ClaimsFromContext(ctx)
			if !ok {
				return nil, common.ErrorUnauthorized
			}
			return s.engine.ChangePassword(ctx, claims.Subject, in.CurrentPassword, in.NewPassword)
		}),
		unary("RefreshToken", func(s *GRPCServer, ctx context.Context, _ *Empty) (any, error) {
			claims, ok := auth.ClaimsFromContext(ctx)
			if !ok {
				return nil, common.ErrorUnauthorized
			}
			return s.engine.RefreshToken(ctx, claims.Subject)
		}),
		unary("Logout", func(s *GRPCServer, ctx context.Context, _ *Empty) (any, error) {
			claims, _ := auth.ClaimsFromContext(ctx)
			return s.engine.Logout(ctx, claims)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

// unary adapts a typed call into a grpc.MethodDesc. Engine errors are
// translated to status errors here so interceptors see the final code.
func unary[Req any](method string, call func(*GRPCServer, context.Context, *Req) (any, error)) grpc.MethodDesc {
	invoke := func(s *GRPCServer, ctx context.Context, in *Req) (any, error) {
		out, err := call(s, ctx, in)
		if err != nil {
			return nil, toStatus(err)
		}
		return out, nil
	}

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return invoke(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return invoke(s, ctx, req.(*Req))
			})
		},
	}
}
