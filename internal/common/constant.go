package common

// AccessTokenHeaderName is the gRPC metadata / HTTP header key carrying the
// bearer access token.
const AccessTokenHeaderName = "authorization"

// TokenType is the scheme reported to clients alongside issued tokens.
const TokenType = "Bearer"
