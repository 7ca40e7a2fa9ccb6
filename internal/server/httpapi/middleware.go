package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

// requireBearer admits requests carrying a valid, unrevoked bearer token
// and stores its claims in the request context.
func (s *HTTPServer) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		claims, err := s.authn.Authenticate(r.Context(), token)
		if err != nil {
			s.logger.Warn(r.Context(), "Bearer rejected", "error", err, "request_id", middleware.GetReqID(r.Context()))
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
