package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler builds the routing tree.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("X-Version", "1.0"))
	r.Use(middleware.SetHeader("X-Frame-Options", "DENY"))
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(middleware.SetHeader("X-XSS-Protection", "1; mode=block"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/health", s.health)
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Get("/verify-email", s.verifyEmail)
			r.Post("/request-password-reset", s.requestPasswordReset)
			r.Post("/confirm-password-reset", s.confirmPasswordReset)

			r.Route("/user", func(r chi.Router) {
				r.Use(s.requireBearer)
				r.Get("/info", s.userInfo)
				r.Post("/change-password", s.changePassword)
				r.Post("/refresh-token", s.refreshToken)
				r.Post("/logout", s.logout)
			})
		})
	})

	return r
}
