package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// badRequest marks a request the handlers could not even decode.
type badRequest struct {
	reason string
}

func (e *badRequest) Error() string { return "bad request: " + e.reason }

// statusFor maps an engine error to its HTTP status, error code and the
// message shown to the client.
func statusFor(err error) (int, string, string) {
	var br *badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, "bad_request", "Bad request: " + br.reason
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, "user_already_exists", "User already exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Authentication failed"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "Token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "Invalid token"
	case errors.Is(err, common.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "An internal server error occurred"
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "Request failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
	writeJSONError(w, status, code, msg)
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
