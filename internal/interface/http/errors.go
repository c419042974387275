package http

import (
	"errors"
	"net/http"

	"github.com/habitpact/habitpact/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// Domain errors carry a Kind sentinel; the mapping here is the only place
// HTTP status codes are decided.
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps a domain error onto an HTTP status code and a stable
// machine-readable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrSelfRedeem),
		errors.Is(err, shared.ErrEmptyReason):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, shared.ErrExpired):
		return http.StatusGone, "expired"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case shared.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, shared.ErrExternalService):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// respondError writes the mapped status for err. Domain error messages are
// written verbatim; anything unmapped gets a generic body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := "An unexpected error occurred"
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	} else if status != http.StatusInternalServerError {
		message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", getRequestID(r.Context()),
		)
	}

	writeJSONError(w, status, code, message)
}
