package handler

// RESPONSE HELPERS:
// Every handler writes through writeJSON and writeError so that all
// responses share one shape.
//
// CONSISTENT ERROR FORMAT:
//   {"error": "blog not found with id abc123", "code": "not_found"}
//
// "error" is the human-readable message clients display or match on
// ("invalid password", "User validation failed: ..."). "code" is the
// machine-readable class and never changes for a given status.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/bloglist/internal/apperror"
)

// maxBodyBytes caps request bodies. Blog and user payloads are tiny.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"` // Human-readable description
	Code  string `json:"code"`  // Machine-readable error class (e.g., "not_found")
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set before the body: once Encode writes, the
// headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.Is walks the whole chain, so a service error such as
//
//	fmt.Errorf("service/blog: loading blog x: %w", apperror.NotFound(...))
//
// still maps to 404. Errors that carry no AppError are internal: the client
// gets a generic 500 and the details go to the log only.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, code := statusFor(err)
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="bloglist"`)
		}
		writeJSON(w, status, ErrorResponse{
			Error: appErr.Message,
			Code:  code,
		})
		return
	}

	// Never echo raw errors: they can contain SQL or file paths.
	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "An internal error occurred",
		Code:  "internal_error",
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errInvalidJSON is returned for bodies that are not a single JSON object.
var errInvalidJSON = apperror.ValidationFailed("", "invalid JSON body")

// decodeJSON decodes exactly one JSON value from the request body into dst.
// Malformed bodies, trailing data, and bodies over maxBodyBytes all become a
// 400-class validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", fmt.Sprintf("request body must be %d bytes or fewer", maxErr.Limit))
		}
		return errInvalidJSON
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidJSON
	}
	return nil
}
