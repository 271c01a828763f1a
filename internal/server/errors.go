package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/localrivet/localmcp/internal/errortypes"
)

// ErrorResponse represents the structure of error responses sent by the HTTP transport
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	// ErrorCodeInternalError indicates an internal server error
	ErrorCodeInternalError = "INTERNAL_ERROR"

	// ErrorCodeResourceNotFound indicates a requested resource was not found
	ErrorCodeResourceNotFound = "RESOURCE_NOT_FOUND"

	// ErrorCodeMethodNotAllowed indicates the HTTP method is not served on the path
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// writeErrorResponse writes a structured error response to the HTTP response writer
func writeErrorResponse(w http.ResponseWriter, status int, code, message string, err error) {
	errResp := ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}

		// Only server-side failures are worth an error log
		if status >= http.StatusInternalServerError {
			logErr := errortypes.InternalError(err, fmt.Sprintf("HTTP error (%s)", code)).
				WithField("status_code", status).
				WithField("error_code", code).
				WithField("client_message", message)
			errortypes.LogError(nil, logErr)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// HandleNotFound handles 404 Not Found errors
func HandleNotFound(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusNotFound, ErrorCodeResourceNotFound, message, err)
}

// HandleMethodNotAllowed handles 405 Method Not Allowed errors
func HandleMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeErrorResponse(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed,
		"Method not allowed", nil)
}

// HandleInternalError handles 500 Internal Server Error errors
func HandleInternalError(w http.ResponseWriter, message string, err error) {
	writeErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, message, err)
}

// HandleError writes a 404 for not-found errors and a 500 for everything else.
// Tool failures never reach HTTP; they travel inside MCP results.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) && appErr.Type == errortypes.ErrorTypeNotFound {
		HandleNotFound(w, "Resource not found", err)
		return
	}

	HandleInternalError(w, "An unexpected error occurred", err)
}

// recoverHTTP converts handler panics into a 500 JSON response.
func recoverHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				HandleError(w, errortypes.InternalError(fmt.Errorf("panic: %v", rec), "HTTP handler panicked").
					WithField("path", r.URL.Path))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
