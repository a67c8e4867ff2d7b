package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusFor(err))
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation,
//     at warn level when the error maps to a known code
//  5. User message is rendered as JSON for API calls, HTML otherwise

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sourcefields/internal/core"
	"github.com/JonMunkholm/sourcefields/internal/logging"
	"github.com/JonMunkholm/sourcefields/internal/web/templates"
)

// statusClientClosedRequest is logged when the caller went away mid-sampling.
const statusClientClosedRequest = 499

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
// Error is the one-line "Message (Code: X). Action" form.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingSource), errors.Is(err, core.ErrInvalidSource):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMalformedBody), errors.Is(err, core.ErrBodyTooLarge):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrTooManyFetches):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes a
// user-friendly response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context()).Error
	if core.IsUserFacing(err) {
		log = logging.FromContext(r.Context()).Warn
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		writeJSON(w, r, statusCode, ErrorResponse{
			Error:   core.FormatUserError(err),
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}
	respondErrorHTML(w, r, userMsg, statusCode)
}

// respondErrorHTML renders the error alert fragment.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// wantsJSON checks if the client prefers a JSON response. The fields
// endpoint always answers JSON.
func wantsJSON(r *http.Request) bool {
	if r.URL.Path == "/fields" || r.URL.Path == "/healthz" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
