// Package respond provides utilities for sending HTTP responses in JSON format.
// It includes error handling with sanitization so that upstream details
// (delivery endpoints, tokens, network errors) never reach the page that
// posted the events.
//
// Usage:
//
//	respond.JSON(w, http.StatusAccepted, trackResponse{Accepted: n})
//	respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// JSON writes a JSON response with the given status code and data.
// A nil v writes the status and headers with an empty body. Encoding errors
// are logged only, since the status line has already been sent.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent
			slog.Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes a JSON error response of the form {"error": "<message>"}.
// The message is sent verbatim; use SafeError when err may carry internal
// details.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// safeFragments mark messages that describe the client's own input and can be
// returned as-is.
var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"must be",
	"cannot be",
	"too large",
	"too long",
	"unsupported",
	"closed",
	"rate limit",
}

// SafeError sanitizes error messages before returning them to clients.
//
// Messages that describe the client's input (validation failures, rate
// limits) are returned as-is with status code. Any other message, and every
// 5xx regardless of its text, is replaced by "internal server error"; the
// original cause is logged after SanitizeError masks credentials in it.
//
// Parameters:
//   - w: response writer
//   - code: HTTP status code to send
//   - err: the error to report; nil writes nothing
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	if code < 500 && isSafe(msg) {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": "internal server error"})
}

func isSafe(msg string) bool {
	lower := strings.ToLower(msg)
	for _, fragment := range safeFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
