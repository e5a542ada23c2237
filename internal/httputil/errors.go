package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError is the standard error envelope for every failure response.
type APIError struct {
	Error   bool           `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error:   true,
		Message: message,
		Details: details,
	})
}

func WriteValidationError(w http.ResponseWriter, requestID, message, field string) {
	details := map[string]any{"error_type": "validation_error"}
	if field != "" {
		details["field"] = field
	}
	WriteError(w, requestID, http.StatusBadRequest, message, details)
}

func WriteAPIKeyError(w http.ResponseWriter, requestID, provider, message string) {
	WriteError(w, requestID, http.StatusBadRequest, message, map[string]any{
		"error_type": "api_key_missing",
		"provider":   provider,
	})
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, message, map[string]any{
		"error_type": "rate_limit",
	})
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, message, map[string]any{
		"error_type": "http_error",
	})
}

// WriteInternalError reports a server-side failure with a generic message.
// Internal error details are logged, never sent to the caller.
func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, message, map[string]any{
		"error_type": "internal_error",
	})
}
