package handlers

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes data as the JSON response body. For 200 the explicit
// WriteHeader call is skipped so the first body write commits the status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes the engine's error body shape: a stable machine-readable
// code under "error" and a human-readable "message". Every non-2xx response in
// the API goes through this so clients can switch on the code.
func ErrorResponse(w http.ResponseWriter, status int, code, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
