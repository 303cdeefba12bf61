package middleware

import (
	"encoding/json"
	"net/http"

	"go-lms/internal/model"
)

// writeErrorJSON writes the standard failure envelope. Middleware cannot use
// the handler package, which depends on it.
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Failure(code, message, ""))
}
