package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/samber/lo"
)

// CORS allows the SPA origins. A wildcard disables credentialed requests,
// which browsers reject anyway.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := lo.Contains(origins, "*")

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		MaxAge:           600,
		AllowCredentials: !wildcard,
	})

	return handler.Handler
}
