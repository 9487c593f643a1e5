package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows GET and POST with a Content-Type header from the given origins.
// Other origins get no CORS headers and the browser rejects the response.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
}
