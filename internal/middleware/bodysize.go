package middleware

import (
	"net/http"
)

// Body size limits.
const (
	// MaxJSONBodySize bounds API request bodies.
	MaxJSONBodySize = 1 << 20
	// MaxWebhookBodySize bounds provider webhooks, which carry full transcripts.
	MaxWebhookBodySize = 10 << 20
)

// BodySizeLimiter rejects bodies larger than maxBytes with 413.
func BodySizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeJSONError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			// MaxBytesReader also covers chunked bodies without Content-Length.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
