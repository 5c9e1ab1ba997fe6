package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize fits a course payload with an inline base64 thumbnail
const DefaultMaxRequestSize = 10 * 1024 * 1024 // 10MB

// RequestSizeLimit limits the size of request bodies to maxBytes
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
