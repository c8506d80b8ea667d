package security

import (
	"net/http"

	"github.com/noah-isme/backend-resto/internal/common"
)

// BodyLimit caps request payloads. Requests that declare a larger body are refused up front;
// undeclared bodies are cut off by http.MaxBytesReader when read.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversized bodies with HTTP 413.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		}
		next.ServeHTTP(w, r)
	})
}
