package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP for a request. X-Forwarded-For is
// consulted first (first hop), then X-Real-IP, then RemoteAddr. The backend
// is expected to sit behind a trusted proxy that sets these headers.
func FromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx != -1 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
