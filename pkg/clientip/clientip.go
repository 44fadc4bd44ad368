// Package clientip extracts the originating client address from a request.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is reported when no address could be determined.
const Unknown = "Unknown IP"

// FromRequest resolves the client IP for display and audit purposes.
// Proxy headers are checked in order of trust: X-Forwarded-For (first
// entry of the chain), X-Real-IP, then CF-Connecting-IP, falling back to
// the socket address. Loopback addresses are rendered as "localhost".
func FromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		return normalize(strings.TrimSpace(first))
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return normalize(strings.TrimSpace(xri))
	}

	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return normalize(strings.TrimSpace(cf))
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return normalize(host)
	}
	if r.RemoteAddr != "" {
		return normalize(r.RemoteAddr)
	}

	return Unknown
}

func normalize(addr string) string {
	if addr == "" {
		return Unknown
	}
	if ip := net.ParseIP(addr); ip != nil && ip.IsLoopback() {
		return "localhost"
	}
	if addr == "localhost" {
		return "localhost"
	}
	return addr
}
