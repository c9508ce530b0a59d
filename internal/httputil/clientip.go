// Package httputil holds small request helpers shared by the API and the
// event stream.
package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP identifies the caller for logging and per-client stream limits.
// With trustProxy set, the leftmost X-Forwarded-For entry and then
// X-Real-IP are honoured when they hold a valid address; anything else falls
// back to RemoteAddr. Only trust proxy headers behind a proxy you control.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
			if addr, ok := parseAddr(candidate); ok {
				return addr
			}
		}
	}
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr
	}
	return r.RemoteAddr
}

// parseAddr accepts a bare address or host:port and returns the address.
func parseAddr(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
