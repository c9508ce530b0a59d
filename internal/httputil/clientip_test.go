package httputil

import (
	"net/http"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "bare remote addr", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "mapped ipv4", remoteAddr: "[::ffff:10.0.0.1]:80", want: "10.0.0.1"},
		{name: "unparseable remote addr returned as is", remoteAddr: "pipe", want: "pipe"},

		{name: "headers ignored without trust", xff: "1.2.3.4", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "XFF single", trustProxy: true, xff: "1.2.3.4", remoteAddr: "10.0.0.1:1234", want: "1.2.3.4"},
		{name: "XFF takes leftmost", trustProxy: true, xff: "1.2.3.4, 10.0.0.1, 10.0.0.2", remoteAddr: "10.0.0.3:1234", want: "1.2.3.4"},
		{name: "X-Real-IP fallback", trustProxy: true, xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "5.6.7.8"},
		{name: "XFF before X-Real-IP", trustProxy: true, xff: "1.2.3.4", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "1.2.3.4"},
		{name: "garbage XFF skipped", trustProxy: true, xff: "not-an-ip", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "5.6.7.8"},
		{name: "garbage headers fall back", trustProxy: true, xff: "x", xri: "y", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
