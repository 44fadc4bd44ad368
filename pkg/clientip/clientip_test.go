package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "x-forwarded-for single entry",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remoteAddr: "10.0.0.1:443",
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain keeps first hop",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 70.41.3.18, 150.172.238.178"},
			remoteAddr: "10.0.0.1:443",
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip when no forwarded header",
			headers:    map[string]string{"X-Real-IP": "198.51.100.2"},
			remoteAddr: "10.0.0.1:443",
			want:       "198.51.100.2",
		},
		{
			name:       "cloudflare header",
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.9"},
			remoteAddr: "10.0.0.1:443",
			want:       "198.51.100.9",
		},
		{
			name:       "forwarded header outranks real-ip",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"},
			remoteAddr: "10.0.0.1:443",
			want:       "203.0.113.7",
		},
		{
			name:       "socket address fallback",
			remoteAddr: "192.0.2.44:51000",
			want:       "192.0.2.44",
		},
		{
			name:       "ipv4 loopback renders as localhost",
			remoteAddr: "127.0.0.1:51000",
			want:       "localhost",
		},
		{
			name:       "ipv6 loopback renders as localhost",
			remoteAddr: "[::1]:51000",
			want:       "localhost",
		},
		{
			name:       "loopback in forwarded header",
			headers:    map[string]string{"X-Forwarded-For": "127.0.0.1"},
			remoteAddr: "10.0.0.1:443",
			want:       "localhost",
		},
		{
			name: "nothing available",
			want: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}
