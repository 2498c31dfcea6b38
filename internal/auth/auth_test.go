package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/nextlevelbuilder/pairgate/internal/config"
)

func TestAuthorizeGatewayConnect(t *testing.T) {
	tests := []struct {
		name    string
		auth    config.GatewayAuth
		connect ConnectAuth
		wantOK  bool
	}{
		{"mode none accepts anything", config.GatewayAuth{Mode: "none"}, ConnectAuth{}, true},
		{"mode empty accepts anything", config.GatewayAuth{}, ConnectAuth{}, true},
		{"token match", config.GatewayAuth{Mode: "token", Token: "secret"}, ConnectAuth{Token: "secret"}, true},
		{"token mismatch", config.GatewayAuth{Mode: "token", Token: "secret"}, ConnectAuth{Token: "wrong"}, false},
		{"token missing", config.GatewayAuth{Mode: "token", Token: "secret"}, ConnectAuth{}, false},
		{"token ignores password", config.GatewayAuth{Mode: "token", Token: "secret"}, ConnectAuth{Password: "secret"}, false},
		{"password match", config.GatewayAuth{Mode: "password", Password: "hunter2"}, ConnectAuth{Password: "hunter2"}, true},
		{"password mismatch", config.GatewayAuth{Mode: "password", Password: "hunter2"}, ConnectAuth{Password: "nope"}, false},
		{"bearer as both credentials passes password mode", config.GatewayAuth{Mode: "password", Password: "tok"}, ConnectAuth{Token: "tok", Password: "tok"}, true},
		{"unknown mode rejects", config.GatewayAuth{Mode: "mtls"}, ConnectAuth{Token: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AuthorizeGatewayConnect(AuthorizeRequest{Auth: tt.auth, Connect: tt.connect})
			if result.OK != tt.wantOK {
				t.Errorf("AuthorizeGatewayConnect() = %+v, want OK=%v", result, tt.wantOK)
			}
		})
	}
}

func TestIsLocalDirectRequest(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		xff     string
		proxies []string
		want    bool
	}{
		{"loopback ipv4", "127.0.0.1:52000", "", nil, true},
		{"loopback ipv6", "[::1]:52000", "", nil, true},
		{"ipv4-mapped loopback", "[::ffff:127.0.0.1]:52000", "", nil, true},
		{"external", "203.0.113.9:52000", "", nil, false},
		{"external with spoofed xff", "203.0.113.9:52000", "127.0.0.1", nil, false},
		{"trusted proxy forwarding loopback client", "10.0.0.2:52000", "127.0.0.1", []string{"10.0.0.2"}, true},
		{"trusted proxy forwarding external client", "10.0.0.2:52000", "203.0.113.9", []string{"10.0.0.2"}, false},
		{"chained trusted proxies", "10.0.0.2:52000", "127.0.0.1, 10.0.0.3", []string{"10.0.0.2", "10.0.0.3"}, true},
		{"untrusted hop in chain", "10.0.0.2:52000", "127.0.0.1, 198.51.100.4", []string{"10.0.0.2"}, false},
		{"loopback remote with xff from untrusted hop", "127.0.0.1:52000", "203.0.113.9", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/pairing/sms/list", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := IsLocalDirectRequest(r, tt.proxies); got != tt.want {
				t.Errorf("IsLocalDirectRequest(remote=%s, xff=%q) = %v, want %v", tt.remote, tt.xff, got, tt.want)
			}
		})
	}
}
