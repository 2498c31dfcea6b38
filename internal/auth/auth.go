// Package auth is the gateway authorization engine: credential checks for
// connecting clients and trusted-origin detection for HTTP callers.
package auth

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/pairgate/internal/config"
)

// ConnectAuth carries the credentials presented by a connecting caller.
type ConnectAuth struct {
	Token    string
	Password string
}

// AuthorizeRequest bundles everything the engine needs for one decision.
type AuthorizeRequest struct {
	Auth           config.GatewayAuth
	Connect        ConnectAuth
	Req            *http.Request // originating HTTP request, may be nil
	TrustedProxies []string
}

// Result is the outcome of an authorization attempt.
type Result struct {
	OK     bool
	Method string // which auth method decided (e.g. "token", "none")
	Reason string // failure reason, empty on success
}

// AuthorizeGatewayConnect checks the presented credentials against the
// configured auth mode.
func AuthorizeGatewayConnect(req AuthorizeRequest) Result {
	switch req.Auth.Mode {

	case "", "none":
		return Result{OK: true, Method: "none"}

	case "token":
		if req.Connect.Token == "" {
			return Result{OK: false, Method: "token", Reason: "token_missing"}
		}
		if !secureEqual(req.Connect.Token, req.Auth.Token) {
			return Result{OK: false, Method: "token", Reason: "token_mismatch"}
		}
		return Result{OK: true, Method: "token"}

	case "password":
		if req.Connect.Password == "" {
			return Result{OK: false, Method: "password", Reason: "password_missing"}
		}
		if !secureEqual(req.Connect.Password, req.Auth.Password) {
			return Result{OK: false, Method: "password", Reason: "password_mismatch"}
		}
		return Result{OK: true, Method: "password"}

	default:
		return Result{OK: false, Reason: "unknown_auth_mode"}
	}
}

// IsLocalDirectRequest reports whether r originates from the local machine,
// either directly over loopback or forwarded exclusively through trusted
// proxies on behalf of a loopback client.
func IsLocalDirectRequest(r *http.Request, trustedProxies []string) bool {
	remote := hostOf(r.RemoteAddr)
	remoteLoopback := isLoopbackHost(remote)

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return remoteLoopback
	}

	// Forwarded request: the remote must itself be trusted (a proxy) or
	// loopback, and every hop back to the client must be a trusted proxy.
	if !remoteLoopback && !isTrustedProxy(remote, trustedProxies) {
		return false
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if isTrustedProxy(hop, trustedProxies) {
			continue
		}
		// First untrusted hop is the real client.
		return isLoopbackHost(hop)
	}

	// Every hop was a trusted proxy.
	return remoteLoopback
}

func secureEqual(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func hostOf(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}

func isLoopbackHost(host string) bool {
	host = strings.TrimPrefix(host, "::ffff:")
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return host == "localhost"
}

func isTrustedProxy(host string, trustedProxies []string) bool {
	for _, p := range trustedProxies {
		if p == host {
			return true
		}
	}
	return false
}
