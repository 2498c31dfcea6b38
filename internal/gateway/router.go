package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nextlevelbuilder/pairgate/internal/auth"
	"github.com/nextlevelbuilder/pairgate/pkg/protocol"
)

// MethodHandler processes a single RPC method request.
type MethodHandler func(ctx context.Context, client *Client, req *protocol.RequestFrame)

// MethodRouter maps method names to handlers.
type MethodRouter struct {
	handlers map[string]MethodHandler
	server   *Server
}

func NewMethodRouter(server *Server) *MethodRouter {
	r := &MethodRouter{
		handlers: make(map[string]MethodHandler),
		server:   server,
	}
	r.registerDefaults()
	return r
}

// Register adds a method handler.
func (r *MethodRouter) Register(method string, handler MethodHandler) {
	r.handlers[method] = handler
}

// Handle dispatches a request to the appropriate handler.
func (r *MethodRouter) Handle(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	handler, ok := r.handlers[req.Method]
	if !ok {
		slog.Warn("unknown method", "method", req.Method, "client", client.id)
		client.SendResponse(protocol.NewErrorResponse(
			req.ID,
			protocol.ErrInvalidRequest,
			"unknown method: "+req.Method,
		))
		return
	}

	slog.Debug("handling method", "method", req.Method, "client", client.id, "req_id", req.ID)
	handler(ctx, client, req)
}

func (r *MethodRouter) registerDefaults() {
	r.Register(protocol.MethodConnect, r.handleConnect)
	r.Register(protocol.MethodHealth, r.handleHealth)
}

// handleConnect authenticates the client. The authorization decision is
// delegated to the auth engine; once connected, individual methods are not
// re-checked.
func (r *MethodRouter) handleConnect(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	var params struct {
		Token    string `json:"token"`
		Password string `json:"password"`
		Protocol int    `json:"protocol"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}

	result := auth.AuthorizeGatewayConnect(auth.AuthorizeRequest{
		Auth: r.server.cfg.Gateway.Auth,
		Connect: auth.ConnectAuth{
			Token:    params.Token,
			Password: params.Password,
		},
		TrustedProxies: r.server.cfg.Gateway.TrustedProxies,
	})
	if !result.OK {
		IncError("auth")
		slog.Warn("connect rejected", "client", client.id, "method", result.Method, "reason", result.Reason)
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrUnauthorized, "authentication failed"))
		return
	}

	client.authenticated = true
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"protocol": protocol.ProtocolVersion,
		"auth":     result.Method,
		"server": map[string]interface{}{
			"name":    "pairgate",
			"version": "0.1.0",
		},
	}))
}

func (r *MethodRouter) handleHealth(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"status": "ok",
	}))
}
