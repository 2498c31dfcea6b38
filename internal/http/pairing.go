// Package http exposes the pairing approval workflow as a stateless REST
// surface. Routes live under a fixed prefix with the shape
// {prefix}/{channel}/{action}; responses mirror the gateway adapter's
// payloads with an explicit ok flag.
package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/pairgate/internal/auth"
	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/internal/pairing"
)

// ConfigProvider returns the current config; hot reloads swap it out under
// the handler.
type ConfigProvider func() *config.Config

// PairingHandler handles GET {prefix}/{channel}/list and
// POST {prefix}/{channel}/approve.
type PairingHandler struct {
	workflow *pairing.Workflow
	cfg      ConfigProvider
	prefix   string
}

func NewPairingHandler(workflow *pairing.Workflow, cfg ConfigProvider, prefix string) *PairingHandler {
	return &PairingHandler{
		workflow: workflow,
		cfg:      cfg,
		prefix:   strings.TrimSuffix(prefix, "/"),
	}
}

func (h *PairingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg()

	// HTTP requests arrive without a persistent authenticated session, so
	// this adapter gates every call itself. Local direct callers pass;
	// everyone else needs a bearer token.
	if !h.authorized(r, cfg) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, h.prefix)
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	rawChannel, action := segments[0], segments[1]

	switch {
	case action == "list" && r.Method == http.MethodGet:
		h.handleList(w, r, rawChannel)
	case action == "approve" && r.Method == http.MethodPost:
		h.handleApprove(w, r, rawChannel)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *PairingHandler) authorized(r *http.Request, cfg *config.Config) bool {
	if auth.IsLocalDirectRequest(r, cfg.Gateway.TrustedProxies) {
		return true
	}

	token := extractBearerToken(r)
	if token == "" {
		return false
	}

	// The bearer token is supplied as both token and password so either
	// auth mode can match it.
	result := auth.AuthorizeGatewayConnect(auth.AuthorizeRequest{
		Auth:           cfg.Gateway.Auth,
		Connect:        auth.ConnectAuth{Token: token, Password: token},
		Req:            r,
		TrustedProxies: cfg.Gateway.TrustedProxies,
	})
	return result.OK
}

func (h *PairingHandler) handleList(w http.ResponseWriter, r *http.Request, rawChannel string) {
	ch, err := h.workflow.Resolve(rawChannel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requests, err := h.workflow.List(r.Context(), ch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"channel":  ch.String(),
		"requests": requests,
	})
}

func (h *PairingHandler) handleApprove(w http.ResponseWriter, r *http.Request, rawChannel string) {
	ch, err := h.workflow.Resolve(rawChannel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		Code   string `json:"code"`
		Notify bool   `json:"notify"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	// No sink: HTTP callers have no persistent subscription to broadcast to.
	approval, err := h.workflow.Approve(r.Context(), ch, body.Code, pairing.ApproveOptions{
		Notify: body.Notify,
	})
	if err != nil {
		if pairing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"channel":  approval.Channel,
		"id":       approval.ID,
		"approved": approval.Approved,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"ok":    false,
		"error": message,
	})
}
