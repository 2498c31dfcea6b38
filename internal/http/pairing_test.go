package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/internal/pairing"
	"github.com/nextlevelbuilder/pairgate/internal/store"
)

type memStore struct {
	pending map[string][]store.PairingRequestData
}

func (m *memStore) CreatePairingRequest(_ context.Context, channel, senderID string) (*store.PairingRequestData, error) {
	panic("not used")
}

func (m *memStore) ListPairingRequests(_ context.Context, channel string) ([]store.PairingRequestData, error) {
	return m.pending[channel], nil
}

func (m *memStore) ApprovePairingCode(_ context.Context, channel, code string) (*store.PairingRequestData, error) {
	for i, req := range m.pending[channel] {
		if req.Code == code {
			m.pending[channel] = append(m.pending[channel][:i], m.pending[channel][i+1:]...)
			return &req, nil
		}
	}
	return nil, nil
}

type staticRegistry struct{ known []string }

func (r *staticRegistry) ListPairingChannels() []string { return r.known }
func (r *staticRegistry) NotifyPairingApproved(context.Context, string, string, *config.Config) error {
	return nil
}

func newTestHandler(cfg *config.Config) *PairingHandler {
	st := &memStore{pending: map[string][]store.PairingRequestData{
		"sms": {
			{ID: "req_1", Channel: "sms", Code: "123456"},
			{ID: "req_2", Channel: "sms", Code: "654321"},
		},
	}}
	workflow := pairing.NewWorkflow(st, &staticRegistry{known: []string{"sms", "telegram"}}, func() (*config.Config, error) {
		return cfg, nil
	})
	return NewPairingHandler(workflow, func() *config.Config { return cfg }, cfg.HTTP.PathPrefix)
}

func localRequest(method, path string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	r.RemoteAddr = "127.0.0.1:50000"
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHTTPList(t *testing.T) {
	h := newTestHandler(config.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, localRequest("GET", "/api/pairing/sms/list", ""))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "sms", body["channel"])
	assert.Len(t, body["requests"], 2)
}

func TestHTTPApprove(t *testing.T) {
	h := newTestHandler(config.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, localRequest("POST", "/api/pairing/sms/approve", `{"code":"123456"}`))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "sms", body["channel"])
	assert.Equal(t, "req_1", body["id"])
	assert.Equal(t, true, body["approved"])
}

func TestHTTPApproveUnknownCodeIsNotFound(t *testing.T) {
	h := newTestHandler(config.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, localRequest("POST", "/api/pairing/sms/approve", `{"code":"000000"}`))

	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "no pending pairing request found for code: 000000", body["error"])
}

func TestHTTPApproveConsumedCodeIsNotFound(t *testing.T) {
	h := newTestHandler(config.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, localRequest("POST", "/api/pairing/sms/approve", `{"code":"123456"}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, localRequest("POST", "/api/pairing/sms/approve", `{"code":"123456"}`))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPInvalidChannel(t *testing.T) {
	h := newTestHandler(config.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, localRequest("POST", "/api/pairing/xyz!/approve", `{"code":"123456"}`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Invalid channel: xyz!", body["error"])
}

func TestHTTPMalformedBody(t *testing.T) {
	h := newTestHandler(config.Default())

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing code", `{"notify":true}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, localRequest("POST", "/api/pairing/sms/approve", tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHTTPPathShape(t *testing.T) {
	h := newTestHandler(config.Default())

	tests := []struct {
		method, path string
	}{
		{"GET", "/api/pairing/sms"},
		{"GET", "/api/pairing/sms/list/extra"},
		{"GET", "/api/pairing"},
		{"POST", "/api/pairing/sms/revoke"},
		{"POST", "/api/pairing/sms/list"}, // wrong method for list
		{"GET", "/api/pairing/sms/approve"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, localRequest(tt.method, tt.path, ""))
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestHTTPAuthorization(t *testing.T) {
	cfg := config.Default()
	cfg.Gateway.Auth = config.GatewayAuth{Mode: "token", Token: "secret"}
	h := newTestHandler(cfg)

	t.Run("non-local without token is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/pairing/sms/approve", strings.NewReader(`{"code":"123456"}`))
		r.RemoteAddr = "203.0.113.9:50000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "Unauthorized", body["error"])
	})

	t.Run("non-local with wrong token is unauthorized", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/pairing/sms/list", nil)
		r.RemoteAddr = "203.0.113.9:50000"
		r.Header.Set("Authorization", "Bearer wrong")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-local with bearer token passes", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/pairing/sms/list", nil)
		r.RemoteAddr = "203.0.113.9:50000"
		r.Header.Set("Authorization", "Bearer secret")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("local direct request skips token check", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, localRequest("GET", "/api/pairing/sms/list", ""))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unauthorized before channel validation", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/pairing/xyz!/approve", strings.NewReader(`{"code":"1"}`))
		r.RemoteAddr = "203.0.113.9:50000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
