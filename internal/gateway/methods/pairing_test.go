package methods

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/pairgate/internal/channels"
	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/internal/gateway"
	"github.com/nextlevelbuilder/pairgate/internal/pairing"
	"github.com/nextlevelbuilder/pairgate/internal/store/file"
	"github.com/nextlevelbuilder/pairgate/pkg/protocol"
)

type testGateway struct {
	server  *gateway.Server
	service *pairing.Service
	cancel  context.CancelFunc
}

func startGateway(t *testing.T, cfg *config.Config) *testGateway {
	t.Helper()

	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.Port = 0

	service := pairing.NewService(filepath.Join(t.TempDir(), "pairing.json"))
	workflow := pairing.NewWorkflow(
		file.NewFilePairingStore(service),
		channels.NewManager(),
		func() (*config.Config, error) { return cfg, nil },
	)

	server := gateway.NewServer(cfg)
	NewPairingMethods(workflow, server).Register(server.Router())

	ctx, cancel := context.WithCancel(context.Background())
	go server.ListenAndServe(ctx)

	// Wait for the listener to come up.
	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("gateway did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	tg := &testGateway{server: server, service: service, cancel: cancel}
	t.Cleanup(cancel)
	return tg
}

func (tg *testGateway) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws", tg.server.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func connect(t *testing.T, conn *websocket.Conn, token string) *protocol.ResponseFrame {
	t.Helper()
	params, _ := json.Marshal(map[string]interface{}{
		"token":    token,
		"protocol": protocol.ProtocolVersion,
	})
	return call(t, conn, "connect-1", protocol.MethodConnect, params)
}

func call(t *testing.T, conn *websocket.Conn, id, method string, params json.RawMessage) *protocol.ResponseFrame {
	t.Helper()
	req := protocol.RequestFrame{
		Type:   protocol.FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: params,
	}
	require.NoError(t, conn.WriteJSON(req))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		frameType, err := protocol.ParseFrameType(msg)
		require.NoError(t, err)
		if frameType == protocol.FrameTypeEvent {
			continue
		}

		var resp protocol.ResponseFrame
		require.NoError(t, json.Unmarshal(msg, &resp))
		if resp.ID == id {
			return &resp
		}
	}
}

func payloadMap(t *testing.T, resp *protocol.ResponseFrame) map[string]interface{} {
	t.Helper()
	m, ok := resp.Payload.(map[string]interface{})
	require.True(t, ok, "payload is not an object: %#v", resp.Payload)
	return m
}

func TestGatewayConnectHandshake(t *testing.T) {
	cfg := config.Default()
	cfg.Gateway.Auth = config.GatewayAuth{Mode: "token", Token: "secret"}
	tg := startGateway(t, cfg)

	t.Run("wrong token rejected", func(t *testing.T) {
		conn := tg.dial(t)
		resp := connect(t, conn, "wrong")
		require.False(t, resp.OK)
		assert.Equal(t, protocol.ErrUnauthorized, resp.Error.Code)
	})

	t.Run("method before connect rejected", func(t *testing.T) {
		conn := tg.dial(t)
		resp := call(t, conn, "r1", protocol.MethodPairList, nil)
		require.False(t, resp.OK)
		assert.Equal(t, protocol.ErrUnauthorized, resp.Error.Code)
	})

	t.Run("valid token accepted", func(t *testing.T) {
		conn := tg.dial(t)
		resp := connect(t, conn, "secret")
		require.True(t, resp.OK)
	})
}

func TestGatewayPairList(t *testing.T) {
	tg := startGateway(t, config.Default())
	tg.service.CreateRequest("sms", "user-1")
	tg.service.CreateRequest("sms", "user-2")

	conn := tg.dial(t)
	require.True(t, connect(t, conn, "").OK)

	params, _ := json.Marshal(map[string]string{"channel": "sms"})
	resp := call(t, conn, "r1", protocol.MethodPairList, params)

	require.True(t, resp.OK)
	payload := payloadMap(t, resp)
	assert.Equal(t, "sms", payload["channel"])
	assert.Len(t, payload["requests"], 2)
}

func TestGatewayPairListValidation(t *testing.T) {
	tg := startGateway(t, config.Default())
	conn := tg.dial(t)
	require.True(t, connect(t, conn, "").OK)

	t.Run("missing channel", func(t *testing.T) {
		resp := call(t, conn, "r1", protocol.MethodPairList, nil)
		require.False(t, resp.OK)
		assert.Equal(t, protocol.ErrInvalidRequest, resp.Error.Code)
	})

	t.Run("invalid channel", func(t *testing.T) {
		params, _ := json.Marshal(map[string]string{"channel": "xyz!"})
		resp := call(t, conn, "r2", protocol.MethodPairList, params)
		require.False(t, resp.OK)
		assert.Equal(t, protocol.ErrInvalidRequest, resp.Error.Code)
		assert.Equal(t, "Invalid channel: xyz!", resp.Error.Message)
	})
}

func TestGatewayPairApprove(t *testing.T) {
	tg := startGateway(t, config.Default())
	req, err := tg.service.CreateRequest("sms", "user-1")
	require.NoError(t, err)

	// A second client subscribes to broadcasts.
	subscriber := tg.dial(t)
	require.True(t, connect(t, subscriber, "").OK)

	conn := tg.dial(t)
	require.True(t, connect(t, conn, "").OK)

	params, _ := json.Marshal(map[string]string{"channel": "sms", "code": req.Code})
	resp := call(t, conn, "r1", protocol.MethodPairApprove, params)

	require.True(t, resp.OK)
	payload := payloadMap(t, resp)
	assert.Equal(t, "sms", payload["channel"])
	assert.Equal(t, req.ID, payload["id"])
	assert.Equal(t, true, payload["approved"])

	// The subscriber receives channel.pair.resolved.
	subscriber.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, msg, err := subscriber.ReadMessage()
		require.NoError(t, err)

		frameType, err := protocol.ParseFrameType(msg)
		require.NoError(t, err)
		if frameType != protocol.FrameTypeEvent {
			continue
		}

		var event struct {
			Event   string `json:"event"`
			Payload struct {
				Channel  string `json:"channel"`
				ID       string `json:"id"`
				Decision string `json:"decision"`
				TS       int64  `json:"ts"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(msg, &event))
		require.Equal(t, protocol.EventPairResolved, event.Event)
		assert.Equal(t, "sms", event.Payload.Channel)
		assert.Equal(t, req.ID, event.Payload.ID)
		assert.Equal(t, protocol.DecisionApproved, event.Payload.Decision)
		assert.NotZero(t, event.Payload.TS)
		break
	}
}

func TestGatewayPairApproveUnknownCode(t *testing.T) {
	tg := startGateway(t, config.Default())
	conn := tg.dial(t)
	require.True(t, connect(t, conn, "").OK)

	params, _ := json.Marshal(map[string]string{"channel": "sms", "code": "000000"})
	resp := call(t, conn, "r1", protocol.MethodPairApprove, params)

	require.False(t, resp.OK)
	assert.Equal(t, protocol.ErrNotFound, resp.Error.Code)
	assert.Equal(t, "no pending pairing request found for code: 000000", resp.Error.Message)
}

func TestGatewayPairApproveTwiceRejectsReplay(t *testing.T) {
	tg := startGateway(t, config.Default())
	req, err := tg.service.CreateRequest("sms", "user-1")
	require.NoError(t, err)

	conn := tg.dial(t)
	require.True(t, connect(t, conn, "").OK)

	params, _ := json.Marshal(map[string]string{"channel": "sms", "code": req.Code})

	first := call(t, conn, "r1", protocol.MethodPairApprove, params)
	require.True(t, first.OK)

	second := call(t, conn, "r2", protocol.MethodPairApprove, params)
	require.False(t, second.OK)
	assert.Equal(t, protocol.ErrNotFound, second.Error.Code)
}
