// Package gateway hosts the persistent WebSocket RPC surface: connection
// lifecycle, the connect handshake, method dispatch, and event broadcast.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/pkg/protocol"
)

// Server is an HTTP server that upgrades connections to WebSocket and
// manages client lifecycles. Additional HTTP handlers (the REST adapter,
// metrics) are mounted on the same listener.
type Server struct {
	cfg      *config.Config
	router   *MethodRouter
	upgrader websocket.Upgrader

	mu      sync.Mutex
	httpSrv *http.Server
	addr    string

	clientsMu sync.Mutex
	clients   map[*Client]bool

	mounts map[string]http.Handler
}

func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:     cfg,
		clients: make(map[*Client]bool),
		mounts:  make(map[string]http.Handler),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = NewMethodRouter(s)
	return s
}

// Router returns the method router for handler registration.
func (s *Server) Router() *MethodRouter { return s.router }

// Mount attaches an HTTP handler under prefix on the gateway listener.
func (s *Server) Mount(prefix string, h http.Handler) {
	s.mounts[prefix] = h
}

// Addr returns the address the server is listening on, or "" if not yet ready.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", MetricsHandler())
	for prefix, h := range s.mounts {
		mux.Handle(prefix+"/", h)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.httpSrv = &http.Server{Handler: mux}
	s.mu.Unlock()

	slog.Info("gateway listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		s.closeAllClients()
		s.httpSrv.Close()
	}()

	err = s.httpSrv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown notifies connected clients and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Broadcast(protocol.EventShutdown, nil)
	s.closeAllClients()

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// Broadcast pushes an event frame to every connected client. Delivery is
// best-effort per client: a full send buffer drops the event.
func (s *Server) Broadcast(event string, payload interface{}) {
	s.clientsMu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	frame := protocol.NewEvent(event, payload)
	for _, c := range clients {
		c.SendEvent(frame)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		IncError("upgrade")
		return
	}

	client := NewClient(wsConn, s)

	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()
	IncConnectedClients()

	client.Run(r.Context())

	s.removeClient(client)
	DecConnectedClients()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) closeAllClients() {
	s.clientsMu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (s *Server) removeClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, client)
}
