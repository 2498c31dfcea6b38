// Package pairing implements the channel pairing system.
//
// When a remote party initiates pairing through a channel plugin, the plugin
// creates a pending request holding a one-time code. The operator approves
// the code (gateway RPC, REST, or CLI), which consumes the pending entry and
// records the resolution. Approval is a one-way transition: once a code is
// consumed it can never be approved a second time.
//
// Pairing codes use the alphabet ABCDEFGHJKLMNPQRSTUVWXYZ23456789
// (no ambiguous characters: 0, O, 1, I, L).
// Codes expire after 60 minutes. Max 3 pending codes per channel.
package pairing

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// CodeAlphabet excludes ambiguous characters (0, O, 1, I, L).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// CodeLength is the number of characters in a pairing code.
	CodeLength = 8
	// CodeTTL is how long a pairing code remains valid.
	CodeTTL = 60 * time.Minute
	// MaxPendingPerChannel caps pending codes per channel.
	MaxPendingPerChannel = 3
)

// Request is a pending pairing request.
type Request struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Code      string `json:"code"`
	SenderID  string `json:"sender_id"`
	CreatedAt int64  `json:"created_at"` // unix millis
	ExpiresAt int64  `json:"expires_at"` // unix millis
}

// Resolution records an approved request.
type Resolution struct {
	ID         string `json:"id"`
	Channel    string `json:"channel"`
	SenderID   string `json:"sender_id"`
	Decision   string `json:"decision"`
	ResolvedAt int64  `json:"resolved_at"` // unix millis
}

type persisted struct {
	Pending  []Request    `json:"pending"`
	Resolved []Resolution `json:"resolved"`
}

// Service is the file-backed store of pairing requests.
type Service struct {
	storePath string
	data      persisted
	mu        sync.Mutex
}

// NewService creates a pairing service persisting to storePath
// (e.g., ~/.pairgate/data/pairing.json).
func NewService(storePath string) *Service {
	s := &Service{storePath: storePath}
	s.load()
	return s
}

// CreateRequest generates a new pending request for a sender on a channel.
// If the sender already has a pending request on the channel, the existing
// one is returned instead of minting a second code.
func (s *Service) CreateRequest(channel, senderID string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpired()

	count := 0
	for _, req := range s.data.Pending {
		if req.Channel == channel {
			if req.SenderID == senderID && senderID != "" {
				return req, nil
			}
			count++
		}
	}
	if count >= MaxPendingPerChannel {
		return Request{}, fmt.Errorf("max pending pairing requests (%d) exceeded for channel %s", MaxPendingPerChannel, channel)
	}

	now := time.Now()
	req := Request{
		ID:        uuid.NewString(),
		Channel:   channel,
		Code:      generateCode(),
		SenderID:  senderID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(CodeTTL).UnixMilli(),
	}
	s.data.Pending = append(s.data.Pending, req)
	s.save()

	slog.Info("pairing request created",
		"id", req.ID,
		"channel", channel,
		"sender", senderID,
	)

	return req, nil
}

// ListPending returns the pending requests for a channel, oldest first.
func (s *Service) ListPending(channel string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpired()

	var result []Request
	for _, req := range s.data.Pending {
		if req.Channel == channel {
			result = append(result, req)
		}
	}
	return result
}

// ApproveCode consumes the pending request on channel matching code.
// Returns (request, true) on a match, (zero, false) when no pending request
// matches. A consumed code never matches again.
func (s *Service) ApproveCode(channel, code string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneExpired()

	for i, req := range s.data.Pending {
		if req.Channel != channel || req.Code != code {
			continue
		}

		s.data.Pending = append(s.data.Pending[:i], s.data.Pending[i+1:]...)
		s.data.Resolved = append(s.data.Resolved, Resolution{
			ID:         req.ID,
			Channel:    req.Channel,
			SenderID:   req.SenderID,
			Decision:   "approved",
			ResolvedAt: time.Now().UnixMilli(),
		})
		s.save()

		slog.Info("pairing approved",
			"id", req.ID,
			"channel", req.Channel,
			"sender", req.SenderID,
		)

		return req, true
	}

	return Request{}, false
}

// --- Internal ---

func (s *Service) pruneExpired() {
	now := time.Now().UnixMilli()
	var valid []Request
	for _, req := range s.data.Pending {
		if req.ExpiresAt > now {
			valid = append(valid, req)
		}
	}
	s.data.Pending = valid
}

func (s *Service) load() {
	data, err := os.ReadFile(s.storePath)
	if err != nil {
		return // file doesn't exist yet
	}
	json.Unmarshal(data, &s.data)
}

func (s *Service) save() {
	dir := filepath.Dir(s.storePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		slog.Error("pairing: failed to create dir", "error", err)
		return
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		slog.Error("pairing: failed to marshal store", "error", err)
		return
	}
	if err := os.WriteFile(s.storePath, data, 0600); err != nil {
		slog.Error("pairing: failed to write store", "error", err)
	}
}

func generateCode() string {
	b := make([]byte, CodeLength)
	rand.Read(b)
	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = CodeAlphabet[int(b[i])%len(CodeAlphabet)]
	}
	return string(code)
}
