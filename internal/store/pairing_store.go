package store

import "context"

// PairingRequestData is a pending pairing request as seen through the store
// contract.
type PairingRequestData struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	Code      string `json:"code"`
	SenderID  string `json:"sender_id"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// PairingStore manages pending pairing requests. Code uniqueness within a
// channel's pending set and the at-most-once pending→approved transition are
// guaranteed here, not by callers.
type PairingStore interface {
	// CreatePairingRequest mints a pending request with a fresh one-time code.
	CreatePairingRequest(ctx context.Context, channel, senderID string) (*PairingRequestData, error)

	// ListPairingRequests returns the pending requests for a channel.
	ListPairingRequests(ctx context.Context, channel string) ([]PairingRequestData, error)

	// ApprovePairingCode consumes the pending request on channel matching
	// code. Returns (nil, nil) when no pending request matches — that is a
	// no-result, not an error.
	ApprovePairingCode(ctx context.Context, channel, code string) (*PairingRequestData, error)
}
