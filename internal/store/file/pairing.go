package file

import (
	"context"

	"github.com/nextlevelbuilder/pairgate/internal/pairing"
	"github.com/nextlevelbuilder/pairgate/internal/store"
)

// FilePairingStore wraps pairing.Service to implement store.PairingStore.
type FilePairingStore struct {
	svc *pairing.Service
}

func NewFilePairingStore(svc *pairing.Service) *FilePairingStore {
	return &FilePairingStore{svc: svc}
}

// Service returns the underlying pairing.Service for direct access.
func (f *FilePairingStore) Service() *pairing.Service { return f.svc }

func (f *FilePairingStore) CreatePairingRequest(_ context.Context, channel, senderID string) (*store.PairingRequestData, error) {
	req, err := f.svc.CreateRequest(channel, senderID)
	if err != nil {
		return nil, err
	}
	data := toData(req)
	return &data, nil
}

func (f *FilePairingStore) ListPairingRequests(_ context.Context, channel string) ([]store.PairingRequestData, error) {
	items := f.svc.ListPending(channel)
	result := make([]store.PairingRequestData, len(items))
	for i, item := range items {
		result[i] = toData(item)
	}
	return result, nil
}

func (f *FilePairingStore) ApprovePairingCode(_ context.Context, channel, code string) (*store.PairingRequestData, error) {
	req, ok := f.svc.ApproveCode(channel, code)
	if !ok {
		return nil, nil
	}
	data := toData(req)
	return &data, nil
}

func toData(req pairing.Request) store.PairingRequestData {
	return store.PairingRequestData{
		ID:        req.ID,
		Channel:   req.Channel,
		Code:      req.Code,
		SenderID:  req.SenderID,
		CreatedAt: req.CreatedAt,
		ExpiresAt: req.ExpiresAt,
	}
}
