package pairing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/pairgate/internal/config"
	"github.com/nextlevelbuilder/pairgate/internal/store"
	"github.com/nextlevelbuilder/pairgate/pkg/protocol"
)

// Registry enumerates the known channel identifiers and delivers
// pairing-approved notifications. Implemented by channels.Manager.
type Registry interface {
	ListPairingChannels() []string
	NotifyPairingApproved(ctx context.Context, channel, id string, cfg *config.Config) error
}

// EventSink receives broadcast events. Delivery is best-effort: a slow sink
// drops the event rather than blocking the caller. Implemented by
// gateway.Server.
type EventSink interface {
	Broadcast(event string, payload interface{})
}

// ConfigLoader supplies the config for notification delivery. It is only
// invoked when a caller requests notify.
type ConfigLoader func() (*config.Config, error)

// Approval is the result of a successful Approve.
type Approval struct {
	Channel  string `json:"channel"`
	ID       string `json:"id"`
	Approved bool   `json:"approved"`
}

// ApproveOptions carries the per-call switches of Approve.
type ApproveOptions struct {
	// Notify triggers the out-of-band channel notification after commit.
	Notify bool
	// Sink, when non-nil, receives the channel.pair.resolved broadcast.
	// The HTTP adapter has no persistent subscribers and passes nil.
	Sink EventSink
}

// Workflow is the transport-agnostic pairing approval operation, shared by
// the gateway and HTTP adapters. It holds no pairing state of its own; all
// state lives in the store.
type Workflow struct {
	store      store.PairingStore
	registry   Registry
	loadConfig ConfigLoader

	notifyWG sync.WaitGroup
}

func NewWorkflow(st store.PairingStore, registry Registry, loadConfig ConfigLoader) *Workflow {
	return &Workflow{
		store:      st,
		registry:   registry,
		loadConfig: loadConfig,
	}
}

// Resolve validates a raw channel string against the registry plus the
// extension-channel pattern.
func (w *Workflow) Resolve(raw string) (Channel, error) {
	return ResolveChannel(raw, w.registry.ListPairingChannels())
}

// List returns the pending pairing requests for a channel. A store failure
// surfaces as unavailable, never silently swallowed.
func (w *Workflow) List(ctx context.Context, ch Channel) ([]store.PairingRequestData, error) {
	requests, err := w.store.ListPairingRequests(ctx, ch.String())
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	if requests == nil {
		requests = []store.PairingRequestData{}
	}
	return requests, nil
}

// Approve consumes the pending request on ch matching code. On success it
// broadcasts channel.pair.resolved to opts.Sink (if attached), then kicks off
// the optional channel notification in a tracked background goroutine.
// Notification failures are logged, never surfaced: the approval is already
// committed in the store and must not be reported as failed.
func (w *Workflow) Approve(ctx context.Context, ch Channel, code string, opts ApproveOptions) (*Approval, error) {
	resolved, err := w.store.ApprovePairingCode(ctx, ch.String(), code)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	if resolved == nil {
		return nil, &NotFoundError{Code: code}
	}

	if opts.Sink != nil {
		opts.Sink.Broadcast(protocol.EventPairResolved, map[string]interface{}{
			"channel":  ch.String(),
			"id":       resolved.ID,
			"decision": protocol.DecisionApproved,
			"ts":       time.Now().UnixMilli(),
		})
	}

	if opts.Notify {
		w.notifyWG.Add(1)
		// Background context: the approval is committed and the caller may
		// disconnect before the notification lands.
		go w.notify(context.Background(), ch.String(), resolved.ID)
	}

	return &Approval{Channel: ch.String(), ID: resolved.ID, Approved: true}, nil
}

// Wait blocks until all in-flight notification attempts finish. Called
// during shutdown so no attempt is abandoned mid-flight.
func (w *Workflow) Wait() {
	w.notifyWG.Wait()
}

func (w *Workflow) notify(ctx context.Context, channel, id string) {
	defer w.notifyWG.Done()

	cfg, err := w.loadConfig()
	if err != nil {
		slog.Warn("pairing notification skipped: config load failed",
			"channel", channel, "id", id, "error", err)
		return
	}

	if err := w.registry.NotifyPairingApproved(ctx, channel, id, cfg); err != nil {
		slog.Warn("pairing notification failed",
			"channel", channel, "id", id, "error", err)
	}
}
