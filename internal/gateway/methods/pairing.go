// Package methods binds RPC method names to their workflow implementations.
package methods

import (
	"context"
	"encoding/json"

	"github.com/nextlevelbuilder/pairgate/internal/gateway"
	"github.com/nextlevelbuilder/pairgate/internal/pairing"
	"github.com/nextlevelbuilder/pairgate/pkg/protocol"
)

// PairingMethods handles channel.pair.list and channel.pair.approve.
// Gateway callers are authenticated during the connect handshake, so no
// per-method authorization happens here.
type PairingMethods struct {
	workflow *pairing.Workflow
	sink     pairing.EventSink
}

// NewPairingMethods creates the gateway binding of the approval workflow.
// sink receives the channel.pair.resolved broadcast on successful approvals.
func NewPairingMethods(workflow *pairing.Workflow, sink pairing.EventSink) *PairingMethods {
	return &PairingMethods{workflow: workflow, sink: sink}
}

func (m *PairingMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodPairList, m.handleList)
	router.Register(protocol.MethodPairApprove, m.handleApprove)
}

func (m *PairingMethods) handleList(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel string `json:"channel"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}

	if params.Channel == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel is required"))
		return
	}

	ch, err := m.workflow.Resolve(params.Channel)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error()))
		return
	}

	requests, err := m.workflow.List(ctx, ch)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrUnavailable, err.Error()))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"channel":  ch.String(),
		"requests": requests,
	}))
}

func (m *PairingMethods) handleApprove(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		Channel string `json:"channel"`
		Code    string `json:"code"`
		Notify  bool   `json:"notify"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}

	if params.Channel == "" || params.Code == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "channel and code are required"))
		return
	}

	ch, err := m.workflow.Resolve(params.Channel)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error()))
		return
	}

	approval, err := m.workflow.Approve(ctx, ch, params.Code, pairing.ApproveOptions{
		Notify: params.Notify,
		Sink:   m.sink,
	})
	if err != nil {
		switch {
		case pairing.IsNotFound(err):
			gateway.IncApproval("not_found")
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, err.Error()))
		default:
			gateway.IncApproval("error")
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrUnavailable, err.Error()))
		}
		return
	}

	gateway.IncApproval("approved")
	client.SendResponse(protocol.NewOKResponse(req.ID, approval))
}
