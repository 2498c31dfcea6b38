package protocol

// WebSocket event names pushed from server to client.
const (
	// EventPairResolved fires when a pending pairing request is approved.
	// Payload: {channel, id, decision, ts}
	EventPairResolved = "channel.pair.resolved"

	// EventShutdown is broadcast before the gateway stops.
	EventShutdown = "shutdown"
)

// Pairing decision values carried in the EventPairResolved payload.
const (
	DecisionApproved = "approved"
)
