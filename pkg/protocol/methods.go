package protocol

// RPC method names handled by the gateway.
const (
	MethodConnect     = "connect"
	MethodHealth      = "health"
	MethodPairList    = "channel.pair.list"
	MethodPairApprove = "channel.pair.approve"
)
