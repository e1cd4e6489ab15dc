package ws

const (
	// client - server
	MsgRefresh = "refresh"

	// server - client
	MsgReady = "ready"
	MsgState = "state"
	MsgError = "error"
)
