package interfaces

// -----------------------------------------------------------------------------
// IDistributor is the push transport towards connected clients.
// -----------------------------------------------------------------------------

type IDistributor interface {
	// EmitTo queues an event for one client. It returns false if the client is
	// gone or its buffer is full.
	EmitTo(clientID string, event string, payload interface{}) bool

	// -----------------------------------------------------------------------------
	// Broadcast queues an event for every connected client.
	Broadcast(event string, payload interface{})
}

// -----------------------------------------------------------------------------
// IClientHandler receives client lifecycle and command callbacks from the transport.
// -----------------------------------------------------------------------------

type IClientHandler interface {
	OnConnect(clientID string, timeframe string)
	OnCommand(clientID string, event string, timeframe string)
	OnDisconnect(clientID string)
}

// -----------------------------------------------------------------------------
// IBotDirectory resolves live bot registrations by magic number.
// -----------------------------------------------------------------------------

type IBotDirectory interface {
	LookupMagic(magic int64) (botID, name string, ok bool)
}
