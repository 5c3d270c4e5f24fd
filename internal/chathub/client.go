package chathub

import "pingme/backend/internal/models"

// Client is the interface for one live authenticated connection. It
// abstracts the transport so the hub can manage WebSocket connections and
// test doubles uniformly.
type Client interface {
	// GetUserID returns the authenticated user behind this connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub pushes outbound events
	// into. The channel is buffered; a full buffer marks the connection
	// as unresponsive for that event.
	GetSendChannel() chan<- models.ServerEvent

	// Run starts the connection's read and write pumps.
	Run()
	// Close tears the connection down and releases its send channel.
	Close()
}
