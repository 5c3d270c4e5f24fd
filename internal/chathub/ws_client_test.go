package chathub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pingme/backend/internal/models"
)

// A fan-out may hold a registry snapshot taken before a connection
// disconnected. Delivering to such a stale handle must drop the event, not
// bring the hub down.
func TestDeliverToDisconnectedClient(t *testing.T) {
	hub := NewManagerService(NewMemoryBroker(), nil, nil)
	client := NewWebSocketClient("user_A", nil, hub)
	hub.Register(client)

	snapshot := hub.ConnectionsFor("user_A")
	require.Len(t, snapshot, 1)

	// disconnect lands between the snapshot and the send
	hub.Unregister(client)

	event, err := models.NewServerEvent(models.EventMessage, "room1", models.Message{
		ID: "m1", RoomID: "room1", SenderID: "user_B", Content: "hello",
	})
	require.NoError(t, err)

	require.NotPanics(t, func() {
		for _, stale := range snapshot {
			hub.deliver(stale, event)
		}
	})

	// close is idempotent even when unregister already ran
	require.NotPanics(t, client.Close)
}
