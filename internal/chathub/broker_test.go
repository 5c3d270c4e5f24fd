package chathub_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingme/backend/internal/chathub"
	"pingme/backend/internal/models"
)

func TestMemoryBroker_DeliversToListener(t *testing.T) {
	broker := chathub.NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := broker.Listen(ctx)
	require.NoError(t, err)

	event, err := models.NewServerEvent(models.EventTyping, "room1", models.TypingEvent{RoomID: "room1"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(chathub.RoomChannel("room1"), event))

	select {
	case d := <-deliveries:
		assert.Equal(t, "room.room1", d.Channel)
		assert.Equal(t, models.EventTyping, d.Event.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	// channels outside the room/user namespaces are ignored
	require.NoError(t, broker.Publish("system.room1", event))
	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery on %s", d.Channel)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBroker_PublishDuringCancel(t *testing.T) {
	broker := chathub.NewMemoryBroker()
	ctx, cancel := context.WithCancel(context.Background())

	deliveries, err := broker.Listen(ctx)
	require.NoError(t, err)
	go func() {
		for range deliveries {
		}
	}()

	event, err := models.NewServerEvent(models.EventMessage, "room1", models.Message{ID: "m1", RoomID: "room1"})
	require.NoError(t, err)

	// hammer publishes while the listener is torn down mid-stream
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			assert.NoError(t, broker.Publish(chathub.UserChannel(fmt.Sprintf("user_%d", i)), event))
		}
	}()
	cancel()
	wg.Wait()

	// once the subscriber channel is closed, publishing stays safe
	require.Eventually(t, func() bool {
		_, open := <-deliveries
		return !open
	}, time.Second, 5*time.Millisecond)
	require.NotPanics(t, func() {
		require.NoError(t, broker.Publish(chathub.UserChannel("user_A"), event))
	})
}
