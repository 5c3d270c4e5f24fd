package chathub

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"pingme/backend/internal/models"
)

// RoomChannel names the pub/sub topic carrying a room's events.
func RoomChannel(roomID string) string { return "room." + roomID }

// UserChannel names a user's personal delivery channel. Events published
// here reach every live connection of that user regardless of topic
// subscription state.
func UserChannel(userID string) string { return "user." + userID }

// Delivery is one event received from the broker.
type Delivery struct {
	Channel string
	Event   models.ServerEvent
}

// Broker moves server events between the service layer and the hub. The
// production implementation rides on Redis pub/sub so fan-out also works
// across processes; events are fire-and-forget with no durability.
type Broker interface {
	Publish(channel string, event models.ServerEvent) error
	Listen(ctx context.Context) (<-chan Delivery, error)
}

// RedisBroker publishes JSON-encoded events on room.* and user.* channels.
type RedisBroker struct {
	Redis *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{Redis: rdb}
}

func (b *RedisBroker) Publish(channel string, event models.ServerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.Redis.Publish(context.Background(), channel, payload).Err()
}

// Listen pattern-subscribes to every room and user channel and decodes
// incoming payloads. The returned channel closes when ctx is cancelled.
func (b *RedisBroker) Listen(ctx context.Context) (<-chan Delivery, error) {
	pubsub := b.Redis.PSubscribe(ctx, "room.*", "user.*")
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan Delivery, 256)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.ServerEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("Error unmarshalling broker message on %s: %v", msg.Channel, err)
					continue
				}
				out <- Delivery{Channel: msg.Channel, Event: event}
			}
		}
	}()
	return out, nil
}

// MemoryBroker is an in-process Broker for single-instance runs and tests.
type MemoryBroker struct {
	mu   sync.Mutex
	subs []*memorySub
}

// memorySub guards its channel with a closed flag. Both the flag and the
// close happen under the broker mutex, so a publish can never send on a
// channel a cancelled listener has already closed.
type memorySub struct {
	ch     chan Delivery
	closed bool
}

func NewMemoryBroker() *MemoryBroker { return &MemoryBroker{} }

func (b *MemoryBroker) Publish(channel string, event models.ServerEvent) error {
	if !strings.HasPrefix(channel, "room.") && !strings.HasPrefix(channel, "user.") {
		return nil
	}

	// sends are non-blocking, so holding the mutex across them is cheap
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- Delivery{Channel: channel, Event: event}:
		default:
			// a saturated subscriber drops the event rather than blocking
		}
	}
	return nil
}

func (b *MemoryBroker) Listen(ctx context.Context) (<-chan Delivery, error) {
	sub := &memorySub{ch: make(chan Delivery, 256)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		sub.closed = true
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
		b.mu.Unlock()
	}()
	return sub.ch, nil
}
