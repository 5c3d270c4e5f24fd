package chathub

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"pingme/backend/internal/errs"
	"pingme/backend/internal/models"
)

// MembershipGuard is the authorization predicate gating room topic
// subscriptions.
type MembershipGuard interface {
	IsMember(userID, roomID string) (bool, error)
}

// StatusStore is the slice of the persistence layer the hub needs to
// advance message statuses after a live delivery.
type StatusStore interface {
	MarkDelivered(roomID, excludeSenderID string) (int64, error)
}

// EventHandler processes domain events arriving from live connections.
type EventHandler interface {
	HandleClientEvent(userID string, event models.ClientEvent) error
}

// ManagerService is the session registry and delivery fan-out engine. It
// tracks which user owns which live connections, which connection watches
// which room topic, and routes broker deliveries to the right recipients.
//
// Mutations are serialized under a single lock; delivery I/O happens on
// snapshots taken outside the lock so one slow connection never stalls
// bookkeeping or fan-out to others.
type ManagerService struct {
	mu           sync.RWMutex
	clients      map[string]map[Client]struct{} // userID -> live connections
	topics       map[string]map[Client]struct{} // roomID -> topic subscribers
	clientTopics map[Client]map[string]struct{}

	Broker   Broker
	Guard    MembershipGuard
	Statuses StatusStore
	Handler  EventHandler
}

func NewManagerService(broker Broker, guard MembershipGuard, statuses StatusStore) *ManagerService {
	return &ManagerService{
		clients:      make(map[string]map[Client]struct{}),
		topics:       make(map[string]map[Client]struct{}),
		clientTopics: make(map[Client]map[string]struct{}),
		Broker:       broker,
		Guard:        guard,
		Statuses:     statuses,
	}
}

// SetEventHandler wires the domain-event processor. Set once at startup,
// before any connection registers.
func (m *ManagerService) SetEventHandler(h EventHandler) { m.Handler = h }

// Register records a live connection for its user. A user may hold any
// number of concurrent connections.
func (m *ManagerService) Register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID := c.GetUserID()
	if m.clients[userID] == nil {
		m.clients[userID] = make(map[Client]struct{})
	}
	m.clients[userID][c] = struct{}{}
	log.Printf("Client registered for user %s (%d active)", userID, len(m.clients[userID]))
}

// Unregister removes a connection and all of its topic subscriptions, then
// closes it. Safe to call for a connection that was never registered, and
// safe to call more than once.
func (m *ManagerService) Unregister(c Client) {
	m.mu.Lock()

	userID := c.GetUserID()
	registered := false
	if conns, ok := m.clients[userID]; ok {
		if _, ok := conns[c]; ok {
			registered = true
			delete(conns, c)
			if len(conns) == 0 {
				delete(m.clients, userID)
			}
		}
	}
	for roomID := range m.clientTopics[c] {
		if subs, ok := m.topics[roomID]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(m.topics, roomID)
			}
		}
	}
	delete(m.clientTopics, c)
	m.mu.Unlock()

	if registered {
		c.Close()
		log.Printf("Client unregistered for user %s", userID)
	}
}

// Subscribe adds the connection to a room topic. Only members may watch a
// room; a false guard result is an authorization failure, not absence.
func (m *ManagerService) Subscribe(c Client, roomID string) error {
	ok, err := m.Guard.IsMember(c.GetUserID(), roomID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Forbidden("you are not a member of this chat room")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.topics[roomID] == nil {
		m.topics[roomID] = make(map[Client]struct{})
	}
	m.topics[roomID][c] = struct{}{}
	if m.clientTopics[c] == nil {
		m.clientTopics[c] = make(map[string]struct{})
	}
	m.clientTopics[c][roomID] = struct{}{}
	return nil
}

// Unsubscribe removes the connection from a room topic. No-op when the
// connection never subscribed.
func (m *ManagerService) Unsubscribe(c Client, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subs, ok := m.topics[roomID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(m.topics, roomID)
		}
	}
	delete(m.clientTopics[c], roomID)
}

// ConnectionsFor returns a point-in-time snapshot of the user's live
// connections.
func (m *ManagerService) ConnectionsFor(userID string) []Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := make([]Client, 0, len(m.clients[userID]))
	for c := range m.clients[userID] {
		conns = append(conns, c)
	}
	return conns
}

// TopicSubscribers returns a snapshot of the connections watching a room.
func (m *ManagerService) TopicSubscribers(roomID string) []Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := make([]Client, 0, len(m.topics[roomID]))
	for c := range m.topics[roomID] {
		subs = append(subs, c)
	}
	return subs
}

// Run consumes broker deliveries and fans them out until ctx is cancelled.
func (m *ManagerService) Run(ctx context.Context) error {
	deliveries, err := m.Broker.Listen(ctx)
	if err != nil {
		return err
	}
	log.Println("Fan-out engine started.")

	for d := range deliveries {
		m.route(d)
	}
	return nil
}

func (m *ManagerService) route(d Delivery) {
	switch {
	case strings.HasPrefix(d.Channel, "room."):
		roomID := strings.TrimPrefix(d.Channel, "room.")
		for _, c := range m.TopicSubscribers(roomID) {
			m.deliver(c, d.Event)
		}

	case strings.HasPrefix(d.Channel, "user."):
		userID := strings.TrimPrefix(d.Channel, "user.")
		delivered := 0
		for _, c := range m.ConnectionsFor(userID) {
			if m.deliver(c, d.Event) {
				delivered++
			}
		}
		if delivered > 0 && d.Event.Type == models.EventMessage {
			m.markDelivered(d.Event, userID)
		}
	}
}

// deliver pushes the event into the connection's buffered send channel.
// A full buffer means the connection is unresponsive; the event is dropped
// for that connection without affecting any other recipient.
func (m *ManagerService) deliver(c Client, event models.ServerEvent) bool {
	select {
	case c.GetSendChannel() <- event:
		return true
	default:
		log.Printf("Dropping %s event for slow connection of user %s", event.Type, c.GetUserID())
		return false
	}
}

// markDelivered advances the room's SENT messages to DELIVERED once at
// least one of the recipient's connections accepted the push. Forward-only;
// recipientID is the personal channel's owner, whose own outbound rows were
// never delivered to anyone and stay untouched.
func (m *ManagerService) markDelivered(event models.ServerEvent, recipientID string) {
	var msg models.Message
	if err := json.Unmarshal(event.Payload, &msg); err != nil {
		log.Printf("Error decoding message payload for delivery status: %v", err)
		return
	}
	if _, err := m.Statuses.MarkDelivered(msg.RoomID, recipientID); err != nil {
		log.Printf("Error marking room %s messages delivered: %v", msg.RoomID, err)
	}
}

// HandleInbound processes one frame from a live connection. Subscription
// management is handled here; domain events go to the EventHandler. A
// processing failure is reported back to the originating connection only
// and never tears the connection down.
func (m *ManagerService) HandleInbound(c Client, event models.ClientEvent) {
	var err error
	switch event.Type {
	case models.EventSubscribe:
		err = m.Subscribe(c, event.RoomID)
	case models.EventUnsubscribe:
		m.Unsubscribe(c, event.RoomID)
	case models.EventChatSend, models.EventChatTyping, models.EventChatRead:
		if m.Handler == nil {
			err = errs.Internal("no event handler configured", nil)
		} else {
			err = m.Handler.HandleClientEvent(c.GetUserID(), event)
		}
	default:
		err = errs.Validation("unknown event type: " + event.Type)
	}

	if err != nil {
		m.sendError(c, err)
	}
}

func (m *ManagerService) sendError(c Client, err error) {
	payload := models.ErrorEvent{
		Kind:    string(errs.KindOf(err)),
		Message: errs.MessageOf(err),
		Field:   errs.FieldOf(err),
	}
	event, mErr := models.NewServerEvent(models.EventError, "", payload)
	if mErr != nil {
		log.Printf("Error encoding error event: %v", mErr)
		return
	}
	m.deliver(c, event)
}
