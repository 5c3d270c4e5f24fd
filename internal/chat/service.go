package chat

import (
	"log"
	"strings"

	"pingme/backend/internal/chathub"
	"pingme/backend/internal/errs"
	"pingme/backend/internal/models"
	"pingme/backend/internal/storage"
)

// Service implements the messaging core: the room directory, the message
// store semantics, the membership guard, and event emission toward the
// fan-out engine. Every operation takes the caller's identity explicitly.
type Service struct {
	Store  storage.Store
	Broker chathub.Broker
}

func NewService(store storage.Store, broker chathub.Broker) *Service {
	return &Service{Store: store, Broker: broker}
}

// GetOrCreateDirectRoom resolves the unique direct room between the caller
// and target, creating it (room plus both memberships, atomically) when it
// does not exist yet. Idempotent for an existing pair in either order.
func (s *Service) GetOrCreateDirectRoom(userID, targetUserID string) (*models.RoomView, bool, error) {
	if userID == targetUserID {
		return nil, false, errs.ValidationField("target_user_id", "cannot create chat with yourself")
	}
	if _, err := s.Store.GetUserByID(targetUserID); err != nil {
		return nil, false, err
	}

	room, err := s.Store.FindDirectRoom(userID, targetUserID)
	switch {
	case err == nil:
		view, verr := s.buildRoomView(room, userID)
		return view, false, verr
	case errs.Is(err, errs.KindNotFound):
		// fall through to creation
	default:
		return nil, false, err
	}

	room, err = s.Store.CreateDirectRoom(userID, targetUserID)
	if err != nil {
		return nil, false, err
	}
	log.Printf("Created direct chat room %s for users %s and %s", room.ID, userID, targetUserID)

	view, err := s.buildRoomView(room, userID)
	return view, true, err
}

// ListRooms returns the caller's rooms ordered by room creation time
// descending.
func (s *Service) ListRooms(userID string) ([]models.RoomView, error) {
	rooms, err := s.Store.ListRoomsForUser(userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.RoomView, 0, len(rooms))
	for i := range rooms {
		view, err := s.buildRoomView(&rooms[i], userID)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// GetRoom returns one room for a member. Non-members of an existing room
// get a forbidden error; not-found is reserved for rooms that do not exist.
func (s *Service) GetRoom(userID, roomID string) (*models.RoomView, error) {
	room, err := s.Store.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(userID, roomID); err != nil {
		return nil, err
	}
	return s.buildRoomView(room, userID)
}

// SendMessage appends a message to the room log and fans it out: once to
// the room topic, and once to each other member's personal channel so
// members receive it even without a topic subscription.
func (s *Service) SendMessage(userID, roomID, content string) (*models.Message, error) {
	if _, err := s.Store.GetRoomByID(roomID); err != nil {
		return nil, err
	}
	if err := s.requireMember(userID, roomID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.ValidationField("content", "message content must not be empty")
	}
	if len([]rune(content)) > models.MaxMessageContentLen {
		return nil, errs.ValidationField("content", "message content exceeds maximum length")
	}

	msg, err := s.Store.AppendMessage(roomID, userID, content)
	if err != nil {
		return nil, err
	}
	s.fillSenderUsernames(roomID, msg)

	event, err := models.NewServerEvent(models.EventMessage, roomID, msg)
	if err != nil {
		log.Printf("Error encoding message event: %v", err)
		return msg, nil
	}
	s.publish(chathub.RoomChannel(roomID), event)

	memberIDs, err := s.Store.RoomMemberIDs(roomID)
	if err != nil {
		log.Printf("Error resolving members of room %s for fan-out: %v", roomID, err)
		return msg, nil
	}
	for _, id := range memberIDs {
		if id != userID {
			s.publish(chathub.UserChannel(id), event)
		}
	}
	return msg, nil
}

// GetMessages reads one newest-first page of the room history for a member.
func (s *Service) GetMessages(userID, roomID string, page, size int) (*models.MessagePage, error) {
	if _, err := s.Store.GetRoomByID(roomID); err != nil {
		return nil, err
	}
	if err := s.requireMember(userID, roomID); err != nil {
		return nil, err
	}

	result, err := s.Store.PageMessages(roomID, page, size)
	if err != nil {
		return nil, err
	}
	for i := range result.Content {
		s.fillSenderUsernames(roomID, &result.Content[i])
	}
	return result, nil
}

// MarkMessageRead flips a single message to READ on behalf of a recipient.
// Senders cannot read their own messages; repeated calls are no-op
// successes. The receipt is only broadcast after the mutation committed.
func (s *Service) MarkMessageRead(userID, messageID string) error {
	msg, err := s.Store.GetMessageByID(messageID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		return errs.Validation("cannot mark your own message as read")
	}
	if err := s.requireMember(userID, msg.RoomID); err != nil {
		return err
	}

	if err := s.Store.MarkMessageRead(messageID); err != nil {
		return err
	}

	s.publishReceipt(models.ReadReceipt{RoomID: msg.RoomID, UserID: userID, MessageID: messageID})
	return nil
}

// MarkAllRead flips every message in the room not sent by the caller and
// not already READ, atomically. The caller's own sends are untouched.
func (s *Service) MarkAllRead(userID, roomID string) error {
	if _, err := s.Store.GetRoomByID(roomID); err != nil {
		return err
	}
	if err := s.requireMember(userID, roomID); err != nil {
		return err
	}

	updated, err := s.Store.MarkAllRead(roomID, userID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return nil
	}

	// empty MessageID means "all messages in the room"
	s.publishReceipt(models.ReadReceipt{RoomID: roomID, UserID: userID})
	return nil
}

// Typing broadcasts an ephemeral typing indicator to the room topic only.
// Nothing is persisted and there is no personal-channel fallback.
func (s *Service) Typing(userID, roomID string, isTyping bool) error {
	if err := s.requireMember(userID, roomID); err != nil {
		return err
	}

	user, err := s.Store.GetUserByID(userID)
	if err != nil {
		return err
	}

	payload := models.TypingEvent{
		RoomID:   roomID,
		UserID:   userID,
		Username: user.Username,
		IsTyping: isTyping,
	}
	event, err := models.NewServerEvent(models.EventTyping, roomID, payload)
	if err != nil {
		return errs.Internal("failed to encode typing event", err)
	}
	s.publish(chathub.RoomChannel(roomID), event)
	return nil
}

// SearchUsers finds users by case-insensitive partial username match,
// excluding the caller. Queries under two characters are rejected.
func (s *Service) SearchUsers(userID, query string) ([]models.PublicUser, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, errs.ValidationField("q", "search query must be at least 2 characters")
	}

	users, err := s.Store.SearchUsers(query, userID)
	if err != nil {
		return nil, err
	}

	results := make([]models.PublicUser, 0, len(users))
	for i := range users {
		results = append(results, users[i].Public())
	}
	return results, nil
}

// GetUser returns one user's public identity.
func (s *Service) GetUser(userID string) (*models.User, error) {
	return s.Store.GetUserByID(userID)
}

// IsMember exposes the membership predicate to the fan-out engine.
func (s *Service) IsMember(userID, roomID string) (bool, error) {
	return s.Store.IsMember(userID, roomID)
}

// HandleClientEvent dispatches one inbound live-channel event to the
// matching operation.
func (s *Service) HandleClientEvent(userID string, event models.ClientEvent) error {
	switch event.Type {
	case models.EventChatSend:
		_, err := s.SendMessage(userID, event.RoomID, event.Content)
		return err
	case models.EventChatTyping:
		return s.Typing(userID, event.RoomID, event.IsTyping)
	case models.EventChatRead:
		if event.MessageID != "" {
			return s.MarkMessageRead(userID, event.MessageID)
		}
		return s.MarkAllRead(userID, event.RoomID)
	default:
		return errs.Validation("unknown event type: " + event.Type)
	}
}

// requireMember maps a false membership result to a forbidden error so
// room existence never leaks to non-members.
func (s *Service) requireMember(userID, roomID string) error {
	ok, err := s.Store.IsMember(userID, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Forbidden("you are not a member of this chat room")
	}
	return nil
}

// buildRoomView shapes a room for one member: the counterpart identity and
// the latest message.
func (s *Service) buildRoomView(room *models.ChatRoom, userID string) (*models.RoomView, error) {
	view := &models.RoomView{ID: room.ID, CreatedAt: room.CreatedAt}

	memberIDs, err := s.Store.RoomMemberIDs(room.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if id == userID {
			continue
		}
		other, err := s.Store.GetUserByID(id)
		if err != nil {
			return nil, err
		}
		pub := other.Public()
		view.OtherUser = &pub
		break
	}

	last, err := s.Store.LastMessage(room.ID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		s.fillSenderUsernames(room.ID, last)
		view.LastMessage = last
	}
	return view, nil
}

// fillSenderUsernames resolves the display identity for a message's sender.
// Lookup failures leave the field empty rather than failing the read.
func (s *Service) fillSenderUsernames(roomID string, msg *models.Message) {
	sender, err := s.Store.GetUserByID(msg.SenderID)
	if err != nil {
		return
	}
	msg.SenderUsername = sender.Username
}

func (s *Service) publish(channel string, event models.ServerEvent) {
	if err := s.Broker.Publish(channel, event); err != nil {
		log.Printf("Error publishing %s event on %s: %v", event.Type, channel, err)
	}
}

func (s *Service) publishReceipt(receipt models.ReadReceipt) {
	event, err := models.NewServerEvent(models.EventRead, receipt.RoomID, receipt)
	if err != nil {
		log.Printf("Error encoding read receipt: %v", err)
		return
	}
	s.publish(chathub.RoomChannel(receipt.RoomID), event)
}
