package room

import "encoding/json"

// Event types published on a session's notification channel. Delivery is
// at-least-once and not strictly ordered relative to rapid successive
// writes; consumers must treat events as idempotent hints and re-read or
// reconcile rather than replay them as a log.
const (
	EventSessionUpdated = "SESSION_UPDATED"
	EventSessionDeleted = "SESSION_DELETED"
	EventMemberJoined   = "MEMBER_JOINED"
	EventMemberLeft     = "MEMBER_LEFT"
	EventChatMessage    = "CHAT_MESSAGE"
)

type Event struct {
	Type      string          `json:"type"`
	SessionId string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type MemberEventPayload struct {
	MemberId string  `json:"member_id"`
	Member   *Member `json:"member,omitempty"`
}

// Subscription is a handle on a session's notification stream. Events stops
// producing after Close.
type Subscription struct {
	Events <-chan Event

	close func() error
}

func NewSubscription(events <-chan Event, close func() error) *Subscription {
	return &Subscription{Events: events, close: close}
}

func (s *Subscription) Close() error {
	return s.close()
}
