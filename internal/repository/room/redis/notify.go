package redis

import (
	"context"
	"encoding/json"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getEventsKey(sessionId string) string {
	return "session:" + sessionId + ":events"
}

// publishEvent fans a change notification out to subscribers. Notification
// failures are logged and swallowed: the write itself already committed, and
// a lost notification is recovered by the next one.
func (r repo) publishEvent(ctx context.Context, sessionId, eventType string, payload any) {
	event := room.Event{
		Type:      eventType,
		SessionId: sessionId,
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to marshal event payload", "error", err)
			return
		}
		event.Payload = raw
	}

	raw, err := json.Marshal(event)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to marshal event", "error", err)
		return
	}

	if err := r.rc.Publish(ctx, r.getEventsKey(sessionId), raw).Err(); err != nil {
		r.logger.WarnContext(ctx, "failed to publish event", "error", err)
	}
}

func (r repo) publishSessionUpdated(ctx context.Context, sessionId string) {
	session, err := r.GetSession(ctx, sessionId)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to get session for notification", "error", err)
		return
	}

	r.publishEvent(ctx, sessionId, room.EventSessionUpdated, &session)
}

// Subscribe opens the session's notification stream. Slow consumers drop
// events rather than block the pump; consumers are expected to reconcile
// from the payload snapshot, not replay a log.
func (r repo) Subscribe(ctx context.Context, sessionId string) (*room.Subscription, error) {
	pubsub := r.rc.Subscribe(ctx, r.getEventsKey(sessionId))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	events := make(chan room.Event, 16)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event room.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.WarnContext(ctx, "failed to unmarshal event", "error", err)
				continue
			}

			select {
			case events <- event:
			default:
				r.logger.WarnContext(ctx, "dropping event for slow subscriber", "type", event.Type)
			}
		}
	}()

	return room.NewSubscription(events, pubsub.Close), nil
}
