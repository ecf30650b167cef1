package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getChatKey(sessionId string) string {
	return "session:" + sessionId + ":chat"
}

// AddChatMessage appends to the session's message stream, keeping only the
// most recent chatLimit messages.
func (r repo) AddChatMessage(ctx context.Context, params *room.AddChatMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	raw, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	chatKey := r.getChatKey(params.SessionId)
	pipe := r.rc.TxPipeline()
	pipe.LPush(ctx, chatKey, raw)
	pipe.LTrim(ctx, chatKey, 0, int64(r.chatLimit-1))
	pipe.Expire(ctx, chatKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	r.publishEvent(ctx, params.SessionId, room.EventChatMessage, &params.Message)

	return nil
}

// GetChatMessages returns the retained messages oldest first.
func (r repo) GetChatMessages(ctx context.Context, sessionId string) ([]room.ChatMessage, error) {
	raws, err := r.rc.LRange(ctx, r.getChatKey(sessionId), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]room.ChatMessage, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var message room.ChatMessage
		if err := json.Unmarshal([]byte(raws[i]), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}
