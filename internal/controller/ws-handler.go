package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("ALIVE", handle(c.handleAlive))

	// playback, owner only
	mux.Handle("UPDATE_PLAYBACK", handle(c.handleUpdatePlayback))
	mux.Handle("UPDATE_POSITION", handle(c.handleUpdatePosition))
	mux.Handle("UPDATE_MEDIA", handle(c.handleUpdateMedia))

	// chat
	mux.Handle("SEND_CHAT", handle(c.handleSendChat))

	return mux
}

// handle adapts a typed handler to the wsrouter signature.
func handle[T any](h func(ctx context.Context, conn *wsrouter.Conn, input T) error) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *wsrouter.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("invalid payload: %w", err)
			}
		}

		return h(ctx, conn, input)
	}
}

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *wsrouter.Conn, _ EmptyInput) error {
	return nil
}

type UpdatePlaybackInput struct {
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position" validate:"gte=0"`
}

func (c controller) handleUpdatePlayback(ctx context.Context, _ *wsrouter.Conn, input UpdatePlaybackInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid input: %v", errs)
	}

	if err := c.roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: input.IsPlaying,
		Position:  input.Position,
		SenderId:  c.getMemberIdFromCtx(ctx),
		SessionId: c.getSessionIdFromCtx(ctx),
	}); err != nil {
		if errors.Is(err, room.ErrNotOwner) {
			return room.ErrNotOwner
		}
		return fmt.Errorf("failed to update playback: %w", err)
	}

	return nil
}

type UpdatePositionInput struct {
	Position float64 `json:"position" validate:"gte=0"`
}

func (c controller) handleUpdatePosition(ctx context.Context, _ *wsrouter.Conn, input UpdatePositionInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid input: %v", errs)
	}

	if err := c.roomService.UpdatePosition(ctx, &room.UpdatePositionParams{
		Position:  input.Position,
		SenderId:  c.getMemberIdFromCtx(ctx),
		SessionId: c.getSessionIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	return nil
}

type UpdateMediaInput struct {
	MediaRef *string `json:"media_ref"`
}

func (c controller) handleUpdateMedia(ctx context.Context, _ *wsrouter.Conn, input UpdateMediaInput) error {
	if err := c.roomService.UpdateMedia(ctx, &room.UpdateMediaParams{
		MediaRef:  input.MediaRef,
		SenderId:  c.getMemberIdFromCtx(ctx),
		SessionId: c.getSessionIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}

	return nil
}

type SendChatInput struct {
	Body string `json:"body" validate:"required,max=500"`
}

func (c controller) handleSendChat(ctx context.Context, _ *wsrouter.Conn, input SendChatInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid input: %v", errs)
	}

	if _, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		Body:      input.Body,
		SenderId:  c.getMemberIdFromCtx(ctx),
		SessionId: c.getSessionIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	return nil
}
