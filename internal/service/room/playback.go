package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/watchroom/server/internal/repository/room"
)

type UpdatePlaybackParams struct {
	IsPlaying bool
	Position  float64
	SenderId  string
	SessionId string
}

// UpdatePlayback writes the authoritative play/pause snapshot. Owner only.
func (s service) UpdatePlayback(ctx context.Context, params *UpdatePlaybackParams) error {
	if err := s.checkIfOwner(ctx, params.SessionId, params.SenderId); err != nil {
		return err
	}

	if err := s.roomRepo.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: params.IsPlaying,
		Position:  params.Position,
		UpdatedAt: time.Now().UnixMilli(),
		SessionId: params.SessionId,
	}); err != nil {
		if errors.Is(err, room.ErrSessionNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to update playback: %w", err)
	}

	return nil
}

type UpdatePositionParams struct {
	Position  float64
	SenderId  string
	SessionId string
}

// UpdatePosition is the heartbeat write: position only, play state untouched.
func (s service) UpdatePosition(ctx context.Context, params *UpdatePositionParams) error {
	if err := s.checkIfOwner(ctx, params.SessionId, params.SenderId); err != nil {
		return err
	}

	if err := s.roomRepo.UpdatePosition(ctx, &room.UpdatePositionParams{
		Position:  params.Position,
		UpdatedAt: time.Now().UnixMilli(),
		SessionId: params.SessionId,
	}); err != nil {
		if errors.Is(err, room.ErrSessionNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to update position: %w", err)
	}

	return nil
}

type UpdateMediaParams struct {
	MediaRef  *string
	SenderId  string
	SessionId string
}

// UpdateMedia swaps the session's media reference and resets playback to
// position 0, paused. Owner only.
func (s service) UpdateMedia(ctx context.Context, params *UpdateMediaParams) error {
	if err := s.checkIfOwner(ctx, params.SessionId, params.SenderId); err != nil {
		return err
	}

	if err := s.roomRepo.UpdateMedia(ctx, &room.UpdateMediaParams{
		MediaRef:  params.MediaRef,
		UpdatedAt: time.Now().UnixMilli(),
		SessionId: params.SessionId,
	}); err != nil {
		if errors.Is(err, room.ErrSessionNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to update media: %w", err)
	}

	return nil
}
