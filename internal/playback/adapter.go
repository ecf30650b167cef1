package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	roomrepo "github.com/watchroom/server/internal/repository/room"
	roomservice "github.com/watchroom/server/internal/service/room"
)

type iRoomService interface {
	GetSession(ctx context.Context, sessionId string) (roomservice.Session, error)
	JoinSession(ctx context.Context, params *roomservice.JoinSessionParams) (roomservice.JoinSessionResponse, error)
	LeaveSession(ctx context.Context, params *roomservice.LeaveSessionParams) error
	UpdatePlayback(ctx context.Context, params *roomservice.UpdatePlaybackParams) error
	UpdatePosition(ctx context.Context, params *roomservice.UpdatePositionParams) error
	UpdateMedia(ctx context.Context, params *roomservice.UpdateMediaParams) error
	Subscribe(ctx context.Context, sessionId string) (*roomrepo.Subscription, error)
}

// ServiceStore binds the room service to one session and one identity,
// presenting the Store surface the coordinator runs against.
type ServiceStore struct {
	service   iRoomService
	sessionId string
	identity  string
	username  string
	color     string
	avatarURL *string
	logger    *slog.Logger
}

type ServiceStoreParams struct {
	SessionId string
	Identity  string
	Username  string
	Color     string
	AvatarURL *string
}

func NewServiceStore(service iRoomService, params *ServiceStoreParams, logger *slog.Logger) *ServiceStore {
	return &ServiceStore{
		service:   service,
		sessionId: params.SessionId,
		identity:  params.Identity,
		username:  params.Username,
		color:     params.Color,
		avatarURL: params.AvatarURL,
		logger:    logger,
	}
}

func (s *ServiceStore) Snapshot(ctx context.Context) (Snapshot, error) {
	session, err := s.service.GetSession(ctx, s.sessionId)
	if err != nil {
		return Snapshot{}, mapServiceError(err)
	}

	return snapshotFromSession(session.OwnerId, session.MediaRef, session.IsPlaying, session.Position), nil
}

func (s *ServiceStore) WritePlayback(ctx context.Context, playing bool, position float64) error {
	if err := s.service.UpdatePlayback(ctx, &roomservice.UpdatePlaybackParams{
		IsPlaying: playing,
		Position:  position,
		SenderId:  s.identity,
		SessionId: s.sessionId,
	}); err != nil {
		return mapServiceError(err)
	}

	return nil
}

func (s *ServiceStore) WritePosition(ctx context.Context, position float64) error {
	if err := s.service.UpdatePosition(ctx, &roomservice.UpdatePositionParams{
		Position:  position,
		SenderId:  s.identity,
		SessionId: s.sessionId,
	}); err != nil {
		return mapServiceError(err)
	}

	return nil
}

func (s *ServiceStore) WriteMedia(ctx context.Context, ref *string) error {
	if err := s.service.UpdateMedia(ctx, &roomservice.UpdateMediaParams{
		MediaRef:  ref,
		SenderId:  s.identity,
		SessionId: s.sessionId,
	}); err != nil {
		return mapServiceError(err)
	}

	return nil
}

func (s *ServiceStore) Join(ctx context.Context) error {
	if _, err := s.service.JoinSession(ctx, &roomservice.JoinSessionParams{
		Identity:  s.identity,
		Username:  s.username,
		Color:     s.color,
		AvatarURL: s.avatarURL,
		SessionId: s.sessionId,
	}); err != nil {
		return mapServiceError(err)
	}

	return nil
}

func (s *ServiceStore) Leave(ctx context.Context) error {
	if err := s.service.LeaveSession(ctx, &roomservice.LeaveSessionParams{
		Identity:  s.identity,
		SessionId: s.sessionId,
	}); err != nil {
		return mapServiceError(err)
	}

	return nil
}

// Subscribe filters the session's notification stream down to the updates
// the coordinator consumes: playback snapshots and the deletion marker.
func (s *ServiceStore) Subscribe(ctx context.Context) (*Feed, error) {
	sub, err := s.service.Subscribe(ctx, s.sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	updates := make(chan Update, 16)
	go func() {
		defer close(updates)
		for event := range sub.Events {
			switch event.Type {
			case roomrepo.EventSessionUpdated:
				var session roomrepo.Session
				if err := json.Unmarshal(event.Payload, &session); err != nil {
					s.logger.Warn("failed to unmarshal session payload", "error", err)
					continue
				}
				snap := snapshotFromSession(session.OwnerId, session.MediaRef, session.IsPlaying, session.Position)
				updates <- Update{Snapshot: &snap}
			case roomrepo.EventSessionDeleted:
				updates <- Update{Deleted: true}
				return
			}
		}
	}()

	return NewFeed(updates, sub.Close), nil
}

func snapshotFromSession(ownerId string, mediaRef *string, playing bool, position float64) Snapshot {
	return Snapshot{
		OwnerId:  ownerId,
		MediaRef: cloneRef(mediaRef),
		Playing:  playing,
		Position: position,
	}
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, roomservice.ErrRoomNotFound):
		return ErrSessionNotFound
	case errors.Is(err, roomservice.ErrRoomFull):
		return ErrSessionFull
	case errors.Is(err, roomservice.ErrNotOwner):
		return ErrNotOwner
	default:
		return err
	}
}
