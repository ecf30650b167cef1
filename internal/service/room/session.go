package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/watchroom/server/internal/repository/room"
)

type CreateSessionParams struct {
	Name      string
	Capacity  int
	MediaRef  *string
	Identity  string
	Username  string
	Color     string
	AvatarURL *string
}

type CreateSessionResponse struct {
	SessionId string
	Session   Session
}

func (s service) CreateSession(ctx context.Context, params *CreateSessionParams) (CreateSessionResponse, error) {
	if params.Capacity < 1 || params.Capacity > s.maxCapacity {
		return CreateSessionResponse{}, fmt.Errorf("capacity must be between 1 and %d", s.maxCapacity)
	}

	sessionId := uuid.NewString()
	updatedAt := time.Now().UnixMilli()

	if err := s.roomRepo.SetSession(ctx, &room.SetSessionParams{
		Name:      params.Name,
		Capacity:  params.Capacity,
		OwnerId:   params.Identity,
		MediaRef:  params.MediaRef,
		IsPlaying: false,
		Position:  0,
		UpdatedAt: updatedAt,
		SessionId: sessionId,
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
		Username:  params.Username,
		Color:     params.Color,
		AvatarURL: params.AvatarURL,
		MemberId:  params.Identity,
		SessionId: sessionId,
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	s.logger.InfoContext(ctx, "session created", "session_id", sessionId, "owner_id", params.Identity)

	return CreateSessionResponse{
		SessionId: sessionId,
		Session: Session{
			Id:        sessionId,
			Name:      params.Name,
			Capacity:  params.Capacity,
			OwnerId:   params.Identity,
			MediaRef:  params.MediaRef,
			IsPlaying: false,
			Position:  0,
			UpdatedAt: updatedAt,
		},
	}, nil
}

func (s service) GetSession(ctx context.Context, sessionId string) (Session, error) {
	return s.getSession(ctx, sessionId)
}

// GetState returns the snapshot a participant needs on open: the session,
// the presence list, and the retained chat history.
func (s service) GetState(ctx context.Context, sessionId string) (State, error) {
	session, err := s.getSession(ctx, sessionId)
	if err != nil {
		return State{}, err
	}

	members, err := s.getMembers(ctx, sessionId, session.OwnerId)
	if err != nil {
		return State{}, err
	}

	messages, err := s.ChatMessages(ctx, sessionId)
	if err != nil {
		return State{}, err
	}

	return State{
		Session:  session,
		Members:  members,
		Messages: messages,
	}, nil
}

type DeleteSessionParams struct {
	SenderId  string
	SessionId string
}

// DeleteSession removes the session and evicts every member. Only the owner
// may delete; moderation deletes go through the same path with the owner's
// identity resolved by the admin surface.
func (s service) DeleteSession(ctx context.Context, params *DeleteSessionParams) error {
	if err := s.checkIfOwner(ctx, params.SessionId, params.SenderId); err != nil {
		return err
	}

	if err := s.roomRepo.RemoveSession(ctx, params.SessionId); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	s.logger.InfoContext(ctx, "session deleted", "session_id", params.SessionId)

	return nil
}
