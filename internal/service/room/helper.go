package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/repository/room"
)

// checkIfOwner enforces the single-writer rule for playback fields. A
// non-owner invocation is a caller bug and is rejected, never ignored.
func (s service) checkIfOwner(ctx context.Context, sessionId, senderId string) error {
	session, err := s.roomRepo.GetSession(ctx, sessionId)
	if err != nil {
		if errors.Is(err, room.ErrSessionNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}

	if session.OwnerId != senderId {
		return ErrNotOwner
	}

	return nil
}

func (s service) getSession(ctx context.Context, sessionId string) (Session, error) {
	session, err := s.roomRepo.GetSession(ctx, sessionId)
	if err != nil {
		if errors.Is(err, room.ErrSessionNotFound) {
			return Session{}, ErrRoomNotFound
		}
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	return Session{
		Id:        sessionId,
		Name:      session.Name,
		Capacity:  session.Capacity,
		OwnerId:   session.OwnerId,
		MediaRef:  session.MediaRef,
		IsPlaying: session.IsPlaying,
		Position:  session.Position,
		UpdatedAt: session.UpdatedAt,
	}, nil
}

func (s service) getMembers(ctx context.Context, sessionId, ownerId string) ([]Member, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	members := make([]Member, 0, len(memberIds))
	for _, memberId := range memberIds {
		member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
			MemberId:  memberId,
			SessionId: sessionId,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		members = append(members, Member{
			Id:        memberId,
			Username:  member.Username,
			Color:     member.Color,
			AvatarURL: member.AvatarURL,
			IsOwner:   memberId == ownerId,
		})
	}

	return members, nil
}
