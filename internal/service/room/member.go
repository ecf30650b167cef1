package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/watchroom/server/internal/repository/room"
)

type JoinSessionParams struct {
	Identity  string
	Username  string
	Color     string
	AvatarURL *string
	SessionId string
}

type JoinSessionResponse struct {
	JoinedMember Member
	State        State
}

// JoinSession admits an identity subject to capacity. Rejoining with an
// identity that is already a member bypasses the capacity check and updates
// the member's profile in place. The count is checked immediately before the
// insert; two concurrent joins can transiently admit one member over
// capacity. Accepted weakness, see DESIGN.md.
func (s service) JoinSession(ctx context.Context, params *JoinSessionParams) (JoinSessionResponse, error) {
	session, err := s.getSession(ctx, params.SessionId)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	_, err = s.roomRepo.GetMember(ctx, &room.GetMemberParams{
		MemberId:  params.Identity,
		SessionId: params.SessionId,
	})
	rejoin := err == nil
	if err != nil && !errors.Is(err, room.ErrMemberNotFound) {
		return JoinSessionResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	if !rejoin {
		count, err := s.roomRepo.GetMemberCount(ctx, params.SessionId)
		if err != nil {
			return JoinSessionResponse{}, fmt.Errorf("failed to get member count: %w", err)
		}

		if count >= session.Capacity {
			return JoinSessionResponse{}, ErrRoomFull
		}
	}

	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
		Username:  params.Username,
		Color:     params.Color,
		AvatarURL: params.AvatarURL,
		MemberId:  params.Identity,
		SessionId: params.SessionId,
	}); err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	state, err := s.GetState(ctx, params.SessionId)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	s.logger.InfoContext(ctx, "member joined", "session_id", params.SessionId, "member_id", params.Identity)

	return JoinSessionResponse{
		JoinedMember: Member{
			Id:        params.Identity,
			Username:  params.Username,
			Color:     params.Color,
			AvatarURL: params.AvatarURL,
			IsOwner:   params.Identity == session.OwnerId,
		},
		State: state,
	}, nil
}

type LeaveSessionParams struct {
	Identity  string
	SessionId string
}

// LeaveSession is idempotent: leaving a session you are not in, or one that
// no longer exists, is a no-op. The last member out deletes the session.
func (s service) LeaveSession(ctx context.Context, params *LeaveSessionParams) error {
	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		MemberId:  params.Identity,
		SessionId: params.SessionId,
	}); err != nil {
		if errors.Is(err, room.ErrMemberNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.logger.InfoContext(ctx, "member left", "session_id", params.SessionId, "member_id", params.Identity)

	count, err := s.roomRepo.GetMemberCount(ctx, params.SessionId)
	if err != nil {
		return fmt.Errorf("failed to get member count: %w", err)
	}

	if count == 0 {
		if err := s.roomRepo.RemoveSession(ctx, params.SessionId); err != nil && !errors.Is(err, room.ErrSessionNotFound) {
			return fmt.Errorf("failed to remove empty session: %w", err)
		}
		s.logger.InfoContext(ctx, "empty session deleted", "session_id", params.SessionId)
	}

	return nil
}

func (s service) Members(ctx context.Context, sessionId string) ([]Member, error) {
	session, err := s.getSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	return s.getMembers(ctx, sessionId, session.OwnerId)
}
