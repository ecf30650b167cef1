package redis

import (
	"context"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getMemberKey(sessionId, memberId string) string {
	return "session:" + sessionId + ":member:" + memberId
}

func (r repo) getMemberListKey(sessionId string) string {
	return "session:" + sessionId + ":memberlist"
}

func (r repo) SetMember(ctx context.Context, params *room.SetMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	member := room.Member{
		Username:  params.Username,
		Color:     params.Color,
		AvatarURL: params.AvatarURL,
	}

	memberKey := r.getMemberKey(params.SessionId, params.MemberId)
	r.hSetStruct(ctx, pipe, memberKey, member)
	pipe.Expire(ctx, memberKey, r.expireDuration)

	memberListKey := r.getMemberListKey(params.SessionId)
	r.addWithIncrement(ctx, pipe, memberListKey, params.MemberId)
	pipe.Expire(ctx, memberListKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	r.publishEvent(ctx, params.SessionId, room.EventMemberJoined, &room.MemberEventPayload{
		MemberId: params.MemberId,
		Member:   &member,
	})

	return nil
}

// RemoveMember deletes the membership row. Removing an absent member
// returns ErrMemberNotFound; the service layer treats that as a no-op.
func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	removed, err := r.rc.ZRem(ctx, r.getMemberListKey(params.SessionId), params.MemberId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if err := r.rc.Del(ctx, r.getMemberKey(params.SessionId, params.MemberId)).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if removed == 0 {
		return room.ErrMemberNotFound
	}

	r.publishEvent(ctx, params.SessionId, room.EventMemberLeft, &room.MemberEventPayload{
		MemberId: params.MemberId,
	})

	return nil
}

func (r repo) GetMemberCount(ctx context.Context, sessionId string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getMemberListKey(sessionId)).Result()
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

func (r repo) GetMemberIds(ctx context.Context, sessionId string) ([]string, error) {
	memberIds, err := r.rc.ZRange(ctx, r.getMemberListKey(sessionId), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	return memberIds, nil
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (room.Member, error) {
	var member room.Member
	if err := r.rc.HGetAll(ctx, r.getMemberKey(params.SessionId, params.MemberId)).Scan(&member); err != nil {
		return room.Member{}, err
	}

	if member.Username == "" {
		return room.Member{}, room.ErrMemberNotFound
	}

	return member, nil
}
