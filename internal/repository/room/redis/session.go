package redis

import (
	"context"
	"fmt"

	"github.com/watchroom/server/internal/repository/room"
)

func (r repo) getSessionKey(sessionId string) string {
	return "session:" + sessionId
}

func (r repo) SetSession(ctx context.Context, params *room.SetSessionParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	session := room.Session{
		Name:      params.Name,
		Capacity:  params.Capacity,
		OwnerId:   params.OwnerId,
		MediaRef:  params.MediaRef,
		IsPlaying: params.IsPlaying,
		Position:  params.Position,
		UpdatedAt: params.UpdatedAt,
	}
	sessionKey := r.getSessionKey(params.SessionId)
	r.hSetStruct(ctx, pipe, sessionKey, session)
	pipe.Expire(ctx, sessionKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (r repo) GetSession(ctx context.Context, sessionId string) (room.Session, error) {
	sessionKey := r.getSessionKey(sessionId)
	var session room.Session
	if err := r.rc.HGetAll(ctx, sessionKey).Scan(&session); err != nil {
		return room.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	if session.OwnerId == "" {
		return room.Session{}, room.ErrSessionNotFound
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return session, nil
}

func (r repo) UpdatePlayback(ctx context.Context, params *room.UpdatePlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	sessionKey := r.getSessionKey(params.SessionId)
	cmd := r.rc.Exists(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrSessionNotFound
	}

	if err := r.rc.HSet(ctx, sessionKey,
		"is_playing", params.IsPlaying,
		"position", params.Position,
		"updated_at", params.UpdatedAt,
	).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	r.publishSessionUpdated(ctx, params.SessionId)

	return nil
}

func (r repo) UpdatePosition(ctx context.Context, params *room.UpdatePositionParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	sessionKey := r.getSessionKey(params.SessionId)
	cmd := r.rc.Exists(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrSessionNotFound
	}

	if err := r.rc.HSet(ctx, sessionKey,
		"position", params.Position,
		"updated_at", params.UpdatedAt,
	).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	r.publishSessionUpdated(ctx, params.SessionId)

	return nil
}

func (r repo) UpdateMedia(ctx context.Context, params *room.UpdateMediaParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	sessionKey := r.getSessionKey(params.SessionId)
	cmd := r.rc.Exists(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrSessionNotFound
	}

	// changing media resets playback to the start, paused
	if err := r.rc.HSet(ctx, sessionKey,
		"is_playing", false,
		"position", 0.0,
		"updated_at", params.UpdatedAt,
	).Err(); err != nil {
		return err
	}

	if params.MediaRef == nil {
		if err := r.rc.HDel(ctx, sessionKey, "media_ref").Err(); err != nil {
			return err
		}
	} else {
		if err := r.rc.HSet(ctx, sessionKey, "media_ref", *params.MediaRef).Err(); err != nil {
			return err
		}
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	r.publishSessionUpdated(ctx, params.SessionId)

	return nil
}

// RemoveSession deletes the session and everything scoped to it, then
// notifies subscribers so coordinators terminate and members are evicted.
func (r repo) RemoveSession(ctx context.Context, sessionId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"session_id": sessionId,
	})
	memberIds, err := r.rc.ZRange(ctx, r.getMemberListKey(sessionId), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	keys := make([]string, 0, len(memberIds)+3)
	keys = append(keys,
		r.getSessionKey(sessionId),
		r.getMemberListKey(sessionId),
		r.getChatKey(sessionId),
	)
	for _, memberId := range memberIds {
		keys = append(keys, r.getMemberKey(sessionId, memberId))
	}

	res, err := r.rc.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	if res == 0 {
		return room.ErrSessionNotFound
	}

	r.publishEvent(ctx, sessionId, room.EventSessionDeleted, nil)

	return nil
}
