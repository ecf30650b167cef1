package room

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	roomredis "github.com/watchroom/server/internal/repository/room/redis"
)

func newTestService(t *testing.T) *service {
	t.Helper()

	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	repo := roomredis.NewRepo(rc, slog.Default(), time.Hour, 100)
	return NewService(repo, &Config{MaxCapacity: 8}, slog.Default())
}

func strPtr(s string) *string {
	return &s
}

func TestCreateSessionCapacityBounds(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	_, err := service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 0,
		Identity: "owner-1",
		Username: "owner",
	})
	require.Error(t, err)

	_, err = service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 9,
		Identity: "owner-1",
		Username: "owner",
	})
	require.Error(t, err)
}

func TestSessionFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	// create
	createResp, err := service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 2,
		MediaRef: strPtr("vid-1"),
		Identity: "owner-1",
		Username: "owner",
		Color:    "#fff",
	})
	require.NoError(t, err)
	require.NotEmpty(t, createResp.SessionId)
	assert.Equal(t, "owner-1", createResp.Session.OwnerId)
	t.Log("session created")

	// join
	joinResp, err := service.JoinSession(ctx, &JoinSessionParams{
		Identity:  "member-1",
		Username:  "friend",
		Color:     "#000",
		SessionId: createResp.SessionId,
	})
	require.NoError(t, err)
	assert.Equal(t, "friend", joinResp.JoinedMember.Username)
	assert.False(t, joinResp.JoinedMember.IsOwner)
	assert.Len(t, joinResp.State.Members, 2)
	t.Log("member joined")

	// session is at capacity now
	_, err = service.JoinSession(ctx, &JoinSessionParams{
		Identity:  "member-2",
		Username:  "late",
		SessionId: createResp.SessionId,
	})
	require.ErrorIs(t, err, ErrRoomFull)

	// rejoining with a known identity bypasses the capacity check
	_, err = service.JoinSession(ctx, &JoinSessionParams{
		Identity:  "member-1",
		Username:  "friend",
		SessionId: createResp.SessionId,
	})
	require.NoError(t, err)
	t.Log("member rejoined")

	// playback writes are owner-guarded
	err = service.UpdatePlayback(ctx, &UpdatePlaybackParams{
		IsPlaying: true,
		Position:  10,
		SenderId:  "member-1",
		SessionId: createResp.SessionId,
	})
	require.ErrorIs(t, err, ErrNotOwner)

	err = service.UpdatePlayback(ctx, &UpdatePlaybackParams{
		IsPlaying: true,
		Position:  10,
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	})
	require.NoError(t, err)

	session, err := service.GetSession(ctx, createResp.SessionId)
	require.NoError(t, err)
	assert.True(t, session.IsPlaying)
	assert.Equal(t, 10.0, session.Position)
	t.Log("playback updated")

	// chat
	chatResp, err := service.SendChatMessage(ctx, &SendChatMessageParams{
		Body:      "hello",
		SenderId:  "member-1",
		SessionId: createResp.SessionId,
	})
	require.NoError(t, err)
	assert.Equal(t, "friend", chatResp.Message.Username)
	assert.NotEmpty(t, chatResp.Message.Id)

	state, err := service.GetState(ctx, createResp.SessionId)
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "hello", state.Messages[0].Body)
	t.Log("chat message sent")
}

func TestLeaveSessionIdempotent(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	createResp, err := service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 2,
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)

	// leaving a session you are not in is a no-op
	require.NoError(t, service.LeaveSession(ctx, &LeaveSessionParams{
		Identity:  "stranger",
		SessionId: createResp.SessionId,
	}))

	// leaving twice is a no-op
	require.NoError(t, service.LeaveSession(ctx, &LeaveSessionParams{
		Identity:  "owner-1",
		SessionId: createResp.SessionId,
	}))
	require.NoError(t, service.LeaveSession(ctx, &LeaveSessionParams{
		Identity:  "owner-1",
		SessionId: createResp.SessionId,
	}))
}

func TestLastMemberOutDeletesSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	createResp, err := service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 2,
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)

	_, err = service.JoinSession(ctx, &JoinSessionParams{
		Identity:  "member-1",
		Username:  "friend",
		SessionId: createResp.SessionId,
	})
	require.NoError(t, err)

	// the owner leaving does not delete the session while others remain
	require.NoError(t, service.LeaveSession(ctx, &LeaveSessionParams{
		Identity:  "owner-1",
		SessionId: createResp.SessionId,
	}))
	_, err = service.GetSession(ctx, createResp.SessionId)
	require.NoError(t, err)

	require.NoError(t, service.LeaveSession(ctx, &LeaveSessionParams{
		Identity:  "member-1",
		SessionId: createResp.SessionId,
	}))
	_, err = service.GetSession(ctx, createResp.SessionId)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeleteSessionOwnerGuard(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	createResp, err := service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 2,
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)

	_, err = service.JoinSession(ctx, &JoinSessionParams{
		Identity:  "member-1",
		Username:  "friend",
		SessionId: createResp.SessionId,
	})
	require.NoError(t, err)

	err = service.DeleteSession(ctx, &DeleteSessionParams{
		SenderId:  "member-1",
		SessionId: createResp.SessionId,
	})
	require.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, service.DeleteSession(ctx, &DeleteSessionParams{
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))

	_, err = service.GetSession(ctx, createResp.SessionId)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestChatRequiresMembership(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)

	createResp, err := service.CreateSession(ctx, &CreateSessionParams{
		Name:     "party",
		Capacity: 2,
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)

	_, err = service.SendChatMessage(ctx, &SendChatMessageParams{
		Body:      "hello",
		SenderId:  "stranger",
		SessionId: createResp.SessionId,
	})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
