package app

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/media"
	"github.com/watchroom/server/internal/media/embedded"
	"github.com/watchroom/server/internal/playback"
	roomredis "github.com/watchroom/server/internal/repository/room/redis"
	"github.com/watchroom/server/internal/service/room"
)

func TestFollowerSynchronizes(t *testing.T) {
	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.Default()
	roomRepo := roomredis.NewRepo(rc, logger, time.Hour, chatHistoryLimit)
	roomService := room.NewService(roomRepo, &room.Config{MaxCapacity: 8}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	createResp, err := roomService.CreateSession(ctx, &room.CreateSessionParams{
		Name:     "party",
		Capacity: 4,
		MediaRef: strPtr("vid-1"),
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)
	t.Log("session created")

	// a headless follower with a clock-driven engine
	engine := embedded.New(func(ctx context.Context, ref string) error { return nil })
	store := playback.NewServiceStore(roomService, &playback.ServiceStoreParams{
		SessionId: createResp.SessionId,
		Identity:  "follower-1",
		Username:  "friend",
	}, logger)
	coordinator := playback.NewCoordinator(store, engine, "follower-1", playback.Config{}, logger)

	done := make(chan error, 1)
	go func() { done <- coordinator.Run(ctx) }()

	require.Eventually(t, func() bool {
		return engine.State() != media.StateNoMedia
	}, 2*time.Second, 20*time.Millisecond, "follower must load the session's media on join")
	assert.Equal(t, playback.RoleFollower, coordinator.Role())

	require.Eventually(t, func() bool {
		count, err := roomRepo.GetMemberCount(ctx, createResp.SessionId)
		return err == nil && count == 2
	}, 2*time.Second, 20*time.Millisecond, "follower must appear in the member list")
	t.Log("follower joined")

	// the owner starts playback mid-video; the write fans out over the
	// notification stream and the follower reconciles
	require.NoError(t, roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: true,
		Position:  30,
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))

	require.Eventually(t, func() bool {
		return engine.State() == media.StatePlaying && math.Abs(engine.Position()-30) < 5
	}, 3*time.Second, 50*time.Millisecond, "follower must converge on the authoritative state")
	t.Log("follower playing in sync")

	// the owner pauses; duplicate notifications must not thrash the engine
	require.NoError(t, roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: false,
		Position:  35,
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))

	require.Eventually(t, func() bool {
		return engine.State() == media.StatePaused
	}, 3*time.Second, 50*time.Millisecond)
	t.Log("follower paused in sync")

	// deleting the session terminates the coordinator
	require.NoError(t, roomService.DeleteSession(ctx, &room.DeleteSessionParams{
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("coordinator did not terminate on session deletion")
	}
	t.Log("coordinator terminated")
}

func TestMediaSwapPropagates(t *testing.T) {
	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.Default()
	roomRepo := roomredis.NewRepo(rc, logger, time.Hour, chatHistoryLimit)
	roomService := room.NewService(roomRepo, &room.Config{MaxCapacity: 8}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	createResp, err := roomService.CreateSession(ctx, &room.CreateSessionParams{
		Name:     "party",
		Capacity: 4,
		MediaRef: strPtr("vid-1"),
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)

	engine := embedded.New(func(ctx context.Context, ref string) error { return nil })
	store := playback.NewServiceStore(roomService, &playback.ServiceStoreParams{
		SessionId: createResp.SessionId,
		Identity:  "follower-1",
		Username:  "friend",
	}, logger)
	coordinator := playback.NewCoordinator(store, engine, "follower-1", playback.Config{}, logger)

	done := make(chan error, 1)
	go func() { done <- coordinator.Run(ctx) }()

	require.Eventually(t, func() bool {
		return engine.State() != media.StateNoMedia
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: true,
		Position:  100,
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))
	require.Eventually(t, func() bool {
		return engine.State() == media.StatePlaying
	}, 3*time.Second, 50*time.Millisecond)

	// swapping the media resets the follower to the start, paused
	require.NoError(t, roomService.UpdateMedia(ctx, &room.UpdateMediaParams{
		MediaRef:  strPtr("vid-2"),
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))

	require.Eventually(t, func() bool {
		return engine.State() != media.StatePlaying && engine.Position() < 5
	}, 3*time.Second, 50*time.Millisecond, "media swap must reset the follower")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("coordinator did not terminate on cancel")
	}
}

func TestTwoFollowersConvergeIndependently(t *testing.T) {
	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.Default()
	roomRepo := roomredis.NewRepo(rc, logger, time.Hour, chatHistoryLimit)
	roomService := room.NewService(roomRepo, &room.Config{MaxCapacity: 8}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	createResp, err := roomService.CreateSession(ctx, &room.CreateSessionParams{
		Name:     "party",
		Capacity: 4,
		MediaRef: strPtr("vid-1"),
		Identity: "owner-1",
		Username: "owner",
	})
	require.NoError(t, err)

	// two independent followers, each with its own engine and subscription
	engines := make([]*embedded.Engine, 2)
	dones := make([]chan error, 2)
	for i, identity := range []string{"follower-1", "follower-2"} {
		engine := embedded.New(func(ctx context.Context, ref string) error { return nil })
		store := playback.NewServiceStore(roomService, &playback.ServiceStoreParams{
			SessionId: createResp.SessionId,
			Identity:  identity,
			Username:  identity,
		}, logger)
		coordinator := playback.NewCoordinator(store, engine, identity, playback.Config{}, logger)

		done := make(chan error, 1)
		go func() { done <- coordinator.Run(ctx) }()
		engines[i] = engine
		dones[i] = done
	}

	require.Eventually(t, func() bool {
		return engines[0].State() != media.StateNoMedia && engines[1].State() != media.StateNoMedia
	}, 2*time.Second, 20*time.Millisecond, "both followers must load the session's media")
	t.Log("both followers joined")

	require.NoError(t, roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: true,
		Position:  10,
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))
	require.Eventually(t, func() bool {
		return engines[0].State() == media.StatePlaying && engines[1].State() == media.StatePlaying
	}, 3*time.Second, 50*time.Millisecond)
	t.Log("both followers playing")

	require.NoError(t, roomService.UpdatePlayback(ctx, &room.UpdatePlaybackParams{
		IsPlaying: false,
		Position:  40,
		SenderId:  "owner-1",
		SessionId: createResp.SessionId,
	}))

	require.Eventually(t, func() bool {
		for _, engine := range engines {
			if engine.State() != media.StatePaused || math.Abs(engine.Position()-40) > 5 {
				return false
			}
		}
		return true
	}, 3*time.Second, 50*time.Millisecond, "each follower must converge on the pause on its own")
	t.Log("both followers paused at the authoritative position")

	// corrections never feed back: well past the correction interval the
	// authoritative record still carries only the owner's write
	time.Sleep(time.Second)
	session, err := roomService.GetSession(ctx, createResp.SessionId)
	require.NoError(t, err)
	assert.False(t, session.IsPlaying)
	assert.Equal(t, 40.0, session.Position)
	for _, engine := range engines {
		assert.Equal(t, media.StatePaused, engine.State())
	}

	cancel()
	for _, done := range dones {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("coordinator did not terminate on cancel")
		}
	}
}

func strPtr(v string) *string {
	return &v
}
