// Command watch is a headless session participant. It joins (or creates) a
// session, runs a local clock-driven media engine, and keeps it synchronized
// with the session's authoritative playback state. When the identity owns
// the session, stdin commands drive playback for every other participant.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/watchroom/server/internal/media"
	"github.com/watchroom/server/internal/media/embedded"
	"github.com/watchroom/server/internal/playback"
	"github.com/watchroom/server/internal/repository/room/redis"
	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/redisclient"
	"github.com/watchroom/server/pkg/videodata"
)

const (
	sessionExpiration = 24 * time.Hour
	chatHistoryLimit  = 100
)

type watchConfig struct {
	sessionId string
	name      string
	capacity  int
	mediaRef  string

	identity  string
	username  string
	color     string
	avatarURL string

	logLevel      string
	redisHost     string
	redisPort     int
	redisPassword string
}

func loadWatchConfig() *watchConfig {
	cfg := &watchConfig{}

	pflag.StringVar(&cfg.sessionId, "session-id", "", "Session to join; empty creates a new one")
	pflag.StringVar(&cfg.name, "name", "watch party", "Name for a newly created session")
	pflag.IntVar(&cfg.capacity, "capacity", 8, "Capacity for a newly created session")
	pflag.StringVar(&cfg.mediaRef, "media-ref", "", "Initial media ref for a newly created session")
	pflag.StringVar(&cfg.identity, "identity", "", "Stable participant identity; empty generates one")
	pflag.StringVar(&cfg.username, "username", "watcher", "Display name")
	pflag.StringVar(&cfg.color, "color", "#ffffff", "Display color")
	pflag.StringVar(&cfg.avatarURL, "avatar-url", "", "Avatar URL")
	pflag.StringVar(&cfg.logLevel, "log-level", "WARN", "Logging level")
	pflag.StringVar(&cfg.redisHost, "redis-host", "localhost", "Redis host")
	pflag.IntVar(&cfg.redisPort, "redis-port", 6379, "Redis port")
	pflag.StringVar(&cfg.redisPassword, "redis-password", "", "Redis password")
	pflag.Parse()

	if cfg.identity == "" {
		cfg.identity = uuid.NewString()
	}

	return cfg
}

func run(ctx context.Context, cfg *watchConfig) error {
	logLevel := slog.LevelWarn
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.logLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}),
	}
	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.redisHost,
		Port:     cfg.redisPort,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := redis.NewRepo(rc, logger, sessionExpiration, chatHistoryLimit)
	roomService := room.NewService(roomRepo, &room.Config{MaxCapacity: 64}, logger)

	var avatarURL *string
	if cfg.avatarURL != "" {
		avatarURL = &cfg.avatarURL
	}

	sessionId := cfg.sessionId
	if sessionId == "" {
		var mediaRef *string
		if cfg.mediaRef != "" {
			mediaRef = &cfg.mediaRef
		}

		resp, err := roomService.CreateSession(ctx, &room.CreateSessionParams{
			Name:      cfg.name,
			Capacity:  cfg.capacity,
			MediaRef:  mediaRef,
			Identity:  cfg.identity,
			Username:  cfg.username,
			Color:     cfg.color,
			AvatarURL: avatarURL,
		})
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		sessionId = resp.SessionId
		fmt.Printf("created session %s\n", sessionId)
	}

	store := playback.NewServiceStore(roomService, &playback.ServiceStoreParams{
		SessionId: sessionId,
		Identity:  cfg.identity,
		Username:  cfg.username,
		Color:     cfg.color,
		AvatarURL: avatarURL,
	}, logger)

	engine := embedded.New(func(ctx context.Context, ref string) error {
		if _, err := videodata.Get(ctx, ref); err != nil {
			// only a definitive not-found is terminal; network failures
			// stay transient so the coordinator's load retries apply
			if errors.Is(err, videodata.ErrVideoNotFound) {
				return fmt.Errorf("%w: %v", media.ErrUnresolvable, err)
			}
			return err
		}
		return nil
	})

	coordinator := playback.NewCoordinator(store, engine, cfg.identity, playback.Config{}, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- coordinator.Run(runCtx)
	}()

	go readCommands(runCtx, cancel, coordinator, engine)

	err = <-done
	fmt.Println("session ended")
	return err
}

// readCommands drives the local engine from stdin. On the owner the engine
// transitions flow through the state machine into authoritative writes; on a
// follower any deviation is snapped back by the reconciler.
func readCommands(ctx context.Context, cancel context.CancelFunc, coordinator *playback.Coordinator, engine media.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "play":
			err = engine.Play(ctx)
		case "pause":
			err = engine.Pause(ctx)
		case "seek":
			if len(fields) < 2 {
				fmt.Println("usage: seek <seconds>")
				continue
			}
			var seconds float64
			seconds, err = strconv.ParseFloat(fields[1], 64)
			if err == nil {
				err = engine.Seek(ctx, seconds)
			}
		case "media":
			if len(fields) < 2 {
				fmt.Println("usage: media <ref>")
				continue
			}
			err = coordinator.Machine().SetMedia(ctx, fields[1])
		case "status":
			fmt.Printf("role=%s state=%s position=%.1f\n",
				coordinator.Role(), engine.State(), engine.Position())
		case "quit":
			cancel()
			return
		default:
			fmt.Println("commands: play, pause, seek <seconds>, media <ref>, status, quit")
		}

		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
	cancel()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loadWatchConfig()); err != nil {
		log.Fatal(err)
	}
}
