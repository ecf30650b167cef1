package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/watchroom/server/internal/media"
)

type Config struct {
	// HeartbeatInterval is how often the owner re-publishes its position
	// while playing, so followers and late joiners can catch up between
	// discrete play/pause events.
	HeartbeatInterval time.Duration
	// ReadRetries/ReadBackoff bound the transparent retry of snapshot reads.
	ReadRetries int
	ReadBackoff time.Duration
	// LoadRetries/LoadBackoff bound the retry of the follower's initial
	// media load. Unresolvable refs are terminal and never retried.
	LoadRetries int
	LoadBackoff time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.ReadRetries == 0 {
		cfg.ReadRetries = 3
	}
	if cfg.ReadBackoff == 0 {
		cfg.ReadBackoff = 250 * time.Millisecond
	}
	if cfg.LoadRetries == 0 {
		cfg.LoadRetries = 3
	}
	if cfg.LoadBackoff == 0 {
		cfg.LoadBackoff = 500 * time.Millisecond
	}
	return cfg
}

// Coordinator glues one participant to one session: it joins membership,
// subscribes to change notifications, routes them to the Reconciler
// (follower) or discards self-write echoes (owner), and drives the owner's
// heartbeat. A given identity is either the owner or a follower of a
// session, never both.
type Coordinator struct {
	store    Store
	engine   media.Engine
	identity string
	cfg      Config
	logger   *slog.Logger

	machine    *StateMachine
	reconciler *Reconciler
	echo       *Suppressor
	suppress   *Suppressor

	mu   sync.Mutex
	role Role
}

func NewCoordinator(store Store, engine media.Engine, identity string, cfg Config, logger *slog.Logger) *Coordinator {
	cfg = cfg.withDefaults()

	echo := NewSuppressor(nil)
	suppress := NewSuppressor(nil)

	return &Coordinator{
		store:      store,
		engine:     engine,
		identity:   identity,
		cfg:        cfg,
		logger:     logger,
		machine:    NewStateMachine(store, engine, echo, logger),
		reconciler: NewReconciler(engine, suppress, logger),
		echo:       echo,
		suppress:   suppress,
	}
}

func (c *Coordinator) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

func (c *Coordinator) setRole(role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// Machine exposes the owner-side state machine for locally-driven media
// changes. Calling it from a follower is a programming error; the store
// rejects the resulting writes with ErrNotOwner.
func (c *Coordinator) Machine() *StateMachine {
	return c.machine
}

// Run joins the session and coordinates until ctx is canceled, the session
// is deleted, or the subscription fails. Teardown always unsubscribes,
// leaves membership, and releases the media engine.
func (c *Coordinator) Run(ctx context.Context) error {
	snap, err := c.readSnapshot(ctx)
	if err != nil {
		return err
	}

	role := RoleFollower
	if snap.OwnerId == c.identity {
		role = RoleOwner
	}
	c.setRole(role)
	c.logger.InfoContext(ctx, "joining session", "role", role.String())

	if err := c.store.Join(ctx); err != nil {
		return fmt.Errorf("failed to join: %w", err)
	}
	defer c.leave()
	defer c.engine.Close()

	feed, err := c.store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer feed.Close()

	if role == RoleOwner {
		if err := c.machine.Restore(ctx, snap); err != nil {
			c.logger.WarnContext(ctx, "failed to restore media", "error", err)
		}
	} else {
		c.initialReconcile(ctx, snap)
	}

	var heartbeat <-chan time.Time
	if role == RoleOwner {
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	engineEvents := c.engine.Events()
	lastSnap := snap

	// retry re-applies the latest snapshot after the reconciler deferred
	// under its rate limit; the deferred snapshot may be the authority's
	// final write, with nothing later to carry it
	var retry <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case update, ok := <-feed.Updates:
			if !ok {
				return errors.New("notification stream closed")
			}
			if update.Deleted {
				c.logger.InfoContext(ctx, "session deleted, terminating")
				return nil
			}
			if update.Snapshot == nil {
				continue
			}
			lastSnap = *update.Snapshot
			if role == RoleOwner {
				if !c.echo.Active() {
					c.logger.WarnContext(ctx, "unexpected external playback write")
				}
				continue
			}
			retry = c.reconcile(ctx, lastSnap)

		case event, ok := <-engineEvents:
			if !ok {
				engineEvents = nil
				continue
			}
			if role == RoleOwner {
				c.machine.HandleEngineEvent(ctx, event)
				continue
			}
			if c.suppress.Active() {
				// consequence of our own correction, not a user action
				continue
			}
			// locally-driven change on a follower: snap back to authority
			retry = c.reconcile(ctx, lastSnap)

		case <-retry:
			retry = c.reconcile(ctx, lastSnap)

		case <-heartbeat:
			if c.engine.State() != media.StatePlaying {
				continue
			}
			c.echo.Mark(echoWindow)
			if err := c.store.WritePosition(ctx, c.engine.Position()); err != nil {
				if errors.Is(err, ErrSessionNotFound) {
					c.logger.InfoContext(ctx, "session gone, stopping heartbeat")
					return nil
				}
				c.logger.WarnContext(ctx, "failed to write heartbeat", "error", err)
			}
		}
	}
}

// readSnapshot retries transient read failures on a short backoff. A
// missing session is not transient.
func (c *Coordinator) readSnapshot(ctx context.Context) (Snapshot, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.ReadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Snapshot{}, ctx.Err()
			case <-time.After(c.cfg.ReadBackoff):
			}
		}

		snap, err := c.store.Snapshot(ctx)
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, ErrSessionNotFound) {
			return Snapshot{}, err
		}

		c.logger.WarnContext(ctx, "failed to read snapshot", "error", err, "attempt", attempt)
		lastErr = err
	}

	return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", lastErr)
}

// initialReconcile applies the join-time snapshot, retrying failed engine
// construction on a bounded backoff. An unresolvable ref yields the
// StateNoMedia placeholder and is left alone.
func (c *Coordinator) initialReconcile(ctx context.Context, snap Snapshot) {
	for attempt := 0; attempt <= c.cfg.LoadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.LoadBackoff):
			}
		}

		err := c.reconciler.Reconcile(ctx, snap)
		if err == nil {
			return
		}
		if errors.Is(err, media.ErrUnresolvable) {
			c.logger.WarnContext(ctx, "media unresolvable", "error", err)
			return
		}

		c.logger.WarnContext(ctx, "failed to apply initial snapshot", "error", err, "attempt", attempt)
	}
}

// reconcile applies snap; when the reconciler deferred under its rate
// limit, it returns a timer to re-apply once the interval expires.
func (c *Coordinator) reconcile(ctx context.Context, snap Snapshot) <-chan time.Time {
	if err := c.reconciler.Reconcile(ctx, snap); err != nil {
		c.logger.WarnContext(ctx, "failed to reconcile", "error", err)
	}

	if c.reconciler.Deferred() {
		return time.After(CorrectionInterval)
	}

	return nil
}

// leave runs on teardown with its own deadline: the run context is usually
// already canceled by the time we get here.
func (c *Coordinator) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.Leave(ctx); err != nil {
		c.logger.Warn("failed to leave session", "error", err)
	}
}
