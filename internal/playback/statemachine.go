package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/watchroom/server/internal/media"
)

type MachineState int

const (
	StateNoMedia MachineState = iota
	StateReady
	StatePlaying
	StatePaused
)

func (s MachineState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "no_media"
	}
}

// StateMachine is the owner side of the sync engine. It translates local
// media engine events into authoritative store writes. Exactly one
// participant per session holds it; followers run a Reconciler instead.
type StateMachine struct {
	store  Store
	engine media.Engine
	echo   *Suppressor
	logger *slog.Logger
	state  MachineState
}

func NewStateMachine(store Store, engine media.Engine, echo *Suppressor, logger *slog.Logger) *StateMachine {
	return &StateMachine{
		store:  store,
		engine: engine,
		echo:   echo,
		logger: logger,
		state:  StateNoMedia,
	}
}

func (m *StateMachine) State() MachineState {
	return m.state
}

// Restore brings the owner's local engine up to the stored snapshot without
// writing, for an owner re-opening its own session.
func (m *StateMachine) Restore(ctx context.Context, snap Snapshot) error {
	if snap.MediaRef == nil {
		m.state = StateNoMedia
		return nil
	}

	if err := m.engine.Load(ctx, *snap.MediaRef); err != nil {
		m.state = StateNoMedia
		return fmt.Errorf("failed to load media: %w", err)
	}

	if err := m.engine.Seek(ctx, snap.Position); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	m.state = StateReady
	return nil
}

// SetMedia publishes a new media ref (resetting authoritative playback to
// position 0, paused) and loads it into the local engine. An unresolvable
// ref leaves the machine in StateNoMedia with the ref still published:
// followers fail the same resolution and render the same placeholder.
func (m *StateMachine) SetMedia(ctx context.Context, ref string) error {
	m.echo.Mark(echoWindow)
	if err := m.store.WriteMedia(ctx, &ref); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			m.logger.DebugContext(ctx, "stale media write dropped", "ref", ref)
		} else {
			m.logger.WarnContext(ctx, "failed to write media ref", "error", err)
		}
	}

	if err := m.engine.Load(ctx, ref); err != nil {
		m.state = StateNoMedia
		return fmt.Errorf("failed to load media: %w", err)
	}

	m.state = StateReady
	return nil
}

// HandleEngineEvent reacts to a state change of the owner's local engine.
// Play and pause transitions publish {playing, position} with the position
// read at the instant of the transition.
func (m *StateMachine) HandleEngineEvent(ctx context.Context, event media.Event) {
	switch event.State {
	case media.StatePlaying:
		if m.state == StateReady || m.state == StatePaused {
			m.state = StatePlaying
			m.write(ctx, true, event.Position)
		}
	case media.StatePaused, media.StateEnded:
		if m.state == StatePlaying {
			m.state = StatePaused
			m.write(ctx, false, event.Position)
		}
	}
}

// write publishes an authoritative snapshot. Failed writes are dropped, not
// retried: the next play/pause/heartbeat naturally re-asserts state, and a
// write rejected because the session is gone is stale by definition.
func (m *StateMachine) write(ctx context.Context, playing bool, position float64) {
	m.echo.Mark(echoWindow)
	if err := m.store.WritePlayback(ctx, playing, position); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			m.logger.DebugContext(ctx, "stale playback write dropped", "playing", playing)
			return
		}
		m.logger.WarnContext(ctx, "failed to write playback state", "error", err)
	}
}
