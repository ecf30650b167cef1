// Package embedded implements media.Engine as a headless clock-driven
// player: position advances in real time while playing, state transitions
// are emitted as events. It stands in for a browser-embedded player in Go
// participant processes and in tests.
package embedded

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/watchroom/server/internal/media"
)

// Resolver checks that a media ref resolves to playable content. A ref that
// definitively cannot resolve is reported as media.ErrUnresolvable; any
// other error is treated as transient and left to the caller to retry.
type Resolver func(ctx context.Context, ref string) error

type Engine struct {
	resolver Resolver
	now      func() time.Time
	events   chan media.Event

	mu      sync.Mutex
	state   media.State
	ref     string
	basePos float64
	baseAt  time.Time
	closed  bool
}

func New(resolver Resolver) *Engine {
	return &Engine{
		resolver: resolver,
		now:      time.Now,
		state:    media.StateNoMedia,
		events:   make(chan media.Event, 16),
	}
}

// Load tears the current media down fully, then resolves and loads ref.
// On resolution failure the engine stays in StateNoMedia.
func (e *Engine) Load(ctx context.Context, ref string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return media.ErrEngineClosed
	}

	// teardown before constructing the replacement
	e.state = media.StateNoMedia
	e.ref = ""
	e.basePos = 0
	e.mu.Unlock()

	if err := e.resolver(ctx, ref); err != nil {
		return fmt.Errorf("failed to resolve media: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return media.ErrEngineClosed
	}

	e.ref = ref
	e.state = media.StateUnstarted
	e.basePos = 0
	e.baseAt = e.now()
	e.emit(media.Event{State: media.StateUnstarted, Position: 0})

	return nil
}

func (e *Engine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return media.ErrEngineClosed
	}
	if e.state == media.StateNoMedia {
		return media.ErrNoMedia
	}
	if e.state == media.StatePlaying {
		return nil
	}

	e.basePos = e.position()
	e.baseAt = e.now()
	e.state = media.StatePlaying
	e.emit(media.Event{State: media.StatePlaying, Position: e.basePos})

	return nil
}

func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return media.ErrEngineClosed
	}
	if e.state == media.StateNoMedia {
		return media.ErrNoMedia
	}
	if e.state != media.StatePlaying {
		return nil
	}

	e.basePos = e.position()
	e.state = media.StatePaused
	e.emit(media.Event{State: media.StatePaused, Position: e.basePos})

	return nil
}

func (e *Engine) Seek(ctx context.Context, seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return media.ErrEngineClosed
	}
	if e.state == media.StateNoMedia {
		return media.ErrNoMedia
	}

	e.basePos = seconds
	e.baseAt = e.now()

	return nil
}

func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.position()
}

func (e *Engine) State() media.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Engine) Events() <-chan media.Event {
	return e.events
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true
	e.state = media.StateNoMedia
	close(e.events)

	return nil
}

// position assumes e.mu is held.
func (e *Engine) position() float64 {
	if e.state == media.StatePlaying {
		return e.basePos + e.now().Sub(e.baseAt).Seconds()
	}

	return e.basePos
}

// emit assumes e.mu is held. Drops rather than blocks: a consumer that is
// this far behind will catch up from the next reconciliation anyway.
func (e *Engine) emit(event media.Event) {
	select {
	case e.events <- event:
	default:
	}
}
