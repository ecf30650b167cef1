package media

import "context"

type State string

const (
	StateNoMedia   State = "no_media"
	StateUnstarted State = "unstarted"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateEnded     State = "ended"
	StateBuffering State = "buffering"
)

// Event is emitted by an engine whenever its playback state changes. The
// position is read at the instant of the transition.
type Event struct {
	State    State
	Position float64
}

// Engine is the capability surface of an embeddable media player. The sync
// engine never talks to a player implementation directly.
//
// Load must fully tear down any previously loaded media before constructing
// the new instance; overlapping instances (duplicate event emission, stale
// callbacks) are a bug class the implementation has to rule out. A failed
// load leaves the engine in StateNoMedia; a ref that definitively cannot
// resolve to playable content returns ErrUnresolvable, while transient
// failures return as-is so callers can retry.
type Engine interface {
	Load(ctx context.Context, ref string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	Position() float64
	State() State
	Events() <-chan Event
	Close() error
}
