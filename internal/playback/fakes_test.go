package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/watchroom/server/internal/media"
)

type fakeEngine struct {
	mu       sync.Mutex
	state    media.State
	position float64
	events   chan media.Event

	loads  []string
	seeks  []float64
	plays  int
	pauses int
	// loadErr fails Load calls; when loadFails > 0 only the first
	// loadFails calls fail and later ones succeed
	loadErr   error
	loadFails int
	closed    bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		state:  media.StateNoMedia,
		events: make(chan media.Event, 16),
	}
}

func (e *fakeEngine) Load(ctx context.Context, ref string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loads = append(e.loads, ref)
	if e.loadErr != nil && (e.loadFails == 0 || len(e.loads) <= e.loadFails) {
		e.state = media.StateNoMedia
		return e.loadErr
	}

	e.state = media.StateUnstarted
	e.position = 0
	return nil
}

func (e *fakeEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == media.StateNoMedia {
		return media.ErrNoMedia
	}
	e.plays++
	e.state = media.StatePlaying
	return nil
}

func (e *fakeEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == media.StateNoMedia {
		return media.ErrNoMedia
	}
	e.pauses++
	e.state = media.StatePaused
	return nil
}

func (e *fakeEngine) Seek(ctx context.Context, seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seeks = append(e.seeks, seconds)
	e.position = seconds
	return nil
}

func (e *fakeEngine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *fakeEngine) State() media.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *fakeEngine) Events() <-chan media.Event {
	return e.events
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

func (e *fakeEngine) setState(state media.State, position float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	e.position = position
}

func (e *fakeEngine) emit(event media.Event) {
	e.events <- event
}

type playbackWrite struct {
	playing  bool
	position float64
}

type fakeStore struct {
	mu sync.Mutex

	snapshot Snapshot
	snapErr  error
	joinErr  error
	writeErr error

	playbackWrites []playbackWrite
	positionWrites []float64
	mediaWrites    []*string
	joined         bool
	left           bool

	updates chan Update
}

func newFakeStore(snap Snapshot) *fakeStore {
	return &fakeStore{
		snapshot: snap,
		updates:  make(chan Update, 16),
	}
}

func (s *fakeStore) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapErr != nil {
		return Snapshot{}, s.snapErr
	}
	return s.snapshot, nil
}

func (s *fakeStore) WritePlayback(ctx context.Context, playing bool, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	s.playbackWrites = append(s.playbackWrites, playbackWrite{playing: playing, position: position})
	return nil
}

func (s *fakeStore) WritePosition(ctx context.Context, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	s.positionWrites = append(s.positionWrites, position)
	return nil
}

func (s *fakeStore) WriteMedia(ctx context.Context, ref *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	s.mediaWrites = append(s.mediaWrites, cloneRef(ref))
	return nil
}

func (s *fakeStore) Join(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.joinErr != nil {
		return s.joinErr
	}
	s.joined = true
	return nil
}

func (s *fakeStore) Leave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.left = true
	return nil
}

func (s *fakeStore) Subscribe(ctx context.Context) (*Feed, error) {
	return NewFeed(s.updates, func() error { return nil }), nil
}

func (s *fakeStore) lastPlaybackWrite() (playbackWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.playbackWrites) == 0 {
		return playbackWrite{}, false
	}
	return s.playbackWrites[len(s.playbackWrites)-1], true
}

func (s *fakeStore) playbackWriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playbackWrites)
}

func (s *fakeStore) positionWriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positionWrites)
}

func (s *fakeStore) hasLeft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.left
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func strPtr(s string) *string {
	return &s
}

func testLogger() *slog.Logger {
	return slog.Default()
}
