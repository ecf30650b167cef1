package playback

import (
	"sync"
	"time"
)

// Suppressor is a time-boxed flag used to tell locally-caused state changes
// from remotely-caused ones over channels that do not tag origin: marked
// around a write-then-expect-echo sequence or while applying corrections,
// checked when the echo or the consequent engine event arrives. Comparing
// snapshots for equality instead would be fragile under floating-point
// position drift.
type Suppressor struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func NewSuppressor(now func() time.Time) *Suppressor {
	if now == nil {
		now = time.Now
	}
	return &Suppressor{now: now}
}

func (s *Suppressor) Mark(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.now().Add(d); t.After(s.until) {
		s.until = t
	}
}

func (s *Suppressor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now().Before(s.until)
}
