package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuppressorExpires(t *testing.T) {
	clock := newFakeClock()
	s := NewSuppressor(clock.Now)

	assert.False(t, s.Active())

	s.Mark(750 * time.Millisecond)
	assert.True(t, s.Active())

	clock.Advance(700 * time.Millisecond)
	assert.True(t, s.Active())

	clock.Advance(100 * time.Millisecond)
	assert.False(t, s.Active())
}

func TestSuppressorMarkExtendsOnly(t *testing.T) {
	clock := newFakeClock()
	s := NewSuppressor(clock.Now)

	s.Mark(time.Second)
	// a shorter mark must not cut the window down
	s.Mark(time.Millisecond)

	clock.Advance(500 * time.Millisecond)
	assert.True(t, s.Active())
}
