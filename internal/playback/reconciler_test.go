package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchroom/server/internal/media"
)

func newTestReconciler(engine media.Engine, clock *fakeClock) (*Reconciler, *Suppressor) {
	suppress := NewSuppressor(clock.Now)
	r := NewReconciler(engine, suppress, testLogger())
	r.now = clock.Now
	return r, suppress
}

func TestReconcilerSeeksOnDrift(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.setState(media.StatePlaying, 10)
	clock := newFakeClock()
	r, suppress := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: true, Position: 20}))
	assert.Equal(t, []float64{20}, engine.seeks)
	assert.True(t, suppress.Active(), "corrections must be flagged so the resulting engine events are ignored")
}

func TestReconcilerToleratesSmallDrift(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.setState(media.StatePlaying, 10)
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: true, Position: 11.5}))
	assert.Empty(t, engine.seeks)
}

func TestReconcilerAlignsPlayState(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.setState(media.StatePaused, 10)
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: true, Position: 10}))
	assert.Equal(t, 1, engine.plays)

	clock.Advance(time.Second)
	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: false, Position: 10}))
	assert.Equal(t, 1, engine.pauses)
}

func TestReconcilerRateLimitsCorrections(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.setState(media.StatePaused, 0)
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: false, Position: 30}))
	require.Equal(t, []float64{30}, engine.seeks)

	// a burst of duplicate notifications inside the interval is absorbed
	engine.setState(media.StatePaused, 0)
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: false, Position: 30}))
	assert.Len(t, engine.seeks, 1)

	clock.Advance(CorrectionInterval)
	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: false, Position: 30}))
	assert.Len(t, engine.seeks, 2)
}

func TestReconcilerReloadsOnRefChange(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{MediaRef: strPtr("a"), Position: 50}))
	require.Equal(t, []string{"a"}, engine.loads)
	require.Equal(t, []float64{50}, engine.seeks)

	// a ref change resets the rate limit: the fresh load is corrected
	// into place immediately even inside the interval
	require.NoError(t, r.Reconcile(ctx, Snapshot{MediaRef: strPtr("b"), Playing: true, Position: 0}))
	assert.Equal(t, []string{"a", "b"}, engine.loads)
	assert.Equal(t, 1, engine.plays)

	// same ref again: no reload
	clock.Advance(time.Second)
	require.NoError(t, r.Reconcile(ctx, Snapshot{MediaRef: strPtr("b"), Playing: true, Position: 1}))
	assert.Equal(t, []string{"a", "b"}, engine.loads)
}

func TestReconcilerClearedRefPauses(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{MediaRef: strPtr("a"), Playing: true, Position: 0}))
	require.Equal(t, media.StatePlaying, engine.State())

	require.NoError(t, r.Reconcile(ctx, Snapshot{MediaRef: nil}))
	assert.Equal(t, 1, engine.pauses)
	assert.Equal(t, []string{"a"}, engine.loads, "clearing the ref must not reload")
}

func TestReconcilerDefersInsideCorrectionInterval(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.setState(media.StatePaused, 42)
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: true, Position: 42}))
	require.Equal(t, media.StatePlaying, engine.State())
	assert.False(t, r.Deferred())

	// the authoritative pause lands inside the interval: corrections are
	// withheld but the snapshot must be flagged for re-application,
	// because no later notification will carry it
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: false, Position: 42}))
	assert.Zero(t, engine.pauses)
	assert.True(t, r.Deferred())

	clock.Advance(CorrectionInterval)
	require.NoError(t, r.Reconcile(ctx, Snapshot{Playing: false, Position: 42}))
	assert.Equal(t, 1, engine.pauses)
	assert.False(t, r.Deferred())
}

func TestReconcilerRetriesTransientLoadFailure(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.loadErr = errors.New("connection reset")
	engine.loadFails = 1
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	snap := Snapshot{MediaRef: strPtr("vid-1"), Playing: true, Position: 10}
	err := r.Reconcile(ctx, snap)
	require.Error(t, err)
	require.NotErrorIs(t, err, media.ErrUnresolvable)

	// the same snapshot must retry the load, not latch the failed ref
	require.NoError(t, r.Reconcile(ctx, snap))
	assert.Equal(t, []string{"vid-1", "vid-1"}, engine.loads)
	assert.Equal(t, media.StatePlaying, engine.State())
	assert.Equal(t, []float64{10}, engine.seeks)
}

func TestReconcilerUnresolvableMediaIsTerminal(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()
	engine.loadErr = media.ErrUnresolvable
	clock := newFakeClock()
	r, _ := newTestReconciler(engine, clock)

	err := r.Reconcile(ctx, Snapshot{MediaRef: strPtr("broken"), Playing: true, Position: 10})
	require.ErrorIs(t, err, media.ErrUnresolvable)
	assert.Equal(t, media.StateNoMedia, engine.State())

	// the same ref is not retried on subsequent notifications
	require.NoError(t, r.Reconcile(ctx, Snapshot{MediaRef: strPtr("broken"), Playing: true, Position: 20}))
	assert.Len(t, engine.loads, 1)
	assert.Empty(t, engine.seeks)
	assert.Zero(t, engine.plays)
}
