package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/watchroom/server/internal/media"
)

const (
	// DriftThreshold is the largest position divergence, in seconds, left
	// uncorrected. Store and network propagation routinely introduce drift
	// below it; seeking that away is visibly distracting for no benefit.
	DriftThreshold = 2.0

	// CorrectionInterval rate-limits corrections so bursts of duplicate or
	// reordered notifications do not thrash the engine.
	CorrectionInterval = 500 * time.Millisecond

	// echoWindow boxes the self-write and correction suppression flags.
	echoWindow = 750 * time.Millisecond
)

// Reconciler is the follower side of the sync engine: on every
// authoritative snapshot it issues the minimal engine corrections to get
// back within DriftThreshold. Corrections are idempotent, so duplicate and
// out-of-order notifications are harmless.
type Reconciler struct {
	engine   media.Engine
	suppress *Suppressor
	logger   *slog.Logger
	now      func() time.Time

	lastRef        *string
	lastCorrection time.Time
	deferred       bool
}

func NewReconciler(engine media.Engine, suppress *Suppressor, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		engine:   engine,
		suppress: suppress,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, snap Snapshot) error {
	r.deferred = false

	if !refsEqual(r.lastRef, snap.MediaRef) {
		if err := r.reloadMedia(ctx, snap.MediaRef); err != nil {
			return err
		}
	}

	if r.engine.State() == media.StateNoMedia {
		// unresolvable or absent media: controls are disabled, nothing to correct
		return nil
	}

	if r.now().Sub(r.lastCorrection) < CorrectionInterval {
		r.deferred = true
		return nil
	}

	corrected := false

	if position := r.engine.Position(); math.Abs(position-snap.Position) > DriftThreshold {
		r.suppress.Mark(echoWindow)
		if err := r.engine.Seek(ctx, snap.Position); err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
		r.logger.DebugContext(ctx, "corrected drift", "local", position, "authoritative", snap.Position)
		corrected = true
	}

	playing := r.engine.State() == media.StatePlaying
	if snap.Playing && !playing {
		r.suppress.Mark(echoWindow)
		if err := r.engine.Play(ctx); err != nil {
			return fmt.Errorf("failed to play: %w", err)
		}
		corrected = true
	} else if !snap.Playing && playing {
		r.suppress.Mark(echoWindow)
		if err := r.engine.Pause(ctx); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		corrected = true
	}

	if corrected {
		r.lastCorrection = r.now()
	}

	return nil
}

// Deferred reports whether the last Reconcile call withheld corrections
// under the rate limit. The caller is responsible for re-applying the
// snapshot once the interval expires; no later notification is guaranteed
// to arrive.
func (r *Reconciler) Deferred() bool {
	return r.deferred
}

// reloadMedia swaps the engine onto the snapshot's media ref. The rate
// limit is reset: a fresh load must be corrected into place immediately.
// lastRef is latched only when the load succeeds or is definitively
// unresolvable, so a transient failure is retried on the next snapshot.
func (r *Reconciler) reloadMedia(ctx context.Context, ref *string) error {
	r.lastCorrection = time.Time{}
	r.suppress.Mark(echoWindow)

	if ref == nil {
		r.lastRef = nil
		if r.engine.State() == media.StatePlaying {
			if err := r.engine.Pause(ctx); err != nil {
				return fmt.Errorf("failed to pause: %w", err)
			}
		}
		return nil
	}

	if err := r.engine.Load(ctx, *ref); err != nil {
		if errors.Is(err, media.ErrUnresolvable) {
			r.lastRef = cloneRef(ref)
		}
		return fmt.Errorf("failed to load media: %w", err)
	}

	r.lastRef = cloneRef(ref)
	return nil
}

func refsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := *ref
	return &v
}
