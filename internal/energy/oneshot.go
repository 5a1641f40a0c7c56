package energy

import (
	"context"
	"time"

	"codeberg.org/mutker/mongeu/internal/errors"
)

// Oneshot takes a baseline, waits for d and returns the delta. Nothing is
// stored. The wait ends early if ctx is canceled.
func Oneshot(ctx context.Context, src Source, d time.Duration) (Measurement, error) {
	errFactory := errors.New()

	if d <= 0 {
		return Measurement{}, errFactory.WithData(ErrInvalidDuration, d)
	}

	snapshot, err := Baseline(src, time.Now())
	if err != nil {
		return Measurement{}, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Measurement{}, errFactory.Wrap(errors.ErrCanceled, ctx.Err())
	case <-timer.C:
	}

	return snapshot.Delta(src, time.Now())
}
