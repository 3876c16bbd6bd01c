package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	red "coach-storefront/internal/infra/redis"
	"coach-storefront/internal/usecase"
)

const reconcileLockKey = "lock:payment-reconciler"

// Sweeper is the slice of the fulfillment use case the reconciler drives.
type Sweeper interface {
	SweepStale(ctx context.Context, olderThan time.Time, limit int) (usecase.SweepReport, error)
}

// PaymentReconciler periodically re-checks PENDING orders the buyer never came back for
// and whose webhook never arrived. With a locker, only one replica sweeps per tick.
type PaymentReconciler struct {
	sweeper    Sweeper
	locker     red.Locker
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending order must be to retry
	batch      int
	now        func() time.Time
	log        *zerolog.Logger
}

func NewPaymentReconciler(sweeper Sweeper, locker red.Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		sweeper:    sweeper,
		locker:     locker,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      200,
		now:        time.Now,
		log:        &l,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, reconcileLockKey, w.interval)
		if errors.Is(err, red.ErrLockHeld) {
			w.log.Debug().Msg("another replica holds the sweep lock")
			return
		}
		if err != nil {
			w.log.Warn().Err(err).Msg("sweep lock unavailable; skipping tick")
			return
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), reconcileLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	rep, err := w.sweeper.SweepStale(ctx, w.now().Add(-w.staleAfter), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("stale order sweep failed")
		return
	}
	if rep.Scanned > 0 {
		w.log.Info().
			Int("scanned", rep.Scanned).
			Int("fulfilled", rep.Fulfilled).
			Int("failed", rep.Failed).
			Int("errors", rep.Errors).
			Msg("stale orders reconciled")
	}
}
