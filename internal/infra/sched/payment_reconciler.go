package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"socials-billing/internal/domain"
	"socials-billing/internal/infra/logging"
	"socials-billing/internal/infra/metrics"
	"socials-billing/internal/usecase"
)

const sweepLockKey = "lock:sched:payment_reconciler"

type ReconcilerConfig struct {
	Interval     time.Duration // how often to scan
	StaleAfter   time.Duration // pending older than this is verified with the provider
	AbandonAfter time.Duration // pending older than this is failed outright
	BatchSize    int
}

// PaymentReconciler periodically resolves pending subscriptions whose callback
// never arrived: it asks the provider for their status and, past AbandonAfter,
// fails them. With a Locker, only one replica sweeps at a time.
type PaymentReconciler struct {
	reconciler usecase.CallbackReconciler
	ledger     usecase.LedgerUseCase
	lock       usecase.Locker
	clock      usecase.Clock
	cfg        ReconcilerConfig
	log        *zerolog.Logger
}

func NewPaymentReconciler(reconciler usecase.CallbackReconciler, ledger usecase.LedgerUseCase, lock usecase.Locker, clock usecase.Clock, cfg ReconcilerConfig, logger *zerolog.Logger) *PaymentReconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	if cfg.AbandonAfter <= cfg.StaleAfter {
		cfg.AbandonAfter = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if clock == nil {
		clock = usecase.SystemClock{}
	}
	compLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		reconciler: reconciler,
		ledger:     ledger,
		lock:       lock,
		clock:      clock,
		cfg:        cfg,
		log:        &compLog,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Interval).Msg("Starting payment reconciler")
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Errors are logged; the next tick retries.
func (w *PaymentReconciler) Sweep(ctx context.Context) {
	defer logging.TraceDuration(w.log, "PaymentReconciler.Sweep")()
	if w.lock != nil {
		token, err := w.lock.TryLock(ctx, sweepLockKey, w.cfg.Interval)
		if errors.Is(err, domain.ErrLockHeld) {
			metrics.IncReconcilerSweep("skipped")
			return
		}
		if err != nil {
			w.log.Warn().Err(err).Msg("sweep lock unavailable, sweeping anyway")
		} else {
			defer func() { _ = w.lock.Unlock(context.WithoutCancel(ctx), sweepLockKey, token) }()
		}
	}

	now := w.clock.Now()
	stale, err := w.ledger.ListStalePending(ctx, now.Add(-w.cfg.StaleAfter), w.cfg.BatchSize)
	if err != nil {
		metrics.IncReconcilerSweep("error")
		w.log.Error().Err(err).Msg("list stale pending failed")
		return
	}

	verified := 0
	for _, sub := range stale {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		res, err := w.reconciler.VerifyAndReconcile(ctx, sub.ProviderTxnID, "")
		if err != nil {
			metrics.ObserveReconcile("sweep", "error", time.Since(start))
			w.log.Warn().Err(err).Str("txn_id", sub.ProviderTxnID).Msg("verify failed")
			continue
		}
		metrics.ObserveReconcile("sweep", string(res.Outcome), time.Since(start))
		if res.Processed {
			verified++
			w.log.Info().Str("txn_id", sub.ProviderTxnID).Str("outcome", string(res.Outcome)).Msg("reconciled stale payment")
		}
	}

	abandoned, err := w.ledger.ExpireAbandoned(ctx, now.Add(-w.cfg.AbandonAfter), w.cfg.BatchSize)
	if err != nil {
		metrics.IncReconcilerSweep("error")
		w.log.Error().Err(err).Msg("expire abandoned failed")
		return
	}
	if abandoned > 0 {
		metrics.IncSubscriptionsAbandoned(abandoned)
		w.log.Info().Int("count", abandoned).Msg("abandoned pending subscriptions failed")
	}
	metrics.IncReconcilerSweep("ok")
	if verified > 0 || abandoned > 0 {
		w.log.Debug().Int("checked", len(stale)).Int("resolved", verified).Int("abandoned", abandoned).Msg("sweep finished")
	}
}
