package service

import (
	"context"
	"log/slog"
	"time"

	"inkpost/internal/middleware"
)

// Reconciler periodically repairs like counters that drifted from the ledger.
type Reconciler struct {
	likes    *LikeService
	interval time.Duration
}

func NewReconciler(likes *LikeService, interval time.Duration) *Reconciler {
	return &Reconciler{likes: likes, interval: interval}
}

// Run blocks until ctx is cancelled. A non-positive interval disables it.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconciliation pass, logging failures.
func (r *Reconciler) RunOnce(ctx context.Context) int64 {
	repaired, err := r.likes.ReconcileAll(ctx)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "like counter reconciliation failed", slog.String("error", err.Error()))
		return 0
	}
	return repaired
}
