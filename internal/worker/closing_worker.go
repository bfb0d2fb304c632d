package worker

import (
	"context"
	"log/slog"
	"time"

	"bartab/internal/service"
)

// ClosingWorker periodically sweeps bars whose daily closing time has
// passed and archives their finished orders.
type ClosingWorker struct {
	closingSvc *service.ClosingService
	interval   time.Duration
}

func NewClosingWorker(closingSvc *service.ClosingService, interval time.Duration) *ClosingWorker {
	return &ClosingWorker{
		closingSvc: closingSvc,
		interval:   interval,
	}
}

func (w *ClosingWorker) Start(ctx context.Context) {
	slog.Info("starting closing worker", "interval", w.interval)

	// A sweep right away covers closings missed while the process was down.
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("closing worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ClosingWorker) sweep(ctx context.Context) {
	closed, err := w.closingSvc.SweepDueBars(ctx, time.Now())
	if err != nil {
		slog.Error("closing sweep failed", "error", err)
		return
	}
	if closed > 0 {
		slog.Info("bars closed", "count", closed)
	}
}
