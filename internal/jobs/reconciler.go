// Package jobs runs the background reconciliation sweep on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/cardmesh/tokenledger/internal/services/ledger"
)

type Reconciler struct {
	cron *cron.Cron
	svc  *ledger.LedgerService
}

func NewReconciler(svc *ledger.LedgerService) *Reconciler {
	return &Reconciler{
		cron: cron.New(),
		svc:  svc,
	}
}

// Start schedules the sweep. A divergence is logged and alerted on, never
// auto-corrected: the ledger is the system of record and fixing a stored
// balance silently would hide the corruption it just found.
func (r *Reconciler) Start(ctx context.Context, schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		r.sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}

	r.cron.Start()
	slog.Info("reconciliation sweep scheduled", "schedule", schedule)

	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	slog.Info("reconciliation sweep stopped")
}

func (r *Reconciler) sweep(ctx context.Context) {
	divergent, err := r.svc.VerifyAll(ctx)
	if err != nil {
		slog.Error("reconciliation sweep failed", "error", err)
		return
	}

	for _, report := range divergent {
		slog.Error("balance divergence detected",
			"account_id", report.AccountID,
			"stored", report.Stored,
			"computed", report.Computed,
		)
	}

	if len(divergent) == 0 {
		slog.Debug("reconciliation sweep clean")
	}
}
