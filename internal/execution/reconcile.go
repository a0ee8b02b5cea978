package execution

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// ReconcileArgs triggers a ledger reconciliation sweep. Scheduled as a
// periodic job in main; safe to enqueue on any schedule since the sweep is
// idempotent.
type ReconcileArgs struct{}

func (ReconcileArgs) Kind() string { return "reconcile_ledger" }

// Reconciler is the slice of the ledger the sweep worker needs.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	ledger Reconciler
	log    *slog.Logger
}

func NewReconcileWorker(ledger Reconciler, log *slog.Logger) *ReconcileWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ReconcileWorker{ledger: ledger, log: log}
}

func (w *ReconcileWorker) Work(ctx context.Context, _ *river.Job[ReconcileArgs]) error {
	refunded, err := w.ledger.Reconcile(ctx)
	if err != nil {
		return err
	}
	if refunded > 0 {
		w.log.Info("scheduled reconcile refunded stuck reservations", "count", refunded)
	}
	return nil
}
