package billing

import (
	"context"

	"github.com/riverqueue/river"
)

// SubscriptionSyncArgs is the queued form of a verified subscription event.
// The webhook handler enqueues; processing happens on the river worker pool
// so a slow sync never blocks webhook delivery.
type SubscriptionSyncArgs struct {
	Event SubscriptionEvent `json:"event"`
}

func (SubscriptionSyncArgs) Kind() string { return "subscription_sync" }

type SubscriptionSyncWorker struct {
	river.WorkerDefaults[SubscriptionSyncArgs]
	reconciler *Reconciler
}

func NewSubscriptionSyncWorker(r *Reconciler) *SubscriptionSyncWorker {
	return &SubscriptionSyncWorker{reconciler: r}
}

func (w *SubscriptionSyncWorker) Work(ctx context.Context, job *river.Job[SubscriptionSyncArgs]) error {
	return w.reconciler.Sync(ctx, job.Args.Event)
}
