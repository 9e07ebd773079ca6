// Package notify delivers best-effort product notifications. Delivery runs on
// the river worker pool so a slow or failing send never blocks the caller.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type PlanUpgradeArgs struct {
	UserID uuid.UUID `json:"user_id"`
	Plan   string    `json:"plan"`
}

func (PlanUpgradeArgs) Kind() string { return "plan_upgrade_notify" }

// Sender performs the actual delivery. Transactional email lives in an
// external service; the default sender records the event in the logs.
type Sender interface {
	SendPlanUpgrade(ctx context.Context, userID uuid.UUID, plan string) error
}

type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (s *LogSender) SendPlanUpgrade(_ context.Context, userID uuid.UUID, plan string) error {
	s.log.Info("plan upgrade notification", "user_id", userID, "plan", plan)
	return nil
}

type PlanUpgradeWorker struct {
	river.WorkerDefaults[PlanUpgradeArgs]
	sender Sender
}

func NewPlanUpgradeWorker(sender Sender) *PlanUpgradeWorker {
	return &PlanUpgradeWorker{sender: sender}
}

func (w *PlanUpgradeWorker) Work(ctx context.Context, job *river.Job[PlanUpgradeArgs]) error {
	return w.sender.SendPlanUpgrade(ctx, job.Args.UserID, job.Args.Plan)
}

// QueueNotifier satisfies the reconciler's Notifier by enqueueing a delivery
// job. The insert func is wired to the river client in main.
type QueueNotifier struct {
	insert func(ctx context.Context, args PlanUpgradeArgs) error
}

func NewQueueNotifier(insert func(ctx context.Context, args PlanUpgradeArgs) error) *QueueNotifier {
	return &QueueNotifier{insert: insert}
}

func (n *QueueNotifier) NotifyPlanUpgrade(ctx context.Context, userID uuid.UUID, plan string) error {
	return n.insert(ctx, PlanUpgradeArgs{UserID: userID, Plan: plan})
}
