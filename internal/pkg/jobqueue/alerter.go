package jobqueue

import (
	"context"
	"fmt"

	"github.com/coinkart/CoinKart/internal/pkg/alerts"
)

// QueueAlerter pushes admin alerts through the job queue so webhook
// processing never blocks on mail delivery.
type QueueAlerter struct {
	queue *Queue
}

func NewQueueAlerter(queue *Queue) *QueueAlerter {
	return &QueueAlerter{queue: queue}
}

func (a *QueueAlerter) Emit(_ context.Context, alert alerts.Alert) error {
	payload := AdminAlertJobPayload{
		Kind:     alert.Kind,
		Subject:  alert.Subject,
		Detail:   alert.Detail,
		Metadata: alert.Metadata,
	}

	if _, err := a.queue.EnqueueJob(JobTypeAdminAlert, payload.ToMap()); err != nil {
		return fmt.Errorf("failed to enqueue admin alert: %w", err)
	}
	return nil
}
