package alerts

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// Alert kinds emitted for manual review.
const (
	KindAmountMismatch   = "amount_mismatch"
	KindRefundAnomaly    = "refund_anomaly"
	KindProcessingFailed = "processing_failed"
)

// Alert is an out-of-band notification for operators. Delivery (mail, chat,
// dashboards) happens outside this service; the processor only emits.
type Alert struct {
	Kind     string            `json:"kind"`
	Subject  string            `json:"subject"`
	Detail   string            `json:"detail"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Alerter emits admin alerts. The queue-backed implementation lives in the
// jobqueue package; LogAlerter is the fallback and the test double of choice.
type Alerter interface {
	Emit(ctx context.Context, alert Alert) error
}

// LogAlerter writes alerts to the application log.
type LogAlerter struct{}

func (LogAlerter) Emit(_ context.Context, alert Alert) error {
	log.Warnf("[Alert] %s: %s (%s) meta=%v", alert.Kind, alert.Subject, alert.Detail, alert.Metadata)
	return nil
}
