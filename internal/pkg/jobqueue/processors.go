package jobqueue

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/coinkart/CoinKart/internal/pkg/alerts"
	"github.com/coinkart/CoinKart/internal/pkg/env"
	"github.com/coinkart/CoinKart/internal/pkg/mail"
)

// processAdminAlertJob delivers one admin alert. Delivery is email when
// ADMIN_ALERT_EMAIL is configured, otherwise the alert only lands in the log.
func (q *Queue) processAdminAlertJob(_ context.Context, job *Job) error {
	payload, err := AdminAlertJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid admin alert payload: %w", err)
	}

	log.Warnf("[AdminAlert] %s: %s (%s)", payload.Kind, payload.Subject, payload.Detail)

	recipient := env.GetEnv("ADMIN_ALERT_EMAIL", "")
	if recipient == "" {
		// Nothing else to deliver to; the log entry is the alert.
		return nil
	}

	subject := fmt.Sprintf("[CoinKart] %s: %s", payload.Kind, payload.Subject)
	body := buildAlertMailBody(payload)

	if err := mail.SendMail(recipient, subject, body); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}

func buildAlertMailBody(payload *AdminAlertJobPayload) string {
	var sb strings.Builder
	sb.WriteString("<h2>")
	sb.WriteString(html.EscapeString(payload.Subject))
	sb.WriteString("</h2>")
	sb.WriteString("<p>")
	sb.WriteString(html.EscapeString(payload.Detail))
	sb.WriteString("</p>")
	if len(payload.Metadata) > 0 {
		keys := make([]string, 0, len(payload.Metadata))
		for k := range payload.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("<table border=\"1\" cellpadding=\"4\">")
		for _, k := range keys {
			sb.WriteString("<tr><td>")
			sb.WriteString(html.EscapeString(k))
			sb.WriteString("</td><td>")
			sb.WriteString(html.EscapeString(payload.Metadata[k]))
			sb.WriteString("</td></tr>")
		}
		sb.WriteString("</table>")
	}
	return sb.String()
}

// deadJobAlert builds the operator alert for a permanently failed job. Alert
// jobs produce none; a dead alert must not spawn further alerts.
func deadJobAlert(job *Job) *AdminAlertJobPayload {
	if job.Type == JobTypeAdminAlert {
		return nil
	}
	return &AdminAlertJobPayload{
		Kind:    alerts.KindProcessingFailed,
		Subject: fmt.Sprintf("%s job permanently failed", job.Type),
		Detail:  job.ErrorMsg,
		Metadata: map[string]string{
			"job_id":      job.ID,
			"retry_count": strconv.Itoa(job.RetryCount),
		},
	}
}

// processWebhookReplayJob re-runs a failed ledger row through the processor.
func (q *Queue) processWebhookReplayJob(ctx context.Context, job *Job) error {
	payload, err := WebhookReplayJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid webhook replay payload: %w", err)
	}

	if q.processor == nil {
		return fmt.Errorf("webhook processor not configured")
	}

	if err := q.processor.Replay(ctx, payload.LedgerID); err != nil {
		return fmt.Errorf("replay of ledger row %d failed: %w", payload.LedgerID, err)
	}

	log.Infof("[JobQueue] Replayed ledger row %d", payload.LedgerID)
	return nil
}
