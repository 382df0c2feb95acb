package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinkart/CoinKart/internal/pkg/alerts"
)

func TestAdminAlertPayloadRoundTrip(t *testing.T) {
	payload := AdminAlertJobPayload{
		Kind:     "amount_mismatch",
		Subject:  "order CK-1 amount mismatch",
		Detail:   "captured 999.00 INR against order total 1499.00 INR",
		Metadata: map[string]string{"order_number": "CK-1"},
	}

	restored, err := AdminAlertJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload.Kind, restored.Kind)
	assert.Equal(t, payload.Subject, restored.Subject)
	assert.Equal(t, payload.Metadata["order_number"], restored.Metadata["order_number"])
}

func TestWebhookReplayPayloadRoundTrip(t *testing.T) {
	payload := WebhookReplayJobPayload{LedgerID: 42}

	restored, err := WebhookReplayJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), restored.LedgerID)
}

func TestJobLifecycle(t *testing.T) {
	job := &Job{MaxRetries: DefaultMaxRetries}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.RetryCount = DefaultMaxRetries
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}

func TestDeadJobAlert(t *testing.T) {
	replay := &Job{
		ID:         "job-1",
		Type:       JobTypeWebhookReplay,
		ErrorMsg:   "replay of ledger row 7 failed: order not found",
		RetryCount: 3,
	}

	alert := deadJobAlert(replay)
	require.NotNil(t, alert)
	assert.Equal(t, alerts.KindProcessingFailed, alert.Kind)
	assert.Contains(t, alert.Subject, string(JobTypeWebhookReplay))
	assert.Equal(t, replay.ErrorMsg, alert.Detail)
	assert.Equal(t, "job-1", alert.Metadata["job_id"])
	assert.Equal(t, "3", alert.Metadata["retry_count"])

	// A dead alert job must not spawn further alerts.
	assert.Nil(t, deadJobAlert(&Job{ID: "job-2", Type: JobTypeAdminAlert}))
}
