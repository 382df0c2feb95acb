package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeAdminAlert    JobType = "admin_alert"
	JobTypeWebhookReplay JobType = "webhook_replay"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// AdminAlertJobPayload carries one admin alert through the queue.
type AdminAlertJobPayload struct {
	Kind     string            `json:"kind"`
	Subject  string            `json:"subject"`
	Detail   string            `json:"detail"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToMap converts the payload to a map for storage
func (p AdminAlertJobPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"kind":    p.Kind,
		"subject": p.Subject,
		"detail":  p.Detail,
	}
	if len(p.Metadata) > 0 {
		meta := make(map[string]interface{}, len(p.Metadata))
		for k, v := range p.Metadata {
			meta[k] = v
		}
		m["metadata"] = meta
	}
	return m
}

// AdminAlertJobPayloadFromMap creates a payload from a map
func AdminAlertJobPayloadFromMap(data map[string]interface{}) (*AdminAlertJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload AdminAlertJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// WebhookReplayJobPayload identifies a failed ledger row to reprocess.
type WebhookReplayJobPayload struct {
	LedgerID uint `json:"ledger_id"`
}

// ToMap converts the payload to a map for storage
func (p WebhookReplayJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"ledger_id": p.LedgerID,
	}
}

// WebhookReplayJobPayloadFromMap creates a payload from a map
func WebhookReplayJobPayloadFromMap(data map[string]interface{}) (*WebhookReplayJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload WebhookReplayJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
