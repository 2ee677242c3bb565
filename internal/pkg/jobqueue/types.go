package jobqueue

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies what a job does.
type JobType string

const (
	// JobTypeCacheWarm asks the processing backend to pre-fetch a source
	// image so the editor's first preview is instant.
	JobTypeCacheWarm JobType = "cache_warm"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one unit of background work, serialized into Redis.
type Job struct {
	ID          string     `json:"id"`
	Type        JobType    `json:"type"`
	Status      JobStatus  `json:"status"`
	Payload     JobPayload `json:"payload"`
	Retries     int        `json:"retries"`
	MaxRetries  int        `json:"max_retries"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobPayload carries the job's arguments.
type JobPayload struct {
	ImageUUID string `json:"image_uuid,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// NewCacheWarmJob builds a pending pre-warm job for the given source.
func NewCacheWarmJob(imageUUID, imageURL string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		Type:       JobTypeCacheWarm,
		Status:     JobStatusPending,
		Payload:    JobPayload{ImageUUID: imageUUID, ImageURL: imageURL},
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now(),
	}
}

// IsRetryable reports whether a failed job may be requeued.
func (j *Job) IsRetryable() bool {
	return j.Retries < j.MaxRetries
}

func (j *Job) markProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
}

func (j *Job) markCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
}

func (j *Job) markFailed(err error) {
	j.Status = JobStatusFailed
	j.LastError = err.Error()
	j.Retries++
}
