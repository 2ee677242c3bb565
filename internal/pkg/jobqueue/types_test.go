package jobqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCacheWarmJob(t *testing.T) {
	job := NewCacheWarmJob("uuid-1", "https://cdn.example.com/x/uuid-1/original")

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobTypeCacheWarm, job.Type)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)
	assert.Equal(t, "uuid-1", job.Payload.ImageUUID)
}

func TestJobRetryBudget(t *testing.T) {
	job := NewCacheWarmJob("uuid-1", "https://cdn.example.com/x/uuid-1/original")

	for i := 0; i < DefaultMaxRetries; i++ {
		assert.True(t, job.IsRetryable(), "attempt %d should be retryable", i)
		job.markFailed(errors.New("backend down"))
	}

	assert.False(t, job.IsRetryable())
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "backend down", job.LastError)
}
