//go:build integration

package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-events/backend/pkg/testutil/containers"
)

func TestEnqueueDequeueAndDeadLetter(t *testing.T) {
	client := containers.NewRedis(t)
	q := NewQueue(client, zap.NewNop())
	ctx := context.Background()

	eventID := uuid.New()
	id, err := q.EnqueueReportArchive(ctx, ReportArchivePayload{EventID: eventID, RequestedBy: uuid.New()})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeReportArchive, job.Type)

	for attempt := 1; attempt < MaxRetries; attempt++ {
		require.NoError(t, q.Retry(ctx, job))
		job, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, attempt, job.Attempt)
	}

	require.NoError(t, q.Retry(ctx, job))
	dead, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)

	n, err := client.LLen(ctx, QueueReports).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDequeueSkipsMalformedEntries(t *testing.T) {
	client := containers.NewRedis(t)
	q := NewQueue(client, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, client.RPush(ctx, QueueReports, "not json").Err())
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}
