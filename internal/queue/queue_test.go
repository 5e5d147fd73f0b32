package queue

import (
	"context"
	"testing"

	"github.com/qrewards/qrewards/internal/config"
	"github.com/qrewards/qrewards/internal/constants"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	return &asynq.TaskInfo{ID: "t-1"}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func TestClaimNotifyTaskRoundTrip(t *testing.T) {
	task, err := NewClaimNotifyTask(ClaimNotifyPayload{NotificationID: 42})
	require.NoError(t, err)
	require.Equal(t, constants.TaskClaimNotify, task.Type())

	payload, err := ParseClaimNotifyPayload(task)
	require.NoError(t, err)
	require.Equal(t, uint(42), payload.NotificationID)

	_, err = NewClaimNotifyTask(ClaimNotifyPayload{})
	require.Error(t, err)
	_, err = ParseClaimNotifyPayload(asynq.NewTask(TaskClaimNotify, []byte(`{"notification_id":0}`)))
	require.Error(t, err)
}

func TestClientEnqueueClaimNotify(t *testing.T) {
	rec := &recordingEnqueuer{}
	c := &Client{client: rec, enabled: true, queue: CriticalQueue}

	require.NoError(t, c.EnqueueClaimNotify(context.Background(), 7))
	require.Len(t, rec.tasks, 1)
	require.Equal(t, TaskClaimNotify, rec.tasks[0].Type())

	var queueName string
	var maxRetry int
	for _, opt := range rec.opts[0] {
		switch opt.Type() {
		case asynq.QueueOpt:
			queueName = opt.Value().(string)
		case asynq.MaxRetryOpt:
			maxRetry = opt.Value().(int)
		}
	}
	require.Equal(t, CriticalQueue, queueName)
	require.Equal(t, constants.ClaimNotifyRetry, maxRetry)
}

func TestDisabledClientIsNoop(t *testing.T) {
	c, err := NewClient(&config.QueueConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, c.Enabled())
	require.NoError(t, c.EnqueueClaimNotify(context.Background(), 1))
	require.NoError(t, c.Close())
}

func TestResolveNotifyQueue(t *testing.T) {
	require.Equal(t, CriticalQueue, resolveNotifyQueue(nil))
	require.Equal(t, CriticalQueue, resolveNotifyQueue(&config.QueueConfig{Queues: map[string]int{"critical": 5}}))
	require.Equal(t, DefaultQueue, resolveNotifyQueue(&config.QueueConfig{Queues: map[string]int{"default": 1}}))
}
