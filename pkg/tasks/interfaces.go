package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is the narrow slice of asynq.Client the producers need.
// Tests substitute a recording mock.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
