package worker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Job is a function that should be run by the worker group. The context provided
// allows the Job to cancel if the worker group is closed. All other life-cycle
// management should be wrapped within the Job.
type Job interface {
	String() string
	Run(context.Context) error
}

// Abandonable jobs are told when the group gives up on them.
type Abandonable interface {
	Job
	Abandon(err error)
}

type failedJob struct {
	job Job
	err error
}

type retryableJob struct {
	name    string
	count   uint8
	when    time.Time
	backoff backoff.BackOff
	job     Job
}

func (j retryableJob) String() string {
	return j.job.String()
}

func (j retryableJob) Run(ctx context.Context) error {
	return j.job.Run(ctx)
}
