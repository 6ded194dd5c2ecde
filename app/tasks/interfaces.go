package tasks

import (
	"context"

	"github.com/feedvault/feedvault/app/feed"
)

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application to manage the worker pool and by
// API handlers to enqueue ad-hoc work.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// RefresherInterface is the slice of the feed refresher the tasks need.
type RefresherInterface interface {
	Refresh(ctx context.Context, feedID string) (*feed.RefreshResult, error)
}
