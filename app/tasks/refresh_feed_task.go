package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feedvault/feedvault/app/feed"
)

type RefreshFeedTask struct {
	Task
	refresher RefresherInterface
}

func NewRefreshFeedTask(feedID string, refresher RefresherInterface) *RefreshFeedTask {
	return &RefreshFeedTask{
		Task:      NewTask(TaskTypeRefreshFeed, feedID),
		refresher: refresher,
	}
}

func (t *RefreshFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.refresher.Refresh(ctx, t.FeedID)
	if err != nil {
		slog.Error("Task failed", "type", t.GetType(), "feed_id", t.FeedID, "error", err)
		return fmt.Errorf("failed to refresh feed: %w", err)
	}

	// A failed state means the fetch or parse went wrong; the feed is
	// already marked errored. Surfacing it lets the scheduler retry with
	// backoff before the next regular interval.
	if result.State == feed.StateFailed {
		return fmt.Errorf("feed refresh failed: %s", result.FailureReason)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", result.FeedName,
		"state", result.State,
		"total", result.Total,
		"new", result.New,
		"duplicates", result.Duplicates,
		"duration", t.GetDuration())

	return nil
}
