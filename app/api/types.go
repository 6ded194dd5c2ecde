package api

import (
	"context"

	"github.com/feedvault/feedvault/app/database"
	"github.com/feedvault/feedvault/app/feed"
	"github.com/feedvault/feedvault/app/rss"
	"github.com/feedvault/feedvault/app/tasks"
)

// RefresherInterface is the slice of the feed refresher the handlers use.
type RefresherInterface interface {
	Refresh(ctx context.Context, feedID string) (*feed.RefreshResult, error)
	RefreshAll(ctx context.Context) ([]feed.RefreshResult, error)
}

var _ RefresherInterface = (*feed.Refresher)(nil)

// GeneratorInterface renders stored items as outbound syndication feeds.
type GeneratorInterface interface {
	BookmarksFeed(items []database.Item) (string, error)
	ItemsFeed(source database.Feed, items []database.Item) (string, error)
}

var _ GeneratorInterface = (*rss.Generator)(nil)

type Handler struct {
	feedRepo  database.FeedRepository
	itemRepo  database.ItemRepository
	refresher RefresherInterface
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	version   string
}
