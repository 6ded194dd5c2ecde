package database

import (
	"time"
)

// NewItem carries an incoming item before it is stored. The fingerprint
// identifies the item across feeds and refreshes; everything else is the
// sanitized payload as fetched.
type NewItem struct {
	Fingerprint string
	Title       string
	Link        string
	Content     string
	Author      string
	PublishedAt *time.Time
}

type FeedRepository interface {
	GetFeed(id string) (*Feed, error)
	GetFeedByURL(url string) (*Feed, error)
	ListFeeds(status string) ([]Feed, error)
	ListFeedsDueForRefresh(olderThan time.Time, limit int) ([]Feed, error)
	GetFeedCount() (int, error)
	GetActiveFeedCount() (int, error)

	CreateFeed(name, url, category string, extractContent bool) (*Feed, bool, error)
	UpsertFeedFromSeed(name, url, category string, extractContent bool) (*Feed, bool, error)
	DeleteFeed(id string) error
	SetFeedStatus(id, status string) error
	MarkFeedRefreshed(id string, refreshedAt time.Time) error
	MarkFeedError(id, message string) error
}

type ItemForExtraction struct {
	Fingerprint string
	Link        string
}

type ItemRepository interface {
	GetItem(fingerprint string) (*Item, error)
	GetItemsByFeed(feedID string, unreadOnly bool, limit int) ([]Item, error)
	GetItemsByCategory(category string, unreadOnly bool, limit int) ([]Item, error)
	GetRecentItems(limit int) ([]Item, error)
	GetUnreadItems(limit int) ([]Item, error)
	GetBookmarkedItems(limit int) ([]Item, error)
	SearchItems(query string, limit int) ([]Item, error)
	GetItemCount() (int, error)
	GetItemCountByFeed(feedID string) (int, error)
	GetUnreadCount() (int, error)
	GetBookmarkedCount() (int, error)
	GetOrphanedCount() (int, error)

	UpsertItem(feedID string, item NewItem) (*Item, bool, error)
	SetItemRead(fingerprint string, read bool) error
	SetItemBookmarked(fingerprint string, bookmarked bool) error
	RemoveDuplicateItems() (int, error)

	GetItemsForExtraction(feedID string, limit int) ([]ItemForExtraction, error)
	UpdateExtractedContent(fingerprint string, content string, extractedAt time.Time) error
	MarkExtractionFailed(fingerprint string) error
}
