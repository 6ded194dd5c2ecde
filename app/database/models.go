package database

import (
	"database/sql"
	"time"
)

// Feed status values stored in feeds.status.
const (
	FeedStatusActive = "active"
	FeedStatusPaused = "paused"
	FeedStatusError  = "error"
)

// Extraction status values stored in items.extraction_status.
const (
	ExtractionStatusPending = "pending"
	ExtractionStatusSuccess = "success"
	ExtractionStatusFailed  = "failed"
)

type Feed struct {
	ID              string // Database UUID
	Name            string
	URL             string
	Category        string
	Status          string // active, paused, error
	ErrorMessage    string // Last refresh failure, cleared on success
	ExtractContent  bool
	LastRefreshedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Item struct {
	Fingerprint      string // Content identity hash, primary key
	FeedID           string // Empty once the owning feed has been deleted
	Title            string
	Link             string
	Content          string
	Author           string
	PublishedAt      *time.Time
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	IsRead           bool
	IsBookmarked     bool
	ExtractionStatus string // pending, success, failed
	ExtractedAt      *time.Time
}

const feedColumns = `id, name, url, category, status, error_message, extract_content,
	       last_refreshed_at, created_at, updated_at`

const itemColumns = `fingerprint, COALESCE(feed_id, ''), title, link, content, author,
	       published_at, first_seen_at, last_seen_at, is_read, is_bookmarked,
	       extraction_status, extracted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var feed Feed
	var lastRefreshedAt sql.NullTime
	err := row.Scan(
		&feed.ID, &feed.Name, &feed.URL, &feed.Category, &feed.Status,
		&feed.ErrorMessage, &feed.ExtractContent,
		&lastRefreshedAt, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastRefreshedAt.Valid {
		t := lastRefreshedAt.Time
		feed.LastRefreshedAt = &t
	}
	return &feed, nil
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var publishedAt, extractedAt sql.NullTime
	err := row.Scan(
		&item.Fingerprint, &item.FeedID, &item.Title, &item.Link, &item.Content, &item.Author,
		&publishedAt, &item.FirstSeenAt, &item.LastSeenAt, &item.IsRead, &item.IsBookmarked,
		&item.ExtractionStatus, &extractedAt,
	)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}
	if extractedAt.Valid {
		t := extractedAt.Time
		item.ExtractedAt = &t
	}
	return &item, nil
}
