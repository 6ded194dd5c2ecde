package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLFeedRepository handles database operations for feeds
type SQLFeedRepository struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *SQLFeedRepository {
	return &SQLFeedRepository{db: db}
}

// CreateFeed registers a new feed subscription. If a feed with the same URL
// already exists it is returned unchanged and created is false.
func (r *SQLFeedRepository) CreateFeed(name, url, category string, extractContent bool) (*Feed, bool, error) {
	id := uuid.New().String()

	result, err := r.db.write.Exec(`
		INSERT INTO feeds (id, name, url, category, extract_content)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, id, name, url, category, extractContent)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create feed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check feed insert result: %w", err)
	}

	if affected == 0 {
		existing, err := r.GetFeedByURL(url)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("feed %q vanished after conflict: %w", url, ErrIntegrity)
		}
		return existing, false, nil
	}

	feed, err := r.GetFeed(id)
	if err != nil {
		return nil, false, err
	}
	return feed, true, nil
}

// UpsertFeedFromSeed inserts or updates a feed from the seed file. Unlike
// CreateFeed, an existing feed with the same URL has its name, category and
// extraction setting overwritten. Created reports whether a new row was made.
func (r *SQLFeedRepository) UpsertFeedFromSeed(name, url, category string, extractContent bool) (*Feed, bool, error) {
	// First try to get existing feed by URL
	existing, err := r.GetFeedByURL(url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing feed: %w", err)
	}

	if existing != nil {
		_, err = r.db.write.Exec(`
			UPDATE feeds
			SET name = ?, category = ?, extract_content = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, name, category, extractContent, existing.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update feed: %w", err)
		}

		feed, err := r.GetFeed(existing.ID)
		if err != nil {
			return nil, false, err
		}
		return feed, false, nil
	}

	id := uuid.New().String()
	_, err = r.db.write.Exec(`
		INSERT INTO feeds (id, name, url, category, extract_content)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, url, category, extractContent)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert feed: %w", err)
	}

	feed, err := r.GetFeed(id)
	if err != nil {
		return nil, false, err
	}
	return feed, true, nil
}

// GetFeed retrieves a feed by its ID
func (r *SQLFeedRepository) GetFeed(id string) (*Feed, error) {
	feed, err := scanFeed(r.db.read.QueryRow(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE id = ?
	`, id))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

// GetFeedByURL retrieves a feed by its URL
func (r *SQLFeedRepository) GetFeedByURL(url string) (*Feed, error) {
	feed, err := scanFeed(r.db.read.QueryRow(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE url = ?
	`, url))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}

	return feed, nil
}

// ListFeeds returns all feeds, optionally filtered by status. An empty status
// returns every feed. Ordered by category then name for stable output.
func (r *SQLFeedRepository) ListFeeds(status string) ([]Feed, error) {
	query := `
		SELECT ` + feedColumns + `
		FROM feeds
	`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY category, name`

	rows, err := r.db.read.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// ListFeedsDueForRefresh returns feeds that have never been refreshed or
// were last refreshed at or before the cutoff, oldest first. Paused feeds
// are excluded; feeds in error status are included so they retry on the
// next cycle.
func (r *SQLFeedRepository) ListFeedsDueForRefresh(olderThan time.Time, limit int) ([]Feed, error) {
	rows, err := r.db.read.Query(`
		SELECT `+feedColumns+`
		FROM feeds
		WHERE status IN (?, ?)
		  AND (last_refreshed_at IS NULL OR last_refreshed_at <= ?)
		ORDER BY COALESCE(last_refreshed_at, '1970-01-01')
		LIMIT ?
	`, FeedStatusActive, FeedStatusError, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds due for refresh: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// DeleteFeed removes a feed. Its items are kept with feed_id cleared so they
// stay searchable and keep their read and bookmark flags.
func (r *SQLFeedRepository) DeleteFeed(id string) error {
	result, err := r.db.write.Exec(`DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check feed delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}

	return nil
}

// SetFeedStatus updates the status of a feed
func (r *SQLFeedRepository) SetFeedStatus(id, status string) error {
	result, err := r.db.write.Exec(`
		UPDATE feeds
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set feed status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check feed status result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}

	return nil
}

// MarkFeedRefreshed records a successful refresh: the feed goes back to
// active, any stored error is cleared and the refresh time is set.
func (r *SQLFeedRepository) MarkFeedRefreshed(id string, refreshedAt time.Time) error {
	_, err := r.db.write.Exec(`
		UPDATE feeds
		SET status = ?, error_message = '', last_refreshed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, FeedStatusActive, refreshedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark feed refreshed: %w", err)
	}

	return nil
}

// MarkFeedError records a failed refresh with the failure message
func (r *SQLFeedRepository) MarkFeedError(id, message string) error {
	_, err := r.db.write.Exec(`
		UPDATE feeds
		SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, FeedStatusError, message, id)
	if err != nil {
		return fmt.Errorf("failed to mark feed error: %w", err)
	}

	return nil
}

// GetFeedCount returns the total number of feeds
func (r *SQLFeedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.read.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

// GetActiveFeedCount returns the count of active feeds
func (r *SQLFeedRepository) GetActiveFeedCount() (int, error) {
	var count int
	err := r.db.read.QueryRow("SELECT COUNT(*) FROM feeds WHERE status = ?", FeedStatusActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get active feed count: %w", err)
	}
	return count, nil
}
