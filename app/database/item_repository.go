package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/feedvault/feedvault/app/search"
)

// SQLItemRepository handles database operations for items
type SQLItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

// UpsertItem stores an item keyed by its fingerprint. The first arrival of a
// fingerprint wins: a later arrival with the same fingerprint only bumps
// last_seen_at and never overwrites the stored content, read state or
// bookmark flag. isNew reports whether this call inserted the item.
func (r *SQLItemRepository) UpsertItem(feedID string, item NewItem) (*Item, bool, error) {
	tx, err := r.db.write.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	result, err := tx.Exec(`
		INSERT INTO items (fingerprint, feed_id, title, link, content, author,
		                   published_at, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, item.Fingerprint, feedID, item.Title, item.Link, item.Content, item.Author,
		item.PublishedAt, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check item insert result: %w", err)
	}
	isNew := affected > 0

	if !isNew {
		_, err = tx.Exec(`
			UPDATE items SET last_seen_at = ? WHERE fingerprint = ?
		`, now, item.Fingerprint)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update item last seen: %w", err)
		}
	}

	stored, err := scanItem(tx.QueryRow(`
		SELECT `+itemColumns+`
		FROM items
		WHERE fingerprint = ?
	`, item.Fingerprint))
	if err == sql.ErrNoRows {
		return nil, false, fmt.Errorf("item %s missing after upsert: %w", item.Fingerprint, ErrIntegrity)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read back item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit item upsert: %w", err)
	}

	return stored, isNew, nil
}

// GetItem retrieves an item by its fingerprint
func (r *SQLItemRepository) GetItem(fingerprint string) (*Item, error) {
	item, err := scanItem(r.db.read.QueryRow(`
		SELECT `+itemColumns+`
		FROM items
		WHERE fingerprint = ?
	`, fingerprint))

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// GetItemsByFeed returns items belonging to a feed, newest first. Items
// without a published date sort after dated ones, by discovery time.
func (r *SQLItemRepository) GetItemsByFeed(feedID string, unreadOnly bool, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE feed_id = ?
	`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY published_at DESC, first_seen_at DESC LIMIT ?`

	return r.queryItems(query, feedID, limit)
}

// GetItemsByCategory returns items from all feeds in a category, newest
// first. Orphaned items have no feed and therefore no category.
func (r *SQLItemRepository) GetItemsByCategory(category string, unreadOnly bool, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE feed_id IN (SELECT id FROM feeds WHERE category = ?)
	`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY published_at DESC, first_seen_at DESC LIMIT ?`

	return r.queryItems(query, category, limit)
}

// GetRecentItems returns the most recent items across all feeds
func (r *SQLItemRepository) GetRecentItems(limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}

	return r.queryItems(`
		SELECT `+itemColumns+`
		FROM items
		ORDER BY published_at DESC, first_seen_at DESC
		LIMIT ?
	`, limit)
}

// GetUnreadItems returns unread items across all feeds, newest first
func (r *SQLItemRepository) GetUnreadItems(limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}

	return r.queryItems(`
		SELECT `+itemColumns+`
		FROM items
		WHERE is_read = 0
		ORDER BY published_at DESC, first_seen_at DESC
		LIMIT ?
	`, limit)
}

// GetBookmarkedItems returns bookmarked items across all feeds, newest first
func (r *SQLItemRepository) GetBookmarkedItems(limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 50
	}

	return r.queryItems(`
		SELECT `+itemColumns+`
		FROM items
		WHERE is_bookmarked = 1
		ORDER BY published_at DESC, first_seen_at DESC
		LIMIT ?
	`, limit)
}

// SearchItems runs a full-text search over item titles and content. Results
// are ordered by match quality, then recency. When the full-text index finds
// nothing, a substring scan catches partial words the tokenizer misses.
func (r *SQLItemRepository) SearchItems(query string, limit int) ([]Item, error) {
	match := search.Compile(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	items, err := r.queryItems(`
		SELECT i.fingerprint, COALESCE(i.feed_id, ''), i.title, i.link, i.content, i.author,
		       i.published_at, i.first_seen_at, i.last_seen_at, i.is_read, i.is_bookmarked,
		       i.extraction_status, i.extracted_at
		FROM items_fts
		JOIN items i ON i.rowid = items_fts.rowid
		WHERE items_fts MATCH ?
		ORDER BY items_fts.rank, i.published_at DESC, i.first_seen_at DESC
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	pattern := "%" + strings.TrimSpace(query) + "%"
	return r.queryItems(`
		SELECT `+itemColumns+`
		FROM items
		WHERE title LIKE ? OR content LIKE ?
		ORDER BY published_at DESC, first_seen_at DESC
		LIMIT ?
	`, pattern, pattern, limit)
}

// SetItemRead updates the read flag of an item
func (r *SQLItemRepository) SetItemRead(fingerprint string, read bool) error {
	result, err := r.db.write.Exec(`
		UPDATE items SET is_read = ? WHERE fingerprint = ?
	`, read, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to set item read flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check item read result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s: %w", fingerprint, ErrNotFound)
	}

	return nil
}

// SetItemBookmarked updates the bookmark flag of an item
func (r *SQLItemRepository) SetItemBookmarked(fingerprint string, bookmarked bool) error {
	result, err := r.db.write.Exec(`
		UPDATE items SET is_bookmarked = ? WHERE fingerprint = ?
	`, bookmarked, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to set item bookmark flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check item bookmark result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s: %w", fingerprint, ErrNotFound)
	}

	return nil
}

// RemoveDuplicateItems deletes all but the oldest row per fingerprint and
// returns how many rows were removed. The fingerprint primary key already
// prevents duplicates, so this maintenance sweep normally reports zero; it
// exists to repair stores written by older versions without the constraint.
func (r *SQLItemRepository) RemoveDuplicateItems() (int, error) {
	result, err := r.db.write.Exec(`
		DELETE FROM items
		WHERE rowid NOT IN (SELECT MIN(rowid) FROM items GROUP BY fingerprint)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to remove duplicate items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check duplicate removal result: %w", err)
	}

	return int(affected), nil
}

// GetItemCount returns the total number of items
func (r *SQLItemRepository) GetItemCount() (int, error) {
	return r.countItems("SELECT COUNT(*) FROM items")
}

// GetItemCountByFeed returns the number of items belonging to a feed
func (r *SQLItemRepository) GetItemCountByFeed(feedID string) (int, error) {
	return r.countItems("SELECT COUNT(*) FROM items WHERE feed_id = ?", feedID)
}

// GetUnreadCount returns the number of unread items
func (r *SQLItemRepository) GetUnreadCount() (int, error) {
	return r.countItems("SELECT COUNT(*) FROM items WHERE is_read = 0")
}

// GetBookmarkedCount returns the number of bookmarked items
func (r *SQLItemRepository) GetBookmarkedCount() (int, error) {
	return r.countItems("SELECT COUNT(*) FROM items WHERE is_bookmarked = 1")
}

// GetOrphanedCount returns the number of items whose feed has been deleted
func (r *SQLItemRepository) GetOrphanedCount() (int, error) {
	return r.countItems("SELECT COUNT(*) FROM items WHERE feed_id IS NULL")
}

// GetItemsForExtraction returns items of a feed that still need content
// extraction. Items without a link can never be extracted and are skipped.
func (r *SQLItemRepository) GetItemsForExtraction(feedID string, limit int) ([]ItemForExtraction, error) {
	rows, err := r.db.read.Query(`
		SELECT fingerprint, link
		FROM items
		WHERE feed_id = ? AND extraction_status = ? AND link != ''
		ORDER BY first_seen_at DESC
		LIMIT ?
	`, feedID, ExtractionStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for extraction: %w", err)
	}
	defer rows.Close()

	var items []ItemForExtraction
	for rows.Next() {
		var item ItemForExtraction
		if err := rows.Scan(&item.Fingerprint, &item.Link); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}

	return items, nil
}

// UpdateExtractedContent replaces an item's content with the extracted
// article text and marks extraction successful. The full-text index picks up
// the new content through the items_fts update trigger.
func (r *SQLItemRepository) UpdateExtractedContent(fingerprint string, content string, extractedAt time.Time) error {
	_, err := r.db.write.Exec(`
		UPDATE items
		SET content = ?, extraction_status = ?, extracted_at = ?
		WHERE fingerprint = ?
	`, content, ExtractionStatusSuccess, extractedAt, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}

	return nil
}

// MarkExtractionFailed marks an item's content extraction as failed so it is
// not retried on every pass
func (r *SQLItemRepository) MarkExtractionFailed(fingerprint string) error {
	_, err := r.db.write.Exec(`
		UPDATE items
		SET extraction_status = ?
		WHERE fingerprint = ?
	`, ExtractionStatusFailed, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to mark extraction failed: %w", err)
	}

	return nil
}

func (r *SQLItemRepository) queryItems(query string, args ...any) ([]Item, error) {
	rows, err := r.db.read.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *SQLItemRepository) countItems(query string, args ...any) (int, error) {
	var count int
	err := r.db.read.QueryRow(query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}
