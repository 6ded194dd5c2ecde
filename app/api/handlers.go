package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feedvault/feedvault/app/database"
	"github.com/feedvault/feedvault/app/feed"
	"github.com/feedvault/feedvault/app/opml"
	"github.com/feedvault/feedvault/app/tasks"
)

func NewHandler(feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	refresher RefresherInterface, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		feedRepo:  feedRepo,
		itemRepo:  itemRepo,
		refresher: refresher,
		generator: generator,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{}

	if total, err := h.feedRepo.GetFeedCount(); err == nil {
		active, _ := h.feedRepo.GetActiveFeedCount()
		stats["feeds"] = gin.H{"total": total, "active": active}
	}

	items := gin.H{}
	if total, err := h.itemRepo.GetItemCount(); err == nil {
		items["total"] = total
	}
	if unread, err := h.itemRepo.GetUnreadCount(); err == nil {
		items["unread"] = unread
	}
	if bookmarked, err := h.itemRepo.GetBookmarkedCount(); err == nil {
		items["bookmarked"] = bookmarked
	}
	if orphaned, err := h.itemRepo.GetOrphanedCount(); err == nil {
		items["orphaned"] = orphaned
	}
	stats["items"] = items

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetBookmarksFeed(c *gin.Context) {
	items, err := h.itemRepo.GetBookmarkedItems(parseLimit(c, 50))
	if err != nil {
		slog.Error("Database error", "operation", "get_bookmarked_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.BookmarksFeed(items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetFeedRSS(c *gin.Context) {
	source, ok := h.loadFeed(c)
	if !ok {
		return
	}

	items, err := h.itemRepo.GetItemsByFeed(source.ID, false, parseLimit(c, 50))
	if err != nil {
		slog.Error("Database error", "operation", "get_feed_items", "feed_id", source.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.ItemsFeed(*source, items)
	if err != nil {
		slog.Error("RSS generation error", "feed", source.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.String(http.StatusOK, rss)
}

type createFeedRequest struct {
	Name           string `json:"name" binding:"required"`
	URL            string `json:"url" binding:"required"`
	Category       string `json:"category"`
	ExtractContent bool   `json:"extract_content"`
}

func (h *Handler) APICreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	feed, created, err := h.feedRepo.CreateFeed(req.Name, req.URL, req.Category, req.ExtractContent)
	if err != nil {
		slog.Error("Database error", "operation", "create_feed", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated

		// New feeds get their first refresh in the background rather than
		// waiting for the next scheduler tick
		task := tasks.NewRefreshFeedTask(feed.ID, h.refresher)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue initial refresh", "feed", feed.Name, "error", err)
		}
	}

	c.JSON(status, gin.H{"feed": feedResponse(*feed), "created": created})
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.ListFeeds(c.Query("status"))
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]gin.H, 0, len(feeds))
	for _, feed := range feeds {
		list = append(list, feedResponse(feed))
	}

	c.JSON(http.StatusOK, gin.H{"feeds": list, "total": len(list)})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	feed, ok := h.loadFeed(c)
	if !ok {
		return
	}

	details := feedResponse(*feed)

	items := gin.H{}
	if count, err := h.itemRepo.GetItemCountByFeed(feed.ID); err == nil {
		items["total"] = count
	}
	details["items"] = items

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIDeleteFeed(c *gin.Context) {
	id := c.Param("id")

	if err := h.feedRepo.DeleteFeed(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
		slog.Error("Database error", "operation", "delete_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Items survive the deletion with their feed reference cleared; they stay
	// searchable and keep read and bookmark state
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIPauseFeed(c *gin.Context) {
	h.setFeedStatus(c, database.FeedStatusPaused)
}

func (h *Handler) APIResumeFeed(c *gin.Context) {
	h.setFeedStatus(c, database.FeedStatusActive)
}

func (h *Handler) setFeedStatus(c *gin.Context, status string) {
	id := c.Param("id")

	if err := h.feedRepo.SetFeedStatus(id, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
		slog.Error("Database error", "operation", "set_feed_status", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}

func (h *Handler) APIRefreshFeed(c *gin.Context) {
	id := c.Param("id")

	result, err := h.refresher.Refresh(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}
		slog.Error("Refresh error", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refresh failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) APIRefreshAll(c *gin.Context) {
	results, err := h.refresher.RefreshAll(c.Request.Context())
	if err != nil {
		slog.Error("Batch refresh error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch refresh failed", "details": err.Error()})
		return
	}

	if results == nil {
		results = []feed.RefreshResult{}
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

func (h *Handler) APIGetFeedItems(c *gin.Context) {
	feed, ok := h.loadFeed(c)
	if !ok {
		return
	}

	items, err := h.itemRepo.GetItemsByFeed(feed.ID, parseBool(c.Query("unread")), parseLimit(c, 50))
	if err != nil {
		slog.Error("Database error", "operation", "get_feed_items", "feed_id", feed.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, itemListResponse(items))
}

func (h *Handler) APIGetItems(c *gin.Context) {
	unreadOnly := parseBool(c.Query("unread"))
	limit := parseLimit(c, 50)

	var items []database.Item
	var err error

	if category := c.Query("category"); category != "" {
		items, err = h.itemRepo.GetItemsByCategory(category, unreadOnly, limit)
	} else if unreadOnly {
		items, err = h.itemRepo.GetUnreadItems(limit)
	} else {
		items, err = h.itemRepo.GetRecentItems(limit)
	}

	if err != nil {
		slog.Error("Database error", "operation", "get_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, itemListResponse(items))
}

func (h *Handler) APIGetUnreadItems(c *gin.Context) {
	items, err := h.itemRepo.GetUnreadItems(parseLimit(c, 50))
	if err != nil {
		slog.Error("Database error", "operation", "get_unread_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, itemListResponse(items))
}

func (h *Handler) APIGetBookmarkedItems(c *gin.Context) {
	items, err := h.itemRepo.GetBookmarkedItems(parseLimit(c, 50))
	if err != nil {
		slog.Error("Database error", "operation", "get_bookmarked_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, itemListResponse(items))
}

func (h *Handler) APISearchItems(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter 'q'"})
		return
	}

	items, err := h.itemRepo.SearchItems(query, parseLimit(c, 20))
	if err != nil {
		slog.Error("Database error", "operation", "search_items", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := itemListResponse(items)
	response["query"] = query
	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIMarkRead(c *gin.Context) {
	h.setItemFlag(c, "read", func(fp string) error { return h.itemRepo.SetItemRead(fp, true) })
}

func (h *Handler) APIMarkUnread(c *gin.Context) {
	h.setItemFlag(c, "read", func(fp string) error { return h.itemRepo.SetItemRead(fp, false) })
}

func (h *Handler) APIBookmark(c *gin.Context) {
	h.setItemFlag(c, "bookmark", func(fp string) error { return h.itemRepo.SetItemBookmarked(fp, true) })
}

func (h *Handler) APIUnbookmark(c *gin.Context) {
	h.setItemFlag(c, "bookmark", func(fp string) error { return h.itemRepo.SetItemBookmarked(fp, false) })
}

func (h *Handler) setItemFlag(c *gin.Context, flag string, update func(fingerprint string) error) {
	fingerprint := c.Param("fingerprint")

	if err := update(fingerprint); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		slog.Error("Database error", "operation", "set_item_"+flag, "fingerprint", fingerprint, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) APIDeduplicate(c *gin.Context) {
	removed, err := h.itemRepo.RemoveDuplicateItems()
	if err != nil {
		slog.Error("Database error", "operation", "deduplicate", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) APIExportOPML(c *gin.Context) {
	feeds, err := h.feedRepo.ListFeeds("")
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	doc, err := opml.Export("FeedVault subscriptions", feeds)
	if err != nil {
		slog.Error("OPML export error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OPML export failed"})
		return
	}

	c.Header("Content-Type", "text/x-opml; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="feedvault.opml"`)
	c.Data(http.StatusOK, "text/x-opml; charset=utf-8", doc)
}

// loadFeed resolves the :id route parameter and writes the error response
// itself when the feed cannot be loaded.
func (h *Handler) loadFeed(c *gin.Context) (*database.Feed, bool) {
	id := c.Param("id")

	feed, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if feed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return nil, false
	}

	return feed, true
}

func feedResponse(feed database.Feed) gin.H {
	return gin.H{
		"id":                feed.ID,
		"name":              feed.Name,
		"url":               feed.URL,
		"category":          feed.Category,
		"status":            feed.Status,
		"error_message":     feed.ErrorMessage,
		"extract_content":   feed.ExtractContent,
		"last_refreshed_at": feed.LastRefreshedAt,
		"created_at":        feed.CreatedAt,
	}
}

func itemResponse(item database.Item) gin.H {
	return gin.H{
		"fingerprint":   item.Fingerprint,
		"feed_id":       item.FeedID,
		"title":         item.Title,
		"link":          item.Link,
		"content":       item.Content,
		"author":        item.Author,
		"published_at":  item.PublishedAt,
		"first_seen_at": item.FirstSeenAt,
		"is_read":       item.IsRead,
		"is_bookmarked": item.IsBookmarked,
	}
}

func itemListResponse(items []database.Item) gin.H {
	list := make([]gin.H, 0, len(items))
	for _, item := range items {
		list = append(list, itemResponse(item))
	}
	return gin.H{"items": list, "total": len(list)}
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func parseBool(raw string) bool {
	return raw == "1" || raw == "true"
}
