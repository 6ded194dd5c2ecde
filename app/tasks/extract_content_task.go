package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/feedvault/feedvault/app/database"
	"github.com/feedvault/feedvault/app/feed"
)

// ExtractContentTask fetches the article page behind each pending item of a
// feed and replaces the stored summary with the full readable text.
type ExtractContentTask struct {
	Task
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	itemRepo         database.ItemRepository
	userAgent        string
	fetchTimeout     time.Duration
	maxItems         int
}

func NewExtractContentTask(feedID string, httpClient *http.Client, contentExtractor *feed.ContentExtractor,
	itemRepo database.ItemRepository, userAgent string, fetchTimeout time.Duration, maxItems int) *ExtractContentTask {
	return &ExtractContentTask{
		Task:             NewTask(TaskTypeExtractContent, feedID),
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		itemRepo:         itemRepo,
		userAgent:        userAgent,
		fetchTimeout:     fetchTimeout,
		maxItems:         maxItems,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	items, err := t.itemRepo.GetItemsForExtraction(t.FeedID, t.maxItems)
	if err != nil {
		return fmt.Errorf("failed to get items for content extraction: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No items need content extraction", "feed_id", t.FeedID)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		extractCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
		err := t.extractContentForItem(extractCtx, item)
		cancel()

		if err != nil {
			slog.Error("Failed to extract content for item",
				"fingerprint", item.Fingerprint,
				"url", item.Link,
				"error", err)
			errorCount++

			if err := t.itemRepo.MarkExtractionFailed(item.Fingerprint); err != nil {
				slog.Error("Failed to update content extraction status", "fingerprint", item.Fingerprint, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed_id", t.FeedID,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForItem(ctx context.Context, item database.ItemForExtraction) error {
	if item.Link == "" {
		return fmt.Errorf("item has no link")
	}

	data, err := t.fetchArticleContent(ctx, item.Link)
	if err != nil {
		return fmt.Errorf("failed to fetch article content: %w", err)
	}

	extractedContent, err := t.contentExtractor.Run(data, item.Link)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	err = t.itemRepo.UpdateExtractedContent(item.Fingerprint, extractedContent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully",
		"fingerprint", item.Fingerprint,
		"url", item.Link,
		"content_length", len(extractedContent))
	return nil
}

func (t *ExtractContentTask) fetchArticleContent(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
