package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/feedvault/feedvault/app/database"
)

// RefreshState names the phases of one refresh pass over a feed.
type RefreshState string

const (
	StatePending  RefreshState = "pending"
	StateFetching RefreshState = "fetching"
	StateMerging  RefreshState = "merging"
	StateDone     RefreshState = "done"
	StateFailed   RefreshState = "failed"
	StateSkipped  RefreshState = "skipped"
)

// RefreshResult is the outcome of one refresh pass over a single feed.
// Total counts the items taken from the fetched document and always equals
// New + Duplicates + Skipped.
type RefreshResult struct {
	FeedID        string       `json:"feed_id"`
	FeedName      string       `json:"feed_name"`
	State         RefreshState `json:"state"`
	Total         int          `json:"total"`
	New           int          `json:"new"`
	Duplicates    int          `json:"duplicates"`
	Skipped       int          `json:"skipped"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

// Refresher drives the fetch-and-merge cycle: it hands a feed's URL to the
// fetch collaborator, fingerprints each returned item and merges it into the
// item store, counting new arrivals against duplicates.
type Refresher struct {
	fetcher      Fetcher
	feedRepo     database.FeedRepository
	itemRepo     database.ItemRepository
	fetchTimeout time.Duration
	maxItems     int
	workerCount  int
}

func NewRefresher(fetcher Fetcher, feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	fetchTimeout time.Duration, maxItems, workerCount int) *Refresher {
	return &Refresher{
		fetcher:      fetcher,
		feedRepo:     feedRepo,
		itemRepo:     itemRepo,
		fetchTimeout: fetchTimeout,
		maxItems:     maxItems,
		workerCount:  workerCount,
	}
}

// Refresh runs one fetch-and-merge cycle for the given feed. Fetch and parse
// failures are recorded on the feed and reported in the result rather than
// returned; an error comes back only for an unknown feed id or a store
// failure. A paused feed is skipped without touching the network.
func (r *Refresher) Refresh(ctx context.Context, feedID string) (*RefreshResult, error) {
	feed, err := r.feedRepo.GetFeed(feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	if feed == nil {
		return nil, fmt.Errorf("feed %s: %w", feedID, database.ErrNotFound)
	}

	result := &RefreshResult{FeedID: feed.ID, FeedName: feed.Name, State: StatePending}

	if feed.Status == database.FeedStatusPaused {
		result.State = StateSkipped
		slog.Debug("Feed paused, skipping refresh", "feed", feed.Name)
		return result, nil
	}

	result.State = StateFetching
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	fetched, err := r.fetcher.Fetch(fetchCtx, feed.URL)
	if err != nil {
		return r.fail(result, feed.ID, err.Error())
	}

	result.State = StateMerging
	items := fetched.Items
	if r.maxItems > 0 && len(items) > r.maxItems {
		items = items[:r.maxItems]
	}
	result.Total = len(items)

	for _, item := range items {
		fingerprint, ok := Fingerprint(item)
		if !ok {
			// Nothing to identify the item by; skip it without failing
			// the rest of the document
			result.Skipped++
			continue
		}

		_, isNew, err := r.itemRepo.UpsertItem(feed.ID, database.NewItem{
			Fingerprint: fingerprint,
			Title:       item.Title,
			Link:        item.Link,
			Content:     item.Content,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
		})
		if err != nil {
			if errors.Is(err, database.ErrIntegrity) {
				return nil, err
			}
			return r.fail(result, feed.ID, err.Error())
		}

		if isNew {
			result.New++
		} else {
			result.Duplicates++
		}
	}

	if err := r.feedRepo.MarkFeedRefreshed(feed.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	result.State = StateDone
	slog.Info("Feed refreshed",
		"feed", feed.Name,
		"total", result.Total,
		"new", result.New,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped)

	return result, nil
}

// RefreshAll refreshes every registered feed with a bounded worker pool.
// One feed's failure never blocks another feed's refresh; paused feeds show
// up as skipped. Results come back in registry order. Only a store integrity
// violation aborts the batch.
func (r *Refresher) RefreshAll(ctx context.Context) ([]RefreshResult, error) {
	feeds, err := r.feedRepo.ListFeeds("")
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	if len(feeds) == 0 {
		return nil, nil
	}

	workers := r.workerCount
	if workers < 1 {
		workers = 1
	}
	if workers > len(feeds) {
		workers = len(feeds)
	}

	results := make([]RefreshResult, len(feeds))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var batchErr error

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := r.Refresh(batchCtx, feeds[idx].ID)
				if err != nil {
					if errors.Is(err, database.ErrIntegrity) {
						mu.Lock()
						if batchErr == nil {
							batchErr = err
						}
						mu.Unlock()
						cancel()
						continue
					}
					results[idx] = RefreshResult{
						FeedID:        feeds[idx].ID,
						FeedName:      feeds[idx].Name,
						State:         StateFailed,
						FailureReason: err.Error(),
					}
					continue
				}
				results[idx] = *res
			}
		}()
	}

	for idx := range feeds {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if batchErr != nil {
		return nil, batchErr
	}

	return results, nil
}

func (r *Refresher) fail(result *RefreshResult, feedID, reason string) (*RefreshResult, error) {
	if err := r.feedRepo.MarkFeedError(feedID, reason); err != nil {
		return nil, err
	}

	result.State = StateFailed
	result.FailureReason = reason
	slog.Warn("Feed refresh failed", "feed", result.FeedName, "reason", reason)

	return result, nil
}
