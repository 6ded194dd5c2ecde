package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/feedvault/feedvault/app/cfg"
	"github.com/feedvault/feedvault/app/database"
	"github.com/feedvault/feedvault/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Feeds due for a refresh are enqueued at most this many per tick.
const dueFeedsBatchSize = 50

type Scheduler struct {
	feedRepo         database.FeedRepository
	itemRepo         database.ItemRepository
	refresher        RefresherInterface
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
	interval         time.Duration
	refreshInterval  time.Duration
	fetchTimeout     time.Duration
	maxItems         int
	workerCount      int
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	taskQueue        chan TaskInterface
}

func NewScheduler(feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	refresher RefresherInterface, httpClient *http.Client, contentExtractor *feed.ContentExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		feedRepo:         feedRepo,
		itemRepo:         itemRepo,
		refresher:        refresher,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        cfg.UserAgent,
		interval:         time.Duration(cfg.SchedulerInterval) * time.Second,
		refreshInterval:  time.Duration(cfg.RefreshInterval) * time.Second,
		fetchTimeout:     time.Duration(cfg.FetchTimeout) * time.Second,
		maxItems:         cfg.MaxItems,
		workerCount:      cfg.WorkerCount,
		ctx:              ctx,
		cancel:           cancel,
		taskQueue:        make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	feeds, err := s.feedRepo.ListFeeds(database.FeedStatusActive)
	if err != nil {
		slog.Error("Failed to list feeds for startup refresh", "error", err)
		return
	}
	if len(feeds) == 0 {
		slog.Debug("No active feeds to refresh at startup")
		return
	}

	slog.Debug("Enqueueing startup refresh tasks", "count", len(feeds))

	for _, f := range feeds {
		task := NewRefreshFeedTask(f.ID, s.refresher)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue RefreshFeedTask", "feed", f.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	olderThan := time.Now().UTC().Add(-s.refreshInterval)

	due, err := s.feedRepo.ListFeedsDueForRefresh(olderThan, dueFeedsBatchSize)
	if err != nil {
		slog.Error("Failed to list feeds due for refresh", "error", err)
	} else {
		for _, f := range due {
			task := NewRefreshFeedTask(f.ID, s.refresher)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue RefreshFeedTask", "feed", f.Name, "error", err)
			}
		}
	}

	active, err := s.feedRepo.ListFeeds(database.FeedStatusActive)
	if err != nil {
		slog.Error("Failed to list feeds for content extraction", "error", err)
		return
	}

	for _, f := range active {
		if !f.ExtractContent {
			continue
		}

		task := NewExtractContentTask(f.ID, s.httpClient, s.contentExtractor, s.itemRepo,
			s.userAgent, s.fetchTimeout, s.maxItems)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue ExtractContentTask", "feed", f.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed_id", task.GetFeedID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
