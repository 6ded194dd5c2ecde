package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/feedvault/feedvault/app/database"
	"github.com/feedvault/feedvault/app/feed"
	"github.com/feedvault/feedvault/app/rss"
	"github.com/feedvault/feedvault/app/tasks"
)

const testAPIKey = "test-key"

type MockFeedRepository struct {
	mu      sync.Mutex
	feeds   []database.Feed
	created []string
	deleted []string
}

var _ database.FeedRepository = (*MockFeedRepository)(nil)

func (m *MockFeedRepository) GetFeed(id string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.feeds {
		if m.feeds[i].ID == id {
			return &m.feeds[i], nil
		}
	}
	return nil, nil
}

func (m *MockFeedRepository) GetFeedByURL(url string) (*database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.feeds {
		if m.feeds[i].URL == url {
			return &m.feeds[i], nil
		}
	}
	return nil, nil
}

func (m *MockFeedRepository) ListFeeds(status string) ([]database.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status == "" {
		return m.feeds, nil
	}

	var matched []database.Feed
	for _, f := range m.feeds {
		if f.Status == status {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

func (m *MockFeedRepository) ListFeedsDueForRefresh(olderThan time.Time, limit int) ([]database.Feed, error) {
	return nil, nil
}

func (m *MockFeedRepository) GetFeedCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feeds), nil
}

func (m *MockFeedRepository) GetActiveFeedCount() (int, error) {
	active := 0
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.feeds {
		if f.Status == database.FeedStatusActive {
			active++
		}
	}
	return active, nil
}

func (m *MockFeedRepository) CreateFeed(name, url, category string, extractContent bool) (*database.Feed, bool, error) {
	if existing, _ := m.GetFeedByURL(url); existing != nil {
		return existing, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	feed := database.Feed{
		ID:       fmt.Sprintf("feed-%d", len(m.feeds)+1),
		Name:     name,
		URL:      url,
		Category: category,
		Status:   database.FeedStatusActive,
	}
	m.feeds = append(m.feeds, feed)
	m.created = append(m.created, feed.ID)
	return &feed, true, nil
}

func (m *MockFeedRepository) UpsertFeedFromSeed(name, url, category string, extractContent bool) (*database.Feed, bool, error) {
	return nil, false, nil
}

func (m *MockFeedRepository) DeleteFeed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.feeds {
		if m.feeds[i].ID == id {
			m.feeds = append(m.feeds[:i], m.feeds[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return fmt.Errorf("feed %s: %w", id, database.ErrNotFound)
}

func (m *MockFeedRepository) SetFeedStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.feeds {
		if m.feeds[i].ID == id {
			m.feeds[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("feed %s: %w", id, database.ErrNotFound)
}

func (m *MockFeedRepository) MarkFeedRefreshed(id string, refreshedAt time.Time) error { return nil }
func (m *MockFeedRepository) MarkFeedError(id, message string) error                   { return nil }

type MockItemRepository struct {
	mu    sync.Mutex
	items []database.Item
}

var _ database.ItemRepository = (*MockItemRepository)(nil)

func (m *MockItemRepository) GetItem(fingerprint string) (*database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].Fingerprint == fingerprint {
			return &m.items[i], nil
		}
	}
	return nil, nil
}

func (m *MockItemRepository) GetItemsByFeed(feedID string, unreadOnly bool, limit int) ([]database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []database.Item
	for _, item := range m.items {
		if item.FeedID != feedID {
			continue
		}
		if unreadOnly && item.IsRead {
			continue
		}
		matched = append(matched, item)
	}
	return matched, nil
}

func (m *MockItemRepository) GetItemsByCategory(category string, unreadOnly bool, limit int) ([]database.Item, error) {
	return nil, nil
}

func (m *MockItemRepository) GetRecentItems(limit int) ([]database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items, nil
}

func (m *MockItemRepository) GetUnreadItems(limit int) ([]database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var unread []database.Item
	for _, item := range m.items {
		if !item.IsRead {
			unread = append(unread, item)
		}
	}
	return unread, nil
}

func (m *MockItemRepository) GetBookmarkedItems(limit int) ([]database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bookmarked []database.Item
	for _, item := range m.items {
		if item.IsBookmarked {
			bookmarked = append(bookmarked, item)
		}
	}
	return bookmarked, nil
}

func (m *MockItemRepository) SearchItems(query string, limit int) ([]database.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []database.Item
	for _, item := range m.items {
		if strings.Contains(strings.ToLower(item.Title), strings.ToLower(query)) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (m *MockItemRepository) GetItemCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *MockItemRepository) GetItemCountByFeed(feedID string) (int, error) {
	items, _ := m.GetItemsByFeed(feedID, false, 0)
	return len(items), nil
}

func (m *MockItemRepository) GetUnreadCount() (int, error) {
	items, _ := m.GetUnreadItems(0)
	return len(items), nil
}

func (m *MockItemRepository) GetBookmarkedCount() (int, error) {
	items, _ := m.GetBookmarkedItems(0)
	return len(items), nil
}

func (m *MockItemRepository) GetOrphanedCount() (int, error) { return 0, nil }

func (m *MockItemRepository) UpsertItem(feedID string, item database.NewItem) (*database.Item, bool, error) {
	return nil, false, nil
}

func (m *MockItemRepository) SetItemRead(fingerprint string, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].Fingerprint == fingerprint {
			m.items[i].IsRead = read
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", fingerprint, database.ErrNotFound)
}

func (m *MockItemRepository) SetItemBookmarked(fingerprint string, bookmarked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].Fingerprint == fingerprint {
			m.items[i].IsBookmarked = bookmarked
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", fingerprint, database.ErrNotFound)
}

func (m *MockItemRepository) RemoveDuplicateItems() (int, error) { return 0, nil }

func (m *MockItemRepository) GetItemsForExtraction(feedID string, limit int) ([]database.ItemForExtraction, error) {
	return nil, nil
}

func (m *MockItemRepository) UpdateExtractedContent(fingerprint string, content string, extractedAt time.Time) error {
	return nil
}

func (m *MockItemRepository) MarkExtractionFailed(fingerprint string) error { return nil }

type MockRefresher struct {
	mu      sync.Mutex
	result  *feed.RefreshResult
	results []feed.RefreshResult
	err     error
	calls   []string
}

var _ RefresherInterface = (*MockRefresher)(nil)

func (m *MockRefresher) Refresh(ctx context.Context, feedID string) (*feed.RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, feedID)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *MockRefresher) RefreshAll(ctx context.Context) ([]feed.RefreshResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type MockScheduler struct {
	mu       sync.Mutex
	enqueued []tasks.TaskInterface
}

var _ tasks.TaskSchedulerInterface = (*MockScheduler)(nil)

func (m *MockScheduler) Start() {}
func (m *MockScheduler) Stop()  {}
func (m *MockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, task)
	return nil
}

func (m *MockScheduler) enqueuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enqueued)
}

type testEnv struct {
	server    http.Handler
	feedRepo  *MockFeedRepository
	itemRepo  *MockItemRepository
	refresher *MockRefresher
	scheduler *MockScheduler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		feedRepo:  &MockFeedRepository{},
		itemRepo:  &MockItemRepository{},
		refresher: &MockRefresher{},
		scheduler: &MockScheduler{},
	}

	handler := NewHandler(env.feedRepo, env.itemRepo, env.refresher,
		rss.NewGenerator("http://localhost:8080"), env.scheduler, "test")
	env.server = NewServer(handler, testAPIKey)

	return env
}

func (e *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Expected valid JSON response, got error: %v (body: %s)", err, w.Body.String())
	}
	return payload
}

func TestAuthMiddleware_MissingKey(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest("GET", "/api/feeds", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_WrongKey(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest("GET", "/api/feeds", nil)
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest("GET", "/api/feeds", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with bearer token, got %d", w.Code)
	}
}

func TestHealthEndpoint_NoAuthRequired(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCreateFeed(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "POST", "/api/feeds",
		`{"name":"Tech News","url":"https://example.com/feed.xml","category":"tech"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d (body: %s)", w.Code, w.Body.String())
	}

	payload := decodeJSON(t, w)
	if payload["created"] != true {
		t.Error("Expected created = true")
	}

	// A new feed gets an initial refresh task
	if env.scheduler.enqueuedCount() != 1 {
		t.Errorf("Expected 1 enqueued task, got %d", env.scheduler.enqueuedCount())
	}
}

func TestCreateFeed_ExistingURL(t *testing.T) {
	env := newTestEnv()
	env.feedRepo.feeds = []database.Feed{
		{ID: "feed-1", Name: "Existing", URL: "https://example.com/feed.xml", Status: database.FeedStatusActive},
	}

	w := env.request(t, "POST", "/api/feeds",
		`{"name":"Renamed","url":"https://example.com/feed.xml"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for existing URL, got %d", w.Code)
	}

	payload := decodeJSON(t, w)
	if payload["created"] != false {
		t.Error("Expected created = false for existing URL")
	}
	if env.scheduler.enqueuedCount() != 0 {
		t.Errorf("Expected no enqueued tasks for existing feed, got %d", env.scheduler.enqueuedCount())
	}
}

func TestCreateFeed_InvalidBody(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "POST", "/api/feeds", `{"name":"Missing URL"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDeleteFeed_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "DELETE", "/api/feeds/unknown", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestPauseAndResumeFeed(t *testing.T) {
	env := newTestEnv()
	env.feedRepo.feeds = []database.Feed{
		{ID: "feed-1", Name: "Feed", URL: "https://example.com/feed.xml", Status: database.FeedStatusActive},
	}

	w := env.request(t, "POST", "/api/feeds/feed-1/pause", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if env.feedRepo.feeds[0].Status != database.FeedStatusPaused {
		t.Errorf("Expected feed to be paused, got status '%s'", env.feedRepo.feeds[0].Status)
	}

	w = env.request(t, "POST", "/api/feeds/feed-1/resume", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if env.feedRepo.feeds[0].Status != database.FeedStatusActive {
		t.Errorf("Expected feed to be active, got status '%s'", env.feedRepo.feeds[0].Status)
	}
}

func TestRefreshFeed(t *testing.T) {
	env := newTestEnv()
	env.refresher.result = &feed.RefreshResult{
		FeedID:     "feed-1",
		FeedName:   "Feed",
		State:      feed.StateDone,
		Total:      5,
		New:        3,
		Duplicates: 2,
	}

	w := env.request(t, "POST", "/api/feeds/feed-1/refresh", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	payload := decodeJSON(t, w)
	if payload["state"] != "done" {
		t.Errorf("Expected state 'done', got '%v'", payload["state"])
	}
	if payload["new"] != float64(3) {
		t.Errorf("Expected 3 new items, got %v", payload["new"])
	}
}

func TestRefreshFeed_NotFound(t *testing.T) {
	env := newTestEnv()
	env.refresher.err = fmt.Errorf("feed unknown: %w", database.ErrNotFound)

	w := env.request(t, "POST", "/api/feeds/unknown/refresh", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRefreshAll_EmptyRegistry(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "POST", "/api/refresh", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	payload := decodeJSON(t, w)
	results, ok := payload["results"].([]interface{})
	if !ok {
		t.Fatalf("Expected results to be a list, got %T", payload["results"])
	}
	if len(results) != 0 {
		t.Errorf("Expected empty result list, got %d entries", len(results))
	}
}

func TestRefreshAll_ReportsPerFeedOutcomes(t *testing.T) {
	env := newTestEnv()
	env.refresher.results = []feed.RefreshResult{
		{FeedID: "feed-1", State: feed.StateDone, Total: 2, New: 2},
		{FeedID: "feed-2", State: feed.StateFailed, FailureReason: "connection refused"},
	}

	w := env.request(t, "POST", "/api/refresh", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	payload := decodeJSON(t, w)
	if payload["total"] != float64(2) {
		t.Errorf("Expected 2 results, got %v", payload["total"])
	}
}

func TestSearchItems(t *testing.T) {
	env := newTestEnv()
	env.itemRepo.items = []database.Item{
		{Fingerprint: "fp1", Title: "AI news roundup"},
		{Fingerprint: "fp2", Title: "Gardening tips"},
	}

	w := env.request(t, "GET", "/api/search?q=AI", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	payload := decodeJSON(t, w)
	if payload["total"] != float64(1) {
		t.Errorf("Expected 1 match, got %v", payload["total"])
	}
}

func TestSearchItems_MissingQuery(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "GET", "/api/search", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestMarkRead_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "POST", "/api/items/unknown/read", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestMarkReadAndUnread(t *testing.T) {
	env := newTestEnv()
	env.itemRepo.items = []database.Item{{Fingerprint: "fp1", Title: "Item"}}

	w := env.request(t, "POST", "/api/items/fp1/read", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !env.itemRepo.items[0].IsRead {
		t.Error("Expected item to be marked read")
	}

	w = env.request(t, "DELETE", "/api/items/fp1/read", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if env.itemRepo.items[0].IsRead {
		t.Error("Expected item to be marked unread")
	}
}

func TestBookmark_DoesNotTouchReadState(t *testing.T) {
	env := newTestEnv()
	env.itemRepo.items = []database.Item{{Fingerprint: "fp1", Title: "Item", IsRead: true}}

	w := env.request(t, "POST", "/api/items/fp1/bookmark", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	if !env.itemRepo.items[0].IsBookmarked {
		t.Error("Expected item to be bookmarked")
	}
	if !env.itemRepo.items[0].IsRead {
		t.Error("Expected read state to be untouched by bookmarking")
	}
}

func TestGetFeedItems(t *testing.T) {
	env := newTestEnv()
	env.feedRepo.feeds = []database.Feed{
		{ID: "feed-1", Name: "Feed", URL: "https://example.com/feed.xml", Status: database.FeedStatusActive},
	}
	env.itemRepo.items = []database.Item{
		{Fingerprint: "fp1", FeedID: "feed-1", Title: "First"},
		{Fingerprint: "fp2", FeedID: "feed-1", Title: "Second", IsRead: true},
		{Fingerprint: "fp3", FeedID: "feed-2", Title: "Other"},
	}

	w := env.request(t, "GET", "/api/feeds/feed-1/items", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if total := decodeJSON(t, w)["total"]; total != float64(2) {
		t.Errorf("Expected 2 items, got %v", total)
	}

	w = env.request(t, "GET", "/api/feeds/feed-1/items?unread=1", "")
	if total := decodeJSON(t, w)["total"]; total != float64(1) {
		t.Errorf("Expected 1 unread item, got %v", total)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv()
	env.feedRepo.feeds = []database.Feed{
		{ID: "feed-1", Status: database.FeedStatusActive},
		{ID: "feed-2", Status: database.FeedStatusPaused},
	}
	env.itemRepo.items = []database.Item{
		{Fingerprint: "fp1", IsRead: true, IsBookmarked: true},
		{Fingerprint: "fp2"},
	}

	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	payload := decodeJSON(t, w)
	feeds, ok := payload["feeds"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected feeds section in stats")
	}
	if feeds["total"] != float64(2) || feeds["active"] != float64(1) {
		t.Errorf("Expected 2 total / 1 active feeds, got %v / %v", feeds["total"], feeds["active"])
	}

	items, ok := payload["items"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected items section in stats")
	}
	if items["unread"] != float64(1) || items["bookmarked"] != float64(1) {
		t.Errorf("Expected 1 unread / 1 bookmarked, got %v / %v", items["unread"], items["bookmarked"])
	}
}

func TestBookmarksFeed(t *testing.T) {
	env := newTestEnv()
	env.itemRepo.items = []database.Item{
		{Fingerprint: "fp1", Title: "Saved article", Link: "https://example.com/a", IsBookmarked: true},
		{Fingerprint: "fp2", Title: "Unsaved article"},
	}

	req := httptest.NewRequest("GET", "/bookmarks.rss", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "rss+xml") {
		t.Errorf("Expected RSS content type, got '%s'", ct)
	}
	if !strings.Contains(w.Body.String(), "Saved article") {
		t.Error("Expected bookmarked item in RSS output")
	}
	if strings.Contains(w.Body.String(), "Unsaved article") {
		t.Error("Expected unbookmarked item to be absent from RSS output")
	}
}

func TestFeedRSS(t *testing.T) {
	env := newTestEnv()
	env.feedRepo.feeds = []database.Feed{
		{ID: "feed-1", Name: "Tech Digest", URL: "https://tech.example.com/rss", Status: database.FeedStatusActive},
	}
	env.itemRepo.items = []database.Item{
		{Fingerprint: "fp1", FeedID: "feed-1", Title: "Feed article"},
		{Fingerprint: "fp2", FeedID: "feed-2", Title: "Other feed article"},
	}

	req := httptest.NewRequest("GET", "/feeds/feed-1/rss", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "rss+xml") {
		t.Errorf("Expected RSS content type, got '%s'", ct)
	}
	if !strings.Contains(w.Body.String(), "Feed article") {
		t.Error("Expected the feed's item in RSS output")
	}
	if strings.Contains(w.Body.String(), "Other feed article") {
		t.Error("Expected other feeds' items to be absent")
	}
}

func TestFeedRSS_UnknownFeed(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest("GET", "/feeds/unknown/rss", nil)
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestExportOPML(t *testing.T) {
	env := newTestEnv()
	env.feedRepo.feeds = []database.Feed{
		{ID: "feed-1", Name: "Tech Blog", URL: "https://example.com/feed.xml", Category: "tech"},
	}

	w := env.request(t, "GET", "/api/export/opml", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<opml") {
		t.Error("Expected OPML document in response")
	}
	if !strings.Contains(body, "https://example.com/feed.xml") {
		t.Error("Expected feed URL in OPML output")
	}
}

func TestDeduplicate(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, "POST", "/api/maintenance/dedupe", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if removed := decodeJSON(t, w)["removed"]; removed != float64(0) {
		t.Errorf("Expected 0 removed, got %v", removed)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	handler := NewHandler(&MockFeedRepository{}, &MockItemRepository{}, &MockRefresher{},
		rss.NewGenerator(""), &MockScheduler{}, "test")
	server := NewServer(handler, "")

	req := httptest.NewRequest("GET", "/api/feeds", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when API is disabled, got %d", w.Code)
	}
}

func TestRefreshFeed_InternalError(t *testing.T) {
	env := newTestEnv()
	env.refresher.err = errors.New("database gone")

	w := env.request(t, "POST", "/api/feeds/feed-1/refresh", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}
