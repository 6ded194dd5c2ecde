package registry

import (
	"log/slog"

	"github.com/feedvault/feedvault/app/database"
)

// Registry keeps the database feed table in line with the seed file. Syncing
// is additive: entries removed from the file stay in the database and are
// deleted through the API instead, so accumulated items are never dropped by
// an edit to the file.
type Registry struct {
	path     string
	feedRepo database.FeedRepository
}

func New(path string, feedRepo database.FeedRepository) *Registry {
	return &Registry{
		path:     path,
		feedRepo: feedRepo,
	}
}

// Load reads and validates the configured seed file.
func (r *Registry) Load() ([]SeedEntry, error) {
	return LoadSeedFile(r.path)
}

// Sync upserts every seed entry into the database. A failing entry is logged
// and skipped so one bad feed does not block the rest. Returns how many feeds
// were created and how many already existed and were updated.
func (r *Registry) Sync(entries []SeedEntry) (int, int) {
	created := 0
	updated := 0

	for _, entry := range entries {
		_, isNew, err := r.feedRepo.UpsertFeedFromSeed(entry.Name, entry.URL, entry.Category, entry.ExtractContent)
		if err != nil {
			slog.Warn("Failed to sync seed entry",
				"feed", entry.Name,
				"url", entry.URL,
				"error", err)
			continue
		}

		if isNew {
			created++
		} else {
			updated++
		}
	}

	return created, updated
}

// Reload re-reads the seed file from disk and syncs it into the database.
func (r *Registry) Reload() error {
	entries, err := r.Load()
	if err != nil {
		return err
	}

	created, updated := r.Sync(entries)
	slog.Info("Seed file synced",
		"path", r.path,
		"entries", len(entries),
		"created", created,
		"updated", updated)

	return nil
}
