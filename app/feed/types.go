package feed

import (
	"time"
)

// Item is a normalized feed entry as produced by the fetch collaborator,
// before fingerprinting and storage.
type Item struct {
	Title       string
	Link        string
	Content     string
	Author      string
	PublishedAt *time.Time
}

// FetchResult is the outcome of downloading and parsing one feed document.
type FetchResult struct {
	Title string // Feed's own title from the document
	Items []Item
}
