// Package rss renders stored items as RSS 2.0 documents.
package rss

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"github.com/feedvault/feedvault/app/database"
)

// Generator builds syndication documents from stored items. The bookmarks
// feed lets a reader subscribe to everything bookmarked across the registry.
type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: baseURL}
}

// BookmarksFeed renders the given items as an RSS 2.0 document. Items are
// expected in the order they should appear, newest first.
func (g *Generator) BookmarksFeed(items []database.Item) (string, error) {
	return g.render("FeedVault Bookmarks", g.baseURL+"/bookmarks.rss",
		"Bookmarked items from all subscribed feeds", items)
}

// ItemsFeed renders one registered feed's stored items as an RSS 2.0
// document, so readers can subscribe to the deduplicated view of a source.
func (g *Generator) ItemsFeed(source database.Feed, items []database.Item) (string, error) {
	description := "Items from " + source.URL
	if source.Category != "" {
		description += " (" + source.Category + ")"
	}
	return g.render(source.Name, g.baseURL+"/feeds/"+source.ID+"/rss", description, items)
}

func (g *Generator) render(title, link, description string, items []database.Item) (string, error) {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: description,
		Created:     time.Now(),
	}

	if len(items) > 0 {
		feed.Updated = publishedOrFirstSeen(items[0])
	}

	for _, item := range items {
		entry := &feeds.Item{
			Title:       item.Title,
			Description: item.Content,
			Id:          item.Fingerprint,
			IsPermaLink: "false",
			Created:     publishedOrFirstSeen(item),
		}
		if item.Link != "" {
			entry.Link = &feeds.Link{Href: item.Link}
		}
		if item.Author != "" {
			entry.Author = &feeds.Author{Name: item.Author}
		}

		feed.Items = append(feed.Items, entry)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}

	return rss, nil
}

// publishedOrFirstSeen falls back to the ingestion time for items whose feed
// never declared a publication date.
func publishedOrFirstSeen(item database.Item) time.Time {
	if item.PublishedAt != nil {
		return *item.PublishedAt
	}
	return item.FirstSeenAt
}
