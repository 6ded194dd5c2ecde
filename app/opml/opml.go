// Package opml exports the feed registry as an OPML subscription list.
package opml

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/feedvault/feedvault/app/database"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element, either a category folder or a
// feed subscription.
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Export renders the given feeds as an OPML 2.0 document. Feeds sharing a
// category are grouped under a folder outline; uncategorized feeds sit at the
// root. Categories are emitted in sorted order so repeated exports of the
// same registry produce identical documents. Within a category, feeds keep
// the order they were given in.
func Export(title string, feeds []database.Feed) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	byCategory := make(map[string][]Outline)
	for _, feed := range feeds {
		byCategory[feed.Category] = append(byCategory[feed.Category], Outline{
			Text:   feed.Name,
			Title:  feed.Name,
			Type:   "rss",
			XMLURL: feed.URL,
		})
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var outlines []Outline
	for _, category := range categories {
		if category == "" {
			outlines = append(outlines, byCategory[category]...)
			continue
		}
		outlines = append(outlines, Outline{
			Text:     category,
			Title:    category,
			Outlines: byCategory[category],
		})
	}
	doc.Body.Outlines = outlines

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OPML: %w", err)
	}

	return append([]byte(xml.Header), output...), nil
}
