package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint computes the stable content identity of an item. Identity
// prefers the strongest signal available: the canonical link, then the title
// combined with the published time, then the content text. Feeds routinely
// re-serve byte-different documents for the same article, so hashing
// identity material instead of the raw record keeps the same article stable
// across refreshes and across feeds.
//
// Each kind of material is prefixed with its field name so equal strings
// from different fields can never collide. Returns ok = false when the item
// carries nothing to identify it by.
func Fingerprint(item Item) (string, bool) {
	var material string

	switch {
	case strings.TrimSpace(item.Link) != "":
		material = "link|" + normalize(item.Link)
	case strings.TrimSpace(item.Title) != "":
		material = "title|" + normalize(item.Title) + "|" + formatPublished(item.PublishedAt)
	case strings.TrimSpace(item.Content) != "":
		material = "content|" + normalize(item.Content)
	default:
		return "", false
	}

	hash := sha256.Sum256([]byte(material))
	return hex.EncodeToString(hash[:]), true
}

// normalize canonicalizes identity material before hashing: NFC composition
// makes byte-different renderings of the same characters hash identically,
// and case plus surrounding whitespace are ignored.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

func formatPublished(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
