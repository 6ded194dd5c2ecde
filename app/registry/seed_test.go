package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feeds.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadSeedFile_Valid(t *testing.T) {
	path := writeSeedFile(t, `
feeds:
  - name: "Ars Technica"
    url: "https://feeds.arstechnica.com/arstechnica/index"
    category: "tech"
    extract_content: true
  - name: "BBC World"
    url: "https://feeds.bbci.co.uk/news/world/rss.xml"
    category: "news"
`)

	entries, err := LoadSeedFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].Name != "Ars Technica" {
		t.Errorf("Expected name 'Ars Technica', got '%s'", entries[0].Name)
	}
	if entries[0].URL != "https://feeds.arstechnica.com/arstechnica/index" {
		t.Errorf("Unexpected URL: %s", entries[0].URL)
	}
	if entries[0].Category != "tech" {
		t.Errorf("Expected category 'tech', got '%s'", entries[0].Category)
	}
	if !entries[0].ExtractContent {
		t.Errorf("Expected extract_content to be true")
	}

	if entries[1].Name != "BBC World" {
		t.Errorf("Expected name 'BBC World', got '%s'", entries[1].Name)
	}
	if entries[1].ExtractContent {
		t.Errorf("Expected extract_content to default to false")
	}
}

func TestLoadSeedFile_MinimalEntry(t *testing.T) {
	path := writeSeedFile(t, `
feeds:
  - name: "Lobsters"
    url: "https://lobste.rs/rss"
`)

	entries, err := LoadSeedFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	if entries[0].Category != "" {
		t.Errorf("Expected empty category, got '%s'", entries[0].Category)
	}
	if entries[0].ExtractContent {
		t.Errorf("Expected extract_content to default to false")
	}
}

func TestLoadSeedFile_MissingFile(t *testing.T) {
	entries, err := LoadSeedFile(filepath.Join(t.TempDir(), "does-not-exist.yml"))

	if err != nil {
		t.Errorf("Expected no error for missing seed file, got: %v", err)
	}
	if entries != nil {
		t.Errorf("Expected nil entries for missing seed file, got %d", len(entries))
	}
}

func TestLoadSeedFile_MalformedYAML(t *testing.T) {
	path := writeSeedFile(t, "feeds: [unclosed")

	_, err := LoadSeedFile(path)
	if err == nil {
		t.Errorf("Expected error for malformed YAML")
	}
}

func TestLoadSeedFile_MissingName(t *testing.T) {
	path := writeSeedFile(t, `
feeds:
  - name: "Valid Feed"
    url: "https://example.com/feed.xml"
  - url: "https://example.com/other.xml"
`)

	_, err := LoadSeedFile(path)
	if err == nil {
		t.Fatalf("Expected error for entry without name")
	}

	if !strings.Contains(err.Error(), "index 1") {
		t.Errorf("Expected error to name the offending entry, got: %v", err)
	}
	if !strings.Contains(err.Error(), "feed name is required") {
		t.Errorf("Expected name validation error, got: %v", err)
	}
}

func TestLoadSeedFile_MissingURL(t *testing.T) {
	path := writeSeedFile(t, `
feeds:
  - name: "No URL"
`)

	_, err := LoadSeedFile(path)
	if err == nil {
		t.Fatalf("Expected error for entry without URL")
	}

	if !strings.Contains(err.Error(), "feed URL is required") {
		t.Errorf("Expected URL validation error, got: %v", err)
	}
}

func TestLoadSeedFile_RejectsNonHTTPURL(t *testing.T) {
	path := writeSeedFile(t, `
feeds:
  - name: "FTP Feed"
    url: "ftp://example.com/feed.xml"
`)

	_, err := LoadSeedFile(path)
	if err == nil {
		t.Fatalf("Expected error for non-HTTP URL")
	}

	if !strings.Contains(err.Error(), "must use http or https") {
		t.Errorf("Expected scheme validation error, got: %v", err)
	}
}
