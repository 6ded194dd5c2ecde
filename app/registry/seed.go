package registry

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk format of the feed registry seed.
type SeedFile struct {
	Feeds []SeedEntry `yaml:"feeds"`
}

// SeedEntry declares a single subscription in the seed file.
type SeedEntry struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Category       string `yaml:"category"`
	ExtractContent bool   `yaml:"extract_content"`
}

// LoadSeedFile reads and validates the seed file at path. A missing file is
// not an error: the registry can be driven entirely through the API.
func LoadSeedFile(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, entry := range file.Feeds {
		if err := validateEntry(entry); err != nil {
			return nil, fmt.Errorf("invalid feed entry at index %d: %w", i, err)
		}
	}

	return file.Feeds, nil
}

func validateEntry(entry SeedEntry) error {
	if entry.Name == "" {
		return fmt.Errorf("feed name is required")
	}
	if entry.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	parsed, err := url.Parse(entry.URL)
	if err != nil {
		return fmt.Errorf("invalid feed URL '%s': %w", entry.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("feed URL '%s' must use http or https", entry.URL)
	}

	return nil
}
