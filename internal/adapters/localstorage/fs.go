package localstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"adscout/internal/core/domain"
)

// LocalStorage archives scrape requests and their results on the local
// filesystem, one directory per scrape.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// SaveScrape writes request.json and result.json under a fresh scrape
// directory and returns that directory.
func (s *LocalStorage) SaveScrape(ctx context.Context, req domain.ScrapeRequest, res *domain.ScrapeResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := s.GetScrapePath(uuid.NewString())
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create scrape directory %s: %w", path, err)
	}
	if err := writeJSON(filepath.Join(path, "request.json"), req); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(path, "result.json"), res); err != nil {
		return "", err
	}
	return path, nil
}

// GetScrapePath returns the path for a scrape directory.
func (s *LocalStorage) GetScrapePath(scrapeID string) string {
	return filepath.Join(s.BaseDir, "scrapes", scrapeID)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}
