package cursor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Store persists the sync watermark as a small JSON file:
// {"lastSync": "<RFC3339>"}.
type Store struct {
	Path string
}

type fileFormat struct {
	LastSync string `json:"lastSync"`
}

// Load reads the last sync time. A missing or unreadable file falls back to
// 24 hours before now, so a fresh install's first delta run picks up the most
// recent day of posts.
func (s *Store) Load() time.Time {
	fallback := time.Now().Add(-24 * time.Hour)

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("cursor: error reading %s: %v", s.Path, err)
		}
		return fallback
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("cursor: error parsing %s: %v", s.Path, err)
		return fallback
	}

	t, err := time.Parse(time.RFC3339, f.LastSync)
	if err != nil {
		log.Printf("cursor: invalid timestamp in %s: %v", s.Path, err)
		return fallback
	}
	return t
}

// Save writes the watermark. The write goes through a temp file and rename so
// an interrupted run cannot leave a truncated cursor behind.
func (s *Store) Save(t time.Time) error {
	data, err := json.Marshal(fileFormat{LastSync: t.UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "last_sync-*.json")
	if err != nil {
		return fmt.Errorf("create temp cursor file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cursor: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cursor file: %w", err)
	}
	return nil
}
