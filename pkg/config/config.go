package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every external endpoint and credential the pipeline needs.
// It is built once in main and passed into components; nothing below main
// reads the environment.
type Config struct {
	// WordPressURL is the posts endpoint, e.g.
	// "https://example.com/wp-json/wp/v2/posts".
	WordPressURL string
	// FeedURL is the blog's RSS feed, used as a delta-mode fallback when
	// the REST API is unreachable. Optional.
	FeedURL string

	TMDBAPIKey  string
	TMDBBaseURL string

	NocoDBURL      string
	NocoDBProject  string
	NocoDBTable    string
	NocoDBToken    string
	TitleMatchLike bool // legacy substring title matching on lookup

	// MongoURI enables the raw post archive when set. Optional.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// PostgresDSN enables the local catalog mirror when set. Optional.
	PostgresDSN string

	LastSyncFile string

	PageDelay  time.Duration // pause between WordPress pages
	MovieDelay time.Duration // pause between TMDb lookups
}

// Load reads the environment into a Config, applying documented defaults but
// no validation. Tools that need only a slice of the config (the mirror) use
// this directly.
func Load() Config {
	return Config{
		WordPressURL:    os.Getenv("WORDPRESS_URL"),
		FeedURL:         os.Getenv("WORDPRESS_FEED_URL"),
		TMDBAPIKey:      os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL:     getenvDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		NocoDBURL:       getenvDefault("NOCODB_URL", "https://portal.dasco.services"),
		NocoDBProject:   getenvDefault("NOCODB_PROJECT_ID", "ppucstzqjsxvf2y"),
		NocoDBTable:     getenvDefault("NOCODB_TABLE_ID", "m1mabuzifrwzg1h"),
		NocoDBToken:     os.Getenv("NOCODB_API_TOKEN"),
		TitleMatchLike:  os.Getenv("NOCODB_TITLE_LIKE") == "1",
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   getenvDefault("MONGO_DB", "badmovies"),
		MongoCollection: getenvDefault("MONGO_COLLECTION", "posts"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		LastSyncFile:    getenvDefault("LAST_SYNC_FILE", "last_sync.json"),
		PageDelay:       durationDefault("PAGE_DELAY_MS", 300*time.Millisecond),
		MovieDelay:      durationDefault("MOVIE_DELAY_MS", 500*time.Millisecond),
	}
}

// FromEnv loads the configuration and validates everything the sync pipeline
// requires.
func FromEnv() (Config, error) {
	cfg := Load()

	if cfg.WordPressURL == "" {
		return Config{}, fmt.Errorf("WORDPRESS_URL is required")
	}
	if cfg.TMDBAPIKey == "" {
		return Config{}, fmt.Errorf("TMDB_API_KEY is required")
	}
	if cfg.NocoDBToken == "" {
		return Config{}, fmt.Errorf("NOCODB_API_TOKEN is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
