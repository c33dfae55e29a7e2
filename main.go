package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"bad-movie-engine/pkg/config"
	"bad-movie-engine/pkg/cursor"
	"bad-movie-engine/pkg/db"
	"bad-movie-engine/pkg/nocodb"
	"bad-movie-engine/pkg/pipeline"
	"bad-movie-engine/pkg/reconcile"
	"bad-movie-engine/pkg/tmdb"
	"bad-movie-engine/pkg/wordpress"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, `Invalid sync mode. Please use "full" or "delta".`)
		os.Exit(1)
	}

	mode, err := pipeline.ParseMode(strings.ToLower(os.Args[1]))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()

	store := nocodb.NewClient(nocodb.Config{
		URL:            cfg.NocoDBURL,
		Project:        cfg.NocoDBProject,
		Table:          cfg.NocoDBTable,
		Token:          cfg.NocoDBToken,
		TitleMatchLike: cfg.TitleMatchLike,
	})

	orch := &pipeline.Orchestrator{
		Source:     wordpress.NewFetcher(cfg.WordPressURL, cfg.PageDelay),
		Resolver:   tmdb.NewClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey),
		Upserter:   reconcile.New(store),
		Cursor:     &cursor.Store{Path: cfg.LastSyncFile},
		MovieDelay: cfg.MovieDelay,
	}

	if cfg.FeedURL != "" {
		orch.Fallback = wordpress.NewFeedFetcher(cfg.FeedURL)
	}

	if cfg.MongoURI != "" {
		archive := db.NewArchiveClient(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err := archive.Connect(ctx); err != nil {
			log.Printf("Post archive unavailable, continuing without it: %v", err)
		} else {
			defer archive.Close(ctx)
			orch.Archiver = archive
		}
	}

	if _, err := orch.Run(ctx, mode); err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
}
