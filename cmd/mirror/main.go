package main

import (
	"context"
	"flag"
	"log"
	"time"

	"bad-movie-engine/pkg/config"
	"bad-movie-engine/pkg/db"
	"bad-movie-engine/pkg/mirror"
	"bad-movie-engine/pkg/nocodb"
)

func main() {
	cfg := config.Load()

	var (
		dsn       = flag.String("dsn", cfg.PostgresDSN, "Postgres DSN for the local mirror")
		nocodbURL = flag.String("nocodb-url", cfg.NocoDBURL, "NocoDB instance URL")
		project   = flag.String("project", cfg.NocoDBProject, "NocoDB project id")
		table     = flag.String("table", cfg.NocoDBTable, "NocoDB table id")
	)
	flag.Parse()

	if cfg.NocoDBToken == "" {
		log.Fatal("NOCODB_API_TOKEN is required")
	}
	if *dsn == "" {
		log.Fatal("Postgres DSN is required (-dsn or POSTGRES_DSN)")
	}

	ctx := context.Background()

	pg := db.NewPostgresClient(db.PostgresConfig{DSN: *dsn})
	if err := pg.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pg.Close()

	source := nocodb.NewClient(nocodb.Config{
		URL:     *nocodbURL,
		Project: *project,
		Table:   *table,
		Token:   cfg.NocoDBToken,
	})

	m, err := mirror.New(source, pg.DB())
	if err != nil {
		log.Fatalf("Failed to build mirror: %v", err)
	}

	start := time.Now()
	if err := m.Run(ctx); err != nil {
		log.Fatalf("Mirror failed: %v", err)
	}
	log.Printf("Done. Duration: %s", time.Since(start))
}
