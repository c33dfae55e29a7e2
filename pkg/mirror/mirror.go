package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"bad-movie-engine/pkg/nocodb"
)

// Lister is the slice of the datastore client the mirror reads from.
type Lister interface {
	ListPage(ctx context.Context, limit, offset int) ([]nocodb.Row, bool, error)
}

// Mirror copies the NocoDB catalog into a local Postgres table so the
// catalog can be queried and backed up without the hosted instance.
//
// This is intentionally a one-shot, "copy everything" flow.
type Mirror struct {
	source Lister
	db     *sql.DB
}

const pageSize = 200

func New(source Lister, db *sql.DB) (*Mirror, error) {
	if source == nil {
		return nil, fmt.Errorf("source client is required")
	}
	if db == nil {
		return nil, fmt.Errorf("postgres handle is required")
	}
	return &Mirror{source: source, db: db}, nil
}

// Run reads every row from the catalog and upserts it into the bad_movies
// table, keyed by (experiment, title) like the catalog itself.
func (m *Mirror) Run(ctx context.Context) error {
	if err := m.ensureSchema(ctx); err != nil {
		return err
	}

	total := 0
	offset := 0
	for {
		rows, last, err := m.source.ListPage(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}

		for _, row := range rows {
			if err := m.upsertRow(ctx, row); err != nil {
				return err
			}
			total++
		}

		if last || len(rows) == 0 {
			break
		}
		offset += pageSize
	}

	log.Printf("mirror: copied %d catalog rows to postgres", total)
	return nil
}

func (m *Mirror) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS bad_movies (
	id             BIGSERIAL PRIMARY KEY,
	experiment     TEXT NOT NULL,
	title          TEXT NOT NULL,
	year           TEXT,
	link           TEXT,
	date           TEXT,
	host           TEXT,
	poster         TEXT,
	synopsis       TEXT,
	average_rating TEXT,
	director       TEXT,
	actors         TEXT,
	studio         TEXT,
	country        TEXT,
	genres         TEXT,
	runtime        TEXT,
	language       TEXT,
	imdb           TEXT,
	tmdb           TEXT,
	mirrored_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (experiment, title)
)`
	if _, err := m.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure bad_movies schema: %w", err)
	}
	return nil
}

func (m *Mirror) upsertRow(ctx context.Context, row nocodb.Row) error {
	const stmt = `
INSERT INTO bad_movies (
	experiment, title, year, link, date, host, poster, synopsis,
	average_rating, director, actors, studio, country, genres,
	runtime, language, imdb, tmdb, mirrored_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now())
ON CONFLICT (experiment, title) DO UPDATE SET
	year = EXCLUDED.year,
	link = EXCLUDED.link,
	date = EXCLUDED.date,
	host = EXCLUDED.host,
	poster = EXCLUDED.poster,
	synopsis = EXCLUDED.synopsis,
	average_rating = EXCLUDED.average_rating,
	director = EXCLUDED.director,
	actors = EXCLUDED.actors,
	studio = EXCLUDED.studio,
	country = EXCLUDED.country,
	genres = EXCLUDED.genres,
	runtime = EXCLUDED.runtime,
	language = EXCLUDED.language,
	imdb = EXCLUDED.imdb,
	tmdb = EXCLUDED.tmdb,
	mirrored_at = now()`

	experiment := field(row, "experiment")
	title := field(row, "title")
	if experiment == "" || title == "" {
		// Rows without the composite key cannot be mirrored meaningfully
		log.Printf("mirror: skipping row %d without key fields", row.ID())
		return nil
	}

	_, err := m.db.ExecContext(ctx, stmt,
		experiment, title,
		field(row, "year"), field(row, "link"), field(row, "date"),
		field(row, "host"), field(row, "poster"), field(row, "synopsis"),
		field(row, "average_rating"), field(row, "director"), field(row, "actors"),
		field(row, "studio"), field(row, "country"), field(row, "genres"),
		field(row, "runtime"), field(row, "language"), field(row, "imdb"),
		field(row, "tmdb"),
	)
	if err != nil {
		return fmt.Errorf("upsert (%s, %s): %w", experiment, title, err)
	}
	return nil
}

// field reads a row value as a string; NocoDB returns numbers for numeric
// columns, so anything non-nil is stringified.
func field(row nocodb.Row, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
