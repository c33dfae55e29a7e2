package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"bad-movie-engine/pkg/content"
	"bad-movie-engine/pkg/domain"
	"bad-movie-engine/pkg/extract"
	"bad-movie-engine/pkg/normalize"
	"bad-movie-engine/pkg/reconcile"
)

// Mode selects how the orchestrator fetches posts.
type Mode string

const (
	// ModeFull walks the entire post collection.
	ModeFull Mode = "full"
	// ModeDelta fetches only posts published after the stored watermark.
	ModeDelta Mode = "delta"
)

// ParseMode validates a CLI mode argument.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeDelta:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid sync mode %q: use \"full\" or \"delta\"", s)
	}
}

// PostSource provides posts from the content API.
type PostSource interface {
	FetchAll(ctx context.Context) ([]domain.Post, error)
	FetchSince(ctx context.Context, since time.Time) ([]domain.Post, error)
}

// FallbackSource provides recent posts when the primary source is down.
type FallbackSource interface {
	FetchSince(ctx context.Context, since time.Time) ([]domain.Post, error)
}

// Resolver resolves a movie reference to canonical metadata. nil means no
// confident match; that movie is skipped, not failed.
type Resolver interface {
	Resolve(ctx context.Context, title string, year int, tmdbID string) *domain.EnrichedMetadata
}

// Upserter reconciles a canonical record against the datastore.
type Upserter interface {
	Reconcile(ctx context.Context, rec domain.CanonicalRecord) reconcile.Result
}

// CursorStore persists the sync watermark between runs.
type CursorStore interface {
	Load() time.Time
	Save(t time.Time) error
}

// Archiver keeps raw copies of fetched posts. Optional.
type Archiver interface {
	SavePost(ctx context.Context, post *domain.ArchivedPost) error
	ArchivedLinks(ctx context.Context) (map[string]bool, error)
}

// Summary aggregates one run's counters.
type Summary struct {
	Posts        int // posts fetched
	SkippedPosts int // no experiment number or no references
	Movies       int // references found
	Synced       int // created or updated rows
	Misses       int // references with no TMDb match
	Errors       int // reconciliation failures
}

func (s Summary) String() string {
	return fmt.Sprintf("posts=%d skipped=%d movies=%d synced=%d misses=%d errors=%d",
		s.Posts, s.SkippedPosts, s.Movies, s.Synced, s.Misses, s.Errors)
}

// Orchestrator drives one sync run end to end: fetch posts, extract
// references, enrich, reconcile, then persist the watermark. Processing is
// strictly sequential with fixed pacing delays; the external APIs are
// rate-limited and a personal catalog has no need for overlap.
type Orchestrator struct {
	Source   PostSource
	Fallback FallbackSource // optional, consulted in delta mode only
	Resolver Resolver
	Upserter Upserter
	Cursor   CursorStore
	Archiver Archiver // optional

	// Extract overrides the reference extractor. Tests use this; the default
	// is extract.Extract.
	Extract func(html string) []domain.MovieReference

	// MovieDelay is the pause between TMDb lookups.
	MovieDelay time.Duration
}

// Run executes one sync in the given mode. A fetch failure or a cancelled
// context is fatal and leaves the cursor untouched, so the posts an
// interrupted run never reached stay inside the next run's window.
// Row-level failures are counted and survived.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (Summary, error) {
	var posts []domain.Post
	var err error

	switch mode {
	case ModeFull:
		log.Printf("pipeline: starting FULL sync")
		posts, err = o.Source.FetchAll(ctx)
	case ModeDelta:
		since := o.Cursor.Load()
		log.Printf("pipeline: starting DELTA sync for posts since %s", since.Format(time.RFC3339))
		posts, err = o.Source.FetchSince(ctx, since)
		if err != nil && o.Fallback != nil {
			log.Printf("pipeline: content API unreachable (%v), falling back to feed", err)
			posts, err = o.Fallback.FetchSince(ctx, since)
		}
	default:
		return Summary{}, fmt.Errorf("invalid sync mode %q", mode)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("fetch posts: %w", err)
	}

	if o.Archiver != nil {
		o.archivePosts(ctx, posts)
	}

	summary, err := o.processPosts(ctx, posts)
	if err != nil {
		return summary, fmt.Errorf("processing interrupted: %w", err)
	}

	if err := o.Cursor.Save(time.Now()); err != nil {
		log.Printf("pipeline: error updating last sync time: %v", err)
	}

	log.Printf("pipeline: run complete: %s", summary)
	return summary, nil
}

func (o *Orchestrator) processPosts(ctx context.Context, posts []domain.Post) (Summary, error) {
	summary := Summary{Posts: len(posts)}
	if len(posts) == 0 {
		log.Printf("pipeline: no posts to process")
		return summary, nil
	}

	extractFn := o.Extract
	if extractFn == nil {
		extractFn = extract.Extract
	}

	for _, post := range posts {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		log.Printf("pipeline: processing %q", post.Title)

		experiment := normalize.ExperimentNumber(post.Title)
		if experiment == "" {
			log.Printf("pipeline: no experiment number in %q, skipping", post.Title)
			summary.SkippedPosts++
			continue
		}

		movies := extractFn(post.Content)
		if len(movies) == 0 {
			log.Printf("pipeline: no movies found in %q, skipping", post.Title)
			summary.SkippedPosts++
			continue
		}
		log.Printf("pipeline: experiment %s has %d movies", experiment, len(movies))

		for _, ref := range movies {
			summary.Movies++
			o.processMovie(ctx, post, ref, &summary)
			time.Sleep(o.MovieDelay)
		}
	}

	return summary, nil
}

func (o *Orchestrator) processMovie(ctx context.Context, post domain.Post, ref domain.MovieReference, summary *Summary) {
	enriched := o.Resolver.Resolve(ctx, ref.Title, ref.Year, ref.TMDBID)
	if enriched == nil {
		log.Printf("pipeline: no TMDb match for %q, skipping", ref.Title)
		summary.Misses++
		return
	}

	rec := normalize.Normalize(post, ref, enriched)

	res := o.Upserter.Reconcile(ctx, rec)
	switch res.Outcome {
	case reconcile.Created, reconcile.Updated:
		summary.Synced++
	default:
		log.Printf("pipeline: failed to sync %q: %v", rec.Title, res.Err)
		summary.Errors++
	}
}

// archivePosts saves raw copies of the fetched posts. Posts already in the
// archive are left alone, so the archived copy is the one that was live when
// the post first appeared. Archive failures are logged and ignored; the
// archive is an audit trail, not a dependency.
func (o *Orchestrator) archivePosts(ctx context.Context, posts []domain.Post) {
	archived, err := o.Archiver.ArchivedLinks(ctx)
	if err != nil {
		log.Printf("pipeline: error listing archived posts: %v", err)
		archived = map[string]bool{}
	}

	for _, post := range posts {
		if archived[post.Link] {
			continue
		}
		text, err := content.ExtractText(post.Content)
		if err != nil {
			text = ""
		}

		raw := &domain.ArchivedPost{
			Link:       post.Link,
			Title:      post.Title,
			Date:       post.Date,
			Content:    post.Content,
			Text:       text,
			Host:       post.Host,
			ArchivedAt: time.Now(),
		}
		if err := o.Archiver.SavePost(ctx, raw); err != nil {
			log.Printf("pipeline: error archiving %s: %v", post.Link, err)
		}
	}
}
