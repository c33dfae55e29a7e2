package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bad-movie-engine/pkg/domain"
	"bad-movie-engine/pkg/reconcile"
)

type fakeSource struct {
	posts    []domain.Post
	err      error
	sinceGot time.Time
	allCalls int
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]domain.Post, error) {
	f.allCalls++
	return f.posts, f.err
}

func (f *fakeSource) FetchSince(ctx context.Context, since time.Time) ([]domain.Post, error) {
	f.sinceGot = since
	return f.posts, f.err
}

type fakeFallback struct {
	posts  []domain.Post
	called bool
}

func (f *fakeFallback) FetchSince(ctx context.Context, since time.Time) ([]domain.Post, error) {
	f.called = true
	return f.posts, nil
}

type fakeResolver struct {
	byTitle map[string]*domain.EnrichedMetadata
}

func (f *fakeResolver) Resolve(ctx context.Context, title string, year int, tmdbID string) *domain.EnrichedMetadata {
	return f.byTitle[title]
}

// fakeStore records reconciled rows keyed by (experiment, title) and mimics
// the create-then-update behavior of the real datastore.
type fakeStore struct {
	rows    map[string]domain.CanonicalRecord
	created int
	updated int
	fail    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]domain.CanonicalRecord)}
}

func (f *fakeStore) Reconcile(ctx context.Context, rec domain.CanonicalRecord) reconcile.Result {
	if f.fail {
		return reconcile.Result{Outcome: reconcile.Failed, Err: errors.New("datastore down")}
	}
	key := rec.Experiment + "|" + rec.Title
	if _, ok := f.rows[key]; ok {
		f.rows[key] = rec
		f.updated++
		return reconcile.Result{Outcome: reconcile.Updated, ID: 1}
	}
	f.rows[key] = rec
	f.created++
	return reconcile.Result{Outcome: reconcile.Created, ID: 1}
}

type fakeCursor struct {
	last    time.Time
	saved   []time.Time
	saveErr error
}

func (f *fakeCursor) Load() time.Time { return f.last }

func (f *fakeCursor) Save(t time.Time) error {
	f.saved = append(f.saved, t)
	return f.saveErr
}

type fakeArchiver struct {
	saved    []*domain.ArchivedPost
	links    map[string]bool
	err      error
	linksErr error
}

func (f *fakeArchiver) SavePost(ctx context.Context, post *domain.ArchivedPost) error {
	f.saved = append(f.saved, post)
	return f.err
}

func (f *fakeArchiver) ArchivedLinks(ctx context.Context) (map[string]bool, error) {
	if f.linksErr != nil {
		return nil, f.linksErr
	}
	if f.links == nil {
		return map[string]bool{}, nil
	}
	return f.links, nil
}

// cancelingResolver cancels the run's context during the first lookup, the
// way an OS signal lands mid-run.
type cancelingResolver struct {
	cancel context.CancelFunc
	meta   *domain.EnrichedMetadata
}

func (r *cancelingResolver) Resolve(ctx context.Context, title string, year int, tmdbID string) *domain.EnrichedMetadata {
	r.cancel()
	return r.meta
}

func reviewPost(id int, title string) domain.Post {
	return domain.Post{
		ID:      id,
		Title:   title,
		Date:    "2024-03-01",
		Link:    fmt.Sprintf("https://blog.example/post-%d", id),
		Content: "<p>reviewed</p>",
		Host:    "The Host",
	}
}

func extractOne(title string, year int) func(string) []domain.MovieReference {
	return func(html string) []domain.MovieReference {
		return []domain.MovieReference{{
			Title:  title,
			Year:   year,
			TMDBID: "9001",
			Source: domain.SourceTMDB,
		}}
	}
}

func theStuffMeta() *domain.EnrichedMetadata {
	return &domain.EnrichedMetadata{
		Title:  "The Stuff",
		Year:   1985,
		TMDBID: 9001,
	}
}

func TestRun_FullSync(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	store := newFakeStore()
	cursor := &fakeCursor{}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{byTitle: map[string]*domain.EnrichedMetadata{"The Stuff": theStuffMeta()}},
		Upserter: store,
		Cursor:   cursor,
		Extract:  extractOne("The Stuff", 1985),
	}

	summary, err := orch.Run(context.Background(), ModeFull)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if source.allCalls != 1 {
		t.Errorf("Expected FetchAll called once, got %d", source.allCalls)
	}
	if summary.Posts != 1 || summary.Movies != 1 || summary.Synced != 1 {
		t.Errorf("Unexpected summary: %s", summary)
	}
	if store.created != 1 {
		t.Errorf("Expected 1 created row, got %d", store.created)
	}
	if len(cursor.saved) != 1 {
		t.Fatalf("Expected cursor saved once, got %d", len(cursor.saved))
	}
}

func TestRun_Idempotent(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	store := newFakeStore()

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{byTitle: map[string]*domain.EnrichedMetadata{"The Stuff": theStuffMeta()}},
		Upserter: store,
		Cursor:   &fakeCursor{},
		Extract:  extractOne("The Stuff", 1985),
	}

	for i := 0; i < 2; i++ {
		if _, err := orch.Run(context.Background(), ModeFull); err != nil {
			t.Fatalf("Run %d failed: %v", i+1, err)
		}
	}

	if store.created != 1 || store.updated != 1 {
		t.Errorf("Expected 1 create and 1 update across two runs, got created=%d updated=%d",
			store.created, store.updated)
	}
	if len(store.rows) != 1 {
		t.Errorf("Expected 1 row after two runs, got %d", len(store.rows))
	}
}

func TestRun_SkipsPostsWithoutExperimentOrMovies(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{
		reviewPost(1, "Site news and housekeeping"),   // no experiment number
		reviewPost(2, "Experiment #7: Empty Preview"), // no references
	}}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   &fakeCursor{},
		Extract:  func(html string) []domain.MovieReference { return nil },
	}

	summary, err := orch.Run(context.Background(), ModeFull)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.SkippedPosts != 2 {
		t.Errorf("Expected 2 skipped posts, got %d", summary.SkippedPosts)
	}
	if summary.Movies != 0 || summary.Synced != 0 {
		t.Errorf("Expected nothing processed, got %s", summary)
	}
}

func TestRun_UnresolvedMovieCountsAsMiss(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	store := newFakeStore()

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{}, // resolves nothing
		Upserter: store,
		Cursor:   &fakeCursor{},
		Extract:  extractOne("The Stuff", 1985),
	}

	summary, err := orch.Run(context.Background(), ModeFull)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Movies != 1 || summary.Misses != 1 || summary.Synced != 0 {
		t.Errorf("Expected 1 miss and nothing synced, got %s", summary)
	}
	if len(store.rows) != 0 {
		t.Errorf("Expected no rows written for unresolved movie, got %d", len(store.rows))
	}
}

func TestRun_ReconcileFailureCounted(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	store := newFakeStore()
	store.fail = true
	cursor := &fakeCursor{}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{byTitle: map[string]*domain.EnrichedMetadata{"The Stuff": theStuffMeta()}},
		Upserter: store,
		Cursor:   cursor,
		Extract:  extractOne("The Stuff", 1985),
	}

	summary, err := orch.Run(context.Background(), ModeFull)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Errors != 1 || summary.Synced != 0 {
		t.Errorf("Expected 1 error and nothing synced, got %s", summary)
	}
	// A row-level failure does not abort the run; the cursor still advances.
	if len(cursor.saved) != 1 {
		t.Errorf("Expected cursor saved after run with row failures, got %d saves", len(cursor.saved))
	}
}

func TestRun_FetchFailureLeavesCursorUntouched(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	cursor := &fakeCursor{}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   cursor,
	}

	if _, err := orch.Run(context.Background(), ModeFull); err == nil {
		t.Fatal("Expected error from failed fetch")
	}
	if len(cursor.saved) != 0 {
		t.Errorf("Expected no cursor save after fatal fetch failure, got %d saves", len(cursor.saved))
	}
}

func TestRun_DeltaUsesCursor(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{posts: []domain.Post{}}
	cursor := &fakeCursor{last: last}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   cursor,
	}

	if _, err := orch.Run(context.Background(), ModeDelta); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !source.sinceGot.Equal(last) {
		t.Errorf("Expected FetchSince called with stored watermark %v, got %v", last, source.sinceGot)
	}
	if len(cursor.saved) != 1 {
		t.Errorf("Expected cursor advanced after delta run, got %d saves", len(cursor.saved))
	}
}

func TestRun_DeltaFallsBackToFeed(t *testing.T) {
	source := &fakeSource{err: errors.New("api down")}
	fallback := &fakeFallback{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	store := newFakeStore()

	orch := &Orchestrator{
		Source:   source,
		Fallback: fallback,
		Resolver: &fakeResolver{byTitle: map[string]*domain.EnrichedMetadata{"The Stuff": theStuffMeta()}},
		Upserter: store,
		Cursor:   &fakeCursor{last: time.Now().Add(-time.Hour)},
		Extract:  extractOne("The Stuff", 1985),
	}

	summary, err := orch.Run(context.Background(), ModeDelta)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !fallback.called {
		t.Fatal("Expected feed fallback to be consulted")
	}
	if summary.Synced != 1 {
		t.Errorf("Expected fallback posts processed, got %s", summary)
	}
}

func TestRun_ArchivesFetchedPosts(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{
		reviewPost(1, "Experiment #42: The Stuff"),
		reviewPost(2, "Experiment #43: Troll 2"),
	}}
	archiver := &fakeArchiver{}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   &fakeCursor{},
		Archiver: archiver,
		Extract:  func(html string) []domain.MovieReference { return nil },
	}

	if _, err := orch.Run(context.Background(), ModeFull); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(archiver.saved) != 2 {
		t.Fatalf("Expected 2 archived posts, got %d", len(archiver.saved))
	}
	if archiver.saved[0].Link != "https://blog.example/post-1" || archiver.saved[0].ArchivedAt.IsZero() {
		t.Errorf("Archived post missing fields: %+v", archiver.saved[0])
	}
}

func TestRun_ArchiveSkipsAlreadyArchivedPosts(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{
		reviewPost(1, "Experiment #42: The Stuff"),
		reviewPost(2, "Experiment #43: Troll 2"),
	}}
	archiver := &fakeArchiver{links: map[string]bool{"https://blog.example/post-1": true}}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   &fakeCursor{},
		Archiver: archiver,
		Extract:  func(html string) []domain.MovieReference { return nil },
	}

	if _, err := orch.Run(context.Background(), ModeFull); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(archiver.saved) != 1 {
		t.Fatalf("Expected only the new post archived, got %d saves", len(archiver.saved))
	}
	if archiver.saved[0].Link != "https://blog.example/post-2" {
		t.Errorf("Expected the unarchived post saved, got %q", archiver.saved[0].Link)
	}
}

func TestRun_ArchiveListFailureArchivesEverything(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	archiver := &fakeArchiver{linksErr: errors.New("mongo down")}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   &fakeCursor{},
		Archiver: archiver,
		Extract:  func(html string) []domain.MovieReference { return nil },
	}

	if _, err := orch.Run(context.Background(), ModeFull); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(archiver.saved) != 1 {
		t.Errorf("Expected post archived despite link listing failure, got %d saves", len(archiver.saved))
	}
}

func TestRun_CancellationLeavesCursorUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{posts: []domain.Post{
		reviewPost(1, "Experiment #42: The Stuff"),
		reviewPost(2, "Experiment #43: Troll 2"),
	}}
	store := newFakeStore()
	cursor := &fakeCursor{}

	orch := &Orchestrator{
		Source:   source,
		Resolver: &cancelingResolver{cancel: cancel, meta: theStuffMeta()},
		Upserter: store,
		Cursor:   cursor,
		Extract:  extractOne("The Stuff", 1985),
	}

	summary, err := orch.Run(ctx, ModeFull)
	if err == nil {
		t.Fatal("Expected error from interrupted run")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	// The first post completed before the interrupt landed
	if summary.Synced != 1 || store.created != 1 {
		t.Errorf("Expected the first post synced, got %s", summary)
	}
	// The second never ran; the cursor must not advance past it
	if len(cursor.saved) != 0 {
		t.Errorf("Expected no cursor save after interrupted run, got %d saves", len(cursor.saved))
	}
}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{posts: []domain.Post{reviewPost(1, "Experiment #42: The Stuff")}}
	archiver := &fakeArchiver{err: errors.New("mongo down")}
	store := newFakeStore()

	orch := &Orchestrator{
		Source:   source,
		Resolver: &fakeResolver{byTitle: map[string]*domain.EnrichedMetadata{"The Stuff": theStuffMeta()}},
		Upserter: store,
		Cursor:   &fakeCursor{},
		Archiver: archiver,
		Extract:  extractOne("The Stuff", 1985),
	}

	summary, err := orch.Run(context.Background(), ModeFull)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Synced != 1 {
		t.Errorf("Expected movie synced despite archive failure, got %s", summary)
	}
}

func TestRun_InvalidMode(t *testing.T) {
	orch := &Orchestrator{
		Source:   &fakeSource{},
		Resolver: &fakeResolver{},
		Upserter: newFakeStore(),
		Cursor:   &fakeCursor{},
	}
	if _, err := orch.Run(context.Background(), Mode("weekly")); err == nil {
		t.Fatal("Expected error for unknown mode")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("full"); err != nil || m != ModeFull {
		t.Errorf("ParseMode(full) = %v, %v", m, err)
	}
	if m, err := ParseMode("delta"); err != nil || m != ModeDelta {
		t.Errorf("ParseMode(delta) = %v, %v", m, err)
	}
	if _, err := ParseMode("incremental"); err == nil {
		t.Error("Expected error for unknown mode string")
	}
}
