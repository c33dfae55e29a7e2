package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"bad-movie-engine/pkg/domain"
	"bad-movie-engine/pkg/tmdb"
)

var (
	experimentRe = regexp.MustCompile(`(?i)Experiment\s*#?(\d+)`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// ExperimentNumber extracts the experiment number from a post title.
// Returns "" when the title carries no recognizable number; such posts
// produce no records.
func ExperimentNumber(title string) string {
	m := experimentRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}

// Normalize merges post provenance, the extracted reference and the
// enrichment result into one canonical record. Layering is strict:
// provenance first, reference fields on top, enrichment fields last
// (enrichment wins on collision). enriched may be nil; the record then
// carries whatever provenance and reference supplied.
func Normalize(post domain.Post, ref domain.MovieReference, enriched *domain.EnrichedMetadata) domain.CanonicalRecord {
	rec := domain.CanonicalRecord{
		Experiment: ExperimentNumber(post.Title),
		Link:       post.Link,
		Date:       post.Date,
		Image:      post.Image,
		Host:       post.Host,
	}

	rec.Title = ref.Title
	rec.Year = ref.Year
	rec.TMDBID = ref.TMDBID
	rec.IMDBID = ref.IMDBID
	if ref.Source == domain.SourceTMDB {
		rec.TMDBURL = ref.RawLink
	}

	if enriched == nil {
		return rec
	}

	if enriched.Title != "" {
		rec.Title = enriched.Title
	}
	if enriched.Year > 0 {
		rec.Year = enriched.Year
	}
	rec.Poster = enriched.Poster
	rec.Synopsis = enriched.Overview
	rec.AverageRating = enriched.VoteAverage
	rec.Director = enriched.Director
	rec.Actors = enriched.Actors
	rec.Studio = enriched.Studio
	rec.Country = enriched.Country
	rec.Genres = enriched.Genres
	rec.Runtime = enriched.Runtime
	rec.Language = enriched.Language
	if enriched.IMDBID != "" {
		rec.IMDBID = enriched.IMDBID
	}
	if enriched.TMDBID > 0 {
		rec.TMDBID = strconv.Itoa(enriched.TMDBID)
	}
	if enriched.TMDBURL != "" {
		rec.TMDBURL = enriched.TMDBURL
	}

	return rec
}

// Payload prepares the datastore field map for a record. The experiment
// number is coerced to digits only, genres are flattened, and a bare
// 2-letter language code that slipped through without enrichment is
// translated with the same table the resolver uses.
func Payload(rec domain.CanonicalRecord) map[string]interface{} {
	language := rec.Language
	if len(language) == 2 {
		language = tmdb.LanguageName(language)
	}

	payload := map[string]interface{}{
		"experiment":     CleanExperimentNumber(rec.Experiment),
		"title":          rec.Title,
		"link":           rec.Link,
		"image":          rec.Image,
		"host":           rec.Host,
		"poster":         rec.Poster,
		"synopsis":       rec.Synopsis,
		"average_rating": rec.AverageRating,
		"director":       rec.Director,
		"actors":         rec.Actors,
		"studio":         rec.Studio,
		"country":        rec.Country,
		"genres":         strings.Join(rec.Genres, ", "),
		"language":       language,
		"imdb":           rec.IMDBID,
		"tmdb":           rec.TMDBID,
		"tmdb_url":       rec.TMDBURL,
	}

	if rec.Date != "" {
		payload["date"] = rec.Date
	} else {
		payload["date"] = nil
	}
	if rec.Year > 0 {
		payload["year"] = rec.Year
	} else {
		payload["year"] = ""
	}
	if rec.Runtime > 0 {
		payload["runtime"] = rec.Runtime
	} else {
		payload["runtime"] = ""
	}

	return payload
}

// CleanExperimentNumber strips everything but digits from an experiment
// number so "Experiment #12b" and "12" key the same row.
func CleanExperimentNumber(experiment string) string {
	return nonDigitRe.ReplaceAllString(experiment, "")
}
