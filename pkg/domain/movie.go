package domain

// SourceKind identifies which external movie database a reference was
// extracted from.
type SourceKind string

const (
	SourceTMDB SourceKind = "tmdb"
	SourceIMDB SourceKind = "imdb"
	SourceNone SourceKind = "none"
)

// MovieReference is a movie mention extracted from a post's HTML,
// prior to enrichment. Title is always non-empty.
type MovieReference struct {
	Title   string
	Year    int // 0 when the link text carried no year
	TMDBID  string
	IMDBID  string
	Source  SourceKind
	RawLink string
}

// EnrichedMetadata is canonical movie metadata from TMDb. A nil value is a
// valid outcome for a reference that could not be matched confidently.
type EnrichedMetadata struct {
	Title            string
	OriginalTitle    string
	Year             int
	ReleaseDate      string
	Runtime          int
	Overview         string
	Poster           string
	VoteAverage      float64
	Genres           []string
	Director         string // comma-joined, source order
	Actors           string // top 5 cast, comma-joined, source order
	Studio           string
	Country          string
	Language         string // display name, "Unknown" when missing
	OriginalLanguage string
	TMDBID           int
	IMDBID           string
	TMDBURL          string
}

// CanonicalRecord is the merged output of post provenance, extracted
// reference and enrichment, identified by the (Experiment, Title) pair.
type CanonicalRecord struct {
	Experiment    string
	Title         string
	Link          string // post URL
	Date          string
	Image         string
	Host          string
	Year          int
	Poster        string
	Synopsis      string
	AverageRating float64
	Director      string
	Actors        string
	Studio        string
	Country       string
	Genres        []string
	Runtime       int
	Language      string
	IMDBID        string
	TMDBID        string
	TMDBURL       string
}
