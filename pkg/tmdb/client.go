package tmdb

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"bad-movie-engine/pkg/domain"
	"bad-movie-engine/pkg/httpclient"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// quoteCleaner normalizes curly quotes in titles before they go into a
// search query; TMDb matches better on plain apostrophes.
var quoteCleaner = strings.NewReplacer("‘", "'", "’", "'", "“", "'", "”", "'")

// Client talks to the TMDb v3 API.
type Client struct {
	client  *httpclient.HTTPClient
	baseURL string
	apiKey  string
}

// NewClient creates a TMDb client. baseURL is normally
// "https://api.themoviedb.org/3"; tests point it at a fake server.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client:  httpclient.NewClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type movieResponse struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	ReleaseDate      string  `json:"release_date"`
	Runtime          int     `json:"runtime"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
	IMDBID           string  `json:"imdb_id"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	ProductionCountries []struct {
		Name string `json:"name"`
	} `json:"production_countries"`
	Credits struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

type searchResponse struct {
	Results []struct {
		ID          int    `json:"id"`
		ReleaseDate string `json:"release_date"`
	} `json:"results"`
}

// Resolve finds canonical metadata for a movie reference. A known TMDb id is
// fetched directly; otherwise the title (and year, when known) is searched
// and the best candidate's full record fetched. Every internal failure,
// including a clean not-found, collapses to nil; reconciliation of the other
// movies in a post must not depend on one lookup succeeding.
func (c *Client) Resolve(ctx context.Context, title string, year int, tmdbID string) *domain.EnrichedMetadata {
	if tmdbID != "" {
		meta, err := c.fetchByID(ctx, tmdbID)
		if err != nil {
			log.Printf("tmdb: fetch by id %s failed: %v", tmdbID, err)
			return nil
		}
		return meta
	}

	meta, err := c.searchByTitle(ctx, title, year)
	if err != nil {
		log.Printf("tmdb: search for %q failed: %v", title, err)
		return nil
	}
	return meta
}

// fetchByID retrieves a movie's full record, credits included.
func (c *Client) fetchByID(ctx context.Context, id string) (*domain.EnrichedMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/movie/%s?api_key=%s&append_to_response=credits", c.baseURL, id, c.apiKey)

	var data movieResponse
	if err := c.client.GetJSON(u, nil, &data); err != nil {
		return nil, err
	}
	return buildMetadata(data), nil
}

// searchByTitle searches for a movie and fetches the best match's record.
// With a year, a result matching that release year exactly wins; otherwise
// the first (most relevant) result is used.
func (c *Client) searchByTitle(ctx context.Context, title string, year int) (*domain.EnrichedMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := url.QueryEscape(quoteCleaner.Replace(title))
	u := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s", c.baseURL, c.apiKey, query)
	if year > 0 {
		u += fmt.Sprintf("&year=%d", year)
	}

	var data searchResponse
	if err := c.client.GetJSON(u, nil, &data); err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, fmt.Errorf("no results for %q", title)
	}

	if year > 0 {
		want := strconv.Itoa(year)
		for _, r := range data.Results {
			if len(r.ReleaseDate) >= 4 && r.ReleaseDate[:4] == want {
				return c.fetchByID(ctx, strconv.Itoa(r.ID))
			}
		}
	}

	return c.fetchByID(ctx, strconv.Itoa(data.Results[0].ID))
}

// buildMetadata applies the field derivation rules to a raw TMDb response.
func buildMetadata(data movieResponse) *domain.EnrichedMetadata {
	var directors []string
	for _, p := range data.Credits.Crew {
		if p.Job == "Director" {
			directors = append(directors, p.Name)
		}
	}

	var cast []string
	for i, p := range data.Credits.Cast {
		if i >= 5 {
			break
		}
		cast = append(cast, p.Name)
	}

	poster := ""
	if data.PosterPath != "" {
		poster = posterBaseURL + data.PosterPath
	}

	year := 0
	if len(data.ReleaseDate) >= 4 {
		year, _ = strconv.Atoi(data.ReleaseDate[:4])
	}

	genres := make([]string, 0, len(data.Genres))
	for _, g := range data.Genres {
		genres = append(genres, g.Name)
	}

	var companies []string
	for _, co := range data.ProductionCompanies {
		companies = append(companies, co.Name)
	}
	var countries []string
	for _, co := range data.ProductionCountries {
		countries = append(countries, co.Name)
	}

	return &domain.EnrichedMetadata{
		Title:            data.Title,
		OriginalTitle:    data.OriginalTitle,
		Year:             year,
		ReleaseDate:      data.ReleaseDate,
		Runtime:          data.Runtime,
		Overview:         data.Overview,
		Poster:           poster,
		VoteAverage:      data.VoteAverage,
		Genres:           genres,
		Director:         strings.Join(directors, ", "),
		Actors:           strings.Join(cast, ", "),
		Studio:           strings.Join(companies, ", "),
		Country:          strings.Join(countries, ", "),
		Language:         LanguageName(data.OriginalLanguage),
		OriginalLanguage: data.OriginalLanguage,
		TMDBID:           data.ID,
		IMDBID:           data.IMDBID,
		TMDBURL:          fmt.Sprintf("https://www.themoviedb.org/movie/%d", data.ID),
	}
}
