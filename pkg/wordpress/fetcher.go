package wordpress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bad-movie-engine/pkg/domain"
	"bad-movie-engine/pkg/httpclient"
)

// wpPost mirrors the subset of the WordPress REST post object the pipeline
// reads. The _embedded block is only present when _embed is requested.
type wpPost struct {
	ID    int    `json:"id"`
	Date  string `json:"date"`
	Link  string `json:"link"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
	Embedded struct {
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
		Author []struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"_embedded"`
}

// Fetcher pulls posts from a WordPress REST API posts endpoint.
type Fetcher struct {
	client    *httpclient.HTTPClient
	baseURL   string
	pageDelay time.Duration
}

// NewFetcher creates a fetcher for the given posts endpoint URL. pageDelay is
// the pause between page requests during a full fetch.
func NewFetcher(baseURL string, pageDelay time.Duration) *Fetcher {
	return &Fetcher{
		client:    httpclient.NewClient(),
		baseURL:   baseURL,
		pageDelay: pageDelay,
	}
}

// FetchAll retrieves the entire post collection, one page at a time, until
// the API returns an empty page or a 400 status (the WordPress signal for a
// page past the end). A failure on the first page is returned to the caller;
// the content source being unreachable is fatal to a run.
func (f *Fetcher) FetchAll(ctx context.Context) ([]domain.Post, error) {
	var all []domain.Post
	page := 1

	for {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		pageURL, err := f.buildURL(map[string]string{"page": strconv.Itoa(page)})
		if err != nil {
			return nil, err
		}

		log.Printf("wordpress: fetching page %d", page)

		var posts []wpPost
		if err := f.client.GetJSON(pageURL, nil, &posts); err != nil {
			var se *httpclient.StatusError
			if errors.As(err, &se) && se.Code == http.StatusBadRequest {
				// Past the last page
				break
			}
			return nil, fmt.Errorf("failed to fetch posts page %d: %w", page, err)
		}

		if len(posts) == 0 {
			break
		}

		for _, p := range posts {
			all = append(all, mapPost(p))
		}
		log.Printf("wordpress: retrieved %d posts from page %d", len(posts), page)

		page++
		time.Sleep(f.pageDelay)
	}

	log.Printf("wordpress: retrieved %d total posts", len(all))
	return all, nil
}

// FetchSince retrieves posts published after the given time.
func (f *Fetcher) FetchSince(ctx context.Context, since time.Time) ([]domain.Post, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	sinceURL, err := f.buildURL(map[string]string{"after": since.UTC().Format(time.RFC3339)})
	if err != nil {
		return nil, err
	}

	log.Printf("wordpress: fetching posts since %s", since.Format(time.RFC3339))

	var posts []wpPost
	if err := f.client.GetJSON(sinceURL, nil, &posts); err != nil {
		return nil, fmt.Errorf("failed to fetch posts since %s: %w", since.Format(time.RFC3339), err)
	}

	result := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		result = append(result, mapPost(p))
	}
	log.Printf("wordpress: retrieved %d posts", len(result))
	return result, nil
}

// buildURL merges extra query parameters into the configured endpoint URL,
// always requesting embedded author and media objects.
func (f *Fetcher) buildURL(extra map[string]string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid WordPress URL: %w", err)
	}

	q := u.Query()
	q.Set("_embed", "true")
	for k, v := range extra {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mapPost(p wpPost) domain.Post {
	post := domain.Post{
		ID:      p.ID,
		Title:   p.Title.Rendered,
		Content: p.Content.Rendered,
		Link:    p.Link,
		Excerpt: p.Excerpt.Rendered,
	}

	if p.Date != "" {
		post.Date = strings.SplitN(p.Date, "T", 2)[0]
	}
	if len(p.Embedded.FeaturedMedia) > 0 {
		post.Image = p.Embedded.FeaturedMedia[0].SourceURL
	}
	if len(p.Embedded.Author) > 0 {
		post.Host = p.Embedded.Author[0].Name
		post.Author = p.Embedded.Author[0].Name
	}
	return post
}
