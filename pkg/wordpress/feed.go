package wordpress

import (
	"context"
	"fmt"
	"log"
	"time"

	"bad-movie-engine/pkg/content"
	"bad-movie-engine/pkg/domain"

	"github.com/mmcdole/gofeed"
)

// FeedFetcher reads posts from the blog's RSS/Atom feed. WordPress publishes
// full post content in its feed, so this works as a fallback content source
// for recent posts when the REST API is down.
type FeedFetcher struct {
	parser  *gofeed.Parser
	feedURL string
}

// NewFeedFetcher creates a feed fetcher for the given feed URL.
func NewFeedFetcher(feedURL string) *FeedFetcher {
	return &FeedFetcher{
		parser:  gofeed.NewParser(),
		feedURL: feedURL,
	}
}

// FetchSince parses the feed and returns items published after the given
// time, mapped to Posts. Items without a parseable publish date are skipped.
func (f *FeedFetcher) FetchSince(ctx context.Context, since time.Time) ([]domain.Post, error) {
	feed, err := f.parser.ParseURLWithContext(f.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed contains no items")
	}

	var posts []domain.Post
	for _, item := range feed.Items {
		if item.PublishedParsed == nil || !item.PublishedParsed.After(since) {
			continue
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}

		// Some feeds publish items without a title element; recover one from
		// the item body so the experiment number is still extractable.
		title := item.Title
		if title == "" {
			if t, err := content.ExtractTitle(body); err == nil {
				title = t
			}
		}

		post := domain.Post{
			Title:   title,
			Date:    item.PublishedParsed.Format("2006-01-02"),
			Content: body,
			Link:    item.Link,
		}
		if len(item.Authors) > 0 {
			post.Host = item.Authors[0].Name
			post.Author = item.Authors[0].Name
		}
		posts = append(posts, post)
	}

	log.Printf("wordpress: feed yielded %d posts since %s", len(posts), since.Format(time.RFC3339))
	return posts, nil
}
