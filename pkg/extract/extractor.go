package extract

import (
	"regexp"
	"strconv"
	"strings"

	"bad-movie-engine/pkg/domain"

	"github.com/PuerkitoBio/goquery"
)

var (
	tmdbLinkRe  = regexp.MustCompile(`themoviedb\.org/movie/(\d+)(?:-[\w-]+)?`)
	imdbLinkRe  = regexp.MustCompile(`imdb\.com/title/(tt\d+)`)
	titleYearRe = regexp.MustCompile(`^(.*?)(?:\s*\((\d{4})\))?$`)
	yearRe      = regexp.MustCompile(`\((\d{4})\)`)
)

// Extract parses a post body and returns the movie references it links to,
// in document order. TMDb links are scanned first, then IMDb links; an IMDb
// link whose title was already captured from a TMDb link is dropped. When
// neither database is linked, a last-resort pass reads titled anchors and
// takes the year from the surrounding text.
func Extract(html string) []domain.MovieReference {
	if strings.TrimSpace(html) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var movies []domain.MovieReference
	seenTitles := make(map[string]bool)

	// Pass 1: TMDb movie links
	doc.Find(`a[href*="themoviedb.org/movie/"]`).Each(func(i int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		text := strings.TrimSpace(link.Text())
		if href == "" || text == "" {
			return
		}

		m := tmdbLinkRe.FindStringSubmatch(href)
		if m == nil {
			return
		}

		title, year := parseTitleYear(text)
		movies = append(movies, domain.MovieReference{
			Title:   title,
			Year:    year,
			TMDBID:  m[1],
			Source:  domain.SourceTMDB,
			RawLink: href,
		})
		seenTitles[strings.ToLower(title)] = true
	})

	// Pass 2: IMDb title links, skipping titles pass 1 already captured
	doc.Find(`a[href*="imdb.com/title/"]`).Each(func(i int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		text := strings.TrimSpace(link.Text())
		if href == "" || text == "" {
			return
		}

		m := imdbLinkRe.FindStringSubmatch(href)
		if m == nil {
			return
		}

		title, year := parseTitleYear(text)
		if seenTitles[strings.ToLower(title)] {
			return
		}

		movies = append(movies, domain.MovieReference{
			Title:   title,
			Year:    year,
			IMDBID:  m[1],
			Source:  domain.SourceIMDB,
			RawLink: href,
		})
		seenTitles[strings.ToLower(title)] = true
	})

	if len(movies) > 0 {
		return movies
	}

	// Fallback: anchors carrying a title attribute, with the year read from
	// the parent element's text, e.g. `<a title="X" href="...">X</a> (1985)`.
	// Only emitted when href, title and a plausible year are all present.
	doc.Find("a[title][href]").Each(func(i int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title, _ := link.Attr("title")
		href = strings.TrimSpace(href)
		title = strings.TrimSpace(title)
		if href == "" || title == "" {
			return
		}

		m := yearRe.FindStringSubmatch(link.Parent().Text())
		if m == nil {
			return
		}
		year, _ := strconv.Atoi(m[1])
		if year < 1900 || year > 2099 {
			return
		}

		movies = append(movies, domain.MovieReference{
			Title:   title,
			Year:    year,
			Source:  domain.SourceNone,
			RawLink: href,
		})
	})

	return movies
}

// parseTitleYear splits anchor text of the form "Title (1985)" into its
// parts. Text without a trailing year yields year 0.
func parseTitleYear(text string) (string, int) {
	m := titleYearRe.FindStringSubmatch(text)
	if m == nil {
		return text, 0
	}

	title := strings.TrimSpace(m[1])
	if title == "" {
		title = text
	}

	year := 0
	if m[2] != "" {
		year, _ = strconv.Atoi(m[2])
	}
	return title, year
}
