package domain

// Post represents one blog post fetched from the WordPress API
type Post struct {
	ID      int
	Title   string
	Date    string // publish date, YYYY-MM-DD
	Content string // rendered HTML body
	Link    string
	Excerpt string // rendered HTML excerpt
	Image   string // featured media source URL
	Host    string
	Author  string
}
