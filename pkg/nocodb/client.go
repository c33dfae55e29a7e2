package nocodb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"bad-movie-engine/pkg/httpclient"
)

// Config holds everything needed to reach one NocoDB table.
type Config struct {
	URL     string // instance URL, e.g. "https://portal.dasco.services"
	Project string
	Table   string
	Token   string

	// TitleMatchLike switches the lookup filter from exact title equality to
	// the legacy substring ("like") match. Exact is the default; substring
	// matching can pair rows whose titles merely contain each other.
	TitleMatchLike bool
}

// Client talks to a single NocoDB table through the REST data API.
type Client struct {
	client    *httpclient.HTTPClient
	baseURL   string
	token     string
	titleLike bool
}

// Row is one table row as returned by the list endpoint.
type Row map[string]interface{}

// ID returns the row's primary key, or 0 when absent.
func (r Row) ID() int {
	if v, ok := r["Id"].(float64); ok {
		return int(v)
	}
	return 0
}

type listResponse struct {
	List     []Row `json:"list"`
	PageInfo struct {
		IsLastPage bool `json:"isLastPage"`
	} `json:"pageInfo"`
}

// NewClient creates a client for the configured project table.
func NewClient(cfg Config) *Client {
	return &Client{
		client:    httpclient.NewClient(),
		baseURL:   fmt.Sprintf("%s/api/v1/db/data/v1/%s/%s", cfg.URL, cfg.Project, cfg.Table),
		token:     cfg.Token,
		titleLike: cfg.TitleMatchLike,
	}
}

// FindByKey looks up a row by the (experiment, title) composite key and
// returns its id when one exists. Multiple matches return the first row,
// matching the datastore's ranking.
func (c *Client) FindByKey(ctx context.Context, experiment, title string) (int, bool, error) {
	op := "eq"
	if c.titleLike {
		op = "like"
	}
	where := fmt.Sprintf("(experiment,eq,%s)~and(title,%s,%s)", experiment, op, url.QueryEscape(title))

	var data listResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"?where="+where, nil, &data); err != nil {
		return 0, false, fmt.Errorf("lookup (%s, %s): %w", experiment, title, err)
	}

	if len(data.List) == 0 {
		return 0, false, nil
	}
	return data.List[0].ID(), true, nil
}

// Insert creates a new row and returns its id.
func (c *Client) Insert(ctx context.Context, fields map[string]interface{}) (int, error) {
	var created Row
	if err := c.do(ctx, http.MethodPost, c.baseURL, fields, &created); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return created.ID(), nil
}

// Update patches an existing row by id.
func (c *Client) Update(ctx context.Context, id int, fields map[string]interface{}) error {
	target := fmt.Sprintf("%s/%d", c.baseURL, id)
	if err := c.do(ctx, http.MethodPatch, target, fields, nil); err != nil {
		return fmt.Errorf("update row %d: %w", id, err)
	}
	return nil
}

// ListPage fetches one page of rows. Returns the rows and whether this was
// the last page.
func (c *Client) ListPage(ctx context.Context, limit, offset int) ([]Row, bool, error) {
	target := fmt.Sprintf("%s?limit=%d&offset=%d", c.baseURL, limit, offset)

	var data listResponse
	if err := c.do(ctx, http.MethodGet, target, nil, &data); err != nil {
		return nil, false, fmt.Errorf("list offset %d: %w", offset, err)
	}
	return data.List, data.PageInfo.IsLastPage, nil
}

// do executes one authenticated request against the table endpoint.
func (c *Client) do(ctx context.Context, method, target string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("xc-token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nocodb API error: %d %s", resp.StatusCode, bytes.TrimSpace(text))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
