package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shelfsmart/internal/book"
)

const defaultBaseURL = "https://openlibrary.org"

// Client searches Open Library. Like the Google Books client it does a single
// attempt per call.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

type Config struct {
	BaseURL   string
	UserAgent string
	RPS       float64
	Timeout   time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  cfg.UserAgent,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key         string   `json:"key"`
		Title       string   `json:"title"`
		AuthorNames []string `json:"author_name"`
		ISBN        []string `json:"isbn"`
	} `json:"docs"`
}

// FindBook returns the top search.json document for title/author.
// Open Library returns a flat isbn list; entries are typed by length.
func (c *Client) FindBook(ctx context.Context, title, author string) (*book.Match, error) {
	params := url.Values{}
	params.Set("title", title)
	if author != "" {
		params.Set("author", author)
	}
	params.Set("fields", "key,title,author_name,isbn")
	params.Set("limit", "1")

	var res SearchResponse
	if err := c.get(ctx, c.baseURL+"/search.json?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}

	doc := res.Docs[0]
	m := &book.Match{Title: doc.Title, Authors: doc.AuthorNames}
	for _, isbn := range doc.ISBN {
		if scheme := schemeFor(isbn); scheme != "" {
			m.Identifiers = append(m.Identifiers, book.Identifier{Scheme: scheme, Value: isbn})
		}
	}
	return m, nil
}

func schemeFor(isbn string) string {
	switch len(isbn) {
	case 10:
		return book.SchemeISBN10
	case 13:
		return book.SchemeISBN13
	default:
		return ""
	}
}

func (c *Client) get(ctx context.Context, u string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("open library: %w: %w", book.ErrServiceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open library: %w: %w", book.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open library: unexpected status code %d: %w", resp.StatusCode, book.ErrServiceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("open library: decode search: %w: %w", book.ErrUnparseable, err)
	}
	return nil
}
