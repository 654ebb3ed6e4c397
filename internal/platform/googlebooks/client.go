package googlebooks

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

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// Client is a Google Books volumes search client. It never retries: a failed
// call is reported to the caller once.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	limiter    *rate.Limiter
}

type Config struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	RPS       float64 // 0 = unlimited
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
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// VolumesResponse matches GET /volumes.
type VolumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Query builds the volumes search expression. The author term is only added
// when author is non-empty.
func Query(title, author string) string {
	q := "intitle:" + title
	if author != "" {
		q += " inauthor:" + author
	}
	return q
}

// FindBook returns the top volume for title/author, or nil when the search is empty.
func (c *Client) FindBook(ctx context.Context, title, author string) (*book.Match, error) {
	params := url.Values{}
	params.Set("q", Query(title, author))
	params.Set("maxResults", "1")
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var res VolumesResponse
	if err := c.get(ctx, c.baseURL+"/volumes?"+params.Encode(), &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, nil
	}

	info := res.Items[0].VolumeInfo
	m := &book.Match{
		Title:   info.Title,
		Authors: info.Authors,
	}
	for _, id := range info.IndustryIdentifiers {
		m.Identifiers = append(m.Identifiers, book.Identifier{Scheme: id.Type, Value: id.Identifier})
	}
	return m, nil
}

func (c *Client) get(ctx context.Context, u string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("google books: %w: %w", book.ErrServiceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google books: %w: %w", book.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google books: unexpected status code %d: %w", resp.StatusCode, book.ErrServiceUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("google books: decode volumes: %w: %w", book.ErrUnparseable, err)
	}
	return nil
}
