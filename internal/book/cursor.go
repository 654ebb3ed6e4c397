package book

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Cursor marks the last row of a newest-first page.
type Cursor struct {
	AfterID   string    `json:"after_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Page selects a window of the newest-first listing.
type Page struct {
	After *Cursor
	Limit int
}

// EncodeCursor returns an opaque token for c, or "" for the zero cursor.
func EncodeCursor(c Cursor) string {
	if c.AfterID == "" {
		return ""
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", ErrInvalidInput)
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.AfterID == "" {
		return nil, fmt.Errorf("decode cursor: %w", ErrInvalidInput)
	}
	return &c, nil
}

// NextCursor returns the token for the page after books, or "" when the page
// was not full.
func NextCursor(books []Book, limit int) string {
	if len(books) == 0 || len(books) < limit {
		return ""
	}
	last := books[len(books)-1]
	return EncodeCursor(Cursor{AfterID: last.ID, CreatedAt: last.CreatedAt})
}
