package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup finds nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a request rejected before any external call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrServiceUnavailable marks a transport-level failure of an external API.
	ErrServiceUnavailable = errors.New("external service unavailable")
	// ErrUnparseable marks an external response that matches no tolerated shape.
	ErrUnparseable = errors.New("external service response unparseable")
	// ErrPersistence marks a write rejected by the store.
	ErrPersistence = errors.New("persistence failure")
)

// Identifier schemes used by catalog search results.
const (
	SchemeISBN10 = "ISBN_10"
	SchemeISBN13 = "ISBN_13"
)

// Candidate is an unverified title/author pair read off a shelf photo.
// Either field may be empty.
type Candidate struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Enriched is a candidate resolved against the catalog.
type Enriched struct {
	Title   string  `json:"title" validate:"required,max=500"`
	Author  string  `json:"author" validate:"max=500"`
	ISBN10  *string `json:"isbn10,omitempty" validate:"omitempty,isbn_10"`
	ISBN13  *string `json:"isbn13,omitempty" validate:"omitempty,isbn_13"`
	ImageID string  `json:"image_id,omitempty" validate:"max=500"`
}

// Book is a persisted enrichment result.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN10    *string   `json:"isbn10,omitempty"`
	ISBN13    *string   `json:"isbn13,omitempty"`
	ImageID   *string   `json:"image_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Identifier is a typed identifier of a catalog record.
type Identifier struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// Match is the single best catalog record for a search.
type Match struct {
	Title       string       `json:"title"`
	Authors     []string     `json:"authors"`
	Identifiers []Identifier `json:"identifiers"`
}

// Fallback returns the candidate unchanged with no identifiers.
func Fallback(c Candidate) Enriched {
	return Enriched{Title: c.Title, Author: c.Author}
}
