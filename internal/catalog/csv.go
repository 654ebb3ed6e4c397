package catalog

import (
	"encoding/csv"
	"io"

	"shelfsmart/internal/book"
)

var csvHeader = []string{"Title", "Author", "ISBN10", "ISBN13", "Date Added"}

const csvDateLayout = "2006-01-02"

// WriteCSV writes books with a header row. Missing identifiers are empty cells.
func WriteCSV(w io.Writer, books []book.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range books {
		row := []string{b.Title, b.Author, deref(b.ISBN10), deref(b.ISBN13), b.CreatedAt.Format(csvDateLayout)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
