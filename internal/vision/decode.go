package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"shelfsmart/internal/book"
)

// Decode reads the model reply. The list is taken from the "books" field when
// it holds an array, otherwise from the top level when the whole document is
// an array. found is false when neither shape matches; that is not an error.
// An empty reply decodes as an empty list.
func Decode(content string) (candidates []book.Candidate, found bool, err error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return []book.Candidate{}, true, nil
	}

	var doc json.RawMessage
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, false, fmt.Errorf("decode vision reply: %w: %w", book.ErrUnparseable, err)
	}

	entries, ok := bookList(doc)
	if !ok {
		return []book.Candidate{}, false, nil
	}

	candidates = make([]book.Candidate, 0, len(entries))
	for _, raw := range entries {
		candidates = append(candidates, normalize(raw))
	}
	return candidates, true, nil
}

func bookList(doc json.RawMessage) ([]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if json.Unmarshal(doc, &obj) == nil {
		if inner, ok := obj["books"]; ok {
			var list []json.RawMessage
			if json.Unmarshal(inner, &list) == nil && list != nil {
				return list, true
			}
		}
		return nil, false
	}

	var list []json.RawMessage
	if json.Unmarshal(doc, &list) == nil && list != nil {
		return list, true
	}
	return nil, false
}

// normalize keeps every entry; fields that are missing or not strings become "".
func normalize(raw json.RawMessage) book.Candidate {
	var fields map[string]json.RawMessage
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		_ = json.Unmarshal(raw, &fields)
	}
	return book.Candidate{
		Title:  stringField(fields, "title"),
		Author: stringField(fields, "author"),
	}
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
