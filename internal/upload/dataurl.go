package upload

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"shelfsmart/internal/book"
)

var dataURLPattern = regexp.MustCompile(`^data:([A-Za-z0-9.+/-]+);base64,(.+)$`)

// ParseDataURL splits data:<mime>;base64,<payload> into its MIME type and bytes.
func ParseDataURL(s string) (string, []byte, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", nil, fmt.Errorf("malformed data url: %w", book.ErrInvalidInput)
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, fmt.Errorf("data url payload: %w", book.ErrInvalidInput)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty data url payload: %w", book.ErrInvalidInput)
	}
	return strings.ToLower(m[1]), data, nil
}

// EncodeDataURL is the inverse of ParseDataURL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL reports whether s looks like a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// TrustedPrefix is the URL prefix under which a store with the given public
// base serves its images, or "" when nothing is served publicly.
func TrustedPrefix(publicBaseURL string) string {
	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + URLPrefix
}

// CheckImageRef accepts a well-formed image data URL, or an http(s) URL that
// starts with one of trusted. Anything else is ErrInvalidInput.
func CheckImageRef(ref string, trusted []string) error {
	if IsDataURL(ref) {
		mime, _, err := ParseDataURL(ref)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(mime, "image/") {
			return fmt.Errorf("declared type %q is not an image: %w", mime, book.ErrInvalidInput)
		}
		return nil
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		for _, p := range trusted {
			if p != "" && strings.HasPrefix(ref, p) && !strings.Contains(ref[len(p):], "..") {
				return nil
			}
		}
		return fmt.Errorf("image url is not served by this service: %w", book.ErrInvalidInput)
	}
	return fmt.Errorf("malformed image reference: %w", book.ErrInvalidInput)
}
