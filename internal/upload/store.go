package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shelfsmart/internal/book"
)

// URLPrefix is the path under which stored images are served.
const URLPrefix = "/uploads/"

var storedName = regexp.MustCompile(`^[0-9a-f-]{36}\.[a-z0-9]+$`)

// Image is a stored upload. ID is the stable reference handed to clients.
type Image struct {
	ID   string `json:"image_id"`
	URL  string `json:"image_url"`
	MIME string `json:"mime_type"`
}

type Config struct {
	Dir           string
	PublicBaseURL string
	MaxBytes      int64
}

// Store keeps uploaded shelf photos on the local filesystem.
type Store struct {
	dir           string
	publicBaseURL string
	maxBytes      int64
	logger        *zap.Logger
}

func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:           cfg.Dir,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:      cfg.MaxBytes,
		logger:        logger,
	}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save validates and writes the image carried by dataURL.
func (s *Store) Save(_ context.Context, dataURL string) (Image, error) {
	declared, data, err := ParseDataURL(dataURL)
	if err != nil {
		return Image{}, err
	}
	if !strings.HasPrefix(declared, "image/") {
		return Image{}, fmt.Errorf("declared type %q is not an image: %w", declared, book.ErrInvalidInput)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Image{}, fmt.Errorf("image is %d bytes, limit %d: %w", len(data), s.maxBytes, book.ErrInvalidInput)
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return Image{}, fmt.Errorf("content is %s, not an image: %w", detected.String(), book.ErrInvalidInput)
	}

	ext := strings.TrimPrefix(detected.Extension(), ".")
	if ext == "" {
		ext = "jpg"
	}
	name := uuid.NewString() + "." + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return Image{}, fmt.Errorf("write upload: %w", err)
	}

	id := URLPrefix + name
	s.logger.Debug("image stored", zap.String("image_id", id), zap.Int("bytes", len(data)))

	img := Image{ID: id, MIME: detected.String()}
	if s.publicBaseURL != "" {
		img.URL = s.publicBaseURL + id
	}
	return img, nil
}

// Resolve turns an image id into a locator the vision service can read: the
// public URL when one is configured, otherwise an inline data URL.
func (s *Store) Resolve(_ context.Context, id string) (string, error) {
	name := path.Base(id)
	if !strings.HasPrefix(id, URLPrefix) || !storedName.MatchString(name) {
		return "", fmt.Errorf("image id %q: %w", id, book.ErrInvalidInput)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("image %q: %w", id, book.ErrNotFound)
		}
		return "", fmt.Errorf("read upload: %w", err)
	}
	if s.publicBaseURL != "" {
		return s.publicBaseURL + id, nil
	}
	return EncodeDataURL(mimetype.Detect(data).String(), data), nil
}
