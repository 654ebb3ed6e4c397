package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"shelfsmart/internal/book"
	"shelfsmart/internal/upload"
	"shelfsmart/internal/vision"
)

const maxImageBytes = 20 << 20

// Vision is a vision.Model backed by the Gemini API. Images are always sent
// inline; remote URLs are fetched first, and only under FetchPrefixes.
type Vision struct {
	client        *genai.Client
	model         string
	httpClient    *http.Client
	fetchPrefixes []string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// FetchPrefixes are the URL prefixes images may be downloaded from.
	FetchPrefixes []string
}

func NewVision(ctx context.Context, cfg Config) (*Vision, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		// Redirects could leave the trusted prefix.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	return &Vision{
		client:        client,
		model:         model,
		httpClient:    httpClient,
		fetchPrefixes: cfg.FetchPrefixes,
	}, nil
}

func (v *Vision) Name() string { return "gemini" }

func (v *Vision) Complete(ctx context.Context, req vision.Request) (string, error) {
	mime, data, err := v.loadImage(ctx, req.ImageURL)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromBytes(data, mime)}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Instruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	resp, err := v.client.Models.GenerateContent(ctx, v.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w: %w", book.ErrServiceUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func (v *Vision) loadImage(ctx context.Context, imageURL string) (string, []byte, error) {
	if err := upload.CheckImageRef(imageURL, v.fetchPrefixes); err != nil {
		return "", nil, err
	}
	if upload.IsDataURL(imageURL) {
		return upload.ParseDataURL(imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build image request: %w", book.ErrInvalidInput)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch image: %w: %w", book.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch image: status %d: %w", resp.StatusCode, book.ErrServiceUnavailable)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", nil, fmt.Errorf("read image: %w: %w", book.ErrServiceUnavailable, err)
	}
	return mimetype.Detect(data).String(), data, nil
}
