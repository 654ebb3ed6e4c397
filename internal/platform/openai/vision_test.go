package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsmart/internal/book"
	"shelfsmart/internal/vision"
)

type chatRequest struct {
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func TestVision_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 4000, req.MaxTokens)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		var parts []struct {
			Type     string `json:"type"`
			ImageURL struct {
				URL string `json:"url"`
			} `json:"image_url"`
		}
		require.NoError(t, json.Unmarshal(req.Messages[1].Content, &parts))
		require.Len(t, parts, 1)
		assert.Equal(t, "image_url", parts[0].Type)
		assert.Equal(t, "https://img.example/shelf.jpg", parts[0].ImageURL.URL)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant",
			"content":"{\"books\":[{\"title\":\"Dune\",\"author\":\"Frank Herbert\"}]}"}}]}`))
	}))
	defer server.Close()

	v := NewVision(Config{APIKey: "test-key", BaseURL: server.URL})
	got, err := v.Complete(context.Background(), vision.Request{
		Instruction: vision.Instruction,
		ImageURL:    "https://img.example/shelf.jpg",
		MaxTokens:   4000,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"books":[{"title":"Dune","author":"Frank Herbert"}]}`, got)
}

func TestVision_CompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	_, err := NewVision(Config{APIKey: "k", BaseURL: server.URL}).Complete(context.Background(), vision.Request{ImageURL: "https://img.example/a.jpg"})
	assert.ErrorIs(t, err, book.ErrServiceUnavailable)
}

func TestVision_CompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	got, err := NewVision(Config{APIKey: "k", BaseURL: server.URL}).Complete(context.Background(), vision.Request{ImageURL: "https://img.example/a.jpg"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
