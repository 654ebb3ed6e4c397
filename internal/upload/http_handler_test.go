package upload

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPHandler_Upload(t *testing.T) {
	h := NewHTTPHandler(newTestStore(t, ""), zap.NewNop())

	t.Run("created", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/upload", strings.NewReader(`{"image":"`+pngDataURL+`"}`))

		h.Upload(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		var body struct {
			Success bool  `json:"success"`
			Data    Image `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.True(t, strings.HasPrefix(body.Data.ID, URLPrefix))
	})

	t.Run("missing image", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Upload(w, httptest.NewRequest(http.MethodPost, "/v1/upload", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("not an image", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Upload(w, httptest.NewRequest(http.MethodPost, "/v1/upload", strings.NewReader(`{"image":"data:image/png;base64,aGVsbG8="}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_IMAGE")
	})

	t.Run("bad json", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Upload(w, httptest.NewRequest(http.MethodPost, "/v1/upload", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
