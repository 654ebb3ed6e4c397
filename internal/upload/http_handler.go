package upload

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"shelfsmart/internal/book"
	"shelfsmart/internal/httpx"
)

type HTTPHandler struct {
	store  *Store
	logger *zap.Logger
}

func NewHTTPHandler(store *Store, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{store: store, logger: logger}
}

type uploadRequest struct {
	Image string `json:"image" validate:"required"`
}

// Upload handles POST /v1/upload
func (h *HTTPHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Image data is required", details)
		return
	}

	img, err := h.store.Save(r.Context(), req.Image)
	if err != nil {
		if errors.Is(err, book.ErrInvalidInput) {
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_IMAGE", err.Error(), nil)
			return
		}
		h.logger.Error("store upload", zap.Error(err), zap.String("request_id", httpx.RequestIDFrom(r)))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process image", nil)
		return
	}

	httpx.JSONCreated(w, r, img)
}
