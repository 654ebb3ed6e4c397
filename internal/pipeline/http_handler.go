package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"shelfsmart/internal/book"
	"shelfsmart/internal/httpx"
)

// Runner is the part of Service the handler needs.
type Runner interface {
	Run(ctx context.Context, src Source) ([]book.Enriched, error)
}

type HTTPHandler struct {
	runner Runner
	logger *zap.Logger
}

func NewHTTPHandler(runner Runner, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{runner: runner, logger: logger}
}

type extractRequest struct {
	ImageData string `json:"image_data"`
	ImageID   string `json:"image_id"`
}

type extractResponse struct {
	Books []book.Enriched `json:"books"`
}

// Extract handles POST /v1/extract
func (h *HTTPHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if req.ImageData == "" && req.ImageID == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "No image data provided", []httpx.ErrorDetail{
			{Field: "image_data", Message: "image_data or image_id is required"},
		})
		return
	}

	books, err := h.runner.Run(r.Context(), Source{ImageID: req.ImageID, ImageURL: req.ImageData})
	if err != nil {
		var fatal *FatalError
		if errors.As(err, &fatal) && fatal.Stage == StageResolve && errors.Is(err, book.ErrInvalidInput) {
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_IMAGE", "Image reference is invalid", nil)
			return
		}
		if errors.Is(err, book.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Image not found", nil)
			return
		}
		h.logger.Error("extraction failed",
			zap.Error(err),
			zap.String("image_id", req.ImageID),
			zap.String("request_id", httpx.RequestIDFrom(r)),
		)
		httpx.JSONError(w, r, http.StatusInternalServerError, "EXTRACTION_FAILED", "Failed to process image", nil)
		return
	}

	httpx.JSONSuccess(w, r, extractResponse{Books: books}, map[string]any{"count": len(books)})
}
