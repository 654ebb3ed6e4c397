package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"shelfsmart/internal/book"
	"shelfsmart/internal/httpx"
	"shelfsmart/internal/logger"
)

type HTTPHandler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHTTPHandler(svc *Service, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, logger: logger}
}

// decodeBooks accepts a single object or an array of objects.
func decodeBooks(raw json.RawMessage) ([]book.Enriched, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var many []book.Enriched
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, true, err
		}
		return many, true, nil
	}
	var one book.Enriched
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, false, err
	}
	return []book.Enriched{one}, false, nil
}

// Create handles POST /v1/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	books, isArray, err := decodeBooks(raw)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if isArray && len(books) == 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "At least one book is required", nil)
		return
	}

	var details []httpx.ErrorDetail
	if isArray {
		details = httpx.ValidateEach(books)
	} else {
		details = httpx.ValidateStruct(books[0])
	}
	if len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid book data", details)
		return
	}

	saved, err := h.svc.SaveMany(r.Context(), books)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("save books", zap.Error(err), zap.Int("count", len(books)))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save books", nil)
		return
	}

	if isArray {
		httpx.JSONCreated(w, r, saved)
		return
	}
	httpx.JSONCreated(w, r, saved[0])
}

// List handles GET /v1/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := book.DefaultPageSize
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > book.MaxPageSize {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("limit must be between 1 and %d", book.MaxPageSize), nil)
			return
		}
		limit = n
	}

	books, next, err := h.svc.List(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, book.ErrInvalidInput) {
			httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_CURSOR", "Invalid cursor", nil)
			return
		}
		logger.FromContext(r.Context(), h.logger).Error("list books", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	meta := map[string]any{"limit": limit, "has_more": next != ""}
	if next != "" {
		meta["next_cursor"] = next
	}
	httpx.JSONSuccess(w, r, books, meta)
}

// Export handles GET /v1/books/export
func (h *HTTPHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.svc.Export(r.Context(), &buf)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "No books found", nil)
			return
		}
		logger.FromContext(r.Context(), h.logger).Error("export books", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export books", nil)
		return
	}

	filename := fmt.Sprintf("books-%s.csv", time.Now().UTC().Format(csvDateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
