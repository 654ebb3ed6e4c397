package account

import (
	"net/http"

	"go.uber.org/zap"

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

// GetStatus handles GET /v1/account/status
func (h *HTTPHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("account status", zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccess(w, r, status, nil)
}
