package httpx

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shelfsmart/internal/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware propagates or assigns X-Request-Id and stores a logger
// tagged with it in the request context.
func RequestIDMiddleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.New().String()
			}

			w.Header().Set(requestIDHeader, requestID)
			ctx := ContextWithRequestID(r.Context(), requestID)
			if base != nil {
				ctx = logger.ContextWithLogger(ctx, base.With(zap.String("request_id", requestID)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
