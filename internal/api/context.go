package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Keekuun/nexus-studio-sub001/internal/logging"
)

// requestLogger returns the request-scoped logger, or fallback.
func requestLogger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	return logging.From(r.Context(), fallback)
}
