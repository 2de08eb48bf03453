package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/baechuer/taskflow/internal/logger"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

const maxTelemetryBytes = 1 << 20

type TelemetryPublisher interface {
	PublishTelemetry(ctx context.Context, payload []byte) error
}

type TelemetryHandler struct {
	pub TelemetryPublisher
}

func NewTelemetryHandler(pub TelemetryPublisher) *TelemetryHandler {
	return &TelemetryHandler{pub: pub}
}

// Batch acknowledges any payload. Forwarding is best effort and never
// changes the response.
func (h *TelemetryHandler) Batch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTelemetryBytes))
	if err == nil && len(body) > 0 && h.pub != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		if err := h.pub.PublishTelemetry(ctx, body); err != nil {
			logger.WithCtx(r.Context()).Warn().Err(err).Msg("telemetry_forward_failed")
		}
		cancel()
	}
	response.OK(w, map[string]string{"status": "received"})
}
