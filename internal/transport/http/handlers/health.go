package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler takes the database to ping; nil (memory storage) is
// always healthy.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			response.WriteError(w, r, domain.ErrDBUnavailable(err))
			return
		}
	}
	response.OK(w, map[string]string{"status": "ok"})
}
