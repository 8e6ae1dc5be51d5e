package handler

import (
	"context"
	"log/slog"
	"net/http"

	"go-minimal-auth/internal/model"
)

const bannerMessage = "go-minimal-auth is running"

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store pinger
}

func NewHealthHandler(store pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Banner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.BannerResponse{Message: bannerMessage})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", "error", err.Error())
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
