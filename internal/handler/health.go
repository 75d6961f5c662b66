package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/store"
)

type HealthHandler struct {
	store     store.Store
	version   string
	startTime time.Time
}

func NewHealthHandler(s store.Store, version string) *HealthHandler {
	return &HealthHandler{store: s, version: version, startTime: time.Now()}
}

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, database := "healthy", "up"
	statusCode := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("database ping failed")
		status, database = "degraded", "down"
		statusCode = http.StatusServiceUnavailable
	}

	RespondJSON(w, statusCode, HealthResponse{
		Status:        status,
		Version:       h.version,
		Database:      database,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}
