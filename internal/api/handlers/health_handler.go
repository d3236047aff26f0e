package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coachline/coachline/internal/metrics"
	"github.com/coachline/coachline/internal/services"
)

type HealthHandler struct {
	recorder    *metrics.Recorder
	ingest      services.IngestService
	broadcaster services.Broadcaster
	startedAt   time.Time
}

func NewHealthHandler(r *metrics.Recorder, ingest services.IngestService, b services.Broadcaster) *HealthHandler {
	return &HealthHandler{
		recorder:    r,
		ingest:      ingest,
		broadcaster: b,
		startedAt:   time.Now(),
	}
}

type healthResponse struct {
	Status          string           `json:"status"`
	UptimeSeconds   int64            `json:"uptimeSeconds"`
	ActiveStreams   int              `json:"activeStreams"`
	SessionViewers  int              `json:"sessionViewers"`
	MetricsWindowMS int64            `json:"metricsWindowMs"`
	Metrics         metrics.Snapshot `json:"metrics"`
}

// SystemHealth reports liveness plus the current metrics snapshot.
func (h *HealthHandler) SystemHealth(c *gin.Context) {
	c.JSON(200, healthResponse{
		Status:          "ok",
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
		ActiveStreams:   h.ingest.ActiveStreams(),
		SessionViewers:  h.broadcaster.SubscriberCount(),
		MetricsWindowMS: h.recorder.WindowMS(),
		Metrics:         h.recorder.Snapshot(),
	})
}
