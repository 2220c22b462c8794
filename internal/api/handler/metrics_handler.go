package handler

import (
	"net/http"

	"github.com/ShatskikhS/NotifyMe/internal/queue"
)

// MetricsHandler serves a human-readable JSON snapshot of the queue and store.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	q      *queue.PriorityQueue
	stored func() int
}

// NewMetricsHandler takes the queue and a function returning the stored record count.
func NewMetricsHandler(q *queue.PriorityQueue, stored func() int) *MetricsHandler {
	return &MetricsHandler{q: q, stored: stored}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth and store size snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	high, medium, low := h.q.Depths()
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": map[string]int{
			"high":   high,
			"medium": medium,
			"low":    low,
			"total":  high + medium + low,
		},
		"stored_notifications": h.stored(),
	})
}
