package handler

import (
	"context"
	"net/http"

	"minimart/pkg/response"
)

// StatsProvider exposes store counters for the debug surface. Both
// backing services implement it; gateways are stateless and do not.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// StatsHandler serves store statistics.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler backed by the given provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.provider.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, stats)
}
