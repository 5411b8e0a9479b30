// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// Stats is the monitoring snapshot served on /stats. Queue and epoch
// fields are only populated while the service is running.
type Stats struct {
	Started         bool   `json:"started"`
	Community       string `json:"community"`
	DryRun          bool   `json:"dry_run"`
	LiveQueue       int    `json:"live_queue"`
	CatchUpQueue    int    `json:"catch_up_queue"`
	MonitoringEpoch int64  `json:"monitoring_epoch"`
	DebouncedUsers  int    `json:"debounced_users"`
}

// StatsProvider supplies the current service snapshot.
type StatsProvider interface {
	GetStats() Stats
}

// StatsHandler serves the monitoring snapshot.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
