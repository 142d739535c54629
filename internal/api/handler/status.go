package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sevigo/countpkg/internal/crawler"
)

// StatusHandler reports live worker progress from the running pool.
type StatusHandler struct {
	pool *crawler.Pool
}

// NewStatusHandler builds a StatusHandler. pool may be nil before a crawl
// has started, in which case Handle reports a null worker list and zero
// queue counts.
func NewStatusHandler(pool *crawler.Pool) *StatusHandler {
	return &StatusHandler{pool: pool}
}

// Handle serves GET /status.
func (h *StatusHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	var stats []crawler.WorkerStats
	var slicesDone, slicesTotal, reposDone, reposTotal int
	if h.pool != nil {
		stats = h.pool.Stats()
		slicesDone, slicesTotal, reposDone, reposTotal = h.pool.QueueDepth()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"workers":      stats,
		"slices_done":  slicesDone,
		"slices_total": slicesTotal,
		"repos_done":   reposDone,
		"repos_total":  reposTotal,
	})
}
