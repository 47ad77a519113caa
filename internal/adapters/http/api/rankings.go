package api

import (
	"context"
	"net/http"
)

// RankingsDependencies defines the interface for ranking reads.
type RankingsDependencies interface {
	Rankings(ctx context.Context) ([]Entry, error)
}

// RankingsHandler handles ranking requests.
type RankingsHandler struct {
	deps RankingsDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /rankings requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	entries, err := h.deps.Rankings(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
