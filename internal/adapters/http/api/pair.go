package api

import (
	"context"
	"net/http"

	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/internal/domain/types"
)

// PairDependencies defines the interface for pair selection.
type PairDependencies interface {
	SmartPair(ctx context.Context, strategy selector.Strategy) (types.Pair, error)
	DefaultStrategy() selector.Strategy
}

// PairHandler handles pair requests.
type PairHandler struct {
	deps PairDependencies
}

// NewPairHandler creates a new pair handler.
func NewPairHandler(deps PairDependencies) *PairHandler {
	return &PairHandler{deps: deps}
}

// HandleGetPair handles GET /pair?strategy=random|active|balanced requests.
// Without a strategy the session default is used.
func (h *PairHandler) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pair"
	strategy := h.deps.DefaultStrategy()
	if v := r.URL.Query().Get("strategy"); v != "" {
		s, err := selector.ParseStrategy(v)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		strategy = s
	}

	pair, err := h.deps.SmartPair(r.Context(), strategy)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}
