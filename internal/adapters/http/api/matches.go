package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	service "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/types"
)

// maxMatchBody caps the POST /matches request body.
const maxMatchBody = 4 << 10

// MatchDependencies defines the interface for recording and reading matches.
type MatchDependencies interface {
	RecordMatch(ctx context.Context, winnerKey, loserKey string) (model.Outcome, error)
	History(ctx context.Context, n int) []model.Outcome
}

// MatchesHandler handles match requests.
type MatchesHandler struct {
	deps     MatchDependencies
	maxLimit int
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies, maxLimit int) *MatchesHandler {
	return &MatchesHandler{deps: deps, maxLimit: maxLimit}
}

type matchRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

func (m matchRequest) validate() error {
	switch {
	case strings.TrimSpace(m.Winner) == "":
		return errors.New("missing winner")
	case strings.TrimSpace(m.Loser) == "":
		return errors.New("missing loser")
	}
	return nil
}

type matchResponse struct {
	Match    types.Match `json:"match"`
	Warnings []string    `json:"warnings,omitempty"`
}

// HandlePostMatch handles POST /matches requests. A persistence failure
// still answers 201 because the outcome was applied; it is reported in
// warnings.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMatchBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req matchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	o, err := h.deps.RecordMatch(r.Context(), strings.TrimSpace(req.Winner), strings.TrimSpace(req.Loser))
	resp := matchResponse{Match: matchView(o)}
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPersistence):
		resp.Warnings = append(resp.Warnings, err.Error())
	default:
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleGetMatches handles GET /matches?limit=N requests, oldest first.
func (h *MatchesHandler) HandleGetMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matches"
	n := h.maxLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		n, err = strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
	}

	history := h.deps.History(r.Context(), n)
	out := make([]types.Match, len(history))
	for i, o := range history {
		out[i] = matchView(o)
	}
	writeJSON(w, http.StatusOK, out)
}
