// Package api exposes the ranking session over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/aptrank/internal/adapters/geocode"
	service "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RankingsDependencies
	PairDependencies
	MatchDependencies
	ItemDependencies
	StatsProvider
}

// ImageSource fetches listing photos.
type ImageSource interface {
	Images(ctx context.Context, url string) ([]string, error)
}

// Geocoder resolves addresses.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocode.Point, error)
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	pairHandler     *PairHandler
	matchesHandler  *MatchesHandler
	itemsHandler    *ItemsHandler
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	images     ImageSource
	geocoder   Geocoder
	maxHistory int
}

// WithImages enables GET /items/{key}/images.
func WithImages(src ImageSource) Option {
	return func(o *serverOptions) { o.images = src }
}

// WithGeocoder enables GET /items/{key}/location.
func WithGeocoder(g Geocoder) Option {
	return func(o *serverOptions) { o.geocoder = g }
}

// WithMaxHistory caps GET /matches?limit.
func WithMaxHistory(n int) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxHistory = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{maxHistory: 100}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		pairHandler:     NewPairHandler(deps),
		matchesHandler:  NewMatchesHandler(deps, o.maxHistory),
		itemsHandler:    NewItemsHandler(deps, o.images, o.geocoder),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("GET /pair", MetricsMiddleware(s.pairHandler.HandleGetPair, "pair"))
	mux.HandleFunc("POST /matches", MetricsMiddleware(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("GET /matches", MetricsMiddleware(s.matchesHandler.HandleGetMatches, "matches"))
	mux.HandleFunc("GET /items/{key}", MetricsMiddleware(s.itemsHandler.HandleGetItem, "item"))
	mux.HandleFunc("GET /items/{key}/images", MetricsMiddleware(s.itemsHandler.HandleGetImages, "item_images"))
	mux.HandleFunc("GET /items/{key}/location", MetricsMiddleware(s.itemsHandler.HandleGetLocation, "item_location"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrSameItem),
		errors.Is(err, selector.ErrUnknownStrategy):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUnknownItem):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, selector.ErrNotEnoughItems):
		writeError(w, http.StatusConflict, "not_enough_items", err)
	case errors.Is(err, ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// matchView pairs an outcome with its wire shape.
func matchView(o model.Outcome) types.Match { return types.MatchOf(o) }
