package api

import (
	"context"
	"net/http"

	"github.com/okian/aptrank/internal/domain/types"
)

// ItemDependencies defines the interface for single-listing reads.
type ItemDependencies interface {
	Item(ctx context.Context, key string) (types.Entry, error)
}

// ItemsHandler handles listing requests.
type ItemsHandler struct {
	deps     ItemDependencies
	images   ImageSource
	geocoder Geocoder
}

// NewItemsHandler creates a new items handler. images and geocoder may be
// nil, in which case their routes answer 404.
func NewItemsHandler(deps ItemDependencies, images ImageSource, geocoder Geocoder) *ItemsHandler {
	return &ItemsHandler{deps: deps, images: images, geocoder: geocoder}
}

type imagesResponse struct {
	Key    string   `json:"key"`
	Link   string   `json:"link"`
	Images []string `json:"images"`
}

type locationResponse struct {
	Key         string  `json:"key"`
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Approximate bool    `json:"approximate"`
	Source      string  `json:"source"`
	MapURL      string  `json:"map_url"`
}

// HandleGetItem handles GET /items/{key} requests.
func (h *ItemsHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item"
	entry, err := h.deps.Item(r.Context(), r.PathValue("key"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleGetImages handles GET /items/{key}/images requests.
func (h *ItemsHandler) HandleGetImages(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item_images"
	if h.images == nil {
		http.NotFound(w, r)
		return
	}
	entry, err := h.deps.Item(r.Context(), r.PathValue("key"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	imgs, err := h.images.Images(r.Context(), entry.Listing.Link)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrUpstream, err))
		return
	}
	writeJSON(w, http.StatusOK, imagesResponse{Key: entry.Key, Link: entry.Listing.Link, Images: imgs})
}

// HandleGetLocation handles GET /items/{key}/location requests.
func (h *ItemsHandler) HandleGetLocation(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item_location"
	if h.geocoder == nil {
		http.NotFound(w, r)
		return
	}
	entry, err := h.deps.Item(r.Context(), r.PathValue("key"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	p, err := h.geocoder.Geocode(r.Context(), entry.Listing.Address)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrUpstream, err))
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{
		Key:         entry.Key,
		Address:     entry.Listing.Address,
		Lat:         p.Lat,
		Lon:         p.Lon,
		Approximate: p.Approximate,
		Source:      p.Source,
		MapURL:      p.MapURL(),
	})
}
