package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotlob_places/internal/app"
	"hotlob_places/internal/domain"
)

// Refresher is the write side driven by the cron-triggered routes.
type Refresher interface {
	RefreshAll(ctx context.Context) (app.Summary, error)
	RefreshStore(ctx context.Context, ref string) error
	RefreshAllDetails(ctx context.Context) (app.Summary, error)
	RefreshStoreDetails(ctx context.Context, ref string) error
}

type FeaturedLister interface {
	ListFeatured(ctx context.Context, limit int, withPhotos bool) ([]domain.FeaturedReview, error)
}

type Handlers struct {
	Q      FeaturedLister
	R      Refresher
	Secret string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Param   string `json:"param,omitempty"`
}

type okBody struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reviews/featured", h.listFeatured)

	s.mux.Group(func(r chi.Router) {
		r.Use(BearerAuth(h.Secret))
		r.Post("/api/stores/refresh", h.refreshAll)
		r.Post("/api/stores/{storeID}/refresh", h.refreshStore)
		r.Post("/api/places/refresh", h.refreshAllDetails)
		r.Post("/api/places/{storeID}/refresh", h.refreshStoreDetails)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeRefreshError maps refresh failures. A fetch failure can also wrap
// ErrNotFound (Places 404), so it is checked first.
func writeRefreshError(w http.ResponseWriter, ref string, err error) {
	switch {
	case errors.Is(err, domain.ErrRefreshInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrFetchFailed):
		writeJSON(w, http.StatusInternalServerError, okBody{OK: false, Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Store not found", Param: ref})
	case errors.Is(err, domain.ErrMissingPlaceID):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Store missing google_place_id"})
	default:
		log.Error().Err(err).Str("store_ref", ref).Msg("refresh failed")
		writeJSON(w, http.StatusInternalServerError, okBody{OK: false, Message: err.Error()})
	}
}

func writeSummary(w http.ResponseWriter, sum app.Summary, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrRefreshInProgress) {
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
			return
		}
		log.Error().Err(err).Msg("refresh run failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Refresh failed", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handlers) refreshAll(w http.ResponseWriter, r *http.Request) {
	sum, err := h.R.RefreshAll(r.Context())
	writeSummary(w, sum, err)
}

func (h *Handlers) refreshAllDetails(w http.ResponseWriter, r *http.Request) {
	sum, err := h.R.RefreshAllDetails(r.Context())
	writeSummary(w, sum, err)
}

func (h *Handlers) refreshStore(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "storeID")
	if err := h.R.RefreshStore(r.Context(), ref); err != nil {
		writeRefreshError(w, ref, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *Handlers) refreshStoreDetails(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "storeID")
	if err := h.R.RefreshStoreDetails(r.Context(), ref); err != nil {
		writeRefreshError(w, ref, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// listFeatured serves GET /v1/reviews/featured?limit=1..50&photos=bool.
// photos defaults to true, unlike the site's earlier reader which only sent
// photos on request; photos=false strips them. A review without photos omits
// the field in either mode.
func (h *Handlers) listFeatured(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 50 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 50")
			return
		}
		limit = l
	}
	withPhotos := true
	if ps := r.URL.Query().Get("photos"); ps != "" {
		b, err := strconv.ParseBool(ps)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid photos", "photos must be true or false")
			return
		}
		withPhotos = b
	}

	out, err := h.Q.ListFeatured(r.Context(), limit, withPhotos)
	if err != nil {
		log.Error().Err(err).Msg("list featured failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "featured reviews unavailable")
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listFeatured body")
	}
}
