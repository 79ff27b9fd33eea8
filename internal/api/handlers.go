package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shelfwatch/shelfwatch/internal/model"
	"github.com/shelfwatch/shelfwatch/internal/store"
)

// maxPageSize caps list responses regardless of the limit parameter.
const maxPageSize = 500

type handlers struct {
	store store.Store
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listBrands(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	brands, err := h.store.ListBrands(r.Context(), enabledOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brands)
}

func (h *handlers) getBrand(w http.ResponseWriter, r *http.Request) {
	brand, err := h.store.GetBrand(r.Context(), chi.URLParam(r, "brandID"))
	if err != nil {
		if errors.Is(err, store.ErrBrandNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "brand not found"})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brand)
}

func (h *handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LocationFilter{
		BrandID:    chi.URLParam(r, "brandID"),
		State:      strings.ToUpper(q.Get("state")),
		ActiveOnly: q.Get("active") != "false",
		Limit:      pageLimit(q.Get("limit")),
		Offset:     intParam(q.Get("offset")),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC 3339"})
			return
		}
		filter.FirstSeenAfter = &t
	}

	locs, err := h.store.ListLocations(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	runs, err := h.store.ListScanRuns(r.Context(), store.RunFilter{
		BrandID: q.Get("brand"),
		Status:  model.ScanStatus(q.Get("status")),
		Limit:   pageLimit(q.Get("limit")),
		Offset:  intParam(q.Get("offset")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handlers) brandAggregates(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.store.ActiveCountByBrand(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggs)
}

func (h *handlers) stateAggregates(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.store.ActiveCountByState(r.Context(), r.URL.Query().Get("brand"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func pageLimit(s string) int {
	n := intParam(s)
	if n == 0 || n > maxPageSize {
		return maxPageSize
	}
	return n
}
