package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TierVault/internal/domain/access"
	"github.com/Strob0t/TierVault/internal/domain/record"
	"github.com/Strob0t/TierVault/internal/metrics"
	"github.com/Strob0t/TierVault/internal/service"
)

// Storage is the coordinator surface the handlers depend on.
type Storage interface {
	Retrieve(ctx context.Context, key record.Key) ([]byte, error)
	Store(ctx context.Context, key record.Key, data []byte, opts record.StoreOptions) bool
	Delete(ctx context.Context, key record.Key) error
	Metrics() metrics.Snapshot
	PatternAnalysis() access.Analysis
}

// MaintenanceRunner triggers one on-demand lifecycle cycle.
type MaintenanceRunner interface {
	Run(ctx context.Context) (service.Report, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	storage   Storage
	lifecycle MaintenanceRunner
}

// NewHandlers creates the handler set.
func NewHandlers(storage Storage, lifecycle MaintenanceRunner) *Handlers {
	return &Handlers{storage: storage, lifecycle: lifecycle}
}

// Health responds to liveness probes.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStorageMetrics returns the per-tier counter snapshot.
func (h *Handlers) GetStorageMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.Metrics())
}

// GetPatternAnalysis returns the temperature histogram of tracked records.
func (h *Handlers) GetPatternAnalysis(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.PatternAnalysis())
}

// RunLifecycle triggers one maintenance cycle and returns its report.
func (h *Handlers) RunLifecycle(w http.ResponseWriter, r *http.Request) {
	rep, err := h.lifecycle.Run(r.Context())
	if err != nil {
		// A pass-level failure still reports the work the other passes
		// completed.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"report": rep,
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// keyFromRequest parses the {type}/{id} pair from the URL.
func keyFromRequest(w http.ResponseWriter, r *http.Request) (record.Key, bool) {
	dt, err := record.ParseDataType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return record.Key{}, false
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "record id is required")
		return record.Key{}, false
	}
	return record.Key{RecordID: id, Type: dt}, true
}

// GetRecord retrieves a record payload through the tier chain.
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(w, r)
	if !ok {
		return
	}

	val, err := h.storage.Retrieve(r.Context(), key)
	switch {
	case errors.Is(err, record.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case err != nil:
		writeInternalError(w, err)
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(val)
	}
}

type storeResponse struct {
	Stored bool     `json:"stored"`
	Tiers  []string `json:"tiers"`
}

// PutRecord stores a record payload. Placement is controlled by the
// priority, ttl and tier query parameters.
func (h *Handlers) PutRecord(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(w, r)
	if !ok {
		return
	}

	opts, ok := optionsFromQuery(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	if !h.storage.Store(r.Context(), key, payload, opts) {
		writeError(w, http.StatusServiceUnavailable, "no storage tier accepted the write")
		return
	}

	targets := opts.Placement()
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	writeJSON(w, http.StatusCreated, storeResponse{Stored: true, Tiers: names})
}

// DeleteRecord removes a record from every tier.
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		writeInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionsFromQuery(w http.ResponseWriter, r *http.Request) (record.StoreOptions, bool) {
	var opts record.StoreOptions
	q := r.URL.Query()

	if s := q.Get("priority"); s != "" {
		p, err := record.ParsePriority(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return opts, false
		}
		opts.Priority = p
	}

	if s := q.Get("ttl"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "ttl must be a positive duration")
			return opts, false
		}
		opts.TTL = d
	}

	if s := q.Get("tier"); s != "" {
		t, err := record.ParseTier(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return opts, false
		}
		opts.ForceTier = &t
	}

	return opts, true
}
