package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kiki830621/customer-dna/internal/store"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

// RunHandler handles analysis run API endpoints
type RunHandler struct {
	profiles *store.ProfileRepository
	logger   *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(profiles *store.ProfileRepository, log *logger.Logger) *RunHandler {
	return &RunHandler{
		profiles: profiles,
		logger:   log,
	}
}

// GetLatest returns the most recent run that produced output
// GET /api/runs/latest
func (h *RunHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := h.profiles.GetLatestRun(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}

	if run == nil {
		respondError(w, http.StatusNotFound, "No completed runs")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// Get returns one run summary by id
// GET /api/runs/{run_id}
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]

	run, err := h.profiles.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", runID).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	if run == nil {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
