package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kiki830621/customer-dna/internal/store"
	"github.com/kiki830621/customer-dna/pkg/logger"
	"github.com/kiki830621/customer-dna/pkg/redis"
)

// ProfileHandler handles customer profile API endpoints
// ⭐ SSOT: 프로필 API 핸들러는 이 구조체에서만
type ProfileHandler struct {
	profiles *store.ProfileRepository
	cache    *redis.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(
	profiles *store.ProfileRepository,
	cache *redis.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// List returns profiles from the latest succeeded run
// GET /api/profiles?scope=&segment=&status=&limit=
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := store.ProfileFilter{
		ScopeKey:     r.URL.Query().Get("scope"),
		ValueSegment: r.URL.Query().Get("segment"),
		NESStatus:    r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	// Listing queries are repetitive dashboard traffic; cache per filter
	cacheKey := fmt.Sprintf("profiles:%s:%s:%s:%d",
		filter.ScopeKey, filter.ValueSegment, filter.NESStatus, filter.Limit)

	var cached json.RawMessage
	if hit, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	profiles, err := h.profiles.GetProfiles(ctx, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get profiles")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve profiles")
		return
	}

	payload := map[string]interface{}{
		"count":    len(profiles),
		"profiles": profiles,
	}

	if data, err := json.Marshal(payload); err == nil {
		if err := h.cache.Set(ctx, cacheKey, json.RawMessage(data), h.cacheTTL); err != nil {
			h.logger.WithError(err).Warn("Profile cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, payload)
}

// Get returns one customer's latest profile rows (one per scope)
// GET /api/profiles/{customer_id}
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := mux.Vars(r)["customer_id"]

	profiles, err := h.profiles.GetProfile(ctx, customerID)
	if err != nil {
		h.logger.WithError(err).WithField("customer_id", customerID).Error("Failed to get profile")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	if len(profiles) == 0 {
		respondError(w, http.StatusNotFound, "Customer not found in latest run")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"customer_id": customerID,
		"profiles":    profiles,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
