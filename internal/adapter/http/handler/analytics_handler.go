package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pw/paywallet/internal/adapter/http/dto"
	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// summaryCacheTTL bounds the staleness of cached analytics reads.
const summaryCacheTTL = 30 * time.Second

// AnalyticsService defines the behavior needed by AnalyticsHandler.
type AnalyticsService interface {
	UserDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyUserSummary, error)
	SystemDaily(ctx context.Context, from, to time.Time) ([]*domain.DailySystemSummary, error)
	AuthDaily(ctx context.Context, userID int64, from, to time.Time) ([]*domain.AuthSummary, error)
}

// AnalyticsHandler serves the aggregate read API. Responses are cached
// briefly; aggregates only move forward so short staleness is fine.
type AnalyticsHandler struct {
	summaryUC AnalyticsService
	cache     usecase.Cache
}

// NewAnalyticsHandler creates a new AnalyticsHandler. A nil cache
// disables response caching.
func NewAnalyticsHandler(summaryUC AnalyticsService, cache usecase.Cache) *AnalyticsHandler {
	return &AnalyticsHandler{summaryUC: summaryUC, cache: cache}
}

// UserDaily lists a user's daily summaries.
func (h *AnalyticsHandler) UserDaily(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}
	from, to := parseDateRange(r)

	key := fmt.Sprintf("summary:user:%d:%s:%s", userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if h.serveCached(w, r, key) {
		return
	}

	summaries, err := h.summaryUC.UserDaily(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load user summaries", err.Error())
		return
	}

	h.writeAndCache(w, r, key, dto.UserDailyFromDomain(summaries))
}

// SystemDaily lists system-wide daily summaries.
func (h *AnalyticsHandler) SystemDaily(w http.ResponseWriter, r *http.Request) {
	from, to := parseDateRange(r)

	key := fmt.Sprintf("summary:system:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if h.serveCached(w, r, key) {
		return
	}

	summaries, err := h.summaryUC.SystemDaily(r.Context(), from, to)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load system summaries", err.Error())
		return
	}

	h.writeAndCache(w, r, key, dto.SystemDailyFromDomain(summaries))
}

// AuthDaily lists a user's daily auth summaries.
func (h *AnalyticsHandler) AuthDaily(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}
	from, to := parseDateRange(r)

	key := fmt.Sprintf("summary:auth:%d:%s:%s", userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if h.serveCached(w, r, key) {
		return
	}

	summaries, err := h.summaryUC.AuthDaily(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load auth summaries", err.Error())
		return
	}

	h.writeAndCache(w, r, key, dto.AuthDailyFromDomain(summaries))
}

func (h *AnalyticsHandler) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if h.cache == nil {
		return false
	}
	cached, err := h.cache.Get(r.Context(), key)
	if err != nil || cached == nil {
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "hit")
	w.WriteHeader(http.StatusOK)
	w.Write(cached)
	return true
}

func (h *AnalyticsHandler) writeAndCache(w http.ResponseWriter, r *http.Request, key string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response", err.Error())
		return
	}

	if h.cache != nil {
		// Best effort; a cache write failure never fails the read.
		_ = h.cache.Set(r.Context(), key, body, summaryCacheTTL)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
