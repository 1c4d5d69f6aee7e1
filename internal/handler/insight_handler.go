package handler

import (
	"encoding/json"
	"net/http"

	"lym-insights/internal/httpserver"
	"lym-insights/internal/insight"

	"go.uber.org/zap"
)

type InsightHandler struct {
	scheduler  *insight.Scheduler
	dispatcher *insight.Dispatcher
	logger     *zap.Logger
}

func NewInsightHandler(scheduler *insight.Scheduler, dispatcher *insight.Dispatcher, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		scheduler:  scheduler,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// GetToday returns the current day's insight, generating it if needed.
func (h *InsightHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpserver.UserID(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	ins := h.scheduler.TodayInsight(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"insight": ins,
		"state":   h.scheduler.State(r.Context(), userID),
	})
}

// GetHistory returns the recent notification send history.
func (h *InsightHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpserver.UserID(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	items := h.dispatcher.History(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

// Run triggers the daily pipeline for the authenticated user. Generation is
// idempotent per day, so repeated calls are safe and cheap.
func (h *InsightHandler) Run(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpserver.UserID(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	ins := h.scheduler.TodayInsight(r.Context(), userID)

	sent, err := h.dispatcher.Dispatch(r.Context(), userID, ins)
	if err != nil {
		h.logger.Error("Dispatch failed", zap.Int("user_id", userID), zap.Error(err))
		http.Error(w, `{"error":"dispatch failed"}`, http.StatusInternalServerError)
		return
	}

	if _, err := h.dispatcher.PublishToFeed(r.Context(), userID, ins); err != nil {
		h.logger.Warn("Feed publish failed", zap.Int("user_id", userID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"insight":  ins,
		"notified": sent,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
