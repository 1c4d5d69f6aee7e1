package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lym-insights/internal/httpserver"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Router struct {
	Mux *http.ServeMux
}

func NewRouter(
	insightHandler *InsightHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	rdb *redis.Client,
) *Router {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeStatus(w, http.StatusInternalServerError, "db_not_ready")
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			writeStatus(w, http.StatusInternalServerError, "redis_not_ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	mux.Handle("/metrics", promhttp.Handler())

	// Protected API
	mux.Handle("GET /insight/today", httpserver.AuthMiddleware(jwtSecret, http.HandlerFunc(insightHandler.GetToday)))
	mux.Handle("GET /insight/history", httpserver.AuthMiddleware(jwtSecret, http.HandlerFunc(insightHandler.GetHistory)))
	mux.Handle("POST /insight/run", httpserver.AuthMiddleware(jwtSecret, http.HandlerFunc(insightHandler.Run)))

	return &Router{Mux: mux}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
