package handler

import (
	"net/http"

	"agency-sync-server/internal/config"
	"agency-sync-server/internal/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handlers struct {
	Document    *DocumentHandler
	Collections *CollectionHandler
	Sync        *SyncHandler
	Match       *MatchHandler
	Health      *HealthHandler
	WebSocket   *WebSocketHandler
}

// NewRouter mounts every route. metrics may be nil.
func NewRouter(h Handlers, cors config.CORSConfig, log *zap.SugaredLogger, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORSMiddleware(
		cors.AllowedOrigins,
		cors.AllowedMethods,
		cors.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/document", h.Document.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/document", h.Document.Update).Methods("PUT", "OPTIONS")

	api.HandleFunc("/collections/{name}", h.Collections.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/cache/refresh", h.Collections.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/cache", h.Collections.Clear).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/sync", h.Sync.Sync).Methods("POST", "OPTIONS")
	api.HandleFunc("/report", h.Sync.Report).Methods("GET", "OPTIONS")

	api.HandleFunc("/bookings/{id}/matches", h.Match.Matches).Methods("GET", "OPTIONS")

	if h.WebSocket != nil {
		r.HandleFunc("/ws", h.WebSocket.HandleConnection)
	}
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}
	r.HandleFunc("/health", h.Health.Health).Methods("GET")

	return r
}
