// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/matchwise/internal/app"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GetRecommendations(ctx context.Context, uid string, limit int) ([]model.AnnotatedCandidate, error)
	ProposeConnection(ctx context.Context, fromUID, toUID string) (string, error)
	RespondConnection(ctx context.Context, responderUID, fromUID string, accept bool) (service.ConnectionResult, error)

	// Enqueue accepts a profile-created trigger. duplicate is true when
	// the profile was already triggered.
	Enqueue(ctx context.Context, uid, eventID string) (duplicate bool, err error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	recommendHandler   *RecommendationsHandler
	connectionsHandler *ConnectionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	log := logger.Named("api")
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps, log),
		recommendHandler:   NewRecommendationsHandler(deps, log),
		connectionsHandler: NewConnectionsHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/recommendations", MetricsMiddleware(s.recommendHandler.HandleGetRecommendations, "recommendations"))
	mux.HandleFunc("/connections/propose", MetricsMiddleware(s.connectionsHandler.HandlePropose, "connections_propose"))
	mux.HandleFunc("/connections/respond", MetricsMiddleware(s.connectionsHandler.HandleRespond, "connections_respond"))
	mux.HandleFunc("/events/profile-created", MetricsMiddleware(s.eventsHandler.HandleProfileCreated, "events_profile_created"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure logs err and answers with its mapped status.
func writeFailure(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	log.Debug(ctx, "request rejected", logger.String("op", op), logger.Int("status", status), logger.Error(err))
	writeError(w, status, code, err)
}
