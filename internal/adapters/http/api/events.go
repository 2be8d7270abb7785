package api

import (
	"net/http"
	"strings"

	"github.com/okian/matchwise/pkg/logger"
)

// profileCreatedRequest is the body of POST /events/profile-created.
type profileCreatedRequest struct {
	EventID string `json:"event_id"`
	UID     string `json:"uid"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// EventsHandler accepts profile-created triggers.
type EventsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps Dependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: log}
}

// HandleProfileCreated handles POST /events/profile-created requests.
func (h *EventsHandler) HandleProfileCreated(w http.ResponseWriter, r *http.Request) {
	const op = "api.profile_created"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req profileCreatedRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.UID) == "" {
		writeFailure(r.Context(), h.logger, w, op, NewKind(op, ErrBadRequest))
		return
	}

	duplicate, err := h.deps.Enqueue(r.Context(), req.UID, req.EventID)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
