package api

import (
	"net/http"
	"strings"

	"github.com/okian/matchwise/pkg/logger"
)

type proposeRequest struct {
	ToUID string `json:"toUid"`
}

type proposeResponse struct {
	ProposalID string `json:"proposalId"`
}

type respondRequest struct {
	FromUID string `json:"fromUid"`
	Accept  bool   `json:"accept"`
}

// ConnectionsHandler serves connection proposals and answers.
type ConnectionsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewConnectionsHandler creates a new connections handler.
func NewConnectionsHandler(deps Dependencies, log logger.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{deps: deps, logger: log}
}

// HandlePropose handles POST /connections/propose.
func (h *ConnectionsHandler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	const op = "api.propose_connection"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	uid, err := requester(r)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrUnauthenticated, err))
		return
	}
	var req proposeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ToUID) == "" {
		writeFailure(r.Context(), h.logger, w, op, NewKind(op, ErrBadRequest))
		return
	}

	id, err := h.deps.ProposeConnection(r.Context(), uid, req.ToUID)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, proposeResponse{ProposalID: id})
}

// HandleRespond handles POST /connections/respond.
func (h *ConnectionsHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	const op = "api.respond_connection"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	uid, err := requester(r)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrUnauthenticated, err))
		return
	}
	var req respondRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.FromUID) == "" {
		writeFailure(r.Context(), h.logger, w, op, NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.RespondConnection(r.Context(), uid, req.FromUID, req.Accept)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
