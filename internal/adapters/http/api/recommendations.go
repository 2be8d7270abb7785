package api

import (
	"net/http"

	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
)

type recommendationsRequest struct {
	Limit int `json:"limit"`
}

type recommendationsResponse struct {
	Candidates []model.AnnotatedCandidate `json:"candidates"`
}

// RecommendationsHandler serves ranked, explained candidates.
type RecommendationsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps Dependencies, log logger.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps, logger: log}
}

// HandleGetRecommendations handles POST /recommendations. A missing or
// zero limit selects the default.
func (h *RecommendationsHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recommendations"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	uid, err := requester(r)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrUnauthenticated, err))
		return
	}
	var req recommendationsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(r.Context(), h.logger, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}

	cands, err := h.deps.GetRecommendations(r.Context(), uid, req.Limit)
	if err != nil {
		writeFailure(r.Context(), h.logger, w, op, err)
		return
	}
	if cands == nil {
		cands = []model.AnnotatedCandidate{}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Candidates: cands})
}
