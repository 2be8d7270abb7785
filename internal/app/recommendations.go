package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/matchwise/internal/adapters/repository"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/internal/domain/ranking"
	"github.com/okian/matchwise/internal/domain/reason"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// GetRecommendations ranks candidates for uid and explains each one.
// A zero limit means the default; other values are clamped to 1..max.
func (s *Service) GetRecommendations(ctx context.Context, uid string, limit int) ([]model.AnnotatedCandidate, error) {
	start := time.Now()
	log := s.logger.With(logger.String("handler", "getRecommendations"), logger.String("uid", uid))

	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("%w: requester id is required", ErrInvalidArgument)
	}
	limit = s.clampLimit(limit)

	me, err := s.loadReadyProfile(ctx, uid)
	if err != nil {
		log.Warn(ctx, "requester profile not ready", logger.Error(err))
		return nil, err
	}

	ranked, err := s.collector.Collect(ctx, me, uid)
	if err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}
	top := ranking.EnforceProfileFirst(ranked, limit)
	out := s.annotate(ctx, me, top)

	metrics.RecordRecommendationsServed("on_demand")
	log.Info(ctx, "recommendations served",
		logger.Int("totalCandidates", len(ranked)),
		logger.Int("returned", len(out)),
		logger.Duration("took", time.Since(start)),
	)
	return out, nil
}

// HandleProfileCreated notifies a newly created attendee of their best
// matches. Profiles that are not ready yet are skipped silently.
func (s *Service) HandleProfileCreated(ctx context.Context, e model.ProfileCreated) error {
	log := s.logger.With(logger.String("handler", "onProfileCreate"), logger.String("uid", e.UID))

	me, err := s.loadReadyProfile(ctx, e.UID)
	if err != nil {
		if errors.Is(err, ErrProfileNotReady) {
			log.Info(ctx, "profile not ready, skipping notification")
			return nil
		}
		return err
	}

	ranked, err := s.collector.Collect(ctx, me, e.UID)
	if err != nil {
		return fmt.Errorf("collect candidates: %w", err)
	}
	top := ranking.EnforceProfileFirst(ranked, s.maxCandidates)
	if len(top) == 0 {
		log.Info(ctx, "no candidates, nothing to notify")
		return nil
	}

	msg := model.FoundMatchMessage{
		Type:       model.MessageFoundMatch,
		CreatedAt:  s.now().UTC(),
		Candidates: s.annotate(ctx, me, top),
	}
	id, err := s.repo.AddMessage(ctx, e.UID, model.MessageFoundMatch, msg)
	if err != nil {
		return err
	}
	metrics.RecordRecommendationsServed("profile_created")
	log.Info(ctx, "match notification written", logger.String("messageId", id), logger.Int("candidates", len(msg.Candidates)))
	return nil
}

func (s *Service) annotate(ctx context.Context, me model.Profile, top []model.RankedCandidate) []model.AnnotatedCandidate {
	reasons := s.reasons.GenerateReasonsBatch(ctx, me.Context(), top)
	out := make([]model.AnnotatedCandidate, 0, len(top))
	for _, c := range top {
		r := reasons[c.ID]
		if r == "" {
			r = reason.DefaultReason
		}
		out = append(out, model.Annotate(c, r))
	}
	return out
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit == 0:
		limit = s.defaultLimit
	case limit < 1:
		limit = 1
	}
	return min(limit, s.maxLimit)
}

// loadReadyProfile returns ErrProfileNotReady for a missing or unusable
// profile.
func (s *Service) loadReadyProfile(ctx context.Context, uid string) (model.Profile, error) {
	p, err := s.repo.GetProfile(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Profile{}, ErrProfileNotReady
	}
	if err != nil {
		return model.Profile{}, err
	}
	if !p.Usable() {
		return model.Profile{}, ErrProfileNotReady
	}
	return p, nil
}
