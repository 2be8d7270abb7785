package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchwise/internal/adapters/repository"
	"github.com/okian/matchwise/internal/domain/identity"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
)

const (
	// ProposalAccepted is returned for proposals between live attendees.
	ProposalAccepted = "ok"

	defaultTemplateNickname = "Guest"
	defaultTemplateIntro    = "Looking forward to meeting you at the event!"
)

// ConnectionResult is the outcome of RespondConnection.
type ConnectionResult struct {
	Matched bool   `json:"matched"`
	MatchID string `json:"matchId,omitempty"`
}

// ProposeConnection asks toUID to connect with fromUID. Template candidates
// answer by themselves after a short delay.
func (s *Service) ProposeConnection(ctx context.Context, fromUID, toUID string) (string, error) {
	log := s.logger.With(logger.String("handler", "proposeConnection"), logger.String("uid", fromUID), logger.String("toUid", toUID))
	if strings.TrimSpace(fromUID) == "" || strings.TrimSpace(toUID) == "" {
		return "", fmt.Errorf("%w: both attendee ids are required", ErrInvalidArgument)
	}
	if templateID, ok := identity.TemplateIDFromCandidate(toUID); ok {
		return s.proposeToTemplate(ctx, log, fromUID, toUID, templateID)
	}

	a, b, err := s.loadPair(ctx, fromUID, toUID)
	if err != nil {
		log.Warn(ctx, "profile not found for proposal", logger.Error(err))
		return "", err
	}

	msg := model.RequestMatchMessage{
		Type:      model.MessageRequestMatch,
		CreatedAt: s.now().UTC(),
		FromUID:   fromUID,
		Candidate: model.CandidateRef{UID: a.ID, Nickname: a.Nickname, ImageKey: a.ImageKey},
		Reason:    s.reasons.GenerateReason(ctx, a.Context(), b.Context()),
	}
	if _, err := s.repo.AddMessage(ctx, toUID, model.MessageRequestMatch, msg); err != nil {
		return "", err
	}
	log.Info(ctx, "proposal delivered")
	return ProposalAccepted, nil
}

func (s *Service) proposeToTemplate(ctx context.Context, log logger.Logger, fromUID, candidateID, templateID string) (string, error) {
	var me model.Profile
	var tmpl model.TemplateProfile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if me, err = s.repo.GetProfile(gctx, fromUID); errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		if tmpl, err = s.repo.GetTemplate(gctx, templateID); errors.Is(err, repository.ErrNotFound) {
			return ErrCandidateUnavailable
		}
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn(ctx, "template proposal rejected", logger.String("templateId", templateID), logger.Error(err))
		return "", err
	}

	nickname := cmp.Or(strings.TrimSpace(tmpl.Username), defaultTemplateNickname)
	intro := cmp.Or(strings.TrimSpace(tmpl.ProfileText), strings.TrimSpace(tmpl.DummyIntro), defaultTemplateIntro)
	social := strings.TrimSpace(tmpl.SocialID)

	if err := sleepCtx(ctx, s.autoReplyDelay); err != nil {
		return "", err
	}

	msg := model.MatchIntroMessage{
		Type:       model.MessageMatchIntro,
		CreatedAt:  s.now().UTC(),
		IsCopiable: false,
		Intro: model.IntroBody{
			Peer: model.Peer{
				UID:          candidateID,
				Nickname:     nickname,
				ImageKey:     identity.ResolveImageKey(tmpl.ImageKey, templateID),
				SocialLink:   social,
				SocialID:     social,
				Introduction: intro,
				ProfileText:  intro,
			},
			Topics:     []string{},
			IceBreaker: "Hi " + nickname + "! Looking forward to connecting at the event.",
		},
		Meta: &model.IntroMeta{SourceType: model.SourceTemplate, AutoSayHi: true, TemplateID: templateID},
	}
	id := "predata_auto_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.repo.PutMessage(ctx, me.ID, id, model.MessageMatchIntro, msg); err != nil {
		return "", err
	}
	log.Info(ctx, "template auto reply written", logger.String("templateId", templateID))
	return "auto_" + templateID, nil
}

// RespondConnection answers a proposal from fromUID. On accept the match
// is recorded once and both sides receive an introduction.
func (s *Service) RespondConnection(ctx context.Context, responderUID, fromUID string, accept bool) (ConnectionResult, error) {
	log := s.logger.With(logger.String("handler", "respondConnection"), logger.String("uid", responderUID), logger.String("fromUid", fromUID))
	if strings.TrimSpace(responderUID) == "" || strings.TrimSpace(fromUID) == "" {
		return ConnectionResult{}, fmt.Errorf("%w: both attendee ids are required", ErrInvalidArgument)
	}
	if !accept {
		log.Info(ctx, "connection declined")
		return ConnectionResult{Matched: false}, nil
	}

	a, b, err := s.loadPair(ctx, fromUID, responderUID)
	if err != nil {
		log.Warn(ctx, "profile not found during respond", logger.Error(err))
		return ConnectionResult{}, err
	}

	matchID, created, err := s.repo.EnsureMatch(ctx, fromUID, responderUID)
	if err != nil {
		return ConnectionResult{}, err
	}

	intro := s.reasons.GenerateIntro(ctx, a.Context(), b.Context())
	msgID := "intro_" + matchID
	now := s.now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.repo.PutMessage(gctx, fromUID, msgID, model.MessageMatchIntro, introMessage(now, b, intro.Topics, intro.IceBreakerForTarget))
	})
	g.Go(func() error {
		return s.repo.PutMessage(gctx, responderUID, msgID, model.MessageMatchIntro, introMessage(now, a, intro.Topics, intro.IceBreakerForPeer))
	})
	if err := g.Wait(); err != nil {
		return ConnectionResult{}, err
	}

	log.Info(ctx, "connection accepted", logger.String("matchId", matchID), logger.Bool("newMatch", created))
	return ConnectionResult{Matched: true, MatchID: matchID}, nil
}

func introMessage(at time.Time, peer model.Profile, topics []string, iceBreaker string) model.MatchIntroMessage {
	return model.MatchIntroMessage{
		Type:       model.MessageMatchIntro,
		CreatedAt:  at,
		IsCopiable: true,
		Intro: model.IntroBody{
			Peer: model.Peer{
				UID:          peer.ID,
				Nickname:     peer.Nickname,
				ImageKey:     peer.ImageKey,
				SocialID:     peer.SocialID,
				Introduction: peer.Introduction,
				ProfileText:  peer.ProfileText,
			},
			Topics:     topics,
			IceBreaker: iceBreaker,
		},
	}
}

// loadPair loads both live profiles concurrently. ErrProfileNotFound when
// either is missing.
func (s *Service) loadPair(ctx context.Context, first, second string) (model.Profile, model.Profile, error) {
	var a, b model.Profile
	g, gctx := errgroup.WithContext(ctx)
	load := func(uid string, dst *model.Profile) func() error {
		return func() error {
			p, err := s.repo.GetProfile(gctx, uid)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrProfileNotFound, uid)
			}
			if err != nil {
				return err
			}
			*dst = p
			return nil
		}
	}
	g.Go(load(first, &a))
	g.Go(load(second, &b))
	if err := g.Wait(); err != nil {
		return model.Profile{}, model.Profile{}, err
	}
	return a, b, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
