// Package candidates scans both profile pools and produces a
// similarity-sorted, deduplicated candidate list for one requester.
package candidates

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchwise/internal/domain/dedupe"
	"github.com/okian/matchwise/internal/domain/identity"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/internal/domain/scoring"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

const defaultBackfillConcurrency = 4

// ProfileSource enumerates live profiles.
type ProfileSource interface {
	ScanProfiles(ctx context.Context, fn func(model.Profile) error) error
}

// TemplateSource enumerates template profiles.
type TemplateSource interface {
	ScanTemplates(ctx context.Context, fn func(model.TemplateProfile) error) error
}

// Provisioner returns a usable embedding for a template, or an empty one.
type Provisioner interface {
	Ensure(ctx context.Context, templateID, baseText string, existing []float64) []float64
}

// Collector ranks every known profile against a requester.
type Collector struct {
	profiles    ProfileSource
	templates   TemplateSource
	provisioner Provisioner
	concurrency int
	logger      logger.Logger
}

// NewCollector creates a collector over both pools.
func NewCollector(profiles ProfileSource, templates TemplateSource, provisioner Provisioner, opts ...Option) *Collector {
	c := &Collector{
		profiles:    profiles,
		templates:   templates,
		provisioner: provisioner,
		concurrency: defaultBackfillConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("collector")
	}
	return c
}

// identityKeys are the two request-scoped dedup namespaces.
type identityKeys struct {
	social   dedupe.KeySet
	nickname dedupe.KeySet
}

func (k identityKeys) seen(social, nick string) bool {
	return k.social.Has(social) || k.nickname.Has(nick)
}

func (k identityKeys) add(social, nick string) {
	k.social.Add(social)
	k.nickname.Add(nick)
}

// Collect scores every usable profile except excludeID and every template
// that is not a duplicate of an already accepted person. The result is
// sorted by score, highest first, ties kept in scan order.
//
// Per-item failures exclude that candidate. A failed pool scan is logged and
// contributes nothing. Only cancellation of ctx is returned as an error.
func (c *Collector) Collect(ctx context.Context, self model.Profile, excludeID string) ([]model.RankedCandidate, error) {
	start := time.Now()
	selfNick, _ := identity.NormalizeNickname(self.Nickname)
	keys := identityKeys{social: dedupe.NewKeySet(), nickname: dedupe.NewKeySet(selfNick)}

	out, err := c.collectProfiles(ctx, self.Embedding, excludeID, keys)
	if err != nil {
		return nil, err
	}
	fromProfiles := len(out)

	out, err = c.collectTemplates(ctx, self.Embedding, keys, out)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b model.RankedCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	metrics.RecordCandidatesCollected(string(model.SourceProfile), fromProfiles)
	metrics.RecordCandidatesCollected(string(model.SourceTemplate), len(out)-fromProfiles)
	metrics.RecordCollectLatency(float64(time.Since(start).Milliseconds()))
	return out, nil
}

func (c *Collector) collectProfiles(ctx context.Context, self []float64, excludeID string, keys identityKeys) ([]model.RankedCandidate, error) {
	var (
		found   []model.RankedCandidate
		socials []string
		nicks   []string
	)
	err := c.profiles.ScanProfiles(ctx, func(p model.Profile) error {
		if p.ID == excludeID || !p.Usable() {
			return nil
		}
		nick, _ := identity.NormalizeNickname(p.Nickname)
		socials = append(socials, identity.NormalizeSocialID(p.SocialID))
		nicks = append(nicks, nick)
		found = append(found, model.RankedCandidate{
			ID:           p.ID,
			Nickname:     p.Nickname,
			ImageKey:     p.ImageKey,
			ProfileText:  p.ProfileText,
			Introduction: p.Introduction,
			Score:        scoring.Cosine(self, p.Embedding),
			Source:       model.SourceProfile,
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("scan profiles: %w", ctxErr)
		}
		c.scanFailed(ctx, "profiles", err)
		return nil, nil
	}
	for i := range socials {
		keys.add(socials[i], nicks[i])
	}
	return found, nil
}

// pendingTemplate passed the checks against live profiles and waits for
// its embedding.
type pendingTemplate struct {
	tpl       model.TemplateProfile
	baseText  string
	social    string
	nick      string
	embedding []float64
	state     templateState
}

type templateState int

const (
	undecided templateState = iota
	accepted
	rejected
)

func (c *Collector) collectTemplates(ctx context.Context, self []float64, keys identityKeys, out []model.RankedCandidate) ([]model.RankedCandidate, error) {
	var pending []pendingTemplate
	err := c.templates.ScanTemplates(ctx, func(t model.TemplateProfile) error {
		social := identity.NormalizeSocialID(t.SocialID)
		nick, _ := identity.NormalizeNickname(t.Username)
		if keys.social.Has(social) {
			c.logger.Debug(ctx, "skipping template duplicate of profile by social id",
				logger.String("templateId", t.ID), logger.String("socialId", social))
			return nil
		}
		if keys.nickname.Has(nick) {
			c.logger.Debug(ctx, "skipping template duplicate of profile by nickname",
				logger.String("templateId", t.ID), logger.String("nickname", nick))
			return nil
		}
		base := strings.TrimSpace(t.ProfileText)
		if base == "" {
			c.logger.Debug(ctx, "skipping template without profile text", logger.String("templateId", t.ID))
			return nil
		}
		pending = append(pending, pendingTemplate{tpl: t, baseText: base, social: social, nick: nick, embedding: t.Embedding})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("scan templates: %w", ctxErr)
		}
		c.scanFailed(ctx, "templates", err)
		return out, nil
	}

	if err := c.resolve(ctx, pending, keys); err != nil {
		return nil, err
	}

	for _, p := range pending {
		if p.state != accepted {
			continue
		}
		out = append(out, model.RankedCandidate{
			ID:           identity.TemplateCandidateID(p.tpl.ID),
			Nickname:     p.tpl.Username,
			ImageKey:     identity.ResolveImageKey(p.tpl.ImageKey, p.tpl.ID),
			ProfileText:  p.baseText,
			Introduction: cmp.Or(p.baseText, p.tpl.DummyIntro),
			Score:        scoring.Cosine(self, p.embedding),
			Source:       model.SourceTemplate,
		})
	}
	return out, nil
}

// resolve decides every pending template with the outcome of a sequential
// check-then-embed pass in scan order, while embedding independent templates
// concurrently. Each round walks the undecided templates in order: a
// template whose keys were already accepted is rejected; one that shares a
// key with an earlier undecided template waits for the next round; the
// rest are accepted or, lacking an embedding, backfilled in this round.
// A template whose backfill comes back empty is rejected without claiming
// its keys, so a later duplicate may take its place.
func (c *Collector) resolve(ctx context.Context, pending []pendingTemplate, keys identityKeys) error {
	for {
		blocked := identityKeys{social: dedupe.NewKeySet(), nickname: dedupe.NewKeySet()}
		var batch []int
		for i := range pending {
			p := &pending[i]
			if p.state != undecided {
				continue
			}
			switch {
			case keys.seen(p.social, p.nick):
				c.logger.Debug(ctx, "skipping template duplicate of template", logger.String("templateId", p.tpl.ID))
				p.state = rejected
			case blocked.seen(p.social, p.nick):
				// Depends on an earlier template still being decided.
			case len(p.embedding) > 0:
				keys.add(p.social, p.nick)
				p.state = accepted
				continue
			default:
				batch = append(batch, i)
			}
			if p.state == undecided {
				blocked.add(p.social, p.nick)
			}
		}
		if len(batch) == 0 {
			return nil
		}
		if err := c.backfill(ctx, pending, batch); err != nil {
			return err
		}
		for _, i := range batch {
			if len(pending[i].embedding) == 0 {
				c.logger.Debug(ctx, "skipping template without embedding", logger.String("templateId", pending[i].tpl.ID))
				pending[i].state = rejected
			}
		}
	}
}

// backfill ensures embeddings for the batch with bounded concurrency.
// Each goroutine writes only its own slot.
func (c *Collector) backfill(ctx context.Context, pending []pendingTemplate, batch []int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, i := range batch {
		g.Go(func() error {
			p := &pending[i]
			p.embedding = c.provisioner.Ensure(gctx, p.tpl.ID, p.baseText, p.tpl.Embedding)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("backfill embeddings: %w", err)
	}
	return nil
}

func (c *Collector) scanFailed(ctx context.Context, pool string, err error) {
	metrics.RecordErrorByComponent("collector", "scan_"+pool)
	c.logger.Error(ctx, "pool scan failed, continuing without it",
		logger.String("pool", pool),
		logger.Error(err),
	)
}
