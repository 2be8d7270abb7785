// Package embedding lazily computes and caches embeddings for template
// profiles.
package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/okian/matchwise/internal/domain/scoring"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Writer persists a computed embedding onto its template document without
// touching other fields.
type Writer interface {
	SaveTemplateEmbedding(ctx context.Context, templateID string, embedding []float64) error
}

// Backfill outcomes reported to metrics.
const (
	outcomeHit     = "hit"
	outcomeSkipped = "skipped"
	outcomeStored  = "stored"
	outcomeFailed  = "failed"
)

// Provisioner implements the cache-aside backfill.
type Provisioner struct {
	embedder Embedder
	writer   Writer
	timeout  time.Duration
	logger   logger.Logger
}

// NewProvisioner wires an embedder and a write-back target.
func NewProvisioner(embedder Embedder, writer Writer, opts ...Option) *Provisioner {
	p := &Provisioner{embedder: embedder, writer: writer}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("embedding")
	}
	return p
}

// Ensure returns existing when it is non-empty. Otherwise it embeds
// baseText, normalizes and stores the result, and returns it. Any failure
// yields an empty vector so the template is left out of ranking.
func (p *Provisioner) Ensure(ctx context.Context, templateID, baseText string, existing []float64) []float64 {
	if len(existing) > 0 {
		metrics.RecordEmbeddingBackfill(outcomeHit)
		return existing
	}
	if strings.TrimSpace(baseText) == "" {
		metrics.RecordEmbeddingBackfill(outcomeSkipped)
		return nil
	}

	embedCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.embedder.Embed(embedCtx, baseText)
	if err != nil {
		p.fail(ctx, "embed template text failed", templateID, err)
		return nil
	}
	vec := scoring.Normalize(raw)

	// Write-back runs on the request context, not the embed timeout.
	if err := p.writer.SaveTemplateEmbedding(ctx, templateID, vec); err != nil {
		p.fail(ctx, "persist template embedding failed", templateID, err)
		return nil
	}

	metrics.RecordEmbeddingBackfill(outcomeStored)
	p.logger.Info(ctx, "generated embedding for template",
		logger.String("templateId", templateID),
		logger.Int("dims", len(vec)),
	)
	return vec
}

func (p *Provisioner) fail(ctx context.Context, msg, templateID string, err error) {
	metrics.RecordEmbeddingBackfill(outcomeFailed)
	metrics.RecordErrorByComponent("embedding", "backfill")
	p.logger.Error(ctx, msg,
		logger.String("templateId", templateID),
		logger.Error(err),
	)
}
