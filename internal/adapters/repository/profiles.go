package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// Repository maps domain records onto a Store.
type Repository struct {
	store  Store
	now    func() time.Time
	logger logger.Logger
}

// NewRepository wraps store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store, now: time.Now, logger: logger.Named("repository")}
}

// Store exposes the underlying document store.
func (r *Repository) Store() Store { return r.store }

// GetProfile loads a live profile. ErrNotFound when absent.
func (r *Repository) GetProfile(ctx context.Context, uid string) (model.Profile, error) {
	doc, err := r.store.Get(ctx, CollectionProfiles, uid)
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return ProfileFromDocument(uid, doc), nil
}

// PutProfile replaces a live profile.
func (r *Repository) PutProfile(ctx context.Context, p model.Profile) error {
	return r.store.Set(ctx, CollectionProfiles, p.ID, ProfileDocument(p), false)
}

func (r *Repository) ScanProfiles(ctx context.Context, fn func(model.Profile) error) error {
	return r.store.ScanAll(ctx, CollectionProfiles, func(id string, doc Document) error {
		return fn(ProfileFromDocument(id, doc))
	})
}

// GetTemplate loads a template by its bare id. ErrNotFound when absent.
func (r *Repository) GetTemplate(ctx context.Context, id string) (model.TemplateProfile, error) {
	doc, err := r.store.Get(ctx, CollectionTemplates, id)
	if err != nil {
		return model.TemplateProfile{}, fmt.Errorf("get template %s: %w", id, err)
	}
	return TemplateFromDocument(id, doc), nil
}

// PutTemplate replaces a template.
func (r *Repository) PutTemplate(ctx context.Context, t model.TemplateProfile) error {
	return r.store.Set(ctx, CollectionTemplates, t.ID, TemplateDocument(t), false)
}

func (r *Repository) ScanTemplates(ctx context.Context, fn func(model.TemplateProfile) error) error {
	return r.store.ScanAll(ctx, CollectionTemplates, func(id string, doc Document) error {
		return fn(TemplateFromDocument(id, doc))
	})
}

// SaveTemplateEmbedding merge-writes an embedding onto a template.
func (r *Repository) SaveTemplateEmbedding(ctx context.Context, id string, embedding []float64) error {
	if err := r.store.Set(ctx, CollectionTemplates, id, Document{fieldEmbedding: embedding}, true); err != nil {
		return fmt.Errorf("save template embedding %s: %w", id, err)
	}
	return nil
}

// AddMessage appends msg to an inbox under a fresh id and returns it.
func (r *Repository) AddMessage(ctx context.Context, uid string, kind model.MessageType, msg any) (string, error) {
	id := uuid.NewString()
	if err := r.PutMessage(ctx, uid, id, kind, msg); err != nil {
		return "", err
	}
	return id, nil
}

// PutMessage writes msg to an inbox under a caller-chosen id, replacing any
// message with the same id.
func (r *Repository) PutMessage(ctx context.Context, uid, id string, kind model.MessageType, msg any) error {
	doc, err := toDocument(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", kind, err)
	}
	if err := r.store.Set(ctx, InboxCollection(uid), id, doc, false); err != nil {
		metrics.RecordErrorByComponent("repository", "message_write")
		return fmt.Errorf("write %s message for %s: %w", kind, uid, err)
	}
	metrics.RecordMessageWritten(string(kind))
	r.logger.Debug(ctx, "message written", logger.String("uid", uid), logger.String("messageId", id), logger.String("type", string(kind)))
	return nil
}

// ListMessages returns every message in an inbox.
func (r *Repository) ListMessages(ctx context.Context, uid string) (map[string]Document, error) {
	out := make(map[string]Document)
	err := r.store.ScanAll(ctx, InboxCollection(uid), func(id string, doc Document) error {
		out[id] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureMatch creates the match record for a pair unless it already
// exists. created reports whether this call wrote it.
func (r *Repository) EnsureMatch(ctx context.Context, a, b string) (matchID string, created bool, err error) {
	matchID = PairID(a, b)
	doc, err := toDocument(model.Match{UIDs: []string{a, b}, MatchedAt: r.now().UTC()})
	if err != nil {
		return "", false, fmt.Errorf("encode match: %w", err)
	}
	err = r.store.RunTransaction(ctx, func(tx Tx) error {
		created = false
		_, err := tx.Get(CollectionMatches, matchID)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, ErrNotFound):
			return err
		}
		created = true
		return tx.Set(CollectionMatches, matchID, doc, false)
	})
	if err != nil {
		return "", false, fmt.Errorf("ensure match %s: %w", matchID, err)
	}
	return matchID, created, nil
}
