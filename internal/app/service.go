// Package service wires ranking, reason generation and storage into the
// recommendation, notification and connection operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/matchwise/internal/adapters/mq/queue"
	workerpool "github.com/okian/matchwise/internal/adapters/mq/worker"
	"github.com/okian/matchwise/internal/domain/dedupe"
	"github.com/okian/matchwise/internal/domain/model"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// Repository is the storage the service reads and writes.
type Repository interface {
	GetProfile(ctx context.Context, uid string) (model.Profile, error)
	GetTemplate(ctx context.Context, id string) (model.TemplateProfile, error)
	AddMessage(ctx context.Context, uid string, kind model.MessageType, msg any) (string, error)
	PutMessage(ctx context.Context, uid, id string, kind model.MessageType, msg any) error
	EnsureMatch(ctx context.Context, a, b string) (matchID string, created bool, err error)
}

// Collector ranks every known profile against a requester.
type Collector interface {
	Collect(ctx context.Context, self model.Profile, excludeID string) ([]model.RankedCandidate, error)
}

// ReasonEngine produces match explanations and introductions. Its methods
// never fail.
type ReasonEngine interface {
	GenerateReasonsBatch(ctx context.Context, me model.ProfileContext, cands []model.RankedCandidate) map[string]string
	GenerateReason(ctx context.Context, a, b model.ProfileContext) string
	GenerateIntro(ctx context.Context, a, b model.ProfileContext) model.Intro
}

// Service implements the API dependencies of the matching system.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo       Repository
	collector  Collector
	reasons    ReasonEngine
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	maxCandidates  int
	defaultLimit   int
	maxLimit       int
	autoReplyDelay time.Duration

	now     func() time.Time
	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(repo Repository, collector Collector, reasons ReasonEngine, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		collector:      collector,
		reasons:        reasons,
		workerCount:    runtime.NumCPU(),
		queueSize:      1000,
		dedupeSize:     10000,
		maxCandidates:  3,
		defaultLimit:   3,
		maxLimit:       10,
		autoReplyDelay: 800 * time.Millisecond,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// Start creates the trigger queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, workerpool.HandlerFunc(s.handleTrigger))
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued triggers and stops the workers.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

// SeenAndRecord reports whether a trigger for uid was already accepted and
// records it otherwise.
func (s *Service) SeenAndRecord(ctx context.Context, uid string) bool {
	seen := s.deduper.SeenAndRecord(ctx, uid)
	if seen {
		metrics.RecordTriggerDuplicate()
	}
	return seen
}

// Unrecord forgets uid so that a later delivery is accepted again.
func (s *Service) Unrecord(ctx context.Context, uid string) {
	s.deduper.Unrecord(ctx, uid)
}

// handleTrigger runs a queued trigger. A failed delivery is forgotten so
// that a redelivery for the same profile is accepted.
func (s *Service) handleTrigger(ctx context.Context, e model.ProfileCreated) error {
	if err := s.HandleProfileCreated(ctx, e); err != nil {
		s.Unrecord(ctx, e.UID)
		return err
	}
	return nil
}

// Enqueue accepts a profile-created trigger for asynchronous handling.
// Repeated deliveries for the same profile are reported as duplicates and
// dropped. A full queue forgets the delivery so it can be retried.
func (s *Service) Enqueue(ctx context.Context, uid, eventID string) (duplicate bool, err error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return false, fmt.Errorf("%w: uid is required", ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}
	if s.SeenAndRecord(ctx, uid) {
		s.logger.Debug(ctx, "duplicate profile-created trigger", logger.String("uid", uid))
		return true, nil
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}
	e := model.ProfileCreated{EventID: eventID, UID: uid, ReceivedAt: s.now()}
	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		s.Unrecord(ctx, uid)
		if errors.Is(err, eventqueue.ErrFull) {
			return false, fmt.Errorf("%w: %w", ErrQueueFull, err)
		}
		return false, err
	}
	return false, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"maxCandidates": s.maxCandidates,
		"defaultLimit":  s.defaultLimit,
		"maxLimit":      s.maxLimit,
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}
	return stats
}
