package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/matchwise/internal/adapters/http/api"
	"github.com/okian/matchwise/internal/adapters/llm"
	"github.com/okian/matchwise/internal/adapters/repository"
	service "github.com/okian/matchwise/internal/app"
	"github.com/okian/matchwise/internal/config"
	"github.com/okian/matchwise/internal/domain/candidates"
	"github.com/okian/matchwise/internal/domain/embedding"
	"github.com/okian/matchwise/internal/domain/reason"
	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	embedRetryDelay        = 200 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		// Logger may not be available yet.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Named("main")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc := buildService(cfg, repository.NewRepository(store))
	if err := svc.Start(workerContext(ctx)); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreDriver), logger.String("aiMode", cfg.AIMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	svc.Stop(shutdownCtx)

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// workerContext keeps ctx values but not its cancellation, so queued triggers
// are drained by Stop under the shutdown deadline rather than cut off by the
// signal.
func workerContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// openStore opens the configured document store.
func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreBadger:
		s, err := repository.OpenBadgerStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return s, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// buildService wires the provider client, ranking and generation pipeline
// on top of repo.
func buildService(cfg *config.Config, repo *repository.Repository) *service.Service {
	client := llm.NewClient(
		llm.WithBaseURL(cfg.OpenAIBaseURL),
		llm.WithAPIKey(cfg.OpenAIAPIKey),
		llm.WithWorkflowAPIKey(cfg.WorkflowAPIKey),
		llm.WithModels(cfg.EmbeddingModel, cfg.TextModel),
		llm.WithEmbedRetry(uint(max(cfg.EmbedRetryAttempts, 1)), embedRetryDelay),
	)

	provisioner := embedding.NewProvisioner(client, repo, embedding.WithTimeout(cfg.EmbedTimeout()))
	collector := candidates.NewCollector(repo, repo, provisioner,
		candidates.WithBackfillConcurrency(cfg.BackfillConcurrency),
	)

	breaker := func(name string) llm.BreakerSettings {
		return llm.BreakerSettings{
			Name:         name,
			FailureRatio: cfg.BreakerFailureRatio,
			MinRequests:  uint32(max(cfg.BreakerMinRequests, 1)),
			OpenTimeout:  cfg.BreakerOpenTimeout(),
		}
	}
	engine := reason.NewEngine(
		llm.NewBreakerWorkflow(client, breaker("workflow")),
		llm.NewBreakerPrompter(client, breaker("prompt")),
		reason.WithDirectMode(cfg.AIMode == config.AIModeDirect),
		reason.WithWorkflowIDs(cfg.WorkflowReasonBatchID, cfg.WorkflowIntroID),
		reason.WithTimeouts(cfg.WorkflowTimeout(), cfg.PromptTimeout()),
	)

	return service.New(repo, collector, engine,
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.TriggerQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxCandidates(cfg.MaxCandidates),
		service.WithLimits(cfg.DefaultLimit, cfg.MaxLimit),
		service.WithAutoReplyDelay(cfg.AutoReplyDelay()),
	)
}

// startServiceMetricsUpdater periodically publishes service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
