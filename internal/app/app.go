package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"SubmissionTagger/internal/agent"
	"SubmissionTagger/internal/config"
	"SubmissionTagger/internal/domain"
	"SubmissionTagger/internal/inference"
	"SubmissionTagger/internal/infrastructure/extract"
	"SubmissionTagger/internal/infrastructure/llm"
	"SubmissionTagger/internal/infrastructure/scheduler"
	"SubmissionTagger/internal/infrastructure/storage"
	"SubmissionTagger/internal/infrastructure/telegram"
	"SubmissionTagger/internal/logging"
	"SubmissionTagger/internal/normalize"
	"SubmissionTagger/internal/ports"
	"SubmissionTagger/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	generator ports.MetadataGenerator
	notifier  ports.Notifier
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := inference.NewRegistry()
	registry.Register(llm.NewOllamaClient(cfg.Inference))
	registry.Register(llm.NewOpenAIClient(cfg.Inference))

	provider, err := registry.Resolve(cfg.Inference.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolve inference provider: %w", err)
	}

	retry := agent.DefaultRetryConfig()
	if cfg.Pipeline.StageAttempts > 0 {
		retry.MaxAttempts = cfg.Pipeline.StageAttempts
	}
	runner := agent.NewRunner(provider, retry, baseLogger.With("component", "runner"))
	orchestrator := agent.NewOrchestrator(runner, cfg.Pipeline.MaxRetries, baseLogger.With("component", "orchestrator"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		generator: orchestrator,
		notifier:  notifier,
	}, nil
}

// RunBatch performs one ETL run over the configured feed.
func (a *Application) RunBatch(ctx context.Context) (domain.RunSummary, error) {
	feed, err := extract.Open(a.cfg.ETL.FeedPath)
	if err != nil {
		return domain.RunSummary{}, err
	}
	defer feed.Close()

	repo, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return domain.RunSummary{}, err
	}
	defer repo.Close()

	etl := usecase.NewETL(usecase.ETLDeps{
		Source:     feed,
		Generator:  a.generator,
		Repository: repo,
		Notifier:   a.notifier,
		Workers:    a.cfg.ETL.Workers,
		Logger:     a.logger.With("component", "etl"),
	})

	return etl.Run(ctx)
}

// Watch re-runs the batch on the configured interval until ctx ends.
func (a *Application) Watch(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.IntervalDuration())
	sched := usecase.NewScheduler(driver, func(runCtx context.Context) {
		if _, err := a.RunBatch(runCtx); err != nil {
			a.logger.Error("batch run failed", "error", err)
		}
	})

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.WithoutCancel(ctx))
}

// TagOne runs the agent workflow for a single ad-hoc submission and returns
// the normalized metadata.
func (a *Application) TagOne(ctx context.Context, title, content string) (domain.StructuredMetadata, error) {
	sub := domain.RawSubmission{
		ID:         uuid.NewString(),
		Title:      title,
		Content:    content,
		ReceivedAt: time.Now(),
	}

	md, err := a.generator.Process(ctx, sub)
	if err != nil {
		return domain.StructuredMetadata{}, err
	}

	rec := normalize.Record(sub, md, time.Now())
	return rec.Metadata, nil
}
