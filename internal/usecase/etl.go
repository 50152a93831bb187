package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SubmissionTagger/internal/agent"
	"SubmissionTagger/internal/domain"
	"SubmissionTagger/internal/normalize"
	"SubmissionTagger/internal/ports"
)

// ETLDeps wires all driven adapters into the batch driver.
type ETLDeps struct {
	Source     ports.RecordSource
	Generator  ports.MetadataGenerator
	Repository ports.RecordRepository
	Notifier   ports.Notifier
	Workers    int
	Logger     *slog.Logger
	Now        func() time.Time
}

// ETL implements the extract -> agent workflow -> normalize -> load batch.
// Record failures are fail-soft: they are counted and the batch continues.
// Only a connectivity-level store error aborts the run.
type ETL struct {
	source     ports.RecordSource
	generator  ports.MetadataGenerator
	repository ports.RecordRepository
	notifier   ports.Notifier
	workers    int
	logger     *slog.Logger
	now        func() time.Time
}

// NewETL constructs the batch driver.
func NewETL(deps ETLDeps) *ETL {
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ETL{
		source:     deps.Source,
		generator:  deps.Generator,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		workers:    workers,
		logger:     deps.Logger,
		now:        now,
	}
}

// Run drains the record source, processing up to Workers records
// concurrently. Cancelling ctx stops dispatching new records but lets
// in-flight ones finish. The returned summary is complete in either case;
// the error is non-nil only for the run-aborting conditions.
func (e *ETL) Run(ctx context.Context) (domain.RunSummary, error) {
	summary := domain.RunSummary{RunID: uuid.NewString(), StartedAt: e.now()}

	var mu sync.Mutex
	var fatalOnce sync.Once
	var fatalErr error
	fatal := make(chan struct{})
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			close(fatal)
		})
	}

	// In-flight records survive a shutdown signal; their inference and
	// store calls carry their own timeouts.
	procCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(e.workers)

dispatch:
	for {
		select {
		case <-ctx.Done():
			e.debug("dispatch stopped", "reason", "cancelled")
			break dispatch
		case <-fatal:
			break dispatch
		default:
		}

		sub, err := e.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break dispatch
			}
			var malformed *domain.MalformedInputError
			if errors.As(err, &malformed) {
				mu.Lock()
				summary.Rejected++
				summary.Rejects = append(summary.Rejects, domain.Reject{
					Kind:   domain.FailureMalformedInput,
					Reason: malformed.Error(),
				})
				mu.Unlock()
				continue
			}
			if ctx.Err() != nil {
				break dispatch
			}
			abort(fmt.Errorf("read extract feed: %w", err))
			break dispatch
		}

		mu.Lock()
		summary.Extracted++
		mu.Unlock()

		g.Go(func() error {
			e.processRecord(procCtx, sub, &summary, &mu, abort)
			return nil
		})
	}

	_ = g.Wait()
	summary.FinishedAt = e.now()

	e.report(procCtx, summary)
	return summary, fatalErr
}

func (e *ETL) processRecord(ctx context.Context, sub domain.RawSubmission, summary *domain.RunSummary, mu *sync.Mutex, abort func(error)) {
	md, err := e.generator.Process(ctx, sub)
	if err != nil {
		kind, reason := rejectDetails(err)
		e.debug("submission rejected", "source_id", sub.ID, "kind", kind, "reason", reason)
		mu.Lock()
		summary.Rejected++
		summary.Rejects = append(summary.Rejects, domain.Reject{SourceID: sub.ID, Kind: kind, Reason: reason})
		mu.Unlock()
		return
	}

	mu.Lock()
	summary.Transformed++
	mu.Unlock()

	rec := normalize.Record(sub, md, e.now())

	if err := e.repository.Upsert(ctx, rec); err != nil {
		e.debug("load failed", "source_id", sub.ID, "error", err)
		mu.Lock()
		summary.Rejected++
		summary.Rejects = append(summary.Rejects, domain.Reject{SourceID: sub.ID, Kind: domain.FailureStore, Reason: err.Error()})
		mu.Unlock()
		if domain.IsFatalStoreError(err) {
			abort(err)
		}
		return
	}

	mu.Lock()
	summary.Loaded++
	mu.Unlock()
	e.debug("submission loaded", "source_id", sub.ID)
}

func rejectDetails(err error) (domain.FailureKind, string) {
	var rejected *agent.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Kind, rejected.Reason
	}
	return domain.FailureValidation, err.Error()
}

func (e *ETL) report(ctx context.Context, summary domain.RunSummary) {
	if e.logger != nil {
		e.logger.Info("run finished",
			"run_id", summary.RunID,
			"extracted", summary.Extracted,
			"transformed", summary.Transformed,
			"loaded", summary.Loaded,
			"rejected", summary.Rejected,
			"duration", summary.FinishedAt.Sub(summary.StartedAt).String(),
		)
		for _, reject := range summary.Rejects {
			e.logger.Warn("rejected record", "run_id", summary.RunID, "source_id", reject.SourceID, "kind", reject.Kind, "reason", reject.Reason)
		}
	}

	if e.notifier == nil {
		return
	}
	if err := e.notifier.PublishReport(ctx, BuildReportMessage(summary)); err != nil {
		e.debug("publish report failed", "error", err)
	}
}

// BuildReportMessage renders the run summary for operator channels.
func BuildReportMessage(summary domain.RunSummary) string {
	msg := fmt.Sprintf("Run %s\nextracted: %d\ntransformed: %d\nloaded: %d\nrejected: %d\n",
		summary.RunID, summary.Extracted, summary.Transformed, summary.Loaded, summary.Rejected)
	for _, reject := range summary.Rejects {
		id := reject.SourceID
		if id == "" {
			id = "(unparsed)"
		}
		msg += fmt.Sprintf("- %s: %s\n", id, reject.Reason)
	}
	return msg
}

func (e *ETL) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
