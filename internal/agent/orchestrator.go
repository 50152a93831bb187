package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"SubmissionTagger/internal/domain"
	"SubmissionTagger/internal/ports"
	"SubmissionTagger/internal/validate"
)

// state enumerates the workflow positions of one cycle.
type state int

const (
	statePlanning state = iota
	stateReviewing
	stateFinalizing
	stateValidating
)

// DefaultMaxRetries is the number of full cycles allowed after the first one.
const DefaultMaxRetries = 2

// RejectedError is the terminal failure of a workflow run, carrying the last
// rejection reason and the trace of attempted stages for the run report.
type RejectedError struct {
	SourceID string
	Kind     domain.FailureKind
	Field    string
	Reason   string
	Trace    []string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission %s rejected (%s): %s", e.SourceID, e.Kind, e.Reason)
}

// Orchestrator drives the Planning -> Reviewing -> Finalizing -> Validating
// state machine and owns the decision to restart the whole cycle. A restart
// gets a fresh context seeded with the prior rejection reason as guidance.
type Orchestrator struct {
	runner     *Runner
	maxRetries int
	logger     *slog.Logger
}

var _ ports.MetadataGenerator = (*Orchestrator)(nil)

// NewOrchestrator builds the workflow driver. A negative maxRetries selects
// the default budget.
func NewOrchestrator(runner *Runner, maxRetries int, logger *slog.Logger) *Orchestrator {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Orchestrator{runner: runner, maxRetries: maxRetries, logger: logger}
}

// Process runs the staged workflow for one submission until it is accepted
// or the retry budget is exhausted. The error is always a *RejectedError on
// failure.
func (o *Orchestrator) Process(ctx context.Context, sub domain.RawSubmission) (domain.StructuredMetadata, error) {
	var trace []string
	guidance := ""

	var lastKind domain.FailureKind
	var lastField, lastReason string

	for cycle := 0; cycle <= o.maxRetries; cycle++ {
		ac := &Context{Submission: sub, Guidance: guidance}

		md, kind, field, reason := o.runCycle(ctx, ac, cycle, &trace)
		if kind == "" {
			o.debug("submission accepted", "source_id", sub.ID, "cycles", cycle+1)
			return md, nil
		}

		lastKind, lastField, lastReason = kind, field, reason
		guidance = reason
		o.debug("cycle failed", "source_id", sub.ID, "cycle", cycle, "kind", kind, "reason", reason)

		// A dead context makes further cycles pointless.
		if ctx.Err() != nil {
			break
		}
	}

	return domain.StructuredMetadata{}, &RejectedError{
		SourceID: sub.ID,
		Kind:     lastKind,
		Field:    lastField,
		Reason:   lastReason,
		Trace:    trace,
	}
}

// runCycle executes one full stage sequence. An empty returned kind means
// the candidate was accepted.
func (o *Orchestrator) runCycle(ctx context.Context, ac *Context, cycle int, trace *[]string) (domain.StructuredMetadata, domain.FailureKind, string, string) {
	var draft *domain.StructuredMetadata

	st := statePlanning
	for {
		switch st {
		case statePlanning:
			out, err := o.runStage(ctx, RolePlanner, ac, cycle, trace)
			if err != nil {
				return domain.StructuredMetadata{}, failureKind(err), "", err.Error()
			}
			ac.PlannerOutput = out.Raw
			st = stateReviewing

		case stateReviewing:
			out, err := o.runStage(ctx, RoleReviewer, ac, cycle, trace)
			if err != nil {
				return domain.StructuredMetadata{}, failureKind(err), "", err.Error()
			}
			ac.ReviewerOutput = out.Raw
			st = stateFinalizing

		case stateFinalizing:
			out, err := o.runStage(ctx, RoleFinalizer, ac, cycle, trace)
			if err != nil {
				return domain.StructuredMetadata{}, failureKind(err), "", err.Error()
			}
			ac.FinalizerOutput = out.Raw
			draft = out.Draft
			st = stateValidating

		case stateValidating:
			*trace = append(*trace, fmt.Sprintf("cycle %d: validate", cycle))
			if v := validate.Metadata(*draft); v != nil {
				return domain.StructuredMetadata{}, domain.FailureValidation, v.Field, v.Reason
			}
			return *draft, "", "", ""
		}
	}
}

func (o *Orchestrator) runStage(ctx context.Context, role Role, ac *Context, cycle int, trace *[]string) (StageOutput, error) {
	*trace = append(*trace, fmt.Sprintf("cycle %d: %s", cycle, role))
	return o.runner.Run(ctx, role, ac)
}

func failureKind(err error) domain.FailureKind {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf.Kind
	}
	return domain.FailureMalformedOutput
}

func (o *Orchestrator) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}
