// Package agent implements the staged Planner -> Reviewer -> Finalizer
// workflow that turns one free-text submission into constrained metadata.
package agent

import "SubmissionTagger/internal/domain"

// Role identifies the fixed prompt persona of one stage.
type Role string

const (
	RolePlanner   Role = "planner"
	RoleReviewer  Role = "reviewer"
	RoleFinalizer Role = "finalizer"
)

// Context accumulates stage outputs across one workflow cycle. It is owned
// by exactly one orchestrator run and discarded when the run terminates.
type Context struct {
	Submission domain.RawSubmission

	// Guidance carries the rejection reason from a prior cycle so the next
	// Planner pass knows what went wrong. Empty on the first cycle.
	Guidance string

	PlannerOutput   string
	ReviewerOutput  string
	FinalizerOutput string
}

// StageOutput is the parsed result of one stage invocation. Draft is set
// only by the Finalizer, which must emit the strict JSON shape.
type StageOutput struct {
	Raw   string
	Draft *domain.StructuredMetadata
}
