package domain

import "time"

// RawSubmission is a core entity describing one free-text submission read
// from the extract feed. Immutable once parsed.
type RawSubmission struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Email      string    `json:"email"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// StructuredMetadata is the constrained output of the agent workflow:
// exactly three topical tags and a bounded summary for one submission.
type StructuredMetadata struct {
	Tags     []string
	Summary  string
	SourceID string
}

// NormalizedRecord is the unit persisted to the store: the submission plus
// its accepted metadata and the load timestamp.
type NormalizedRecord struct {
	Submission RawSubmission
	Metadata   StructuredMetadata
	LoadedAt   time.Time
}

// Reject captures one record that did not make it into the store.
type Reject struct {
	SourceID string
	Kind     FailureKind
	Reason   string
}

// RunSummary aggregates per-record outcomes of one ETL run.
type RunSummary struct {
	RunID       string
	Extracted   int
	Transformed int
	Loaded      int
	Rejected    int
	Rejects     []Reject
	StartedAt   time.Time
	FinishedAt  time.Time
}
