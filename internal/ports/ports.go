package ports

import (
	"context"

	"SubmissionTagger/internal/domain"
)

// InferenceRequest carries one prompt to the language-model service.
type InferenceRequest struct {
	System      string
	Prompt      string
	Temperature float64
}

// Inference is the narrow boundary to the external language-model service.
// Implementations perform exactly one call; retry policy lives with the caller.
type Inference interface {
	Generate(ctx context.Context, req InferenceRequest) (string, error)
}

// RecordSource streams raw submissions from an extract feed.
// Next returns io.EOF when the feed is exhausted and *domain.MalformedInputError
// for lines that cannot be parsed; the caller decides whether to continue.
type RecordSource interface {
	Next(ctx context.Context) (domain.RawSubmission, error)
}

// MetadataGenerator turns one raw submission into accepted structured
// metadata, or a typed failure when the agent workflow exhausts its budget.
type MetadataGenerator interface {
	Process(ctx context.Context, sub domain.RawSubmission) (domain.StructuredMetadata, error)
}

// RecordRepository persists normalized records keyed by source id.
type RecordRepository interface {
	Upsert(ctx context.Context, rec domain.NormalizedRecord) error
}

// Notifier publishes the end-of-run report to an operator channel.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when ETL runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
