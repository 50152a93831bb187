package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"SubmissionTagger/internal/agent"
	"SubmissionTagger/internal/domain"
)

// fakeSource replays a fixed sequence of records and errors, then EOF.
type fakeSource struct {
	mu    sync.Mutex
	items []any // domain.RawSubmission or error
}

func (f *fakeSource) Next(ctx context.Context) (domain.RawSubmission, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawSubmission{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		return domain.RawSubmission{}, io.EOF
	}
	item := f.items[0]
	f.items = f.items[1:]
	if err, ok := item.(error); ok {
		return domain.RawSubmission{}, err
	}
	return item.(domain.RawSubmission), nil
}

// fakeGenerator accepts everything unless the submission id has a scripted failure.
type fakeGenerator struct {
	failures map[string]error
	delay    time.Duration
}

func (f *fakeGenerator) Process(_ context.Context, sub domain.RawSubmission) (domain.StructuredMetadata, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failures[sub.ID]; ok {
		return domain.StructuredMetadata{}, err
	}
	return domain.StructuredMetadata{
		Tags:     []string{"ai", "ml", "cloud"},
		Summary:  "Short summary under 25 words.",
		SourceID: sub.ID,
	}, nil
}

// fakeRepo records upserts and can fail per source id.
type fakeRepo struct {
	mu       sync.Mutex
	upserts  []domain.NormalizedRecord
	failures map[string]error
}

func (f *fakeRepo) Upsert(_ context.Context, rec domain.NormalizedRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[rec.Metadata.SourceID]; ok {
		return err
	}
	f.upserts = append(f.upserts, rec)
	return nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func sub(id string) domain.RawSubmission {
	return domain.RawSubmission{ID: id, Title: "Title " + id, Content: "Content for " + id}
}

func TestRunLoadsAcceptedRecords(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []any{sub("sub-1"), sub("sub-2")}}
	repo := &fakeRepo{}
	etl := NewETL(ETLDeps{Source: source, Generator: &fakeGenerator{}, Repository: repo})

	summary, err := etl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Extracted != 2 || summary.Transformed != 2 || summary.Loaded != 2 || summary.Rejected != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if repo.count() != 2 {
		t.Fatalf("expected 2 upserts, got %d", repo.count())
	}
	if summary.RunID == "" {
		t.Fatal("run id missing")
	}
}

func TestRunCountsMalformedInput(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []any{
		&domain.MalformedInputError{Line: 1, Err: fmt.Errorf("bad json")},
		sub("sub-1"),
	}}
	repo := &fakeRepo{}
	etl := NewETL(ETLDeps{Source: source, Generator: &fakeGenerator{}, Repository: repo})

	summary, err := etl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Extracted != 1 {
		t.Fatalf("malformed line must not count as extracted: %+v", summary)
	}
	if summary.Rejected != 1 || summary.Loaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Rejects[0].Kind != domain.FailureMalformedInput {
		t.Fatalf("unexpected reject kind: %s", summary.Rejects[0].Kind)
	}
}

func TestRunRecordsRejections(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []any{sub("sub-1"), sub("sub-2")}}
	generator := &fakeGenerator{failures: map[string]error{
		"sub-1": &agent.RejectedError{SourceID: "sub-1", Kind: domain.FailureValidation, Field: "tags", Reason: "tag count"},
	}}
	repo := &fakeRepo{}
	etl := NewETL(ETLDeps{Source: source, Generator: generator, Repository: repo})

	summary, err := etl.Run(context.Background())
	if err != nil {
		t.Fatalf("one rejected record must not abort the batch: %v", err)
	}
	if summary.Extracted != 2 || summary.Loaded != 1 || summary.Rejected != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	reject := summary.Rejects[0]
	if reject.SourceID != "sub-1" || reject.Kind != domain.FailureValidation || reject.Reason != "tag count" {
		t.Fatalf("unexpected reject: %+v", reject)
	}
}

func TestRunSurvivesPerRecordStoreError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []any{sub("sub-1"), sub("sub-2")}}
	repo := &fakeRepo{failures: map[string]error{
		"sub-1": &domain.StoreError{Err: fmt.Errorf("constraint violated")},
	}}
	etl := NewETL(ETLDeps{Source: source, Generator: &fakeGenerator{}, Repository: repo})

	summary, err := etl.Run(context.Background())
	if err != nil {
		t.Fatalf("non-fatal store error must not abort the batch: %v", err)
	}
	if summary.Loaded != 1 || summary.Rejected != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Rejects[0].Kind != domain.FailureStore {
		t.Fatalf("unexpected reject kind: %s", summary.Rejects[0].Kind)
	}
}

func TestRunAbortsOnFatalStoreError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []any{sub("sub-1"), sub("sub-2"), sub("sub-3"), sub("sub-4")}}
	repo := &fakeRepo{failures: map[string]error{
		"sub-1": &domain.StoreError{Fatal: true, Err: fmt.Errorf("connection lost")},
		"sub-2": &domain.StoreError{Fatal: true, Err: fmt.Errorf("connection lost")},
		"sub-3": &domain.StoreError{Fatal: true, Err: fmt.Errorf("connection lost")},
		"sub-4": &domain.StoreError{Fatal: true, Err: fmt.Errorf("connection lost")},
	}}
	etl := NewETL(ETLDeps{Source: source, Generator: &fakeGenerator{}, Repository: repo})

	summary, err := etl.Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal store error to surface")
	}
	if !domain.IsFatalStoreError(err) {
		t.Fatalf("expected fatal store error, got %v", err)
	}
	if summary.Loaded != 0 {
		t.Fatalf("nothing should load: %+v", summary)
	}
	if summary.Extracted >= 4 {
		t.Fatalf("dispatch should stop after the fatal error, extracted %d", summary.Extracted)
	}
}

func TestRunStopsDispatchOnCancel(t *testing.T) {
	t.Parallel()

	source := &fakeSource{items: []any{sub("sub-1"), sub("sub-2")}}
	repo := &fakeRepo{}
	etl := NewETL(ETLDeps{Source: source, Generator: &fakeGenerator{}, Repository: repo})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := etl.Run(ctx)
	if err != nil {
		t.Fatalf("cancellation is not a run error: %v", err)
	}
	if summary.Extracted != 0 || summary.Loaded != 0 {
		t.Fatalf("no records should start after cancellation: %+v", summary)
	}
}

func TestRunConcurrentWorkers(t *testing.T) {
	t.Parallel()

	var items []any
	for i := 0; i < 12; i++ {
		items = append(items, sub(fmt.Sprintf("sub-%d", i)))
	}
	source := &fakeSource{items: items}
	repo := &fakeRepo{}
	etl := NewETL(ETLDeps{
		Source:     source,
		Generator:  &fakeGenerator{delay: time.Millisecond},
		Repository: repo,
		Workers:    4,
	})

	summary, err := etl.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Extracted != 12 || summary.Loaded != 12 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if repo.count() != 12 {
		t.Fatalf("expected 12 upserts, got %d", repo.count())
	}
}

func TestBuildReportMessage(t *testing.T) {
	t.Parallel()

	summary := domain.RunSummary{
		RunID:     "run-1",
		Extracted: 2,
		Loaded:    1,
		Rejected:  1,
		Rejects: []domain.Reject{
			{SourceID: "sub-2", Kind: domain.FailureValidation, Reason: "tag count"},
			{Kind: domain.FailureMalformedInput, Reason: "bad json"},
		},
	}

	msg := BuildReportMessage(summary)
	for _, want := range []string{"run-1", "extracted: 2", "loaded: 1", "sub-2: tag count", "(unparsed): bad json"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("report missing %q:\n%s", want, msg)
		}
	}
}
