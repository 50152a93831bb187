package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"SubmissionTagger/internal/domain"
	"SubmissionTagger/internal/ports"
)

// StageFailure is the typed outcome of a stage that could not produce output.
type StageFailure struct {
	Role Role
	Kind domain.FailureKind
	Err  error
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", f.Role, f.Kind, f.Err)
}

func (f *StageFailure) Unwrap() error { return f.Err }

// RetryConfig bounds the transport retries of a single stage call.
type RetryConfig struct {
	// MaxAttempts is the number of inference calls per stage, including the first.
	MaxAttempts int
	// BackoffBase is the initial delay before the second attempt.
	BackoffBase time.Duration
	// BackoffMultiplier is applied to the delay after each failed attempt.
	BackoffMultiplier float64
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryConfig allows two retries after the initial call.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Second,
	}
}

// Runner executes one stage: it builds the role prompt from the context,
// invokes the inference service with bounded backoff on transport failure,
// and parses the structured shape the role must produce. It holds no state
// of its own beyond configuration.
type Runner struct {
	inference ports.Inference
	retry     RetryConfig
	logger    *slog.Logger
}

// NewRunner wires an inference adapter into a stage runner.
func NewRunner(inference ports.Inference, retry RetryConfig, logger *slog.Logger) *Runner {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Runner{inference: inference, retry: retry, logger: logger}
}

// Run performs one stage under the given role. Transport failures are
// retried here; a malformed response is not, the orchestrator owns the
// decision to restart the whole cycle.
func (r *Runner) Run(ctx context.Context, role Role, ac *Context) (StageOutput, error) {
	system, user, temperature := buildPrompt(role, ac)
	if system == "" {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureMalformedOutput, Err: fmt.Errorf("unknown role %q", role)}
	}

	raw, err := r.generate(ctx, ports.InferenceRequest{
		System:      system,
		Prompt:      user,
		Temperature: temperature,
	})
	if err != nil {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureTransport, Err: err}
	}

	return r.parse(role, ac, raw)
}

func (r *Runner) generate(ctx context.Context, req ports.InferenceRequest) (string, error) {
	backoff := r.retry.BackoffBase

	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		raw, err := r.inference.Generate(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		r.debug("inference call failed", "attempt", attempt, "error", err)

		if attempt == r.retry.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, backoff); err != nil {
			return "", err
		}
		backoff = time.Duration(float64(backoff) * r.retry.BackoffMultiplier)
		if backoff > r.retry.MaxBackoff {
			backoff = r.retry.MaxBackoff
		}
	}

	return "", fmt.Errorf("inference failed after %d attempts: %w", r.retry.MaxAttempts, lastErr)
}

func (r *Runner) parse(role Role, ac *Context, raw string) (StageOutput, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureMalformedOutput, Err: fmt.Errorf("empty response")}
	}

	if role != RoleFinalizer {
		return StageOutput{Raw: trimmed}, nil
	}

	extracted := ExtractJSON(trimmed)
	if extracted == "" {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureMalformedOutput, Err: fmt.Errorf("no JSON object in response")}
	}

	// Pointers distinguish a missing key from a present-but-empty value.
	// Unknown extra keys are ignored.
	var payload struct {
		Tags    *[]string `json:"tags"`
		Summary *string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureMalformedOutput, Err: fmt.Errorf("decode finalizer JSON: %w", err)}
	}
	if payload.Tags == nil {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureMalformedOutput, Err: fmt.Errorf("finalizer JSON is missing tags")}
	}
	if payload.Summary == nil {
		return StageOutput{}, &StageFailure{Role: role, Kind: domain.FailureMalformedOutput, Err: fmt.Errorf("finalizer JSON is missing summary")}
	}

	return StageOutput{
		Raw: trimmed,
		Draft: &domain.StructuredMetadata{
			Tags:     *payload.Tags,
			Summary:  *payload.Summary,
			SourceID: ac.Submission.ID,
		},
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
