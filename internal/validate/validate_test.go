package validate

import (
	"strings"
	"testing"

	"SubmissionTagger/internal/domain"
)

func TestMetadataAccepts(t *testing.T) {
	t.Parallel()

	md := domain.StructuredMetadata{
		Tags:    []string{"ai", "ml", "cloud"},
		Summary: "Short summary under 25 words.",
	}

	if v := Metadata(md); v != nil {
		t.Fatalf("expected valid, got %v", v)
	}
}

func TestMetadataViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		md         domain.StructuredMetadata
		wantField  string
		wantReason string
	}{
		{
			name:       "missing tags",
			md:         domain.StructuredMetadata{Summary: "ok"},
			wantField:  "tags",
			wantReason: "missing",
		},
		{
			name:       "two tags",
			md:         domain.StructuredMetadata{Tags: []string{"ai", "ml"}, Summary: "ok"},
			wantField:  "tags",
			wantReason: "tag count",
		},
		{
			name:       "four tags",
			md:         domain.StructuredMetadata{Tags: []string{"a", "b", "c", "d"}, Summary: "ok"},
			wantField:  "tags",
			wantReason: "tag count",
		},
		{
			name:       "blank tag",
			md:         domain.StructuredMetadata{Tags: []string{"ai", "  ", "cloud"}, Summary: "ok"},
			wantField:  "tags",
			wantReason: "empty tag",
		},
		{
			name:       "control characters",
			md:         domain.StructuredMetadata{Tags: []string{"ai", "ml\x00", "cloud"}, Summary: "ok"},
			wantField:  "tags",
			wantReason: "tag contains control characters",
		},
		{
			name:      "empty summary",
			md:        domain.StructuredMetadata{Tags: []string{"ai", "ml", "cloud"}, Summary: "   "},
			wantField: "summary",
		},
		{
			name:      "summary too long",
			md:        domain.StructuredMetadata{Tags: []string{"ai", "ml", "cloud"}, Summary: strings.Repeat("word ", 26)},
			wantField: "summary",
		},
		{
			name:       "duplicate after case fold",
			md:         domain.StructuredMetadata{Tags: []string{"AI", "ai", "cloud"}, Summary: "ok"},
			wantField:  "tags",
			wantReason: "duplicate tag",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v := Metadata(tc.md)
			if v == nil {
				t.Fatalf("expected violation, got valid")
			}
			if v.Field != tc.wantField {
				t.Fatalf("expected field %s, got %s", tc.wantField, v.Field)
			}
			if tc.wantReason != "" && v.Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %q", tc.wantReason, v.Reason)
			}
		})
	}
}

func TestMetadataSummaryBoundary(t *testing.T) {
	t.Parallel()

	exactly25 := strings.TrimSpace(strings.Repeat("word ", 25))
	md := domain.StructuredMetadata{Tags: []string{"a", "b", "c"}, Summary: exactly25}
	if v := Metadata(md); v != nil {
		t.Fatalf("25 words should be valid, got %v", v)
	}
}

func TestMetadataShortCircuits(t *testing.T) {
	t.Parallel()

	// Both the tag count and the summary are wrong; the first check wins.
	md := domain.StructuredMetadata{Tags: []string{"ai"}, Summary: ""}
	v := Metadata(md)
	if v == nil {
		t.Fatal("expected violation")
	}
	if v.Reason != "tag count" {
		t.Fatalf("expected first failure to win, got %q", v.Reason)
	}
}

func TestWordCount(t *testing.T) {
	t.Parallel()

	if got := WordCount("  one   two\tthree\n"); got != 3 {
		t.Fatalf("expected 3 words, got %d", got)
	}
	if got := WordCount(""); got != 0 {
		t.Fatalf("expected 0 words, got %d", got)
	}
}
