// Package validate encodes the hard constraints on generated metadata.
// Constraints are checked, never repaired: any violation is returned as-is
// so the workflow can retry with better guidance.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"SubmissionTagger/internal/domain"
)

// RequiredTags is the exact number of topical tags a submission must carry.
const RequiredTags = 3

// MaxSummaryWords bounds the summary length, split on whitespace.
const MaxSummaryWords = 25

// Violation names the first constraint a candidate breaks.
type Violation struct {
	Field  string
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// Metadata checks a candidate against every hard constraint in order and
// returns the first violation, or nil when the candidate is acceptable.
func Metadata(md domain.StructuredMetadata) *Violation {
	if md.Tags == nil {
		return &Violation{Field: "tags", Reason: "missing"}
	}
	if len(md.Tags) != RequiredTags {
		return &Violation{Field: "tags", Reason: "tag count"}
	}

	for _, tag := range md.Tags {
		folded := strings.ToLower(strings.TrimSpace(tag))
		if folded == "" {
			return &Violation{Field: "tags", Reason: "empty tag"}
		}
		if hasControlChars(folded) {
			return &Violation{Field: "tags", Reason: "tag contains control characters"}
		}
	}

	summary := strings.TrimSpace(md.Summary)
	if summary == "" {
		return &Violation{Field: "summary", Reason: "missing or empty"}
	}
	if words := WordCount(summary); words > MaxSummaryWords {
		return &Violation{Field: "summary", Reason: fmt.Sprintf("summary is %d words, maximum is %d", words, MaxSummaryWords)}
	}

	seen := make(map[string]bool, len(md.Tags))
	for _, tag := range md.Tags {
		folded := strings.ToLower(strings.TrimSpace(tag))
		if seen[folded] {
			return &Violation{Field: "tags", Reason: "duplicate tag"}
		}
		seen[folded] = true
	}

	return nil
}

// WordCount counts whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
