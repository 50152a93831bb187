// Package normalize applies pure text cleanup to already-validated output.
// Every transform is idempotent: re-normalizing a normalized record is a no-op.
package normalize

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"SubmissionTagger/internal/domain"
)

// Record produces the persistable record from a submission and its accepted
// metadata. Title, author and content get whitespace collapsed; content
// additionally loses any markup carried over from the submission form; tags
// are trimmed and lower-cased; the summary is only trimmed, its length was
// already enforced.
func Record(sub domain.RawSubmission, md domain.StructuredMetadata, loadedAt time.Time) domain.NormalizedRecord {
	normalized := sub
	normalized.Title = CollapseWhitespace(sub.Title)
	normalized.Author = CollapseWhitespace(sub.Author)
	normalized.Content = CollapseWhitespace(StripHTML(sub.Content))

	return domain.NormalizedRecord{
		Submission: normalized,
		Metadata: domain.StructuredMetadata{
			Tags:     Tags(md.Tags),
			Summary:  strings.TrimSpace(md.Summary),
			SourceID: md.SourceID,
		},
		LoadedAt: loadedAt,
	}
}

// Tags trims and lower-cases each tag.
func Tags(tags []string) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = strings.ToLower(strings.TrimSpace(tag))
	}
	return out
}

// CollapseWhitespace trims s and folds internal whitespace runs to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripHTML extracts the text content of s, dropping any markup. Plain text
// passes through unchanged.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
