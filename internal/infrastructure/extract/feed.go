// Package extract reads the line-delimited submission feed.
package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"SubmissionTagger/internal/domain"
	"SubmissionTagger/internal/ports"
)

// maxLineSize bounds a single feed line. Submission bodies are form posts,
// not documents; anything past this is garbage.
const maxLineSize = 4 * 1024 * 1024

// FeedReader streams RawSubmission records from a JSONL feed, one record per
// line. Blank lines are skipped; unparsable lines surface as
// *domain.MalformedInputError so the caller can count and continue.
type FeedReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

var _ ports.RecordSource = (*FeedReader)(nil)

// Open opens a feed file for reading.
func Open(path string) (*FeedReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed %s: %w", path, err)
	}
	r := NewFeedReader(f)
	r.closer = f
	return r, nil
}

// NewFeedReader wraps any reader producing JSONL records.
func NewFeedReader(r io.Reader) *FeedReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &FeedReader{scanner: scanner}
}

// Next returns the next parsable submission, io.EOF at end of feed, or a
// *domain.MalformedInputError for a bad line.
func (f *FeedReader) Next(ctx context.Context) (domain.RawSubmission, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.RawSubmission{}, err
		}
		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return domain.RawSubmission{}, fmt.Errorf("read feed: %w", err)
			}
			return domain.RawSubmission{}, io.EOF
		}
		f.line++

		text := strings.TrimSpace(f.scanner.Text())
		if text == "" {
			continue
		}

		var sub domain.RawSubmission
		if err := json.Unmarshal([]byte(text), &sub); err != nil {
			return domain.RawSubmission{}, &domain.MalformedInputError{Line: f.line, Err: err}
		}
		if sub.ID == "" {
			return domain.RawSubmission{}, &domain.MalformedInputError{Line: f.line, Err: fmt.Errorf("record has no id")}
		}
		if sub.Title == "" && sub.Content == "" {
			return domain.RawSubmission{}, &domain.MalformedInputError{Line: f.line, Err: fmt.Errorf("record %s has no text", sub.ID)}
		}

		return sub, nil
	}
}

// Close releases the underlying file, if any.
func (f *FeedReader) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
