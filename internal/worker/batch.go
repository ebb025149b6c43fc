package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/hazardscore/internal/model"
)

// Submitter defines the interface for scoring one submission
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) (*model.SubmitResult, error)
}

// Entry is one line of a batch file
type Entry struct {
	Line       int
	Submission model.Submission
	Err        error // parse or validation failure
}

// SubmitJob represents one submission to score
type SubmitJob struct {
	Entry     Entry
	Submitter Submitter
	Limiter   *Limiter
}

// Execute executes the submit job
func (j *SubmitJob) Execute(ctx context.Context) Result {
	res := &SubmitResult{Line: j.Entry.Line, UserID: j.Entry.Submission.UserID}
	if j.Entry.Err != nil {
		res.Error = j.Entry.Err
		return res
	}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.Entry.Submission.UserID); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	out, err := j.Submitter.Submit(ctx, j.Entry.Submission)
	if err != nil {
		res.Error = err
		return res
	}
	res.Result = out
	return res
}

// SubmitResult represents the result of a submit job
type SubmitResult struct {
	Line   int
	UserID string
	Result *model.SubmitResult
	Error  error
}

// GetError returns the error from the submit result
func (r *SubmitResult) GetError() error {
	return r.Error
}

// BatchProcessor scores many submissions concurrently
type BatchProcessor struct {
	submitter         Submitter
	concurrency       int
	limiter           *Limiter
	strictCoordinates bool
}

// NewBatchProcessor creates a new batch processor. A non-positive
// requestsPerSecond disables per-user rate limiting.
func NewBatchProcessor(submitter Submitter, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		submitter:   submitter,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// SetStrictCoordinates enables coordinate range validation for each entry
func (b *BatchProcessor) SetStrictCoordinates(strict bool) {
	b.strictCoordinates = strict
}

// ProcessEntries scores entries concurrently and returns results in line order
func (b *BatchProcessor) ProcessEntries(ctx context.Context, entries []Entry) []*SubmitResult {
	if len(entries) == 0 {
		return []*SubmitResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for _, e := range entries {
		if e.Err == nil {
			if err := e.Submission.Validate(b.strictCoordinates); err != nil {
				e.Err = err
			}
		}
		pool.Submit(&SubmitJob{
			Entry:     e,
			Submitter: b.submitter,
			Limiter:   b.limiter,
		})
	}

	results := pool.Wait()

	out := make([]*SubmitResult, 0, len(entries))
	done := make(map[int]bool, len(results))
	for _, r := range results {
		sr := r.(*SubmitResult)
		done[sr.Line] = true
		out = append(out, sr)
	}

	// Entries never picked up before cancellation
	if err := ctx.Err(); err != nil {
		for _, e := range entries {
			if !done[e.Line] {
				out = append(out, &SubmitResult{Line: e.Line, UserID: e.Submission.UserID, Error: err})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })

	return out
}

// ProcessFile reads JSON-lines submissions from a file and scores them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SubmitResult, error) {
	entries, err := ReadEntriesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}

	return b.ProcessEntries(ctx, entries), nil
}

// ReadEntriesFromFile reads submissions from a JSON-lines file
func ReadEntriesFromFile(filePath string) ([]Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadEntries(file)
}

// ReadEntries parses one JSON submission per line. Blank lines and lines
// starting with # are skipped; malformed lines become entries with Err set.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := Entry{Line: lineNo}
		if err := json.Unmarshal([]byte(line), &entry.Submission); err != nil {
			entry.Err = fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return entries, nil
}
