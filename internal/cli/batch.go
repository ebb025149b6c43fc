package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardscore/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
)

// batchResult is one line of batch output
type batchResult struct {
	Line       int            `json:"line"`
	UserID     string         `json:"user_id,omitempty"`
	ID         int64          `json:"id,omitempty"`
	HazardType string         `json:"hazard_type,omitempty"`
	Score      *float64       `json:"score,omitempty"`
	Breakdown  map[string]any `json:"breakdown,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file.jsonl>",
	Short: "Score many reports from a JSON-lines file in parallel",
	Long: `Batch reads one submission per line ({"user_id","text","lat","lon"}),
scores them with a worker pool and a per-user rate limiter, and prints one
JSON result per input line to stdout in input order.

Reports scored concurrently may not see each other in their consensus and
spam reads.

Example:
  hazardscore batch reports.jsonl
  hazardscore batch reports.jsonl --concurrency 8 --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	processor := worker.NewBatchProcessor(a.pipeline, workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	processor.SetStrictCoordinates(cfg.Server.StrictCoordinates)

	start := time.Now()
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	failures := 0
	for _, r := range results {
		out := batchResult{Line: r.Line, UserID: r.UserID}
		if r.Error != nil {
			failures++
			out.Error = r.Error.Error()
		} else {
			score := r.Result.Score
			out.ID = r.Result.ID
			out.HazardType = r.Result.HazardType
			out.Score = &score
			out.Breakdown = r.Result.Breakdown
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d reports\n", len(results))
	fmt.Fprintf(os.Stderr, "  Scored:    %d\n", len(results)-failures)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Workers:   %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %v\n", time.Since(start).Round(time.Millisecond))

	return nil
}
