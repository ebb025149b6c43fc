package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardscore/internal/model"
)

var (
	submitUser    string
	submitLat     float64
	submitLon     float64
	submitTimeout time.Duration
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit <text>",
	Short: "Score a single report",
	Long: `Submit classifies, stores and scores one report and prints the
result with its breakdown as JSON.

Example:
  hazardscore submit --user u1 --lat 19.076 --lon 72.8777 "Flood in city area"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitUser, "user", "", "reporter user ID (required)")
	submitCmd.Flags().Float64Var(&submitLat, "lat", 0, "latitude in decimal degrees")
	submitCmd.Flags().Float64Var(&submitLon, "lon", 0, "longitude in decimal degrees")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 30*time.Second, "classification timeout")
	_ = submitCmd.MarkFlagRequired("user")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	sub := model.Submission{
		UserID: submitUser,
		Text:   strings.Join(args, " "),
		Lat:    submitLat,
		Lon:    submitLon,
	}
	if err := sub.Validate(cfg.Server.StrictCoordinates); err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	res, err := a.pipeline.Submit(ctx, sub)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	return writeJSON(res)
}

// writeJSON prints v as indented JSON on stdout
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
