package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var dashboardTable bool

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "List reports at or above the dashboard threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		entries, err := a.pipeline.Dashboard(context.Background())
		if err != nil {
			return err
		}

		if !dashboardTable {
			return writeJSON(entries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tHAZARD\tLAT\tLON\tSCORE\tTIMESTAMP")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\n", e.ID, e.HazardType, coord(e.Lat), coord(e.Lon), e.Score, e.Timestamp)
		}
		return w.Flush()
	},
}

// rescoreCmd represents the rescore command
var rescoreCmd = &cobra.Command{
	Use:   "rescore <id>",
	Short: "Recompute a stored report's score against current history",
	Long: `Rescore re-runs aggregation for an existing report. Time decay is
evaluated now, and consensus and spam reflect every report stored since.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid report id %q: %w", args[0], err)
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		res, err := a.pipeline.Rescore(context.Background(), id)
		if err != nil {
			return err
		}
		return writeJSON(res)
	},
}

func coord(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(rescoreCmd)

	dashboardCmd.Flags().BoolVar(&dashboardTable, "table", false, "print an aligned table instead of JSON")
}
