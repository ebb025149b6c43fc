package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/hazardscore/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the scoring pipeline over HTTP:
  POST /report     submit {user_id, text, lat, lon}, returns score and breakdown
  GET  /dashboard  reports scoring at or above the dashboard threshold
  GET  /healthz    liveness
  GET  /readyz     classifier readiness (503 when unreachable)

Example:
  hazardscore serve
  hazardscore serve --addr :9000 --strict-coordinates`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().Bool("strict-coordinates", false, "reject out-of-range coordinates with 400")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.strict_coordinates", serveCmd.Flags().Lookup("strict-coordinates"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv := server.New(cfg.Server, cfg.RateLimiting, a.pipeline)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readyCtx, cancelReady := context.WithTimeout(ctx, 10*time.Second)
	if !a.pipeline.Ready(readyCtx) {
		slog.Warn("classifier not reachable, reports will fail until it is", "classifier", a.classifier.Name())
	}
	cancelReady()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
