package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aegisgraph/aegisgraph/internal/server"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP listen port (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Runs the access pipeline behind an HTTP API.\nSupports hot-reload of the safety pattern file.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble service: %w", err)
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	srv := server.New(server.Config{Port: port}, a.pipe, a.modes, a.tracker)

	// Hot-reload watcher for the safety pattern file
	reloader, err := server.NewReloader(a.reload, []string{a.cfg.Safety.PatternsPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
	}
	if reloader != nil {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "aegisgraph listening on :%d\n", port)
	if a.cfg.Safety.PatternsPath != "" {
		fmt.Fprintf(os.Stderr, "Patterns: %s (hot-reload enabled)\n", a.cfg.Safety.PatternsPath)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
