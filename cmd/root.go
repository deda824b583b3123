package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	// defaultOperationTimeout is the default timeout for network operations.
	// Can be overridden via NODEID_CLI_TIMEOUT environment variable.
	defaultOperationTimeout = 2 * time.Minute
)

var (
	// Global flags
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "nodeid",
	Short:         "Avalanche staking credentials and node IDs",
	SilenceErrors: true,
	SilenceUsage:  true,
	Long: `Generate avalanchego staking credentials and derive the node ID a
certificate commits to, without depending on avalanchego itself.

Example usage:
  nodeid generate staker.key staker.crt
  nodeid derive staker.crt
  nodeid compat default-spec --spec-path run.yaml
  nodeid compat run --spec run.yaml
  nodeid beacon flags --dir beacon-nodes/

Environment Variables:
  NODEID_CLI_TIMEOUT  Operation timeout duration (e.g., "5m", "30s", default: 2m)
  AWS_*               Standard credential chain for the cloud subcommands`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log verbosity: debug, info, warn, or error")
}

// newLogger builds the diagnostic logger from the --log-level flag.
// User-facing results still go to stdout; the logger writes to stderr.
func newLogger() (*slog.Logger, error) {
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", s)
	}
}

// getOperationContext returns a context with timeout and signal handling.
// The context will be cancelled on SIGINT/SIGTERM or when the timeout expires.
// The returned cancel function must be called to release resources.
func getOperationContext() (context.Context, context.CancelFunc) {
	// Determine timeout from environment or use default
	timeout := defaultOperationTimeout
	if envTimeout := os.Getenv("NODEID_CLI_TIMEOUT"); envTimeout != "" {
		if d, err := time.ParseDuration(envTimeout); err == nil && d > 0 {
			timeout = d
		}
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Set up signal handling for graceful cancellation
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			cancel()
		case <-ctx.Done():
			// Context cancelled or timed out, clean up signal handler
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
