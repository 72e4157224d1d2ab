package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/calderbuild/BenchScope/internal/cli"
)

// runSync replays unsynced fallback rows into the primary sink and runs
// retention cleanup on the fallback store.
func runSync(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, logger, err := bootstrap(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !cfg.SinkConfigured() {
		fmt.Fprintln(os.Stderr, "Primary sink is not configured, nothing to sync into")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	manager, _, store, err := buildSinkManager(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer store.Close()

	result, err := manager.Reconcile(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reconciliation failed")
		fmt.Fprintf(os.Stderr, "Reconciliation failed: %v\n", err)
		return 1
	}

	deleted, err := manager.Cleanup(ctx, cfg.FallbackRetentionDays)
	if err != nil {
		logger.Warn().Err(err).Msg("fallback cleanup failed")
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{
			"pending": result.Pending,
			"synced":  result.Synced,
			"expired": deleted,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"pending", fmt.Sprintf("%d", result.Pending)},
		{"synced", fmt.Sprintf("%d", result.Synced)},
		{"expired", fmt.Sprintf("%d", deleted)},
	}
	if err := writeTable([]string{"metric", "count"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
