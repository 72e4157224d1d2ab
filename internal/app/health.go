package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/calderbuild/BenchScope/internal/cli"
	"github.com/calderbuild/BenchScope/internal/scoring"
)

// runHealth checks each external dependency and reports per-component
// status. Exit code 1 means at least one required component is down.
func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	statuses := map[string]string{}
	healthy := true

	manager, primary, store, err := buildSinkManager(cfg, logger)
	if err != nil {
		statuses["fallback_store"] = err.Error()
		healthy = false
	} else {
		defer store.Close()
		if _, err := manager.Stats(ctx); err != nil {
			statuses["fallback_store"] = err.Error()
			healthy = false
		} else {
			statuses["fallback_store"] = "ok"
		}
		switch {
		case primary == nil:
			statuses["primary_sink"] = "unconfigured"
		default:
			if err := primary.Ping(ctx); err != nil {
				statuses["primary_sink"] = err.Error()
				healthy = false
			} else {
				statuses["primary_sink"] = "ok"
			}
		}
	}

	// Redis is optional: scoring degrades to a local cache without it.
	if cache, err := scoring.NewCache(ctx, cfg.RedisURL, cfg.CacheTTLDays, logger); err != nil {
		statuses["score_cache"] = "unavailable (local fallback)"
	} else {
		statuses["score_cache"] = "ok"
		cache.Close()
	}

	if cfg.ScoringAPIKey == "" {
		statuses["scoring_provider"] = "unconfigured (heuristic fallback)"
	} else {
		statuses["scoring_provider"] = "configured"
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(map[string]any{"healthy": healthy, "components": statuses}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else {
		rows := make([][]string, 0, len(statuses))
		for _, name := range []string{"primary_sink", "fallback_store", "score_cache", "scoring_provider"} {
			if status, ok := statuses[name]; ok {
				rows = append(rows, []string{name, status})
			}
		}
		if err := writeTable([]string{"component", "status"}, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
			return 1
		}
	}

	if !healthy {
		return 1
	}
	return 0
}
