package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/cli"
	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/dedup"
	"github.com/calderbuild/BenchScope/internal/notify"
	"github.com/calderbuild/BenchScope/internal/pipeline"
	"github.com/calderbuild/BenchScope/internal/scoring"
)

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Path to the raw candidates file (JSON array or JSONL)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	skipNotify := fs.Bool("skip-notify", false, "Persist results without pushing webhook cards")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
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

	cands, err := pipeline.LoadCandidates(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load candidates: %v\n", err)
		return 1
	}
	if len(cands) == 0 {
		fmt.Fprintln(os.Stderr, "No candidates in input, nothing to do")
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	manager, _, store, err := buildSinkManager(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer store.Close()

	rules := config.DefaultCuration()
	engine := dedup.NewEngine(rules.Dedup, manager, logger)
	orch := buildOrchestrator(ctx, cfg, rules, logger)

	var notifier pipeline.PlanNotifier
	if !*skipNotify {
		notifier = notify.New(notify.Config{
			WebhookURL:    cfg.WebhookURL,
			WebhookSecret: cfg.WebhookSecret,
			TableURL:      cfg.TableViewURL,
		}, logger)
	}

	runner := pipeline.NewRunner(rules, engine, orch, manager, notifier, logger)
	report, err := runner.Run(ctx, cands)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	if deleted, err := manager.Cleanup(ctx, cfg.FallbackRetentionDays); err != nil {
		logger.Warn().Err(err).Msg("fallback cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Msg("fallback retention cleanup")
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"ingested", fmt.Sprintf("%d", report.Ingested)},
		{"after dedup", fmt.Sprintf("%d", report.AfterDedup)},
		{"after prefilter", fmt.Sprintf("%d", report.AfterPrefilter)},
		{"scored", fmt.Sprintf("%d", report.Scored)},
		{"selected high", fmt.Sprintf("%d", report.SelectedHigh)},
		{"selected medium", fmt.Sprintf("%d", report.SelectedMedium)},
		{"dropped", fmt.Sprintf("%d", report.Dropped)},
		{"persisted", fmt.Sprintf("%d", report.Persisted)},
	}
	if err := writeTable([]string{"stage", "count"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\nrun %s finished in %dms\n", report.RunID, report.DurationMS)
	return 0
}

// buildOrchestrator wires the provider registry and score cache. Missing
// credentials degrade to heuristic fallback scoring, a dead redis to a
// process-local cache.
func buildOrchestrator(ctx context.Context, cfg *config.Config, rules config.Curation, logger zerolog.Logger) *scoring.Orchestrator {
	var provider scoring.Provider
	if strings.TrimSpace(cfg.ScoringAPIKey) != "" {
		registry := scoring.NewRegistry(scoring.DefaultProviderName)
		chat := scoring.NewChatProvider(
			cfg.ScoringBaseURL,
			cfg.ScoringAPIKey,
			cfg.ScoringModel,
			time.Duration(cfg.ScoringTimeoutSecs)*time.Second,
		)
		if err := registry.Register(chat); err != nil {
			logger.Warn().Err(err).Msg("provider registration failed, falling back to heuristic scoring")
		} else if resolved, err := registry.Provider(""); err == nil {
			provider = resolved
		}
	} else {
		logger.Warn().Msg("no scoring API key, using heuristic fallback scoring")
	}

	cache, err := scoring.NewCache(ctx, cfg.RedisURL, cfg.CacheTTLDays, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using process-local score cache")
		cache = scoring.NewLocalCache(logger)
	}

	return scoring.NewOrchestrator(provider, cache, rules.Scoring, cfg.ScoringConcurrency, logger)
}
