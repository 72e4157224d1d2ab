package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/calderbuild/BenchScope/internal/allocator"
	"github.com/calderbuild/BenchScope/internal/cli"
	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/globaltime"
	"github.com/calderbuild/BenchScope/internal/model"
)

// runAllocate dry-runs the allocation policy over already-scored
// candidates without touching the sink or the webhook.
func runAllocate(args []string) int {
	fs := flag.NewFlagSet("allocate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Path to a scored candidates JSON array")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

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

	if _, _, err := bootstrap(envLoader); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		return 1
	}
	var scored []model.ScoredCandidate
	if err := json.Unmarshal(raw, &scored); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode scored candidates: %v\n", err)
		return 1
	}

	plan := allocator.Build(scored, config.DefaultCuration().Allocator, globaltime.Now().UTC())

	if outputFormat == outputFormatJSON {
		if err := printJSON(plan); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(plan.High)+len(plan.Medium))
	for _, item := range append(append([]allocator.Item{}, plan.High...), plan.Medium...) {
		promotion := item.Promotion
		if promotion == "" {
			promotion = "-"
		}
		rows = append(rows, []string{
			item.Tier,
			item.Candidate.Source,
			fmt.Sprintf("%.1f", item.EffectiveScore),
			promotion,
			item.Candidate.URL,
		})
	}
	if err := writeTable([]string{"tier", "source", "score", "promotion", "url"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\nselected %d of %d (high %d, medium %d, dropped %d)\n",
		plan.Stats.High+plan.Stats.Medium, plan.Stats.Input,
		plan.Stats.High, plan.Stats.Medium, plan.Stats.Dropped)
	return 0
}
