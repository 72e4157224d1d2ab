package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/cli"
	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/logging"
	"github.com/calderbuild/BenchScope/internal/sink"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// bootstrap loads env overrides, the config, and the logger shared by
// every command.
func bootstrap(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// buildSinkManager opens the fallback store and, when configured, the
// primary table client. The caller closes the returned store.
func buildSinkManager(cfg *config.Config, logger zerolog.Logger) (*sink.Manager, *sink.TableClient, *sink.FallbackStore, error) {
	store, err := sink.NewFallbackStore(cfg.FallbackDBPath, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open fallback store: %w", err)
	}

	var primary *sink.TableClient
	if cfg.SinkConfigured() {
		primary = sink.NewTableClient(sink.TableConfig{
			BaseURL:   cfg.SinkBaseURL,
			AppID:     cfg.SinkAppID,
			AppSecret: cfg.SinkAppSecret,
			AppToken:  cfg.SinkAppToken,
			TableID:   cfg.SinkTableID,
		}, logger)
	}

	var primarySink sink.Sink
	if primary != nil {
		primarySink = primary
	}
	return sink.NewManager(primarySink, store, logger), primary, store, nil
}
