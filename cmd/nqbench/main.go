// Package main provides the CLI entry point for nqbench, a toolkit that turns
// preprocessed Natural Questions tables into sharded JSON-lines collections
// for an external indexer and measures top-k retrieval recall against the
// resulting indexes.
//
// # Basic Usage
//
// Convert the passage table into shards and a lookup table:
//
//	nqbench convert --collection-path data/NQ.xlsx --output-folder collection \
//	    --index-table collection/index_table.json
//
// Measure recall@10 of a pre-built index:
//
//	nqbench evaluate --examples data/examples.csv --index bluge:indexes/passages \
//	    --lookup collection/index_table.json --k 10
//
// # Environment Variables
//
//   - NQBENCH_CONFIG: Path to a YAML or JSON5 configuration file
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command execution failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	app := &cliApp{}
	rootCmd := &cobra.Command{
		Use:   "nqbench",
		Short: "nqbench - Natural Questions collection converter and retrieval evaluator",
		Long: `nqbench converts preprocessed Natural Questions tables into sharded
JSON-lines collections plus a lookup table, and measures top-k retrieval
recall of indexes built from those collections.

Sources: CSV, TSV, JSONL, XLSX, SQLite, PostgreSQL
Indexes: Bluge directories, Anserini-style REST servers, SQLite FTS5 tables`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.teardown(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "Path to YAML or JSON5 configuration file (or set NQBENCH_CONFIG)")
	flags.StringVar(&app.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&app.logFormat, "log-format", "", "Log format: json or text")
	flags.StringVar(&app.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format on exit")

	rootCmd.AddCommand(
		buildConvertCmd(app),
		buildEvaluateCmd(app),
		buildLookupCmd(app),
		buildConfigCmd(app),
	)
	return rootCmd
}
