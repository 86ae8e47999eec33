package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nqbench/internal/collection"
	"github.com/haasonsaas/nqbench/internal/config"
	"github.com/haasonsaas/nqbench/internal/lookup"
	"github.com/haasonsaas/nqbench/internal/publish"
	"github.com/haasonsaas/nqbench/internal/tabular"
)

func runConvert(cmd *cobra.Command, app *cliApp, opts *convertOptions) error {
	cfg := app.cfg.Convert
	flags := cmd.Flags()
	if flags.Changed("collection-path") {
		cfg.Source = opts.source
	}
	if flags.Changed("table") {
		cfg.Table = opts.table
	}
	if flags.Changed("documents-table") {
		cfg.Documents.Table = opts.documentsTable
	}
	if flags.Changed("passages-table") {
		cfg.Passages.Table = opts.passagesTable
	}
	if flags.Changed("collection") {
		cfg.Collection = opts.collection
	}
	if flags.Changed("output-folder") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("index-table") {
		cfg.IndexTable = opts.indexTable
	}
	if flags.Changed("max-docs-per-file") {
		cfg.MaxDocsPerFile = opts.maxDocs
	}
	if flags.Changed("shard-prefix") {
		cfg.ShardPrefix = opts.prefix
	}

	if err := validateConvertConfig(cfg); err != nil {
		return err
	}

	var publisher *publish.Publisher
	if opts.publishURL != "" || cfg.Publish {
		pubCfg := app.cfg.Publish
		if opts.publishURL != "" {
			var err error
			if pubCfg, err = publish.ParseURL(opts.publishURL, pubCfg); err != nil {
				return err
			}
		}
		var err error
		if publisher, err = publish.New(cmd.Context(), pubCfg, app.logger); err != nil {
			return err
		}
	}

	collections := cfg.Collections()
	out := cmd.OutOrStdout()
	for _, name := range collections {
		outputDir, lookupPath := collectionPaths(cfg, name, len(collections) > 1)
		columns, err := cfg.ColumnsFor(name)
		if err != nil {
			return err
		}

		result, err := convertOne(cmd.Context(), cfg.SourceFor(name), cfg.TableFor(name), collection.Options{
			Name:          name,
			Columns:       columns,
			OutputDir:     outputDir,
			LookupPath:    lookupPath,
			MaxPerShard:   cfg.MaxDocsPerFile,
			ShardPrefix:   cfg.ShardPrefix,
			ProgressEvery: cfg.ProgressEvery,
			Logger:        app.logger,
			Metrics:       app.metrics,
			Tracer:        app.tracer,
		})
		if err != nil {
			return fmt.Errorf("convert %s: %w", name, err)
		}

		fmt.Fprintf(out, "Converted %d %s into %d shard(s) under %s\n", result.Rows, name, len(result.Shards), outputDir)
		fmt.Fprintf(out, "Lookup table written to %s\n", result.LookupPath)

		if publisher != nil {
			files := append(append([]string(nil), result.Shards...), result.LookupPath)
			urls, err := publisher.Publish(cmd.Context(), name, files)
			if err != nil {
				return fmt.Errorf("publish %s: %w", name, err)
			}
			fmt.Fprintf(out, "Published %d object(s) for %s\n", len(urls), name)
		}
	}
	return nil
}

// validateConvertConfig fails fast on missing or invalid settings before
// any file is opened.
func validateConvertConfig(cfg config.ConvertConfig) error {
	var missing []string
	for _, name := range cfg.Collections() {
		if strings.TrimSpace(cfg.SourceFor(name)) == "" {
			missing = append(missing, "--collection-path")
			break
		}
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		missing = append(missing, "--output-folder")
	}
	if strings.TrimSpace(cfg.IndexTable) == "" {
		missing = append(missing, "--index-table")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if cfg.MaxDocsPerFile <= 0 {
		return fmt.Errorf("--max-docs-per-file: %w: got %d", collection.ErrInvalidShardLimit, cfg.MaxDocsPerFile)
	}
	for _, name := range cfg.Collections() {
		if _, err := collection.DefaultColumns(name); err != nil {
			return err
		}
	}
	return nil
}

// collectionPaths returns the shard directory and lookup path of a
// collection. When several collections are converted in one run each gets
// its own sub-directory.
func collectionPaths(cfg config.ConvertConfig, name string, split bool) (string, string) {
	lookupPath := lookup.ResolvePath(cfg.IndexTable)
	if !split {
		return cfg.OutputDir, lookupPath
	}
	return filepath.Join(cfg.OutputDir, name),
		filepath.Join(filepath.Dir(lookupPath), name, filepath.Base(lookupPath))
}

func convertOne(ctx context.Context, source, table string, opts collection.Options) (result *collection.Result, err error) {
	src, err := tabular.Open(ctx, source, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = errors.Join(err, fmt.Errorf("close source: %w", cerr))
		}
	}()
	return collection.Convert(ctx, src, opts)
}
