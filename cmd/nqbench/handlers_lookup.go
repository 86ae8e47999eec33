package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/nqbench/internal/lookup"
	"github.com/haasonsaas/nqbench/internal/observability"
)

func runLookupCompile(cmd *cobra.Command, app *cliApp, src, dst string) error {
	var n int
	err := observability.WithSpan(cmd.Context(), app.tracer, "lookup.compile", func(ctx context.Context, span trace.Span) error {
		var err error
		n, err = lookup.Compile(ctx, src, dst)
		app.tracer.SetAttributes(span, "lookup.entries", n)
		return err
	})
	if err != nil {
		return err
	}
	app.logger.Info(cmd.Context(), "lookup table compiled", "source", src, "destination", dst, "entries", n)
	fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d entries into %s\n", n, dst)
	return nil
}

func runLookupGet(cmd *cobra.Command, path string, ids []string) (err error) {
	resolver, err := lookup.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resolver.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	for _, id := range ids {
		entry, ok, err := resolver.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("id %q not found in %s", id, path)
		}
		if err := enc.Encode(map[string]any{"id": id, "entry": entry}); err != nil {
			return err
		}
	}
	return nil
}
