package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nqbench/internal/config"
)

func runConfigSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return nil
}

func runConfigValidate(cmd *cobra.Command, app *cliApp) error {
	path := firstNonEmpty(app.configPath, os.Getenv("NQBENCH_CONFIG"))
	if path == "" {
		return fmt.Errorf("--config is required")
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
	return nil
}
