package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nqbench/internal/config"
	"github.com/haasonsaas/nqbench/internal/observability"
)

// cliApp carries state shared by every command of one invocation.
type cliApp struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	shutdown func(context.Context) error
}

// setup loads configuration and builds the logger, metrics and tracer.
// Commands that only inspect configuration skip loading it.
func (a *cliApp) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		if cmd.Annotations["config"] == "optional" {
			cfg = config.Default()
		} else {
			return err
		}
	}
	a.cfg = cfg

	level := firstNonEmpty(a.logLevel, cfg.Logging.Level)
	format := firstNonEmpty(a.logFormat, cfg.Logging.Format)
	a.logger = observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger.Slog())

	a.metrics = observability.NewMetrics()
	if a.metricsFile == "" {
		a.metricsFile = cfg.Observability.MetricsFile
	}

	tracing := cfg.Observability.Tracing
	endpoint := ""
	if tracing.Enabled {
		endpoint = tracing.Endpoint
	}
	a.tracer, a.shutdown = observability.NewTracer(observability.TraceConfig{
		ServiceName:    tracing.ServiceName,
		ServiceVersion: firstNonEmpty(tracing.ServiceVersion, version),
		Endpoint:       endpoint,
		SamplingRate:   tracing.SamplingRate,
		Attributes:     tracing.Attributes,
		EnableInsecure: tracing.Insecure,
	})
	return nil
}

// teardown flushes traces and writes the metrics textfile.
func (a *cliApp) teardown(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// loadConfig reads the configuration file named by --config or
// NQBENCH_CONFIG, falling back to defaults when neither is set.
func (a *cliApp) loadConfig() (*config.Config, error) {
	path := strings.TrimSpace(a.configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("NQBENCH_CONFIG"))
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
