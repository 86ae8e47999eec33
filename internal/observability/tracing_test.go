package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNewTracer(t *testing.T) {
	tests := []struct {
		name   string
		config TraceConfig
	}{
		{
			name: "with endpoint",
			config: TraceConfig{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Endpoint:       "localhost:4317",
				EnableInsecure: true,
			},
		},
		{
			name:   "without endpoint (no-op)",
			config: TraceConfig{ServiceName: "test-service"},
		},
		{
			name:   "with sampling",
			config: TraceConfig{SamplingRate: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, shutdown := NewTracer(tt.config)
			defer func() { _ = shutdown(context.Background()) }()

			if tracer == nil {
				t.Fatal("NewTracer() returned nil")
			}
			if tracer.tracer == nil {
				t.Error("tracer.tracer is nil")
			}
		})
	}
}

func TestTraceHelpers(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()
	ctx := context.Background()

	spans := []func() trace.Span{
		func() trace.Span { _, s := tracer.TraceConvert(ctx, "passages", 1000000); return s },
		func() trace.Span { _, s := tracer.TraceEvaluate(ctx, []string{"documents", "passages"}); return s },
		func() trace.Span { _, s := tracer.TraceSearch(ctx, "bluge", "/idx", 20); return s },
	}
	for i, start := range spans {
		span := start()
		if span == nil {
			t.Fatalf("span %d is nil", i)
		}
		tracer.SetAttributes(span, "rows", 3, "recall", 0.5, "ok", true, 42, "ignored")
		tracer.RecordError(span, errors.New("boom"))
		span.End()
	}
}

func TestNilTracerStart(t *testing.T) {
	var tracer *Tracer
	_, span := tracer.Start(context.Background(), "op")
	if span == nil {
		t.Fatal("expected span from nil tracer")
	}
	span.End()
}

func TestWithSpan(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()

	want := errors.New("failed")
	err := WithSpan(context.Background(), tracer, "op", func(ctx context.Context, span trace.Span) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("WithSpan error = %v, want %v", err, want)
	}
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID on empty context = %q", id)
	}
}
