package search

import (
	"context"
	"time"

	"github.com/haasonsaas/nqbench/internal/observability"
	"github.com/haasonsaas/nqbench/pkg/models"
)

// Traced wraps a Searcher with a span and latency metrics per query.
type Traced struct {
	inner   Searcher
	kind    string
	index   string
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewTraced decorates inner. Nil metrics or tracer are allowed.
func NewTraced(inner Searcher, cfg IndexConfig, metrics *observability.Metrics, tracer *observability.Tracer) *Traced {
	kind := cfg.Kind
	if kind == "" {
		kind = KindBluge
	}
	return &Traced{
		inner:   inner,
		kind:    kind,
		index:   cfg.Label(),
		metrics: metrics,
		tracer:  tracer,
	}
}

func (t *Traced) Search(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	ctx, span := t.tracer.TraceSearch(ctx, t.kind, t.index, k)
	defer span.End()

	start := time.Now()
	hits, err := t.inner.Search(ctx, query, k)
	t.metrics.RecordSearch(t.kind, err, time.Since(start).Seconds())
	if err != nil {
		t.tracer.RecordError(span, err)
		return nil, err
	}
	t.tracer.SetAttributes(span, "search.hits", len(hits))
	return hits, nil
}

func (t *Traced) Close() error {
	return t.inner.Close()
}
