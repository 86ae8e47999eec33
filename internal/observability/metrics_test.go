package observability

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsUsesPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	if a.Registry() == b.Registry() {
		t.Fatal("expected distinct registries")
	}
}

func TestRowAndShardCounters(t *testing.T) {
	m := NewMetrics()
	m.RowConverted("passages")
	m.RowConverted("passages")
	m.RowConverted("documents")
	m.ShardOpened("passages")

	expected := `
		# HELP nqbench_rows_converted_total Total number of source rows written to collection shards
		# TYPE nqbench_rows_converted_total counter
		nqbench_rows_converted_total{collection="documents"} 1
		nqbench_rows_converted_total{collection="passages"} 2
	`
	if err := testutil.CollectAndCompare(m.RowsConverted, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
	if got := testutil.ToFloat64(m.ShardsOpened.WithLabelValues("passages")); got != 1 {
		t.Errorf("shards opened = %v, want 1", got)
	}
}

func TestQuestionScored(t *testing.T) {
	m := NewMetrics()
	m.QuestionScored("bm25", true)
	m.QuestionScored("bm25", false)
	m.QuestionScored("bm25", true)
	m.SetRecall("bm25", 2.0/3.0)

	if got := testutil.ToFloat64(m.QuestionsEvaluated.WithLabelValues("bm25")); got != 3 {
		t.Errorf("questions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Hits.WithLabelValues("bm25")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Recall.WithLabelValues("bm25")); got < 0.66 || got > 0.67 {
		t.Errorf("recall = %v", got)
	}
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics()
	m.RecordSearch("http", nil, 0.02)
	m.RecordSearch("http", errors.New("timeout"), 1.5)

	if got := testutil.ToFloat64(m.SearchRequests.WithLabelValues("http", "success")); got != 1 {
		t.Errorf("success = %v", got)
	}
	if got := testutil.ToFloat64(m.SearchRequests.WithLabelValues("http", "error")); got != 1 {
		t.Errorf("error = %v", got)
	}
	if count := testutil.CollectAndCount(m.SearchDuration); count != 1 {
		t.Errorf("histogram series = %d, want 1", count)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RowConverted("passages")
	m.ShardOpened("passages")
	m.QuestionScored("x", true)
	m.LookupMissed("x")
	m.SetRecall("x", 1)
	m.RecordSearch("bluge", nil, 0)
	if err := m.WriteTextfile("ignored"); err != nil {
		t.Fatalf("WriteTextfile on nil: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.LookupMissed("passages")
	path := filepath.Join(t.TempDir(), "nqbench.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `nqbench_lookup_misses_total{retriever="passages"} 1`) {
		t.Errorf("textfile missing metric:\n%s", data)
	}
}
