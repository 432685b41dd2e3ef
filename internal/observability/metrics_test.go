package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordRun("bachelier", "ok", 0.02)
	m.RecordRun("bachelier", "ok", 0.03)
	m.RecordRun("option", "error", 0.001)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("bachelier", "ok")); got != 2 {
		t.Errorf("bachelier ok runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("option", "error")); got != 1 {
		t.Errorf("option error runs = %v, want 1", got)
	}
}

func TestRecordDBQuery(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordDBQuery("postgres", "insert_run", 0.01, nil)
	m.RecordDBQuery("postgres", "insert_run", 0.01, errors.New("boom"))

	if got := testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "insert_run")); got != 1 {
		t.Errorf("query errors = %v, want 1", got)
	}
}

func TestNewMetricsWith_IndependentRegistries(t *testing.T) {
	a := NewMetricsWith(prometheus.NewRegistry(), "")
	b := NewMetricsWith(prometheus.NewRegistry(), "")

	a.PathsSimulated.Add(10)
	if got := testutil.ToFloat64(b.PathsSimulated); got != 0 {
		t.Errorf("registries leaked state: %v", got)
	}
}

func TestForNamespace_Default(t *testing.T) {
	if ForNamespace("") != DefaultMetrics || ForNamespace(DefaultNamespace) != DefaultMetrics {
		t.Error("default namespace should reuse DefaultMetrics")
	}
}
