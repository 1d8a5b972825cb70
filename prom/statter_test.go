package prom_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pilosa/lake/prom"
	"github.com/pilosa/lake/test"
	dto "github.com/prometheus/client_model/go"
)

func family(t *testing.T, s *prom.Statter, name string) *dto.MetricFamily {
	t.Helper()
	fams, err := s.Gatherer().Gather()
	test.ErrNil(t, err, "gathering")
	for _, f := range fams {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("no metric family %s", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	ls := make(map[string]string)
	for _, l := range m.GetLabel() {
		ls[l.GetName()] = l.GetValue()
	}
	return ls
}

func TestStatter(t *testing.T) {
	s := prom.NewStatter("lake", nil)
	s.Count("rows_written", 3, "table:items")
	s.Count("rows_written", 4, "table:items")
	s.Count("rows_written", 5, "table:actors", "ignored:x")
	s.Count("objects_read", 2)
	s.Gauge("join_matches", 7)
	s.Timing("stage", 1500*time.Millisecond, "stage:catalog")

	f := family(t, s, "lake_rows_written_total")
	test.MustBe(t, len(f.GetMetric()), 2)
	for _, m := range f.GetMetric() {
		switch labels(m)["table"] {
		case "items":
			test.MustBe(t, m.GetCounter().GetValue(), 7.0)
		case "actors":
			test.MustBe(t, m.GetCounter().GetValue(), 5.0)
		default:
			t.Fatalf("unexpected labels %v", labels(m))
		}
	}

	f = family(t, s, "lake_objects_read_total")
	test.MustBe(t, f.GetMetric()[0].GetCounter().GetValue(), 2.0)

	f = family(t, s, "lake_join_matches")
	test.MustBe(t, f.GetMetric()[0].GetGauge().GetValue(), 7.0)

	f = family(t, s, "lake_stage_seconds")
	h := f.GetMetric()[0].GetHistogram()
	test.MustBe(t, h.GetSampleCount(), uint64(1))
	test.MustBe(t, h.GetSampleSum(), 1.5)
	test.MustBe(t, labels(f.GetMetric()[0]), map[string]string{"stage": "catalog"})
}

func TestPush(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := prom.NewStatter("lake", nil)
	s.Count("rows_read", 10, "dataset:songs")
	test.ErrNil(t, s.Push(context.Background(), srv.URL, "lake_etl"), "Push")
	test.MustBe(t, method, http.MethodPut)
	test.MustBe(t, path, "/metrics/job/lake_etl")

	srv.Close()
	if err := s.Push(context.Background(), srv.URL, "lake_etl"); err == nil {
		t.Fatal("expected error pushing to a closed gateway")
	}
}
