package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/skalibog/genetrader/pkg/models"
)

type constEvaluator struct {
	err error
}

func (e constEvaluator) Fitness(context.Context, []float64) (float64, error) {
	return 42, e.err
}

func TestInstrumentCountsEvaluations(t *testing.T) {
	rec := New()
	ok := rec.Instrument(constEvaluator{})
	failing := rec.Instrument(constEvaluator{err: errors.New("boom")})

	for i := 0; i < 3; i++ {
		if v, err := ok.Fitness(context.Background(), nil); v != 42 || err != nil {
			t.Fatalf("wrapped evaluator changed the result: %v, %v", v, err)
		}
	}
	if _, err := failing.Fitness(context.Background(), nil); err == nil {
		t.Fatalf("expected the error to pass through")
	}

	if got := testutil.ToFloat64(rec.evaluations); got != 4 {
		t.Fatalf("expected 4 evaluations, got %v", got)
	}
	if got := testutil.ToFloat64(rec.evaluationErrors); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.evaluationTime); n != 1 {
		t.Fatalf("expected one histogram, got %d", n)
	}
}

func TestObserveGeneration(t *testing.T) {
	rec := New()
	if rec.Last() != nil {
		t.Fatalf("no generation observed yet")
	}

	validation := -12.5
	rec.ObserveGeneration(context.Background(), &models.GenerationStats{
		Generation: 4, Best: 10, Median: 1, Worst: -10000, Validation: &validation,
	})

	if got := testutil.ToFloat64(rec.generation); got != 4 {
		t.Fatalf("expected generation 4, got %v", got)
	}
	for kind, want := range map[string]float64{"best": 10, "median": 1, "worst": -10000, "validation": -12.5} {
		if got := testutil.ToFloat64(rec.fitness.WithLabelValues(kind)); got != want {
			t.Fatalf("%s: expected %v, got %v", kind, want, got)
		}
	}
	if last := rec.Last(); last == nil || last.Best != 10 {
		t.Fatalf("unexpected last generation %+v", last)
	}
}

func TestServerEndpoints(t *testing.T) {
	rec := New()
	srv := NewServer(":0", rec)

	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 before the first generation, got %d", resp.Code)
	}

	rec.ObserveGeneration(context.Background(), &models.GenerationStats{Generation: 2, Best: 3})
	rec.Instrument(constEvaluator{}).Fitness(context.Background(), nil)

	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))
	var stats models.GenerationStats
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil || stats.Generation != 2 || stats.Best != 3 {
		t.Fatalf("unexpected status %d %s (%v)", resp.Code, resp.Body.String(), err)
	}

	resp = httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := resp.Body.String()
	for _, name := range []string{"genetrader_evaluations_total 1", "genetrader_generation 2", `genetrader_fitness{kind="best"} 3`} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %q in metrics output", name)
		}
	}
}
