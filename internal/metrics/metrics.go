package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/skalibog/genetrader/internal/brkga"
	"github.com/skalibog/genetrader/pkg/models"
)

const namespace = "genetrader"

// Recorder метрики оптимизации на собственном реестре
type Recorder struct {
	registry *prometheus.Registry

	evaluations      prometheus.Counter
	evaluationErrors prometheus.Counter
	evaluationTime   prometheus.Histogram
	fitness          *prometheus.GaugeVec
	generation       prometheus.Gauge

	mu   sync.RWMutex
	last *models.GenerationStats
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Количество прогонов бэктеста",
		}),
		evaluationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "Количество прогонов, завершившихся ошибкой",
		}),
		evaluationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Длительность одного прогона бэктеста",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		fitness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fitness",
			Help:      "Фитнес последнего поколения",
		}, []string{"kind"}),
		generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Номер последнего завершенного поколения",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveGeneration наблюдатель для brkga.Optimizer
func (r *Recorder) ObserveGeneration(_ context.Context, stats *models.GenerationStats) {
	r.generation.Set(float64(stats.Generation))
	r.fitness.WithLabelValues("best").Set(stats.Best)
	r.fitness.WithLabelValues("median").Set(stats.Median)
	r.fitness.WithLabelValues("worst").Set(stats.Worst)
	if stats.Validation != nil {
		r.fitness.WithLabelValues("validation").Set(*stats.Validation)
	}

	snapshot := *stats
	r.mu.Lock()
	r.last = &snapshot
	r.mu.Unlock()
}

// Last статистика последнего поколения, nil до первого
func (r *Recorder) Last() *models.GenerationStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Instrument оборачивает Evaluator счетчиками и гистограммой
func (r *Recorder) Instrument(next brkga.Evaluator) brkga.Evaluator {
	return &instrumentedEvaluator{next: next, rec: r}
}

type instrumentedEvaluator struct {
	next brkga.Evaluator
	rec  *Recorder
}

func (e *instrumentedEvaluator) Fitness(ctx context.Context, chromosome []float64) (float64, error) {
	start := time.Now()
	fitness, err := e.next.Fitness(ctx, chromosome)
	e.rec.evaluationTime.Observe(time.Since(start).Seconds())
	e.rec.evaluations.Inc()
	if err != nil {
		e.rec.evaluationErrors.Inc()
	}
	return fitness, err
}
