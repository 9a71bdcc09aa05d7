package brkga

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

// pcgStream второе слово состояния PCG; вместе с сидом задает поток
const pcgStream = 0x9e3779b97f4a7c15

// NewRNG детерминированный генератор из 64-битного сида
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// Observer вызывается после ранжирования каждого поколения на горутине Run.
// Может дописать в статистику валидационный фитнес.
type Observer func(ctx context.Context, stats *models.GenerationStats)

// Optimizer BRKGA поверх произвольного Evaluator
type Optimizer struct {
	cfg       Config
	seed      uint64
	rng       *rand.Rand
	evaluator Evaluator
	observers []Observer
}

func New(cfg Config, seed uint64, evaluator Evaluator) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: не задан Evaluator", ErrInvalidConfig)
	}
	return &Optimizer{
		cfg:       cfg,
		seed:      seed,
		rng:       NewRNG(seed),
		evaluator: evaluator,
	}, nil
}

// OnGeneration добавляет наблюдателя за поколениями
func (o *Optimizer) OnGeneration(obs Observer) {
	o.observers = append(o.observers, obs)
}

func (o *Optimizer) Config() Config {
	return o.cfg
}

// Run эволюционирует популяцию MaxGenerations поколений и возвращает лучшую особь
// последнего оцененного поколения вместе с историей поколений
func (o *Optimizer) Run(ctx context.Context) (Individual, []models.GenerationStats, error) {
	logger.Info("Запуск BRKGA",
		zap.Int("популяция", o.cfg.PopulationSize),
		zap.Int("поколений", o.cfg.MaxGenerations),
		zap.Int("элита", o.cfg.EliteCount()),
		zap.Int("мутанты", o.cfg.MutantCount()),
		zap.Uint64("seed", o.seed))

	started := time.Now()
	history := make([]models.GenerationStats, 0, o.cfg.MaxGenerations)
	population := InitialPopulation(o.rng, o.cfg)

	var best Individual
	for gen := 0; gen < o.cfg.MaxGenerations; gen++ {
		genStart := time.Now()

		evaluated, err := population.Evaluate(ctx, o.evaluator, o.cfg.Workers)
		if err != nil {
			return Individual{}, history, fmt.Errorf("поколение %d: %w", gen, err)
		}
		population.Rank()
		best = population.Best().Clone()

		stats := models.GenerationStats{
			Generation: gen,
			Best:       best.Value(),
			Median:     population.Median().Value(),
			Worst:      population.Worst().Value(),
			Evaluated:  evaluated,
			Duration:   time.Since(genStart),
			BestGenes:  slices.Clone(best.Chromosome),
		}
		for _, obs := range o.observers {
			obs(ctx, &stats)
		}
		history = append(history, stats)

		fields := []zap.Field{
			zap.Int("поколение", gen),
			zap.Float64("лучший", stats.Best),
			zap.Float64("медиана", stats.Median),
			zap.Float64("худший", stats.Worst),
			zap.Int("оценено", evaluated),
			zap.Duration("время", stats.Duration),
		}
		if stats.Validation != nil {
			fields = append(fields, zap.Float64("валидация", *stats.Validation))
		}
		logger.Info("Поколение завершено", fields...)

		if gen < o.cfg.MaxGenerations-1 {
			population = population.Evolve(o.rng, o.cfg)
		}
	}

	logger.Info("BRKGA завершен",
		zap.Float64("лучший", best.Value()),
		zap.Duration("время", time.Since(started)))
	return best, history, nil
}
