package brkga

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Evaluator считает фитнес хромосомы. Вызывается из нескольких горутин.
type Evaluator interface {
	Fitness(ctx context.Context, chromosome []float64) (float64, error)
}

// Individual хромосома и ее фитнес; nil означает, что особь еще не оценена
type Individual struct {
	Chromosome []float64
	Fitness    *float64
}

func (ind Individual) Evaluated() bool {
	return ind.Fitness != nil
}

// Value фитнес или -Inf для неоцененной особи
func (ind Individual) Value() float64 {
	if ind.Fitness == nil {
		return math.Inf(-1)
	}
	return *ind.Fitness
}

// Clone глубокая копия, фитнес сохраняется
func (ind Individual) Clone() Individual {
	c := Individual{Chromosome: slices.Clone(ind.Chromosome)}
	if ind.Fitness != nil {
		f := *ind.Fitness
		c.Fitness = &f
	}
	return c
}

// RandomIndividual особь со случайными генами из [0, 1)
func RandomIndividual(rng *rand.Rand, size int) Individual {
	genes := make([]float64, size)
	for i := range genes {
		genes[i] = rng.Float64()
	}
	return Individual{Chromosome: genes}
}

// Population после Rank отсортирована по возрастанию фитнеса: худшие в начале
type Population []Individual

func InitialPopulation(rng *rand.Rand, cfg Config) Population {
	p := make(Population, cfg.PopulationSize)
	for i := range p {
		p[i] = RandomIndividual(rng, cfg.ChromosomeSize)
	}
	return p
}

// Evaluate параллельно оценивает только неоцененные особи.
// Каждая горутина пишет только в свой слот, ГСЧ здесь не используется.
// Возвращает количество запущенных оценок.
func (p Population) Evaluate(ctx context.Context, evaluator Evaluator, workers int) (int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	evaluated := 0
	for i := range p {
		if p[i].Evaluated() {
			continue
		}
		evaluated++
		g.Go(func() error {
			fitness, err := evaluator.Fitness(ctx, p[i].Chromosome)
			if err != nil {
				return fmt.Errorf("оценка особи %d: %w", i, err)
			}
			p[i].Fitness = &fitness
			return nil
		})
	}
	return evaluated, g.Wait()
}

// Rank устойчивая сортировка по возрастанию фитнеса
func (p Population) Rank() {
	slices.SortStableFunc(p, func(a, b Individual) int {
		return cmp.Compare(a.Value(), b.Value())
	})
}

// Elite последние n особей ранжированной популяции
func (p Population) Elite(n int) Population {
	return p[len(p)-n:]
}

func (p Population) Best() Individual {
	return p[len(p)-1]
}

func (p Population) Median() Individual {
	return p[len(p)/2]
}

func (p Population) Worst() Individual {
	return p[0]
}

// Evolve строит следующее поколение из ранжированной популяции:
// сначала мутанты, затем элита без изменений, остальное занимают потомки
// элитного и неэлитного родителя
func (p Population) Evolve(rng *rand.Rand, cfg Config) Population {
	size := len(p)
	eliteCount := cfg.EliteCount()
	eliteStart := size - eliteCount

	next := make(Population, 0, size)
	for i := 0; i < cfg.MutantCount(); i++ {
		next = append(next, RandomIndividual(rng, cfg.ChromosomeSize))
	}
	for _, ind := range p.Elite(eliteCount) {
		next = append(next, ind.Clone())
	}
	for len(next) < size {
		elite := p[eliteStart+rng.IntN(eliteCount)]
		other := p[rng.IntN(eliteStart)]
		next = append(next, crossover(rng, elite, other, cfg.ElitismBias))
	}
	return next
}

// crossover ген берется от элитного родителя с вероятностью bias
func crossover(rng *rand.Rand, elite, other Individual, bias float64) Individual {
	genes := make([]float64, len(elite.Chromosome))
	for i := range genes {
		if rng.Float64() < bias {
			genes[i] = elite.Chromosome[i]
		} else {
			genes[i] = other.Chromosome[i]
		}
	}
	return Individual{Chromosome: genes}
}
