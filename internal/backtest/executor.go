package backtest

import (
	"context"
)

// Executor считает фитнес хромосомы: на каждый вызов декодируется
// новая стратегия, поэтому вызовы можно выполнять параллельно
type Executor struct {
	engine *Engine
	mode   Mode
}

func NewExecutor(engine *Engine, mode Mode) *Executor {
	return &Executor{
		engine: engine,
		mode:   mode,
	}
}

// Fitness фитнес в режиме исполнителя (обычно обучение)
func (x *Executor) Fitness(ctx context.Context, chromosome []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	strategy, err := DecodeSingleStrategy(chromosome)
	if err != nil {
		return 0, err
	}
	return x.engine.Run(x.mode, strategy), nil
}

// ValidationFitness out-of-sample фитнес на валидационных диапазонах
func (x *Executor) ValidationFitness(chromosome []float64) (float64, error) {
	report, err := x.Report(Validation, chromosome)
	if err != nil {
		return 0, err
	}
	return report.Fitness, nil
}

// Report подробный прогон хромосомы в заданном режиме
func (x *Executor) Report(mode Mode, chromosome []float64) (Report, error) {
	strategy, err := DecodeSingleStrategy(chromosome)
	if err != nil {
		return Report{}, err
	}
	return x.engine.Simulate(mode, strategy), nil
}
