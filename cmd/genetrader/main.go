package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/skalibog/genetrader/internal/analysis/technical"
	"github.com/skalibog/genetrader/internal/backtest"
	"github.com/skalibog/genetrader/internal/brkga"
	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/internal/metrics"
	"github.com/skalibog/genetrader/internal/storage"
	"github.com/skalibog/genetrader/internal/ui"
	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	seed := flag.Uint64("seed", 0, "сид генератора, 0 - из конфигурации")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.String("path", *configPath), zap.Error(err))
	}
	if *seed != 0 {
		cfg.Optimizer.Seed = *seed
	}

	if err := logger.Init(cfg.Logger()); err != nil {
		logger.Fatal("Ошибка инициализации логгера", zap.Error(err))
	}
	defer logger.Sync()

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Оптимизация прервана")
			return
		}
		logger.Fatal("Оптимизация завершилась ошибкой", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()
	log := logger.With(zap.String("run_id", runID))

	// Инициализируем хранилище
	var store storage.Storage
	if cfg.Storage.Enabled {
		influx, err := storage.NewInfluxDBStorage(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("ошибка инициализации хранилища: %w", err)
		}
		defer influx.Close()
		store = influx
	}

	candles, err := loadCandles(ctx, cfg, store)
	if err != nil {
		return err
	}
	log.Info("Свечи загружены",
		zap.Int("count", len(candles)),
		zap.Time("с", candles[0].OpenedAt()),
		zap.Time("по", candles[len(candles)-1].ClosedAt()))

	engine, err := backtest.NewEngine(candles, cfg.Backtest.Engine())
	if err != nil {
		return err
	}
	executor := backtest.NewExecutor(engine, backtest.Training)

	// Профиль рынка помогает понять, чем обучение отличается от валидации
	if !cfg.Analysis.Skip {
		analyzer := technical.NewAnalyzer(cfg.Analysis)
		for _, mode := range []backtest.Mode{backtest.Training, backtest.Validation} {
			profiles := analyzer.ProfileRanges(candles, mode, engine.Ranges(mode))
			technical.LogProfiles(log, profiles)
			regimes := technical.Summary(profiles)
			log.Info("Режимы рынка",
				zap.Stringer("mode", mode),
				zap.Int("рост", regimes[technical.RegimeUp]),
				zap.Int("падение", regimes[technical.RegimeDown]),
				zap.Int("флэт", regimes[technical.RegimeFlat]))
		}
	}

	var evaluator brkga.Evaluator = executor
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		evaluator = recorder.Instrument(executor)

		server := metrics.NewServer(cfg.Metrics.Listen, recorder)
		server.Start()
		defer server.Stop(context.Background())
	}

	optimizer, err := brkga.New(cfg.Optimizer.BRKGA(backtest.SingleStrategyGenes), cfg.Optimizer.Seed, evaluator)
	if err != nil {
		return err
	}

	// валидационный фитнес лучшей особи считается до остальных наблюдателей
	if !cfg.Optimizer.SkipValidation {
		optimizer.OnGeneration(func(_ context.Context, stats *models.GenerationStats) {
			v, err := executor.ValidationFitness(stats.BestGenes)
			if err != nil {
				log.Warn("Ошибка валидации лучшей особи", zap.Int("поколение", stats.Generation), zap.Error(err))
				return
			}
			stats.Validation = &v
		})
	}
	if recorder != nil {
		optimizer.OnGeneration(recorder.ObserveGeneration)
	}

	if !cfg.UI.Enabled {
		_, err := optimize(ctx, cfg, runID, optimizer, executor, store)
		return err
	}

	// Интерфейс занимает основной поток, оптимизация идет в фоне
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	title := fmt.Sprintf("genetrader %s %s - seed %d", cfg.Data.Symbol, cfg.Data.Interval, cfg.Optimizer.Seed)
	dashboard := ui.NewTermUI(ctx, cfg.UI, title, cfg.Log.JSONFile, cfg.Optimizer.MaxGenerations)
	optimizer.OnGeneration(dashboard.ObserveGeneration)

	done := make(chan error, 1)
	go func() {
		result, err := optimize(ctx, cfg, runID, optimizer, executor, store)
		if err != nil {
			// ошибку покажет main после закрытия интерфейса
			dashboard.Quit()
		} else {
			dashboard.SetResult(result)
		}
		done <- err
	}()

	if err := dashboard.Start(); err != nil {
		return err
	}
	// выход из интерфейса до конца оптимизации прерывает ее
	cancel()
	return <-done
}

func loadCandles(ctx context.Context, cfg *config.Config, store storage.Storage) ([]models.Candle, error) {
	if cfg.Data.Source == "influx" {
		start, end, err := cfg.Data.Period()
		if err != nil {
			return nil, err
		}
		return store.GetCandles(ctx, cfg.Data.Symbol, cfg.Data.Interval, start, end)
	}

	candles, err := storage.LoadCandlesCSV(cfg.Data.CSV)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("файл %s не найден, выгрузите свечи командой klines: %w", cfg.Data.CSV, err)
		}
		return nil, err
	}
	return candles, nil
}

func optimize(ctx context.Context, cfg *config.Config, runID string, optimizer *brkga.Optimizer,
	executor *backtest.Executor, store storage.Storage) (models.RunResult, error) {
	started := time.Now()

	best, history, err := optimizer.Run(ctx)
	if err != nil {
		return models.RunResult{}, err
	}

	validation, err := executor.Report(backtest.Validation, best.Chromosome)
	if err != nil {
		return models.RunResult{}, err
	}
	strategy, err := backtest.DecodeSingleStrategy(best.Chromosome)
	if err != nil {
		return models.RunResult{}, err
	}

	result := models.RunResult{
		RunID:             runID,
		Symbol:            cfg.Data.Symbol,
		Interval:          cfg.Data.Interval,
		Seed:              cfg.Optimizer.Seed,
		Generations:       len(history),
		PopulationSize:    cfg.Optimizer.PopulationSize,
		TrainingFitness:   best.Value(),
		ValidationFitness: validation.Fitness,
		Chromosome:        best.Chromosome,
		StartedAt:         started,
		FinishedAt:        time.Now(),
	}

	logger.Info("Лучшая стратегия",
		zap.String("run_id", runID),
		zap.Float64("обучение", result.TrainingFitness),
		zap.Float64("валидация", result.ValidationFitness),
		zap.Int("сделок", validation.TradesOpened),
		zap.Int("ликвидаций", validation.Closed[models.CloseLiquidation]),
		zap.Int("стопов", validation.Closed[models.CloseStopLoss]),
		zap.Int("тейков", validation.Closed[models.CloseTakeProfit]),
		zap.Int("не_закрыто", validation.LeftOpen),
		zap.Float64("комиссии", validation.FeesPaid),
		zap.Stringer("стратегия", strategy),
		zap.Float64s("гены", best.Chromosome))

	if store != nil {
		if err := store.SaveRunResult(ctx, result); err != nil {
			logger.Error("Не удалось сохранить результат", zap.Error(err))
		}
	}

	if !cfg.UI.Enabled {
		fmt.Printf("run %s: обучение %.4f, валидация %.4f\n%s\n",
			runID, result.TrainingFitness, result.ValidationFitness, strategy)
	}
	return result, nil
}
