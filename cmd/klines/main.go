package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/internal/exchange"
	"github.com/skalibog/genetrader/internal/storage"
	"github.com/skalibog/genetrader/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	symbol := flag.String("symbol", "", "символ, по умолчанию из конфигурации")
	interval := flag.String("interval", "", "интервал, по умолчанию из конфигурации")
	output := flag.String("output", "", "CSV файл, по умолчанию из конфигурации")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Ошибка загрузки конфигурации", zap.String("path", *configPath), zap.Error(err))
	}
	if *symbol != "" {
		cfg.Download.Symbol = *symbol
	}
	if *interval != "" {
		cfg.Download.Interval = *interval
	}
	if *output != "" {
		cfg.Download.Output = *output
	}

	opts := cfg.Logger()
	opts.Console = true
	if err := logger.Init(opts); err != nil {
		logger.Fatal("Ошибка инициализации логгера", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start, end, err := cfg.Download.Period()
	if err != nil {
		logger.Fatal("Некорректный период выгрузки", zap.Error(err))
	}

	// Инициализируем клиент биржи
	client := exchange.NewBinanceClient(cfg.Binance)
	downloader := exchange.NewDownloader(client, cfg.Download)

	logger.Info("Выгрузка свечей",
		zap.String("symbol", cfg.Download.Symbol),
		zap.String("interval", cfg.Download.Interval),
		zap.Time("с", start),
		zap.Time("по", end))

	candles, err := downloader.Download(ctx, cfg.Download.Symbol, cfg.Download.Interval, start, end)
	if err != nil {
		logger.Fatal("Ошибка выгрузки свечей", zap.Error(err))
	}
	if len(candles) == 0 {
		logger.Fatal("Биржа не вернула ни одной свечи")
	}

	if err := storage.WriteCandlesCSV(cfg.Download.Output, candles); err != nil {
		logger.Fatal("Ошибка записи CSV", zap.Error(err))
	}
	logger.Info("Свечи сохранены", zap.String("file", cfg.Download.Output), zap.Int("count", len(candles)))

	if cfg.Storage.Enabled {
		store, err := storage.NewInfluxDBStorage(ctx, cfg.Storage)
		if err != nil {
			logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
		}
		defer store.Close()

		if err := store.SaveCandles(ctx, cfg.Download.Symbol, cfg.Download.Interval, candles); err != nil {
			logger.Fatal("Ошибка записи свечей в InfluxDB", zap.Error(err))
		}
		logger.Info("Свечи записаны в InfluxDB", zap.String("bucket", cfg.Storage.Bucket))
	}
}
