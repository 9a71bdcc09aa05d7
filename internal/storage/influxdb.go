package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

const (
	candlesMeasurement = "candles"
	runsMeasurement    = "optimization_runs"
	// writeBatch сколько точек отправлять за один запрос
	writeBatch = 5000
)

// Storage источник свечей и приемник результатов оптимизации
type Storage interface {
	SaveCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error)
	SaveRunResult(ctx context.Context, result models.RunResult) error
	Close()
}

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	logger.Debug("Подключено к InfluxDB", zap.String("url", cfg.URL), zap.String("bucket", cfg.Bucket))

	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveCandles сохраняет свечи пачками
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, symbol, interval string, candles []models.Candle) error {
	points := make([]*write.Point, 0, writeBatch)
	for i := range candles {
		points = append(points, candlePoint(symbol, interval, &candles[i]))
		if len(points) == writeBatch || i == len(candles)-1 {
			if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
				return fmt.Errorf("ошибка записи свечей %s %s: %w", symbol, interval, err)
			}
			points = points[:0]
		}
	}

	logger.Debug("Свечи записаны в InfluxDB",
		zap.String("symbol", symbol), zap.String("interval", interval), zap.Int("count", len(candles)))
	return nil
}

// GetCandles получает свечи за период [start, end) в хронологическом порядке
func (s *InfluxDBStorage) GetCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error) {
	result, err := s.queryAPI.Query(ctx, candlesQuery(s.bucket, symbol, interval, start, end))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса свечей: %w", err)
	}
	defer result.Close()

	// Обрабатываем результаты
	var candles []models.Candle
	for result.Next() {
		candles = append(candles, recordToCandle(result.Record(), interval))
	}

	// Проверяем на ошибки при обработке результатов
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: нет свечей %s %s в InfluxDB", ErrMalformedData, symbol, interval)
	}

	return candles, nil
}

// SaveRunResult сохраняет итог оптимизации
func (s *InfluxDBStorage) SaveRunResult(ctx context.Context, result models.RunResult) error {
	if err := s.writeAPI.WritePoint(ctx, runPoint(result)); err != nil {
		return fmt.Errorf("ошибка записи результата %s: %w", result.RunID, err)
	}
	return nil
}

func candlePoint(symbol, interval string, c *models.Candle) *write.Point {
	return influxdb2.NewPoint(
		candlesMeasurement,
		map[string]string{
			"symbol":   symbol,
			"interval": interval,
		},
		map[string]interface{}{
			"open":               c.Open,
			"high":               c.High,
			"low":                c.Low,
			"close":              c.Close,
			"volume":             c.Volume,
			"quote_asset_volume": c.QuoteAssetVolume,
			"num_trades":         c.NumTrades,
			"close_time":         c.CloseTime,
		},
		c.OpenedAt(),
	)
}

func runPoint(r models.RunResult) *write.Point {
	genes := make([]string, len(r.Chromosome))
	for i, g := range r.Chromosome {
		genes[i] = strconv.FormatFloat(g, 'g', -1, 64)
	}
	return influxdb2.NewPoint(
		runsMeasurement,
		map[string]string{
			"run_id":   r.RunID,
			"symbol":   r.Symbol,
			"interval": r.Interval,
		},
		map[string]interface{}{
			"seed":               strconv.FormatUint(r.Seed, 10),
			"generations":        r.Generations,
			"population_size":    r.PopulationSize,
			"training_fitness":   r.TrainingFitness,
			"validation_fitness": r.ValidationFitness,
			"chromosome":         strings.Join(genes, ","),
			"duration_seconds":   r.FinishedAt.Sub(r.StartedAt).Seconds(),
		},
		r.FinishedAt,
	)
}

func candlesQuery(bucket, symbol, interval string, start, end time.Time) string {
	// Формируем Flux-запрос
	return fmt.Sprintf(`
		from(bucket: %q)
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r._measurement == %q)
			|> filter(fn: (r) => r.symbol == %q)
			|> filter(fn: (r) => r.interval == %q)
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"])
	`, bucket, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		candlesMeasurement, symbol, interval)
}

func recordToCandle(record *query.FluxRecord, interval string) models.Candle {
	openTime := record.Time()
	c := models.Candle{
		OpenTime:         openTime.UnixMilli(),
		Open:             floatValue(record, "open"),
		High:             floatValue(record, "high"),
		Low:              floatValue(record, "low"),
		Close:            floatValue(record, "close"),
		Volume:           floatValue(record, "volume"),
		QuoteAssetVolume: floatValue(record, "quote_asset_volume"),
	}
	c.NumTrades, _ = record.ValueByKey("num_trades").(int64)

	// точки, записанные без close_time, закрываем по длине интервала
	if closeTime, ok := record.ValueByKey("close_time").(int64); ok {
		c.CloseTime = closeTime
	} else {
		c.CloseTime = openTime.Add(getIntervalDuration(interval)).UnixMilli() - 1
	}
	return c
}

func floatValue(record *query.FluxRecord, key string) float64 {
	switch v := record.ValueByKey(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// getIntervalDuration конвертирует строковый интервал в duration
func getIntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "3d":
		return 72 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}
