package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/skalibog/genetrader/internal/backtest"
	"github.com/skalibog/genetrader/internal/brkga"
	"github.com/skalibog/genetrader/pkg/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// DateLayout формат дат в секции download
const DateLayout = "2006-01-02"

// Config представляет полную конфигурацию приложения
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Storage   StorageConfig   `yaml:"storage"`
	Binance   BinanceConfig   `yaml:"binance"`
	Download  DownloadConfig  `yaml:"download"`
	UI        UIConfig        `yaml:"ui"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Analysis  TechnicalConfig `yaml:"analysis"`
	Log       LogConfig       `yaml:"log"`
}

// DataConfig откуда брать свечи для оптимизации
type DataConfig struct {
	Source   string `yaml:"source" default:"csv" validate:"oneof=csv influx"`
	CSV      string `yaml:"csv" default:"data/ETHUSDT-5m.csv" validate:"required_if=Source csv"`
	Symbol   string `yaml:"symbol" default:"ETHUSDT" validate:"required"`
	Interval string `yaml:"interval" default:"5m" validate:"required"`
	// Границы выборки из InfluxDB
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// BacktestConfig параметры симуляции
type BacktestConfig struct {
	Divisions      int     `yaml:"divisions" default:"12" validate:"gt=1"`
	Slippage       float64 `yaml:"slippage" default:"0.005" validate:"gte=0,lt=1"`
	Fee            float64 `yaml:"fee" default:"0.02" validate:"gte=0,lt=1"`
	InitialBalance float64 `yaml:"initial_balance" default:"10000" validate:"gt=0"`
	WarmupCandles  int     `yaml:"warmup_candles" default:"250" validate:"gte=0"`
}

// OptimizerConfig настройки BRKGA
type OptimizerConfig struct {
	Seed           uint64  `yaml:"seed" default:"18988547"`
	PopulationSize int     `yaml:"population_size" default:"1000" validate:"gte=2"`
	MaxGenerations int     `yaml:"max_generations" default:"100" validate:"gte=1"`
	EliteFraction  float64 `yaml:"elite_fraction" default:"0.1" validate:"gt=0,lt=1"`
	MutantFraction float64 `yaml:"mutant_fraction" default:"0.3" validate:"gte=0,lt=1"`
	ElitismBias    float64 `yaml:"elitism_bias" default:"0.6" validate:"gte=0,lte=1"`
	Workers        int     `yaml:"workers" validate:"gte=0"`
	// SkipValidation не считать out-of-sample фитнес лучшей особи на каждом поколении
	SkipValidation bool `yaml:"skip_validation"`
}

// StorageConfig настройки InfluxDB
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url" default:"http://localhost:8086" validate:"required,url"`
	Token        string `yaml:"token" validate:"required_if=Enabled true"`
	Organization string `yaml:"organization" default:"genetrader"`
	Bucket       string `yaml:"bucket" default:"candles"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// DownloadConfig параметры выгрузки свечей
type DownloadConfig struct {
	Symbol   string `yaml:"symbol" default:"ETHUSDT" validate:"required"`
	Interval string `yaml:"interval" default:"5m" validate:"required"`
	Start    string `yaml:"start" default:"2021-01-01" validate:"required"`
	End      string `yaml:"end"` // пусто - до текущего момента
	Limit    int    `yaml:"limit" default:"1500" validate:"gte=1,lte=1500"`
	Output   string `yaml:"output" default:"data/ETHUSDT-5m.csv" validate:"required"`
	// Retries сколько раз повторять запрос страницы
	Retries int `yaml:"retries" default:"5" validate:"gte=0"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	Enabled     bool `yaml:"enabled"`
	RefreshRate int  `yaml:"refresh_rate_ms" default:"1000" validate:"gte=100"`
}

// MetricsConfig настройки Prometheus
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" default:":9100"`
}

// TechnicalConfig параметры профиля диапазонов, который пишется в лог перед оптимизацией
type TechnicalConfig struct {
	Skip       bool    `yaml:"skip"`
	RSIPeriod  int     `yaml:"rsi_period" default:"14" validate:"gte=2"`
	ATRPeriod  int     `yaml:"atr_period" default:"14" validate:"gte=1"`
	SMAPeriod  int     `yaml:"sma_period" default:"50" validate:"gte=2"`
	MACDFast   int     `yaml:"macd_fast" default:"12" validate:"gte=2"`
	MACDSlow   int     `yaml:"macd_slow" default:"26" validate:"gtfield=MACDFast"`
	MACDSignal int     `yaml:"macd_signal" default:"9" validate:"gte=1"`
	TrendShare float64 `yaml:"trend_share" default:"0.6" validate:"gt=0.5,lte=1"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level    string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	File     string `yaml:"file" default:"app.log"`
	JSONFile string `yaml:"json_file" default:"app.json.log"`
	// KeepPrevious не очищать файлы логов при запуске
	KeepPrevious bool `yaml:"keep_previous"`
}

var validate = validator.New()

// Load загружает конфигурацию из файла, подставляет значения по умолчанию и проверяет ее
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// секреты binance и storage в лог не попадают
	logger.Debug("Загружена конфигурация",
		zap.String("path", path),
		zap.Any("data", cfg.Data),
		zap.Any("backtest", cfg.Backtest),
		zap.Any("optimizer", cfg.Optimizer))
	return cfg, nil
}

// Parse разбирает YAML; пустой документ дает конфигурацию по умолчанию
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("значения по умолчанию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default конфигурация без файла
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate проверяет теги и связи между полями, все ошибки собираются вместе
func (c *Config) Validate() error {
	var errs error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = multierr.Append(errs, fmt.Errorf("%s: %s", fe.Namespace(), describe(fe)))
		}
	}

	if err := c.Optimizer.BRKGA(backtest.SingleStrategyGenes).Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, _, err := c.Download.Period(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Data.Source == "influx" && !c.Storage.Enabled {
		errs = multierr.Append(errs, errors.New("data.source influx требует storage.enabled"))
	}

	if errs != nil {
		return fmt.Errorf("некорректная конфигурация: %w", errs)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "обязательное поле"
	case "oneof":
		return fmt.Sprintf("должно быть одним из [%s]", fe.Param())
	case "gt":
		return fmt.Sprintf("должно быть больше %s", fe.Param())
	case "gte":
		return fmt.Sprintf("должно быть не меньше %s", fe.Param())
	case "lt":
		return fmt.Sprintf("должно быть меньше %s", fe.Param())
	case "lte":
		return fmt.Sprintf("должно быть не больше %s", fe.Param())
	case "gtfield":
		return fmt.Sprintf("должно быть больше %s", fe.Param())
	default:
		return fmt.Sprintf("не прошло проверку %s", fe.Tag())
	}
}

// Engine параметры движка бэктеста
func (b BacktestConfig) Engine() backtest.Config {
	return backtest.Config{
		Divisions:      b.Divisions,
		Slippage:       b.Slippage,
		Fee:            b.Fee,
		InitialBalance: b.InitialBalance,
		WarmupCandles:  b.WarmupCandles,
	}
}

// BRKGA параметры оптимизатора для хромосомы заданной длины
func (o OptimizerConfig) BRKGA(chromosomeSize int) brkga.Config {
	return brkga.Config{
		EliteFraction:  o.EliteFraction,
		MutantFraction: o.MutantFraction,
		PopulationSize: o.PopulationSize,
		MaxGenerations: o.MaxGenerations,
		ElitismBias:    o.ElitismBias,
		ChromosomeSize: chromosomeSize,
		Workers:        o.Workers,
	}
}

// Logger параметры логгера; в консоль пишем, только когда нет терминального интерфейса
func (c *Config) Logger() logger.Options {
	return logger.Options{
		Level:    c.Log.Level,
		File:     c.Log.File,
		JSONFile: c.Log.JSONFile,
		Console:  !c.UI.Enabled,
		Truncate: !c.Log.KeepPrevious,
	}
}

// Period границы выгрузки; пустой End означает текущий момент
func (d DownloadConfig) Period() (time.Time, time.Time, error) {
	return parsePeriod(d.Start, d.End, "download")
}

// Period границы выборки из хранилища; пустые границы означают весь ряд
func (d DataConfig) Period() (time.Time, time.Time, error) {
	if d.Start == "" && d.End == "" {
		return time.Unix(0, 0).UTC(), time.Now().UTC(), nil
	}
	return parsePeriod(d.Start, d.End, "data")
}

func parsePeriod(startText, endText, section string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, startText)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s.start: %w", section, err)
	}
	end := time.Now().UTC()
	if endText != "" {
		if end, err = time.Parse(DateLayout, endText); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%s.end: %w", section, err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%s: начало %s не раньше конца %s",
			section, start.Format(DateLayout), end.Format(DateLayout))
	}
	return start, end, nil
}
