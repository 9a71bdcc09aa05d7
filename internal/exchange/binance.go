package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

// codeTooManyRequests ответ Binance при превышении лимита запросов
const codeTooManyRequests = -1003

// KlinesAPI одна страница свечей за [startMs, endMs]
type KlinesAPI interface {
	Klines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]*futures.Kline, error)
}

// BinanceClient клиент для взаимодействия с Binance
type BinanceClient struct {
	futures *futures.Client
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	// флаг пакетный: влияет на все клиенты futures, созданные после него
	futures.UseTestnet = cfg.Testnet

	return &BinanceClient{
		futures: futures.NewClient(cfg.APIKey, cfg.APISecret),
	}
}

// Klines получает страницу исторических свечей
func (c *BinanceClient) Klines(ctx context.Context, symbol, interval string, startMs, endMs int64, limit int) ([]*futures.Kline, error) {
	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startMs).
		EndTime(endMs).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}
	return klines, nil
}

// Downloader выгружает длинные периоды постранично
type Downloader struct {
	api     KlinesAPI
	limit   int
	retries int
	backoff backoff.Backoff
}

func NewDownloader(api KlinesAPI, cfg config.DownloadConfig) *Downloader {
	return &Downloader{
		api:     api,
		limit:   cfg.Limit,
		retries: cfg.Retries,
		backoff: backoff.Backoff{
			Min:    500 * time.Millisecond,
			Max:    30 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

// Download выгружает закрытые свечи с open_time в [start, end) по возрастанию времени
func (d *Downloader) Download(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error) {
	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	cursor := startMs

	var candles []models.Candle
	for page := 1; cursor < endMs; page++ {
		klines, err := d.fetchPage(ctx, symbol, interval, cursor, endMs-1)
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			if k.OpenTime < cursor || k.OpenTime >= endMs {
				continue
			}
			candle, err := convertKline(k)
			if err != nil {
				return nil, fmt.Errorf("свеча %d: %w", k.OpenTime, err)
			}
			candles = append(candles, candle)
		}

		last := klines[len(klines)-1]
		if last.CloseTime < cursor {
			break
		}
		cursor = last.CloseTime + 1

		if page%20 == 0 {
			logger.Info("Выгрузка свечей",
				zap.String("symbol", symbol),
				zap.Int("страниц", page),
				zap.Int("свечей", len(candles)),
				zap.Time("до", time.UnixMilli(cursor).UTC()))
		}
		if len(klines) < d.limit {
			break
		}
	}

	// последняя свеча может быть еще не закрыта
	now := time.Now().UnixMilli()
	for len(candles) > 0 && candles[len(candles)-1].CloseTime >= now {
		candles = candles[:len(candles)-1]
	}

	logger.Info("Выгрузка завершена",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("свечей", len(candles)))
	return candles, nil
}

// fetchPage повторяет запрос с экспоненциальной задержкой
func (d *Downloader) fetchPage(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]*futures.Kline, error) {
	b := d.backoff
	for {
		klines, err := d.api.Klines(ctx, symbol, interval, startMs, endMs, d.limit)
		if err == nil {
			return klines, nil
		}
		if !retryable(err) || int(b.Attempt()) >= d.retries {
			return nil, err
		}

		wait := b.Duration()
		logger.Warn("Повтор запроса свечей",
			zap.Error(err),
			zap.Float64("попытка", b.Attempt()),
			zap.Duration("ожидание", wait))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// retryable сетевые сбои и лимит запросов повторяем, остальные ошибки API нет
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == codeTooManyRequests
	}
	return true
}

func convertKline(k *futures.Kline) (models.Candle, error) {
	c := models.Candle{
		OpenTime:  k.OpenTime,
		CloseTime: k.CloseTime,
		NumTrades: k.TradeNum,
	}
	fields := []struct {
		dst  *float64
		text string
		name string
	}{
		{&c.Open, k.Open, "open"},
		{&c.High, k.High, "high"},
		{&c.Low, k.Low, "low"},
		{&c.Close, k.Close, "close"},
		{&c.Volume, k.Volume, "volume"},
		{&c.QuoteAssetVolume, k.QuoteAssetVolume, "quote_asset_volume"},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.text)
		if err != nil {
			return c, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d.InexactFloat64()
	}
	return c, nil
}
