package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/skalibog/genetrader/pkg/models"
)

// ErrMalformedData файл свечей поврежден; частичный ряд не возвращается
var ErrMalformedData = errors.New("некорректные данные свечей")

// CSVHeader колонки файла свечей
var CSVHeader = []string{
	"open_time", "open", "high", "low", "close", "volume",
	"close_time", "quote_asset_volume", "num_trades",
}

// LoadCandlesCSV читает файл свечей. Первая строка считается заголовком.
func LoadCandlesCSV(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие файла свечей: %w", err)
	}
	defer f.Close()

	candles, err := ReadCandles(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

// ReadCandles разбирает CSV целиком; любая ошибка записи отменяет всю загрузку
func ReadCandles(r io.Reader) ([]models.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)
	reader.ReuseRecord = true
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: пустой файл", ErrMalformedData)
		}
		return nil, fmt.Errorf("%w: заголовок: %w", ErrMalformedData, err)
	}

	var candles []models.Candle
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedData, err)
		}

		line, _ := reader.FieldPos(0)
		candle, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: строка %d: %w", ErrMalformedData, line, err)
		}
		if n := len(candles); n > 0 && candle.OpenTime <= candles[n-1].OpenTime {
			return nil, fmt.Errorf("%w: строка %d: open_time %d не позже предыдущего %d",
				ErrMalformedData, line, candle.OpenTime, candles[n-1].OpenTime)
		}
		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: в файле нет свечей", ErrMalformedData)
	}
	return candles, nil
}

func parseRecord(record []string) (models.Candle, error) {
	var (
		c   models.Candle
		err error
	)
	if c.OpenTime, err = parseInt(record[0], "open_time"); err != nil {
		return c, err
	}
	prices := []struct {
		dst  *float64
		name string
		text string
	}{
		{&c.Open, "open", record[1]},
		{&c.High, "high", record[2]},
		{&c.Low, "low", record[3]},
		{&c.Close, "close", record[4]},
		{&c.Volume, "volume", record[5]},
		{&c.QuoteAssetVolume, "quote_asset_volume", record[7]},
	}
	for _, p := range prices {
		if *p.dst, err = parseDecimal(p.text, p.name); err != nil {
			return c, err
		}
	}
	if c.CloseTime, err = parseInt(record[6], "close_time"); err != nil {
		return c, err
	}
	if c.NumTrades, err = parseInt(record[8], "num_trades"); err != nil {
		return c, err
	}
	return c, nil
}

func parseInt(text, field string) (int64, error) {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// parseDecimal строгий разбор числа: NaN, Inf и пустые значения отклоняются
func parseDecimal(text, field string) (float64, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d.InexactFloat64(), nil
}

// WriteCandlesCSV записывает свечи в файл, создавая каталог при необходимости
func WriteCandlesCSV(path string, candles []models.Candle) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("создание каталога %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("создание файла свечей: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := WriteCandles(w, candles); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("запись файла свечей: %w", err)
	}
	return f.Close()
}

// WriteCandles пишет заголовок и свечи
func WriteCandles(w io.Writer, candles []models.Candle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("запись заголовка: %w", err)
	}

	record := make([]string, len(CSVHeader))
	for _, c := range candles {
		record[0] = strconv.FormatInt(c.OpenTime, 10)
		record[1] = formatFloat(c.Open)
		record[2] = formatFloat(c.High)
		record[3] = formatFloat(c.Low)
		record[4] = formatFloat(c.Close)
		record[5] = formatFloat(c.Volume)
		record[6] = strconv.FormatInt(c.CloseTime, 10)
		record[7] = formatFloat(c.QuoteAssetVolume)
		record[8] = strconv.FormatInt(c.NumTrades, 10)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("запись свечи %d: %w", c.OpenTime, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}
