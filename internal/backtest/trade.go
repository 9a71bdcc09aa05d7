package backtest

import (
	"time"

	"github.com/skalibog/genetrader/pkg/models"
)

// liquidationMargin доля позиции, после потери которой позиция ликвидируется
const liquidationMargin = 0.95

// TradeState состояние сделки
type TradeState int

const (
	TradeOpen TradeState = iota
	TradeAdjusted
	TradeClosed
)

// Trade одна открытая позиция с учетом комиссий и проскальзывания.
// Размеры позиции хранятся в долларах без плеча.
type Trade struct {
	Direction models.Direction
	Leverage  int

	AvgEntryPrice    float64
	AvgExitPrice     float64
	Result           float64 // накопленный результат, комиссии уже вычтены
	InitialSize      float64
	TotalFeePaid     float64
	LiquidationPrice float64

	currentSize float64
	closedSize  float64
	feeRate     float64
	slippage    float64
	stopLoss    *float64
	takeProfit  *float64

	state       TradeState
	closeReason models.CloseReason
	openTime    int64
	closeTime   int64
}

// OpenTrade открывает сделку по цене закрытия свечи с учетом проскальзывания
// и сразу списывает комиссию за вход
func OpenTrade(dir models.Direction, positionSize float64, candle *models.Candle, leverage int, slippage, feeRate float64) *Trade {
	t := &Trade{
		Direction:   dir,
		Leverage:    leverage,
		InitialSize: positionSize,
		currentSize: positionSize,
		feeRate:     feeRate,
		slippage:    slippage,
		openTime:    candle.OpenTime,
	}
	t.AvgEntryPrice = t.slippageAdjusted(candle.Close, true)
	t.applyFee(positionSize)
	t.LiquidationPrice = t.liquidationPrice()
	return t
}

// SetStopLoss принимает стоп только строго на убыточной стороне от входа
func (t *Trade) SetStopLoss(price float64) {
	if t.Direction == models.Long && price < t.AvgEntryPrice ||
		t.Direction == models.Short && price > t.AvgEntryPrice {
		t.stopLoss = &price
	}
}

// SetTakeProfit принимает тейк только строго на прибыльной стороне от входа
func (t *Trade) SetTakeProfit(price float64) {
	if t.Direction == models.Long && price > t.AvgEntryPrice ||
		t.Direction == models.Short && price < t.AvgEntryPrice {
		t.takeProfit = &price
	}
}

func (t *Trade) StopLoss() (float64, bool) {
	if t.stopLoss == nil {
		return 0, false
	}
	return *t.stopLoss, true
}

func (t *Trade) TakeProfit() (float64, bool) {
	if t.takeProfit == nil {
		return 0, false
	}
	return *t.takeProfit, true
}

func (t *Trade) State() TradeState {
	return t.state
}

func (t *Trade) CloseReason() models.CloseReason {
	return t.closeReason
}

func (t *Trade) CurrentSize() float64 {
	return t.currentSize
}

func (t *Trade) ClosedSize() float64 {
	return t.closedSize
}

// Duration сколько сделка была открыта (по времени свечей)
func (t *Trade) Duration() time.Duration {
	if t.closeTime < t.openTime {
		return 0
	}
	return time.Duration(t.closeTime-t.openTime) * time.Millisecond
}

func (t *Trade) liquidationPrice() float64 {
	entry := t.AvgEntryPrice
	margin := t.currentSize * liquidationMargin
	units := t.currentSize * float64(t.Leverage) / entry
	return (entry*units - t.Direction.Sign()*margin) / units
}

// IncreasePosition доливает позицию по цене закрытия свечи и пересчитывает среднюю цену входа
func (t *Trade) IncreasePosition(candle *models.Candle, extraSize float64) {
	if t.state == TradeClosed {
		return
	}
	price := t.slippageAdjusted(candle.Close, true)

	unitsOpen := t.currentSize / t.AvgEntryPrice
	unitsAdded := extraSize / price
	t.currentSize += extraSize
	t.AvgEntryPrice = t.currentSize / (unitsOpen + unitsAdded)

	t.applyFee(extraSize)
	t.state = TradeAdjusted
}

// DecreasePosition частично закрывает позицию по цене с проскальзыванием против трейдера
func (t *Trade) DecreasePosition(price, size float64) {
	if t.state == TradeClosed {
		return
	}
	exit := t.slippageAdjusted(price, false)
	t.Result += t.calculateResult(exit, size)
	t.applyFee(size)

	unitsClosed := 0.0
	if t.AvgExitPrice > 0 {
		unitsClosed = t.closedSize / t.AvgExitPrice
	}
	unitsToClose := size / exit
	t.AvgExitPrice = (size + t.closedSize) / (unitsClosed + unitsToClose)

	t.currentSize -= size
	t.closedSize += size
	t.state = TradeAdjusted
}

// Close закрывает остаток по цене закрытия свечи; результат уже без комиссий
func (t *Trade) Close(candle *models.Candle) float64 {
	if t.state == TradeClosed {
		return t.Result
	}
	t.finish(candle, candle.Close, models.CloseNormal)
	return t.Result
}

// CloseOnStopLoss закрывает остаток по стоп-цене
func (t *Trade) CloseOnStopLoss(candle *models.Candle) float64 {
	if t.stopLoss == nil {
		return 0
	}
	if t.state != TradeClosed {
		t.finish(candle, *t.stopLoss, models.CloseStopLoss)
	}
	return t.Result - t.TotalFeePaid
}

// CloseOnTakeProfit закрывает остаток по цене тейк-профита
func (t *Trade) CloseOnTakeProfit(candle *models.Candle) float64 {
	if t.takeProfit == nil {
		return 0
	}
	if t.state != TradeClosed {
		t.finish(candle, *t.takeProfit, models.CloseTakeProfit)
	}
	return t.Result - t.TotalFeePaid
}

// CloseOnLiquidation закрывает остаток по цене ликвидации
func (t *Trade) CloseOnLiquidation(candle *models.Candle) float64 {
	if t.state != TradeClosed {
		t.finish(candle, t.LiquidationPrice, models.CloseLiquidation)
	}
	return t.Result - t.TotalFeePaid
}

func (t *Trade) finish(candle *models.Candle, price float64, reason models.CloseReason) {
	t.closeTime = candle.CloseTime
	t.DecreasePosition(price, t.currentSize)
	t.state = TradeClosed
	t.closeReason = reason
}

// IsTakeProfitReached тейк достигнут внутри свечи
func (t *Trade) IsTakeProfitReached(candle *models.Candle) bool {
	if t.takeProfit == nil {
		return false
	}
	tp := *t.takeProfit
	return t.Direction == models.Long && tp <= candle.High ||
		t.Direction == models.Short && tp >= candle.Low
}

// IsStopLossReached стоп достигнут внутри свечи
func (t *Trade) IsStopLossReached(candle *models.Candle) bool {
	if t.stopLoss == nil {
		return false
	}
	sl := *t.stopLoss
	return t.Direction == models.Long && sl >= candle.Low ||
		t.Direction == models.Short && sl <= candle.High
}

// IsLiquidationReached цена ликвидации задета внутри свечи
func (t *Trade) IsLiquidationReached(candle *models.Candle) bool {
	return t.Direction == models.Long && candle.Low <= t.LiquidationPrice ||
		t.Direction == models.Short && candle.High >= t.LiquidationPrice
}

// UnrealizedResult результат закрытия всей открытой позиции по закрытию свечи, без комиссий.
// Состояние сделки не меняется.
func (t *Trade) UnrealizedResult(candle *models.Candle) float64 {
	price := t.slippageAdjusted(candle.Close, false)
	return t.calculateResult(price, t.currentSize)
}

// slippageAdjusted двигает цену против трейдера: вход в лонг и выход из шорта дороже,
// вход в шорт и выход из лонга дешевле
func (t *Trade) slippageAdjusted(price float64, increase bool) float64 {
	if increase && t.Direction == models.Long || !increase && t.Direction == models.Short {
		return price * (1 + t.slippage)
	}
	return price * (1 - t.slippage)
}

func (t *Trade) applyFee(size float64) float64 {
	fee := t.calculateFee(size)
	t.TotalFeePaid += fee
	t.Result -= fee
	return fee
}

// calculateResult прибыль/убыток от закрытия size по цене price без комиссий
func (t *Trade) calculateResult(price, size float64) float64 {
	units := size * float64(t.Leverage) / t.AvgEntryPrice
	initial := units * t.AvgEntryPrice
	final := units * price
	if t.Direction == models.Long {
		return final - initial
	}
	return initial - final
}

func (t *Trade) calculateFee(size float64) float64 {
	return t.feeRate * size * float64(t.Leverage)
}
