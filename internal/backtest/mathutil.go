package backtest

import "math"

// mapRange аффинно отображает ген из [0,1] в [lo, hi]
func mapRange(lo, hi, gene float64) float64 {
	return lo + gene*(hi-lo)
}

// mapPeriod отображает ген в период индикатора, период не меньше 1
func mapPeriod(lo, hi, gene float64) int {
	p := int(mapRange(lo, hi, gene))
	if p < 1 {
		return 1
	}
	return p
}

// PercentageDifference относительная разница (max-min)/max; для двух нулей 0
func PercentageDifference(a, b float64) float64 {
	if a == b && b == 0 {
		return 0
	}
	min := math.Min(a, b)
	max := math.Max(a, b)
	return (max - min) / max
}
