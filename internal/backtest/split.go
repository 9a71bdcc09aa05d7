package backtest

import "fmt"

// Range полуинтервал индексов свечей [Start, End)
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// SplitRanges делит n свечей на отрезки длины n/points.
// Хвост, на котором end уже достиг n, не добавляется.
func SplitRanges(n, points int) ([]Range, error) {
	if points <= 1 || points > n {
		return nil, fmt.Errorf("%w: количество делений %d должно быть больше 1 и не больше числа свечей %d",
			ErrInvalidConfig, points, n)
	}

	step := n / points
	ranges := make([]Range, 0, points)
	start, end := 0, step
	for end < n {
		ranges = append(ranges, Range{Start: start, End: end})
		start = end
		end += step
		if end > n {
			end = n
		}
	}
	return ranges, nil
}
