// Package marks turns exam results into a monthly percentage series for charting.
package marks

import (
	"math"

	"tutoring/internal/calendar"
	"tutoring/internal/model"
)

// Point is one month of the series. Value is nil when the month has no usable marks.
type Point struct {
	Label string `json:"label"`
	Value *int   `json:"value"`
}

// Percentage returns marks/maxMarks*100. ok is false when maxMarks is not a
// positive finite number or the result is not finite.
func Percentage(r model.MarkRecord) (float64, bool) {
	if !(r.MaxMarks > 0) || math.IsInf(r.MaxMarks, 0) {
		return 0, false
	}
	p := r.Marks / r.MaxMarks * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// Series returns twelve points, January to December of year, each the rounded
// mean percentage of that month's records.
func Series(records []model.MarkRecord, year int) []Point {
	byMonth := make(map[string][]float64)
	for _, r := range records {
		if r.Month == "" {
			continue
		}
		if p, ok := Percentage(r); ok {
			byMonth[r.Month] = append(byMonth[r.Month], p)
		}
	}

	points := make([]Point, 12)
	for i := range points {
		points[i].Label = calendar.MonthShort[i]
		vals := byMonth[calendar.MonthKey(year, i)]
		if len(vals) == 0 {
			continue
		}
		var sum float64
		for _, v := range vals {
			sum += v
		}
		avg := roundHalfUp(sum / float64(len(vals)))
		points[i].Value = &avg
	}
	return points
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
