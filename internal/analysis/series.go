package analysis

import (
	"fmt"
	"math"
	"time"
)

// Series is a date-ordered view of one metric for one location. Values are
// nil where the metric was unreported. Dates must be strictly increasing
// UTC calendar days; calendar gaps are allowed and handled by the gap policy.
type Series struct {
	Name   string
	Dates  []time.Time
	Values []*float64
}

// Len returns the number of observations in the series.
func (s Series) Len() int { return len(s.Dates) }

// Point is one day of a smoothed series. Value is the trailing rolling mean
// and GrowthRate the day-over-day log growth of the smoothed value; either is
// nil where undefined.
type Point struct {
	Date       time.Time `json:"date"`
	Value      *float64  `json:"smoothed_value,omitempty"`
	GrowthRate *float64  `json:"growth_rate,omitempty"`
}

// Smoothed is the output of Processor.Smooth: one Point per calendar day
// between the first and last input dates.
type Smoothed struct {
	Window int     `json:"window"`
	Points []Point `json:"points"`
}

// Processor derives smoothed views from raw daily series. MaxGapDays bounds
// forward filling: a missing day is carried forward from the last reported
// value only when the gap is at most MaxGapDays.
type Processor struct {
	MaxGapDays int
}

// NewProcessor creates a Processor. A negative maxGapDays disables forward
// filling entirely.
func NewProcessor(maxGapDays int) *Processor {
	if maxGapDays < 0 {
		maxGapDays = 0
	}
	return &Processor{MaxGapDays: maxGapDays}
}

// Smooth computes a trailing rolling mean over window days together with the
// log growth rate of the smoothed value.
//
// The output covers every calendar day between the first and last input
// dates, so for a dense daily series its length equals the input length. The
// first window-1 days are undefined: no shrinking window is applied. A window
// containing any undefined day yields an undefined point.
func (p *Processor) Smooth(s Series, window int) (Smoothed, error) {
	if window <= 0 || window > s.Len() {
		return Smoothed{}, fmt.Errorf("%w: window %d for series of length %d", ErrInvalidWindow, window, s.Len())
	}

	dates, values := p.reindex(s)
	n := len(values)

	smoothed := make([]float64, n)
	// Running sum with an undefined-day count so each window is O(1).
	sum := 0.0
	undefined := 0
	for i := 0; i < n; i++ {
		if math.IsNaN(values[i]) {
			undefined++
		} else {
			sum += values[i]
		}
		if i >= window {
			if math.IsNaN(values[i-window]) {
				undefined--
			} else {
				sum -= values[i-window]
			}
		}
		if i < window-1 || undefined > 0 {
			smoothed[i] = math.NaN()
			continue
		}
		smoothed[i] = sum / float64(window)
	}

	points := make([]Point, n)
	for i := range points {
		points[i] = Point{Date: dates[i], Value: toPtr(smoothed[i])}
		if i > 0 {
			points[i].GrowthRate = toPtr(logGrowth(smoothed[i-1], smoothed[i]))
		}
	}

	return Smoothed{Window: window, Points: points}, nil
}

// GrowthRates returns the day-over-day log growth rate of a raw series:
// rate[t] = log(v[t]/v[t-1]) when both values are defined and positive,
// undefined otherwise. The output has the same length as the input; the
// first entry is always undefined.
func GrowthRates(values []*float64) []*float64 {
	rates := make([]*float64, len(values))
	for i := 1; i < len(values); i++ {
		prev, cur := fromPtr(values[i-1]), fromPtr(values[i])
		rates[i] = toPtr(logGrowth(prev, cur))
	}
	return rates
}

// reindex places the series onto a dense daily grid with bounded forward
// filling. Undefined days are NaN.
func (p *Processor) reindex(s Series) ([]time.Time, []float64) {
	if s.Len() == 0 {
		return nil, nil
	}

	byDay := make(map[time.Time]*float64, s.Len())
	for i, d := range s.Dates {
		byDay[day(d)] = s.Values[i]
	}

	first, last := day(s.Dates[0]), day(s.Dates[s.Len()-1])
	n := daysBetween(first, last) + 1

	dates := make([]time.Time, n)
	values := make([]float64, n)
	lastDefined := -1
	lastValue := math.NaN()

	for i, d := 0, first; i < n; i, d = i+1, d.AddDate(0, 0, 1) {
		dates[i] = d
		if v, ok := byDay[d]; ok && v != nil {
			values[i] = *v
			lastDefined = i
			lastValue = *v
			continue
		}
		if lastDefined >= 0 && i-lastDefined <= p.MaxGapDays {
			values[i] = lastValue
			continue
		}
		values[i] = math.NaN()
	}

	return dates, values
}

func logGrowth(prev, cur float64) float64 {
	if math.IsNaN(prev) || math.IsNaN(cur) || prev <= 0 || cur <= 0 {
		return math.NaN()
	}
	return math.Log(cur / prev)
}

// day truncates a timestamp to its UTC calendar day.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// toPtr converts an internal NaN-marked value to the exported nil-marked
// representation.
func toPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromPtr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// Float returns a pointer to v. Convenience for building test fixtures and
// literal series.
func Float(v float64) *float64 { return &v }
