package analysis

import (
	"fmt"
	"math"
	"time"
)

// Wave is one pandemic wave: a contiguous period where smoothed incidence
// rises above the trailing baseline and falls back, bounded by the nearest
// valleys. Waves are immutable once returned, ordered by start date, and
// never overlap.
type Wave struct {
	Label          string    `json:"label"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	PeakDate       time.Time `json:"peak_date"`
	PeakValue      float64   `json:"peak_value"`
	MeanGrowthRate *float64  `json:"mean_growth_rate,omitempty"`
}

// WaveDetector identifies waves in a smoothed incidence series. A candidate
// peak is a local maximum exceeding ThresholdMultiplier times the minimum
// smoothed value over the preceding BaselineWindowDays (or since the series
// start if shorter). Peaks closer than MinSeparationDays are merged, keeping
// the higher.
type WaveDetector struct {
	ThresholdMultiplier float64
	MinSeparationDays   int
	BaselineWindowDays  int
}

// NewWaveDetector validates the detector parameters up front so that a
// misconfiguration fails a batch before any series is processed.
func NewWaveDetector(thresholdMultiplier float64, minSeparationDays, baselineWindowDays int) (*WaveDetector, error) {
	if thresholdMultiplier <= 0 {
		return nil, fmt.Errorf("%w: threshold multiplier %g", ErrInvalidParameter, thresholdMultiplier)
	}
	if minSeparationDays < 0 {
		return nil, fmt.Errorf("%w: min separation %d days", ErrInvalidParameter, minSeparationDays)
	}
	if baselineWindowDays <= 0 {
		return nil, fmt.Errorf("%w: baseline window %d days", ErrInvalidParameter, baselineWindowDays)
	}
	return &WaveDetector{
		ThresholdMultiplier: thresholdMultiplier,
		MinSeparationDays:   minSeparationDays,
		BaselineWindowDays:  baselineWindowDays,
	}, nil
}

// Detect returns the waves of a smoothed series in chronological order. A
// flat series where no point exceeds the threshold yields an empty result,
// not an error.
func (d *WaveDetector) Detect(sm Smoothed) []Wave {
	values := make([]float64, len(sm.Points))
	for i, p := range sm.Points {
		values[i] = fromPtr(p.Value)
	}

	groups := d.mergePeaks(d.candidatePeaks(values), values)
	if len(groups) == 0 {
		return []Wave{}
	}

	firstDefined, lastDefined := definedBounds(values)

	waves := make([]Wave, 0, len(groups))
	prevEnd := -1
	for i, g := range groups {
		// Boundaries are the nearest valleys outside the peak group; the
		// series bounds stand in when the decline runs off either edge.
		// Waves sharing a valley start the day after it, keeping spans
		// strictly non-overlapping.
		start := valleyBefore(values, g.first, firstDefined)
		if start <= prevEnd {
			start = prevEnd + 1
		}
		end := valleyAfter(values, g.last, lastDefined)
		prevEnd = end

		waves = append(waves, Wave{
			Label:          fmt.Sprintf("wave-%d", i+1),
			StartDate:      sm.Points[start].Date,
			EndDate:        sm.Points[end].Date,
			PeakDate:       sm.Points[g.top].Date,
			PeakValue:      values[g.top],
			MeanGrowthRate: meanGrowth(sm.Points[start : end+1]),
		})
	}
	return waves
}

// candidatePeaks returns indices of local maxima above the trailing baseline
// threshold. Neighbors are the nearest defined points on either side, so a
// peak is never adjacent to an undefined gap edge.
func (d *WaveDetector) candidatePeaks(values []float64) []int {
	var peaks []int
	for i := range values {
		if math.IsNaN(values[i]) {
			continue
		}
		left := prevDefined(values, i)
		right := nextDefined(values, i)
		if left < 0 || right < 0 {
			continue
		}
		if !(values[i] > values[left] && values[i] >= values[right]) {
			continue
		}

		baseline := d.trailingBaseline(values, i)
		if math.IsNaN(baseline) {
			continue
		}
		if values[i] > d.ThresholdMultiplier*baseline {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// trailingBaseline is the minimum defined value over the BaselineWindowDays
// preceding i, or since the series start when shorter.
func (d *WaveDetector) trailingBaseline(values []float64, i int) float64 {
	start := i - d.BaselineWindowDays
	if start < 0 {
		start = 0
	}
	baseline := math.NaN()
	for j := start; j < i; j++ {
		if math.IsNaN(values[j]) {
			continue
		}
		if math.IsNaN(baseline) || values[j] < baseline {
			baseline = values[j]
		}
	}
	return baseline
}

// peakGroup is a run of candidate peaks merged into one wave. top is the
// highest candidate (the wave's peak); first and last span the whole run so
// the dip between merged candidates never becomes a wave boundary.
type peakGroup struct {
	first, last, top int
}

// mergePeaks groups candidate peaks closer together than MinSeparationDays,
// keeping the highest as the wave peak (the earlier on a tie).
func (d *WaveDetector) mergePeaks(candidates []int, values []float64) []peakGroup {
	var groups []peakGroup
	for _, c := range candidates {
		if len(groups) == 0 || c-groups[len(groups)-1].last >= d.MinSeparationDays {
			groups = append(groups, peakGroup{first: c, last: c, top: c})
			continue
		}
		g := &groups[len(groups)-1]
		g.last = c
		if values[c] > values[g.top] {
			g.top = c
		}
	}
	return groups
}

// valleyBefore walks left from i to the nearest local minimum, skipping
// undefined days. When the descent runs into the series edge without turning
// back up, the edge is the boundary.
func valleyBefore(values []float64, i, bound int) int {
	cur := i
	for {
		j := prevDefined(values, cur)
		if j < bound || values[j] >= values[cur] {
			return cur
		}
		cur = j
	}
}

// valleyAfter is the mirror of valleyBefore for the wave's closing boundary.
func valleyAfter(values []float64, i, bound int) int {
	cur := i
	for {
		j := nextDefined(values, cur)
		if j < 0 || j > bound || values[j] >= values[cur] {
			return cur
		}
		cur = j
	}
}

func prevDefined(values []float64, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !math.IsNaN(values[j]) {
			return j
		}
	}
	return -1
}

func nextDefined(values []float64, i int) int {
	for j := i + 1; j < len(values); j++ {
		if !math.IsNaN(values[j]) {
			return j
		}
	}
	return -1
}

func definedBounds(values []float64) (first, last int) {
	first, last = 0, len(values)-1
	for first < len(values) && math.IsNaN(values[first]) {
		first++
	}
	for last > 0 && math.IsNaN(values[last]) {
		last--
	}
	return first, last
}

func meanGrowth(points []Point) *float64 {
	sum, n := 0.0, 0
	for _, p := range points {
		if p.GrowthRate != nil {
			sum += *p.GrowthRate
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
