package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects the correlation coefficient.
type Method string

const (
	MethodPearson  Method = "pearson"
	MethodSpearman Method = "spearman"
)

// ParseMethod maps a configuration string to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodPearson, MethodSpearman:
		return Method(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// CorrelationResult is the pairwise relationship between two metrics.
// PValue is the two-sided probability of a coefficient at least this extreme
// under the null hypothesis of zero correlation; it is nil with fewer than
// three pairs, where the t distribution has no degrees of freedom.
type CorrelationResult struct {
	MetricA     string   `json:"metric_a"`
	MetricB     string   `json:"metric_b"`
	Method      Method   `json:"method"`
	Coefficient float64  `json:"coefficient"`
	SampleSize  int      `json:"sample_size"`
	PValue      *float64 `json:"p_value,omitempty"`
}

// Correlate computes the correlation between two series using
// pairwise-complete observations: only dates present and defined in both
// series contribute, and unmatched dates are dropped for this computation
// only. Fewer than two pairs yields ErrInsufficientSample; a constant paired
// series yields ErrZeroVariance.
func Correlate(a, b Series, method Method) (CorrelationResult, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return CorrelationResult{}, err
	}

	x, y := pairByDate(a, b)
	n := len(x)
	if n < 2 {
		return CorrelationResult{}, fmt.Errorf("%w: %d paired observations of %q and %q", ErrInsufficientSample, n, a.Name, b.Name)
	}
	if constant(x) || constant(y) {
		return CorrelationResult{}, fmt.Errorf("%w: pairing %q and %q", ErrZeroVariance, a.Name, b.Name)
	}

	if method == MethodSpearman {
		x, y = ranks(x), ranks(y)
	}
	r := stat.Correlation(x, y, nil)

	return CorrelationResult{
		MetricA:     a.Name,
		MetricB:     b.Name,
		Method:      method,
		Coefficient: r,
		SampleSize:  n,
		PValue:      pValue(r, n),
	}, nil
}

// pairByDate aligns two series on their shared, defined dates.
func pairByDate(a, b Series) (x, y []float64) {
	bByDay := make(map[time.Time]float64, b.Len())
	for i, d := range b.Dates {
		if b.Values[i] != nil {
			bByDay[day(d)] = *b.Values[i]
		}
	}
	for i, d := range a.Dates {
		if a.Values[i] == nil {
			continue
		}
		if bv, ok := bByDay[day(d)]; ok {
			x = append(x, *a.Values[i])
			y = append(y, bv)
		}
	}
	return x, y
}

// pValue computes the two-sided p-value for r under the null of zero
// correlation, using the t statistic r*sqrt((n-2)/(1-r^2)) with n-2 degrees
// of freedom. A perfect correlation pins the p-value to zero.
func pValue(r float64, n int) *float64 {
	if n <= 2 {
		return nil
	}
	df := float64(n - 2)
	denom := 1 - r*r
	var p float64
	if denom <= 0 {
		p = 0
	} else {
		t := r * math.Sqrt(df/denom)
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		p = 2 * dist.CDF(-math.Abs(t))
	}
	return &p
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// ranks converts values to fractional ranks, averaging ties, for the
// Spearman coefficient.
func ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return values[idx[i]] < values[idx[j]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// Average rank across the tie run, 1-based.
		rank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = rank
		}
		i = j + 1
	}
	return out
}
