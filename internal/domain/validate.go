package domain

import (
	"fmt"
	"time"
)

// DataQualityError reports an input invariant violation detected before any
// derived computation runs for a location. It fails that location only; the
// batch continues with the remaining locations.
type DataQualityError struct {
	Location string
	Date     time.Time
	Reason   string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: %s at %s: %s", e.Location, e.Date.Format("2006-01-02"), e.Reason)
}

// Validate checks the series invariants: strictly increasing unique dates
// and non-decreasing cumulative counts. Deduplication is the collector's
// responsibility; the engine only verifies it happened.
func (s LocationSeries) Validate() error {
	for i := 1; i < len(s.Records); i++ {
		prev, cur := s.Records[i-1], s.Records[i]
		if !cur.Date.After(prev.Date) {
			reason := "out-of-order date"
			if cur.Date.Equal(prev.Date) {
				reason = "duplicate date"
			}
			return &DataQualityError{Location: s.Location, Date: cur.Date, Reason: reason}
		}
		if cur.CumulativeCases < prev.CumulativeCases {
			return &DataQualityError{
				Location: s.Location, Date: cur.Date,
				Reason: fmt.Sprintf("cumulative cases decreased from %g to %g", prev.CumulativeCases, cur.CumulativeCases),
			}
		}
		if cur.CumulativeDeaths < prev.CumulativeDeaths {
			return &DataQualityError{
				Location: s.Location, Date: cur.Date,
				Reason: fmt.Sprintf("cumulative deaths decreased from %g to %g", prev.CumulativeDeaths, cur.CumulativeDeaths),
			}
		}
	}
	return nil
}
