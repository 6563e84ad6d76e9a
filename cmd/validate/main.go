// Command validate performs end-to-end integrity checks across the mock data
// fixtures: raw observation JSON and analysis result JSON. It verifies input
// invariants, re-runs the analysis engine to confirm result parity, and
// checks the result documents against output schema constraints.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -raw-json data/mock/observations.json \
//	  -results-json data/mock/analysis_results.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/config"
	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/couchcryptid/epi-signal-etl/internal/observability"
	"github.com/couchcryptid/epi-signal-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rawJSON := flag.String("raw-json", "", "path to raw observation JSON fixture")
	resultsJSON := flag.String("results-json", "", "path to analysis result JSON fixture")
	flag.Parse()

	if *rawJSON == "" || *resultsJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rawJSON, *resultsJSON); code != 0 {
		os.Exit(code)
	}
}

func run(rawJSONPath, resultsJSONPath string) int {
	// Set a fixed clock matching genmock for ComputedAt reproducibility.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2021, time.September, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Epi Signal Data Integrity Validation ===")
	fmt.Println()

	observations, err := loadJSON[domain.RawObservation](rawJSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw JSON: %v\n", err)
		return 1
	}

	results, err := loadJSON[domain.AnalysisResult](resultsJSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load results JSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRawIntegrity(observations),
		validateResultParity(observations, results),
		validateResultSchema(results),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d raw observations, %d analysis results\n", len(observations), len(results))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Raw Integrity ──
// Validates the raw observation fixture against input invariants.

func validateRawIntegrity(observations []domain.RawObservation) *phase {
	p := &phase{name: "Phase 1: Raw Integrity (observations)"}

	type lastSeen struct {
		date      time.Time
		cumCases  float64
		cumDeaths float64
	}
	prev := map[string]lastSeen{}
	seen := map[string]bool{}

	for i, o := range observations {
		if o.Location == "" {
			p.errorf("record %d: missing location", i)
			continue
		}
		date, err := time.ParseInLocation("2006-01-02", o.Date, time.UTC)
		if err != nil {
			p.errorf("record %d (%s): bad date %q", i, o.Location, o.Date)
			continue
		}

		key := o.Location + "|" + o.Date
		if seen[key] {
			p.errorf("record %d: duplicate (location, date) %s", i, key)
		}
		seen[key] = true

		if last, ok := prev[o.Location]; ok {
			if !date.After(last.date) {
				p.errorf("record %d (%s): date %s not after previous %s", i, o.Location, o.Date, last.date.Format("2006-01-02"))
			}
			if o.CumulativeCases < last.cumCases {
				p.errorf("record %d (%s): cumulative cases decreased %g -> %g", i, o.Location, last.cumCases, o.CumulativeCases)
			}
			if o.CumulativeDeaths < last.cumDeaths {
				p.errorf("record %d (%s): cumulative deaths decreased %g -> %g", i, o.Location, last.cumDeaths, o.CumulativeDeaths)
			}
		}
		prev[o.Location] = lastSeen{date: date, cumCases: o.CumulativeCases, cumDeaths: o.CumulativeDeaths}

		checkDailyCounts(p, i, o)
	}
	return p
}

func checkDailyCounts(p *phase, i int, o domain.RawObservation) {
	checkNonNegative := func(name string, v *float64) {
		if v != nil && *v < 0 {
			p.errorf("record %d (%s): %s is negative (%g)", i, o.Location, name, *v)
		}
	}
	checkNonNegative("new_cases", o.NewCases)
	checkNonNegative("new_deaths", o.NewDeaths)
	checkNonNegative("vaccinations", o.Vaccinations)
	checkNonNegative("hospitalizations", o.Hospitalizations)

	for band, n := range o.CasesByAge {
		if n < 0 {
			p.errorf("record %d (%s): cases_by_age[%s] is negative (%g)", i, o.Location, band, n)
		}
	}
	for band, n := range o.DeathsByAge {
		if n < 0 {
			p.errorf("record %d (%s): deaths_by_age[%s] is negative (%g)", i, o.Location, band, n)
		}
	}
}

// ── Phase 2: Result Parity ──
// Re-runs the analysis engine over the raw fixture and compares the output
// byte-for-byte with the result fixture. The engine is deterministic under a
// fixed clock, so any divergence is a real behavior change.

func validateResultParity(observations []domain.RawObservation, results []domain.AnalysisResult) *phase {
	p := &phase{name: "Phase 2: Result Parity (re-analysis)"}

	cfg, err := config.Load()
	if err != nil {
		p.errorf("load config: %v", err)
		return p
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer, err := pipeline.NewAnalyzer(cfg, nil, logger, observability.NewMetricsForTesting())
	if err != nil {
		p.errorf("build analyzer: %v", err)
		return p
	}

	groups, err := groupObservations(observations)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	byLocation := map[string]*domain.AnalysisResult{}
	for i := range results {
		if _, exists := byLocation[results[i].Location]; exists {
			p.errorf("results: duplicate location %q", results[i].Location)
			continue
		}
		byLocation[results[i].Location] = &results[i]
	}
	if len(byLocation) != len(groups) {
		p.errorf("results cover %d locations, raw fixture has %d", len(byLocation), len(groups))
	}

	for _, group := range groups {
		expected, err := analyzer.Analyze(context.Background(), group)
		if err != nil {
			p.errorf("%s: re-analysis failed: %v", group.Location, err)
			continue
		}
		actual, ok := byLocation[group.Location]
		if !ok {
			p.errorf("%s: missing from results fixture", group.Location)
			continue
		}

		expectedJSON, err := json.Marshal(expected)
		if err != nil {
			p.errorf("%s: marshal expected: %v", group.Location, err)
			continue
		}
		actualJSON, err := json.Marshal(actual)
		if err != nil {
			p.errorf("%s: marshal actual: %v", group.Location, err)
			continue
		}
		if string(expectedJSON) != string(actualJSON) {
			p.errorf("%s: result diverges from re-analysis (fixture is stale or engine behavior changed)", group.Location)
		}
	}
	return p
}

// groupObservations runs the fixture through the real parse path and groups
// records by location in sorted order.
func groupObservations(observations []domain.RawObservation) ([]domain.LocationSeries, error) {
	byLocation := map[string][]domain.ObservationRecord{}
	for i, o := range observations {
		value, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("record %d: marshal: %w", i, err)
		}
		rec, err := domain.ParseRawObservation(domain.RawEvent{Value: value})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		byLocation[rec.Location] = append(byLocation[rec.Location], rec)
	}

	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	groups := make([]domain.LocationSeries, 0, len(locations))
	for _, loc := range locations {
		records := byLocation[loc]
		sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
		groups = append(groups, domain.LocationSeries{Location: loc, Records: records})
	}
	return groups, nil
}

// ── Phase 3: Result Schema ──
// Validates the result documents against output constraints.

func validateResultSchema(results []domain.AnalysisResult) *phase {
	p := &phase{name: "Phase 3: Result Schema (constraints)"}
	for i := range results {
		checkResultRecord(p, i, &results[i])
	}
	return p
}

func checkResultRecord(p *phase, i int, r *domain.AnalysisResult) {
	pf := func(format string, args ...any) {
		p.errorf("result %d (%s): "+format, append([]any{i, r.Location}, args...)...)
	}

	if r.Location == "" {
		pf("location is empty")
	}
	if r.ComputedAt.IsZero() {
		pf("computed_at is zero")
	}
	if r.Parameters.SmoothingWindow <= 0 {
		pf("parameters.smoothing_window %d is not positive", r.Parameters.SmoothingWindow)
	}

	checkWaves(pf, r)
	checkReproduction(pf, r)
	checkCorrelations(pf, r)
	checkForecast(pf, r)
}

func checkWaves(pf func(string, ...any), r *domain.AnalysisResult) {
	for i, w := range r.Waves {
		if w.StartDate.After(w.PeakDate) || w.PeakDate.After(w.EndDate) {
			pf("%s: dates out of order (start %s, peak %s, end %s)", w.Label,
				w.StartDate.Format("2006-01-02"), w.PeakDate.Format("2006-01-02"), w.EndDate.Format("2006-01-02"))
		}
		if i > 0 && !w.StartDate.After(r.Waves[i-1].EndDate) {
			pf("%s: overlaps previous wave ending %s", w.Label, r.Waves[i-1].EndDate.Format("2006-01-02"))
		}
	}
}

func checkReproduction(pf func(string, ...any), r *domain.AnalysisResult) {
	for _, e := range r.Reproduction {
		if e.R == nil {
			continue
		}
		if e.Lower == nil || e.Upper == nil {
			pf("reproduction %s: defined R with undefined bounds", e.Date.Format("2006-01-02"))
			continue
		}
		if *e.Lower > *e.R || *e.R > *e.Upper {
			pf("reproduction %s: bounds do not bracket R (%g, %g, %g)", e.Date.Format("2006-01-02"), *e.Lower, *e.R, *e.Upper)
		}
		if *e.Lower < 0 {
			pf("reproduction %s: negative lower bound %g", e.Date.Format("2006-01-02"), *e.Lower)
		}
	}
}

func checkCorrelations(pf func(string, ...any), r *domain.AnalysisResult) {
	for _, c := range r.Correlations {
		if c.Coefficient < -1 || c.Coefficient > 1 {
			pf("correlation %s/%s: coefficient %g outside [-1, 1]", c.MetricA, c.MetricB, c.Coefficient)
		}
		if c.SampleSize < 2 {
			pf("correlation %s/%s: sample size %d below minimum", c.MetricA, c.MetricB, c.SampleSize)
		}
		if c.PValue != nil && (*c.PValue < 0 || *c.PValue > 1) {
			pf("correlation %s/%s: p-value %g outside [0, 1]", c.MetricA, c.MetricB, *c.PValue)
		}
	}
}

func checkForecast(pf func(string, ...any), r *domain.AnalysisResult) {
	f := r.Forecast
	if f == nil {
		return
	}
	if len(f.Points) != f.HorizonDays || len(f.Lower) != f.HorizonDays || len(f.Upper) != f.HorizonDays {
		pf("forecast: lengths (%d, %d, %d) do not match horizon %d", len(f.Points), len(f.Lower), len(f.Upper), f.HorizonDays)
		return
	}
	for h := range f.Points {
		if f.Lower[h] < 0 {
			pf("forecast day %d: negative lower bound %g", h+1, f.Lower[h])
		}
		if f.Lower[h] > f.Points[h] || f.Points[h] > f.Upper[h] {
			pf("forecast day %d: bounds do not bracket point (%g, %g, %g)", h+1, f.Lower[h], f.Points[h], f.Upper[h])
		}
	}
}
