// Command genmock generates deterministic synthetic surveillance data and
// the matching analysis fixtures. It runs the actual analysis pipeline over
// the generated observations so the result fixture matches real engine
// behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/observations.json \
//	  -results-out data/mock/analysis_results.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/config"
	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/couchcryptid/epi-signal-etl/internal/observability"
	"github.com/couchcryptid/epi-signal-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

var startDate = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

const seriesDays = 540

// locationDef scales the shared epidemic curve per synthetic jurisdiction.
type locationDef struct {
	name  string
	scale float64
	seed  int64
}

// Age-band shares of daily counts. Deaths skew heavily toward the oldest
// band, which is what drives the relative-risk fixture values.
var (
	ageBands    = []string{"0-17", "18-49", "50-64", "65+"}
	caseShares  = []float64{0.15, 0.45, 0.25, 0.15}
	deathShares = []float64{0.005, 0.08, 0.22, 0.695}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for raw observation JSON fixture")
	resultsOut := flag.String("results-out", "", "output path for analysis result JSON fixture")
	flag.Parse()

	if *rawOut == "" || *resultsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -results-out")
	}

	// Set a fixed clock for reproducible ComputedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2021, time.September, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer, err := pipeline.NewAnalyzer(cfg, nil, logger, observability.NewMetricsForTesting())
	if err != nil {
		return fmt.Errorf("build analyzer: %w", err)
	}

	defs := []locationDef{
		{name: "Aurelia", scale: 1.0, seed: 42},
		{name: "Borduria", scale: 0.35, seed: 43},
		{name: "Cascara", scale: 0.12, seed: 44},
	}

	var observations []domain.RawObservation
	var results []domain.AnalysisResult

	for _, d := range defs {
		series := generateLocation(d)
		observations = append(observations, series...)

		group, err := parseGroup(series)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		result, err := analyzer.Analyze(context.Background(), group)
		if err != nil {
			return fmt.Errorf("%s: analyze: %w", d.name, err)
		}
		results = append(results, result)
		log.Printf("%s: %d observations, %d waves, %d warnings", d.name, len(series), len(result.Waves), len(result.Warnings))
	}

	if err := writeJSON(*rawOut, observations); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	if err := writeJSON(*resultsOut, results); err != nil {
		return fmt.Errorf("writing results fixture: %w", err)
	}
	log.Printf("wrote results fixture: %s", *resultsOut)

	printStats(results)
	return nil
}

// generateLocation synthesizes one location's daily records: two overlapping
// sine-shaped epidemic waves with noise, a declining fatality ratio, a
// vaccination ramp starting around day 300, and occasional unreported days.
func generateLocation(d locationDef) []domain.RawObservation {
	rng := rand.New(rand.NewSource(d.seed))

	obs := make([]domain.RawObservation, 0, seriesDays)
	var cumCases, cumDeaths float64

	for i := 0; i < seriesDays; i++ {
		day := float64(i)
		cases := d.scale * (12000 +
			9000*math.Sin(day/40) +
			6000*math.Sin(day/90+1.3) +
			1500*rng.NormFloat64())
		if cases < 0 {
			cases = 0
		}
		cases = math.Round(cases)

		cfr := 0.015 * (1 - 0.4*day/seriesDays)
		deaths := math.Round(cases * cfr * (1 + 0.2*rng.NormFloat64()))
		if deaths < 0 {
			deaths = 0
		}
		hosp := math.Round(cases * 0.05 * (1 + 0.1*rng.NormFloat64()))
		if hosp < 0 {
			hosp = 0
		}

		cumCases += cases
		cumDeaths += deaths

		rec := domain.RawObservation{
			Date:             startDate.AddDate(0, 0, i).Format("2006-01-02"),
			Location:         d.name,
			CumulativeCases:  cumCases,
			CumulativeDeaths: cumDeaths,
		}

		// Roughly one day in twenty goes unreported, leaving the
		// cumulative totals in place but no daily increments.
		if rng.Float64() >= 0.05 {
			rec.NewCases = ptr(cases)
			rec.NewDeaths = ptr(deaths)
			rec.Hospitalizations = ptr(hosp)
			rec.CasesByAge = splitByBand(cases, caseShares, rng)
			rec.DeathsByAge = splitByBand(deaths, deathShares, rng)
		}

		if i >= 300 {
			ramp := math.Round(d.scale * 40000 * (1 + float64(i-300)/120))
			rec.Vaccinations = ptr(ramp)
		}

		obs = append(obs, rec)
	}
	return obs
}

func splitByBand(total float64, shares []float64, rng *rand.Rand) map[string]float64 {
	out := make(map[string]float64, len(ageBands))
	for i, band := range ageBands {
		out[band] = math.Round(total * shares[i] * (1 + 0.05*rng.NormFloat64()))
		if out[band] < 0 {
			out[band] = 0
		}
	}
	return out
}

// parseGroup runs each observation through the real parse-and-clean path so
// fixtures reflect pipeline behavior, not a shortcut.
func parseGroup(obs []domain.RawObservation) (domain.LocationSeries, error) {
	group := domain.LocationSeries{}
	for _, o := range obs {
		value, err := json.Marshal(o)
		if err != nil {
			return domain.LocationSeries{}, fmt.Errorf("marshal observation: %w", err)
		}
		rec, err := domain.ParseRawObservation(domain.RawEvent{Value: value})
		if err != nil {
			return domain.LocationSeries{}, err
		}
		group.Location = rec.Location
		group.Records = append(group.Records, rec)
	}
	return group, nil
}

func ptr(v float64) *float64 { return &v }

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(results []domain.AnalysisResult) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	for _, r := range results {
		fmt.Printf("\n%s:\n", r.Location)
		fmt.Printf("  Total cases: %g, total deaths: %g\n", r.Summary.TotalCases, r.Summary.TotalDeaths)
		fmt.Printf("  Waves: %d\n", len(r.Waves))
		for _, w := range r.Waves {
			fmt.Printf("    %s: %s to %s, peak %s (%.1f)\n", w.Label,
				w.StartDate.Format("2006-01-02"), w.EndDate.Format("2006-01-02"),
				w.PeakDate.Format("2006-01-02"), w.PeakValue)
		}
		if r.Summary.LatestR != nil {
			fmt.Printf("  Latest R: %.3f\n", *r.Summary.LatestR)
		}
		for _, c := range r.Correlations {
			fmt.Printf("  Correlation %s/%s (%s): %.3f over %d days\n", c.MetricA, c.MetricB, c.Method, c.Coefficient, c.SampleSize)
		}
		if r.Forecast != nil {
			fmt.Printf("  Forecast (%s): %d days, first point %.1f\n", r.Forecast.Model, r.Forecast.HorizonDays, r.Forecast.Points[0])
		}
		for _, w := range r.Warnings {
			fmt.Printf("  Warning: %s\n", w)
		}
	}
}
