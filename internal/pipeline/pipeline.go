package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/couchcryptid/epi-signal-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Analyzer computes one location's full analysis result.
type Analyzer interface {
	Analyze(ctx context.Context, series domain.LocationSeries) (domain.AnalysisResult, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-analyze-load loop. Each batch of raw
// observation messages is parsed, grouped by location, and every location
// group is re-analyzed over its full accumulated history in that batch.
type Pipeline struct {
	extractor BatchExtractor
	analyzer  Analyzer
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
	workers   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, a Analyzer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		extractor: e,
		analyzer:  a,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
		workers:   workers,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one batch,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "workers", p.workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-analyze-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ObservationsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.analyzeAndLoad(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// analyzeAndLoad parses the batch, analyzes each location group on the worker
// pool, loads the successes, and commits offsets. Returns the number of
// loaded results and false if the pipeline should stop.
func (p *Pipeline) analyzeAndLoad(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	groups, parsed := p.parseBatch(ctx, rawBatch)
	if len(groups) == 0 {
		// Nothing analyzable; offsets for the unparseable messages were
		// already committed so the batch is not replayed forever.
		return 0, true
	}

	outBatch := p.analyzeGroups(ctx, groups)
	if len(outBatch) == 0 {
		// Every location failed analysis. Commit the batch: retrying the
		// same input deterministically reproduces the same failures.
		p.commitAll(ctx, parsed)
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.ResultsProduced.Add(float64(len(outBatch)))
	p.commitAll(ctx, parsed)

	return len(outBatch), true
}

// parseBatch decodes raw messages into observation records grouped by
// location, sorted by date within each group. Malformed messages are
// counted, committed, and skipped.
func (p *Pipeline) parseBatch(ctx context.Context, rawBatch []domain.RawEvent) ([]domain.LocationSeries, []domain.RawEvent) {
	byLocation := make(map[string][]domain.ObservationRecord)
	parsed := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		record, err := domain.ParseRawObservation(raw)
		if err != nil {
			p.logger.Warn("parse failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.ParseErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		byLocation[record.Location] = append(byLocation[record.Location], record)
		parsed = append(parsed, raw)
	}

	// Deterministic location order so a replayed batch produces results
	// in the same sequence.
	locations := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	groups := make([]domain.LocationSeries, 0, len(locations))
	for _, loc := range locations {
		records := byLocation[loc]
		sort.Slice(records, func(i, j int) bool {
			return records[i].Date.Before(records[j].Date)
		})
		groups = append(groups, domain.LocationSeries{Location: loc, Records: records})
	}
	return groups, parsed
}

// analyzeGroups runs the analyzer over location groups on a bounded worker
// pool. Dispatch stops on context cancellation; in-flight locations finish.
func (p *Pipeline) analyzeGroups(ctx context.Context, groups []domain.LocationSeries) []domain.OutputEvent {
	jobs := make(chan int)
	results := make([]*domain.OutputEvent, len(groups))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.analyzeOne(ctx, groups[i])
			}
		}()
	}

dispatch:
	for i := range groups {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	outBatch := make([]domain.OutputEvent, 0, len(groups))
	for _, out := range results {
		if out != nil {
			outBatch = append(outBatch, *out)
		}
	}
	return outBatch
}

// analyzeOne analyzes a single location group and serializes the result.
// Returns nil when the location is skipped.
func (p *Pipeline) analyzeOne(ctx context.Context, series domain.LocationSeries) *domain.OutputEvent {
	start := time.Now()

	result, err := p.analyzer.Analyze(ctx, series)
	if err != nil {
		var dqErr *domain.DataQualityError
		if errors.As(err, &dqErr) {
			p.logger.Warn("data quality check failed, skipping location",
				"location", dqErr.Location, "date", dqErr.Date, "reason", dqErr.Reason)
			p.metrics.DataQualityErrors.Inc()
			return nil
		}
		p.logger.Error("analysis failed, skipping location", "location", series.Location, "error", err)
		p.metrics.AnalysisErrors.Inc()
		return nil
	}

	out, err := domain.SerializeResult(result)
	if err != nil {
		p.logger.Error("serialize failed, skipping location", "location", series.Location, "error", err)
		p.metrics.AnalysisErrors.Inc()
		return nil
	}

	p.metrics.LocationDuration.Observe(time.Since(start).Seconds())
	return &out
}

func (p *Pipeline) commitAll(ctx context.Context, raws []domain.RawEvent) {
	for _, raw := range raws {
		p.commitOffset(ctx, raw)
	}
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
