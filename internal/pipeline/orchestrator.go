// Package pipeline drives one end-to-end ingestion run: window computation,
// parallel fetch fan-out, validation, the quality gate, storage, and
// ExecutionResult aggregation.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/domain"
	"github.com/petroflow/petroflow/internal/metrics"
	"github.com/petroflow/petroflow/internal/persistence"
	"github.com/petroflow/petroflow/internal/providers"
	"github.com/petroflow/petroflow/internal/validate"
)

// Options selects what one run covers. Nil or zero fields fall back to the
// configuration.
type Options struct {
	Commodities              []string // canonical symbols, default all
	Sources                  []string // default all enabled
	Mode                     string   // incremental | full_refresh | backfill
	Start                    *time.Time
	End                      *time.Time
	QualityThreshold         *float64
	ExcludeWeekends          *bool
	ContinueOnPartialFailure *bool
	MaxParallelFetches       int
}

// Orchestrator owns one run at a time. Providers and the repository are
// shared across runs; the ExecutionResult builder is exclusive to a run.
type Orchestrator struct {
	cfg       *config.Config
	providers map[string]providers.Provider
	repo      persistence.PriceRepo
	validator *validate.Validator
	symbols   domain.SymbolMap
	now       func() time.Time
}

// New wires an orchestrator from configuration, constructed adapters, and a
// repository.
func New(cfg *config.Config, provs map[string]providers.Provider, repo persistence.PriceRepo) *Orchestrator {
	symbols := domain.DefaultSymbolMap()
	for name, src := range cfg.DataSources {
		if len(src.Symbols) > 0 {
			symbols.Extend(name, src.Symbols)
		}
	}
	return &Orchestrator{
		cfg:       cfg,
		providers: provs,
		repo:      repo,
		validator: validate.New(cfg.Validation),
		symbols:   symbols,
		now:       time.Now,
	}
}

// sourceBatch is the outcome of one source's fetch phase.
type sourceBatch struct {
	name     string
	records  []domain.PriceRecord
	hadError bool
}

// Run executes one pipeline run and always returns a terminal
// ExecutionResult; fatal configuration or window errors yield status failed.
func (o *Orchestrator) Run(ctx context.Context, opts Options) *domain.ExecutionResult {
	startedAt := o.now().UTC()

	mode := opts.Mode
	if mode == "" {
		mode = o.cfg.DateRange.Mode
	}
	rb := newResultBuilder(mode, startedAt)

	switch mode {
	case config.ModeIncremental, config.ModeFullRefresh, config.ModeBackfill:
	default:
		return rb.fail(o.now().UTC(), "invalid mode %q", mode)
	}

	sources := o.selectSources(opts.Sources)
	if len(sources) == 0 {
		return rb.fail(o.now().UTC(), "no enabled sources selected")
	}

	threshold := float64(o.cfg.Validation.QualityThreshold)
	if opts.QualityThreshold != nil {
		threshold = *opts.QualityThreshold
	}
	excludeWeekends := o.cfg.Validation.ExcludeWeekends
	if opts.ExcludeWeekends != nil {
		excludeWeekends = *opts.ExcludeWeekends
	}
	continueOnPartial := o.cfg.ErrorHandling.ContinueOnPartialFailure
	if opts.ContinueOnPartialFailure != nil {
		continueOnPartial = *opts.ContinueOnPartialFailure
	}
	maxParallel := opts.MaxParallelFetches
	if maxParallel <= 0 {
		maxParallel = len(sources)
	}

	start, end, warnings, err := computeWindow(ctx, o.repo, o.cfg.DateRange,
		mode, opts.Start, opts.End, o.now())
	for _, w := range warnings {
		rb.addWarning("%s", w)
	}
	if err != nil {
		return rb.fail(o.now().UTC(), "window: %v", err)
	}
	rb.setWindow(start, end)

	log.Info().
		Str("run_id", rb.result.RunID).
		Str("mode", mode).
		Strs("sources", sources).
		Time("window_start", start).
		Time("window_end", end).
		Msg("pipeline run starting")

	batches := o.fetchAll(ctx, rb, sources, start, end, opts.Commodities, maxParallel)

	consistency := o.crossSourceScores(rb, batches)

	// Validation and storage per source, in sorted source order so results
	// are independent of fetch completion order.
	for _, batch := range batches {
		rb.setFetched(batch.name, len(batch.records))

		if len(batch.records) == 0 {
			if !batch.hadError {
				rb.addWarning("source %s returned no rows for the window", batch.name)
			}
			rb.setStored(batch.name, 0)
			if batch.hadError && !continueOnPartial {
				rb.addWarning("stopping after %s failure (continue_on_partial_failure=false)", batch.name)
				break
			}
			continue
		}

		report := o.assess(batch, consistency[batch.name], excludeWeekends)
		rb.setQuality(batch.name, report.OverallScore)
		metrics.QualityScore.WithLabelValues(batch.name).Set(report.OverallScore)
		for _, w := range report.Warnings {
			log.Debug().Str("source", batch.name).Msg(w)
		}

		// Quality gate: inclusive at the threshold.
		if report.OverallScore < threshold {
			rb.addWarning("source %s quality %.1f below threshold %.1f, batch dropped",
				batch.name, report.OverallScore, threshold)
			rb.markDropped(batch.name)
			rb.setStored(batch.name, 0)
			continue
		}

		storable := filterStorable(batch.records)
		if dropped := len(batch.records) - len(storable); dropped > 0 {
			rb.addWarning("source %s: %d records failed schema checks and were not stored",
				batch.name, dropped)
		}

		stored, err := o.repo.UpsertBatch(ctx, storable)
		if err != nil {
			rb.addError("source %s: storage: %v", batch.name, err)
			rb.markDropped(batch.name)
			rb.setStored(batch.name, 0)
			if !continueOnPartial {
				rb.addWarning("stopping after %s failure (continue_on_partial_failure=false)", batch.name)
				break
			}
			continue
		}
		rb.setStored(batch.name, int(stored))
		metrics.RecordsStored.WithLabelValues(batch.name).Add(float64(stored))

		if batch.hadError && !continueOnPartial {
			rb.addWarning("stopping after %s failure (continue_on_partial_failure=false)", batch.name)
			break
		}
	}

	result := rb.finalize(o.now().UTC(), false)
	metrics.PipelineRuns.WithLabelValues(string(result.Status)).Inc()

	log.Info().
		Str("run_id", result.RunID).
		Str("status", string(result.Status)).
		Int("stored", result.TotalStored()).
		Dur("duration", result.Duration()).
		Msg("pipeline run finished")
	return result
}

// selectSources intersects the requested subset with the constructed
// adapters and returns sorted names.
func (o *Orchestrator) selectSources(requested []string) []string {
	var names []string
	if len(requested) == 0 {
		for name := range o.providers {
			names = append(names, name)
		}
	} else {
		for _, name := range requested {
			if _, ok := o.providers[name]; ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// fetchAll fans fetches out to a bounded worker pool. Tasks are independent;
// one failure never cancels the others. On context expiry no new tasks are
// scheduled; in-flight tasks run to their own HTTP timeouts.
func (o *Orchestrator) fetchAll(ctx context.Context, rb *resultBuilder, sources []string,
	start, end time.Time, commodities []string, maxParallel int,
) []*sourceBatch {
	batches := make([]*sourceBatch, len(sources))
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup

	for i, name := range sources {
		if ctx.Err() != nil {
			rb.addWarning("deadline reached before fetching %s", name)
			batches[i] = &sourceBatch{name: name}
			continue
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			batches[i] = o.fetchSource(ctx, rb, name, start, end, commodities)
		}(i, name)
	}
	wg.Wait()
	return batches
}

// fetchSource fetches every configured series for one source, maps native
// identifiers to canonical symbols, and returns the per-source batch sorted
// ascending by timestamp.
func (o *Orchestrator) fetchSource(ctx context.Context, rb *resultBuilder, name string,
	start, end time.Time, commodities []string,
) *sourceBatch {
	batch := &sourceBatch{name: name}
	provider := o.providers[name]
	src := o.cfg.DataSources[name]

	filter := symbolFilter(commodities, src.Commodities)

	seriesIDs := append(append([]string(nil), src.Series...), src.Tickers...)
	for _, seriesID := range seriesIDs {
		symbol, ok := o.symbols.Canonical(name, seriesID)
		if !ok {
			rb.addWarning("source %s: no canonical symbol for %q, skipping", name, seriesID)
			continue
		}
		if filter != nil && !filter[symbol] {
			continue
		}

		records, err := o.fetchOne(ctx, provider, name, seriesID, symbol, start, end)
		if err != nil {
			rb.addError("source %s: series %s: %v", name, seriesID, err)
			batch.hadError = true
			continue
		}
		batch.records = append(batch.records, records...)
	}

	sort.Slice(batch.records, func(i, j int) bool {
		a, b := batch.records[i], batch.records[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Symbol < b.Symbol
	})
	return batch
}

// fetchOne pulls one series, preferring full OHLCV bars when the adapter
// supports them.
func (o *Orchestrator) fetchOne(ctx context.Context, provider providers.Provider,
	source, seriesID, symbol string, start, end time.Time,
) ([]domain.PriceRecord, error) {
	if barFetcher, ok := provider.(providers.BarFetcher); ok {
		bars, err := barFetcher.FetchBars(ctx, seriesID, start, end)
		if err != nil {
			return nil, err
		}
		records := make([]domain.PriceRecord, 0, len(bars))
		for _, bar := range bars {
			b := bar
			records = append(records, domain.PriceRecord{
				Timestamp: b.Date,
				Symbol:    symbol,
				Source:    source,
				Price:     b.Close,
				Volume:    &b.Volume,
				Open:      &b.Open,
				High:      &b.High,
				Low:       &b.Low,
				Close:     &b.Close,
			})
		}
		return records, nil
	}

	observations, err := provider.FetchSeries(ctx, seriesID, start, end)
	if err != nil {
		return nil, err
	}
	records := make([]domain.PriceRecord, 0, len(observations))
	for _, obs := range observations {
		records = append(records, domain.PriceRecord{
			Timestamp: obs.Date,
			Symbol:    symbol,
			Source:    source,
			Price:     obs.Value,
		})
	}
	return records, nil
}

// assess runs the validator sub-checks for one source batch and collapses
// them into a QualityReport.
func (o *Orchestrator) assess(batch *sourceBatch, consistencyScores []float64, excludeWeekends bool) domain.QualityReport {
	sub := validate.SubResults{
		Schema:       o.validator.ValidateSchema(batch.records),
		Completeness: o.validator.CheckCompleteness(batch.records, excludeWeekends),
		Outliers:     o.validator.DetectOutliers(batch.records),
	}
	if len(consistencyScores) > 0 {
		mean := 0.0
		for _, s := range consistencyScores {
			mean += s
		}
		mean /= float64(len(consistencyScores))
		sub.Consistency = &validate.CrossSourceResult{Score: mean}
	}
	return o.validator.GenerateReport(batch.name, sub)
}

// crossSourceScores iterates every source pair sharing a commodity and
// collects per-source consistency scores. Disagreement is a report signal,
// never a write-time conflict.
func (o *Orchestrator) crossSourceScores(rb *resultBuilder, batches []*sourceBatch) map[string][]float64 {
	bySourceSymbol := make(map[string]map[string][]domain.PriceRecord)
	for _, batch := range batches {
		perSymbol := make(map[string][]domain.PriceRecord)
		for _, rec := range batch.records {
			perSymbol[rec.Symbol] = append(perSymbol[rec.Symbol], rec)
		}
		bySourceSymbol[batch.name] = perSymbol
	}

	scores := make(map[string][]float64)
	for i := 0; i < len(batches); i++ {
		for j := i + 1; j < len(batches); j++ {
			a, b := batches[i], batches[j]
			for symbol, recordsA := range bySourceSymbol[a.name] {
				recordsB, shared := bySourceSymbol[b.name][symbol]
				if !shared {
					continue
				}
				res := o.validator.ValidateCrossSource(recordsA, recordsB)
				if res.Common == 0 {
					continue
				}
				scores[a.name] = append(scores[a.name], res.Score)
				scores[b.name] = append(scores[b.name], res.Score)
				if len(res.Discrepancies) > 0 {
					rb.addWarning("%s: %d of %d common timestamps differ between %s and %s beyond tolerance",
						symbol, len(res.Discrepancies), res.Common, a.name, b.name)
				}
			}
		}
	}
	return scores
}

// symbolFilter builds the allowed-symbol set from the run option and the
// per-source configuration. Nil means no restriction.
func symbolFilter(runFilter, sourceFilter []string) map[string]bool {
	if len(runFilter) == 0 && len(sourceFilter) == 0 {
		return nil
	}
	allowed := make(map[string]bool)
	switch {
	case len(runFilter) > 0 && len(sourceFilter) > 0:
		inSource := make(map[string]bool, len(sourceFilter))
		for _, s := range sourceFilter {
			inSource[s] = true
		}
		for _, s := range runFilter {
			if inSource[s] {
				allowed[s] = true
			}
		}
	case len(runFilter) > 0:
		for _, s := range runFilter {
			allowed[s] = true
		}
	default:
		for _, s := range sourceFilter {
			allowed[s] = true
		}
	}
	return allowed
}

// filterStorable drops records that violate the storage invariants: positive
// price, non-zero timestamp, non-empty symbol and source.
func filterStorable(records []domain.PriceRecord) []domain.PriceRecord {
	storable := make([]domain.PriceRecord, 0, len(records))
	for _, rec := range records {
		if rec.Price <= 0 || rec.Timestamp.IsZero() || rec.Symbol == "" || rec.Source == "" {
			continue
		}
		rec.Timestamp = domain.NormalizeTimestamp(rec.Timestamp)
		storable = append(storable, rec)
	}
	return storable
}
