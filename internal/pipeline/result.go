package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petroflow/petroflow/internal/domain"
)

// resultBuilder accumulates per-source outcomes during a run. It is owned by
// the orchestrator; worker goroutines report through its mutex.
type resultBuilder struct {
	mu      sync.Mutex
	result  *domain.ExecutionResult
	dropped map[string]bool // sources gated out or failed after a non-empty fetch
}

func newResultBuilder(mode string, startedAt time.Time) *resultBuilder {
	return &resultBuilder{
		result: &domain.ExecutionResult{
			RunID:          uuid.NewString(),
			Status:         domain.RunPending,
			Mode:           mode,
			StartedAt:      startedAt,
			RecordsFetched: make(map[string]int),
			RecordsStored:  make(map[string]int),
			QualityScores:  make(map[string]float64),
		},
		dropped: make(map[string]bool),
	}
}

func (b *resultBuilder) setWindow(start, end time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.WindowStart = start
	b.result.WindowEnd = end
}

func (b *resultBuilder) setFetched(source string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.RecordsFetched[source] = n
}

func (b *resultBuilder) setStored(source string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.RecordsStored[source] = n
}

func (b *resultBuilder) setQuality(source string, score float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.QualityScores[source] = score
}

func (b *resultBuilder) addError(format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.Errors = append(b.result.Errors, fmt.Sprintf(format, args...))
}

func (b *resultBuilder) addWarning(format string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(format, args...))
}

// markDropped records that a source fetched rows but stored none, due to the
// quality gate or a storage failure.
func (b *resultBuilder) markDropped(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped[source] = true
}

// fail short-circuits the run to a terminal failed state.
func (b *resultBuilder) fail(finishedAt time.Time, format string, args ...interface{}) *domain.ExecutionResult {
	b.addError(format, args...)
	return b.finalize(finishedAt, true)
}

// finalize computes the terminal status and renders the operator summary.
func (b *resultBuilder) finalize(finishedAt time.Time, fatal bool) *domain.ExecutionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.result
	r.FinishedAt = finishedAt

	switch {
	case fatal:
		r.Status = domain.RunFailed
	case len(r.Errors) == 0 && len(b.dropped) == 0:
		r.Status = domain.RunSuccess
	case r.TotalStored() > 0:
		r.Status = domain.RunPartialSuccess
	default:
		r.Status = domain.RunFailed
	}

	r.Summary = b.renderSummary()
	return r
}

// renderSummary builds the human-readable lines operators see. Caller holds
// the lock.
func (b *resultBuilder) renderSummary() string {
	r := b.result

	sources := make([]string, 0, len(r.RecordsFetched))
	for source := range r.RecordsFetched {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s %s in %s", r.RunID, r.Status, r.Duration().Round(time.Millisecond))
	if !r.WindowStart.IsZero() {
		fmt.Fprintf(&sb, " (window %s..%s)",
			r.WindowStart.Format("2006-01-02"), r.WindowEnd.Format("2006-01-02"))
	}
	for _, source := range sources {
		fmt.Fprintf(&sb, "\n  %s: fetched %d, stored %d",
			source, r.RecordsFetched[source], r.RecordsStored[source])
		if score, ok := r.QualityScores[source]; ok {
			fmt.Fprintf(&sb, ", quality %.1f (%s)", score, domain.LevelForScore(score))
		}
		if b.dropped[source] {
			sb.WriteString(" [dropped]")
		}
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "\n  error: %s", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "\n  warning: %s", w)
	}
	return sb.String()
}
