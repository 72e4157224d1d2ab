package dedup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
	"github.com/calderbuild/BenchScope/internal/sink"
)

// KnownReader is the slice of the sink the engine needs.
type KnownReader interface {
	ReadKnownRecords(ctx context.Context, since time.Time) ([]sink.KnownRecord, error)
}

// Result reports what one Filter pass kept and dropped.
type Result struct {
	Kept             []model.RawCandidate
	BatchDuplicates  int
	WindowDuplicates int
	PerSource        map[string]int
}

// Engine removes batch-internal and cross-run duplicates. Cross-run matches
// only count within the source's lookback window, so fast-turnover sources
// can legitimately resurface an item.
type Engine struct {
	rules  config.DedupRules
	reader KnownReader
	logger zerolog.Logger
}

func NewEngine(rules config.DedupRules, reader KnownReader, logger zerolog.Logger) *Engine {
	return &Engine{
		rules:  rules,
		reader: reader,
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// Filter deduplicates a batch against itself and against the sink's known
// records. A sink read failure fails open: the batch passes with a warning
// rather than stalling the run.
func (e *Engine) Filter(ctx context.Context, cands []model.RawCandidate, now time.Time) Result {
	res := Result{
		Kept:      make([]model.RawCandidate, 0, len(cands)),
		PerSource: make(map[string]int),
	}

	known := e.loadKnown(ctx, now)

	seen := make(map[string]struct{}, len(cands))
	for _, cand := range cands {
		key := Canonicalize(cand.URL)
		if key == "" {
			key = cand.URL
		}

		if _, dup := seen[key]; dup {
			res.BatchDuplicates++
			res.PerSource[cand.Source]++
			continue
		}
		seen[key] = struct{}{}

		if prior, ok := known[key]; ok && e.withinWindow(cand.Source, prior, now) {
			res.WindowDuplicates++
			res.PerSource[cand.Source]++
			continue
		}

		res.Kept = append(res.Kept, cand)
	}

	e.logger.Info().
		Int("in", len(cands)).
		Int("kept", len(res.Kept)).
		Int("batch_duplicates", res.BatchDuplicates).
		Int("window_duplicates", res.WindowDuplicates).
		Msg("dedup pass complete")

	return res
}

func (e *Engine) loadKnown(ctx context.Context, now time.Time) map[string]sink.KnownRecord {
	if e.reader == nil {
		return nil
	}

	maxWindow := e.rules.DefaultWindowDays
	for _, days := range e.rules.WindowDays {
		if days > maxWindow {
			maxWindow = days
		}
	}
	since := now.AddDate(0, 0, -maxWindow)

	records, err := e.reader.ReadKnownRecords(ctx, since)
	if err != nil {
		e.logger.Warn().Err(err).Msg("known-record read failed, deduping batch-only")
		return nil
	}

	known := make(map[string]sink.KnownRecord, len(records))
	for _, rec := range records {
		key := Canonicalize(rec.URLKey)
		if key == "" {
			key = rec.URLKey
		}
		// Keep the most recent sighting per key.
		if prior, ok := known[key]; !ok || rec.CreatedAt.After(prior.CreatedAt) {
			known[key] = rec
		}
	}
	return known
}

// withinWindow applies the incoming candidate's source window, not the
// stored record's: a github re-surfacing of an arxiv paper still honors the
// 30-day github window.
func (e *Engine) withinWindow(source string, prior sink.KnownRecord, now time.Time) bool {
	days := e.rules.WindowDaysFor(source)
	cutoff := now.AddDate(0, 0, -days)
	ref := prior.CreatedAt
	if ref.IsZero() {
		ref = prior.PublishedAt
	}
	if ref.IsZero() {
		return true
	}
	// A sighting aged exactly one window is already expired.
	return ref.After(cutoff)
}
