package prefilter

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
)

// SourceStat tracks per-source throughput of one batch.
type SourceStat struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// BatchResult carries the survivors plus the drop accounting the funnel
// report prints.
type BatchResult struct {
	Kept     []model.RawCandidate
	ByReason map[Reason]int
	BySource map[string]SourceStat
}

// FilterBatch runs Check over a batch and aggregates reason and source
// counters.
func (f *Filter) FilterBatch(cands []model.RawCandidate, now time.Time, logger zerolog.Logger) BatchResult {
	res := BatchResult{
		Kept:     make([]model.RawCandidate, 0, len(cands)),
		ByReason: make(map[Reason]int),
		BySource: make(map[string]SourceStat),
	}

	for _, cand := range cands {
		stat := res.BySource[cand.Source]
		stat.Input++

		passed, reason := f.Check(cand, now)
		res.ByReason[reason]++
		if passed {
			res.Kept = append(res.Kept, cand)
			stat.Output++
		}
		res.BySource[cand.Source] = stat
	}

	dropRate := 0.0
	if len(cands) > 0 {
		dropRate = 100 * (1 - float64(len(res.Kept))/float64(len(cands)))
	}

	evt := logger.Info().
		Int("in", len(cands)).
		Int("kept", len(res.Kept)).
		Float64("drop_rate_pct", dropRate)
	for reason, count := range res.ByReason {
		if reason != ReasonPass && count > 0 {
			evt = evt.Int("drop_"+string(reason), count)
		}
	}
	evt.Msg("prefilter pass complete")

	return res
}
