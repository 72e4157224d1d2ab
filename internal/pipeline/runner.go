package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/allocator"
	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/dedup"
	"github.com/calderbuild/BenchScope/internal/globaltime"
	"github.com/calderbuild/BenchScope/internal/model"
	"github.com/calderbuild/BenchScope/internal/prefilter"
	"github.com/calderbuild/BenchScope/internal/scoring"
)

// Deduper removes batch and cross-run duplicates.
type Deduper interface {
	Filter(ctx context.Context, cands []model.RawCandidate, now time.Time) dedup.Result
}

// Scorer evaluates candidates through the scoring contract.
type Scorer interface {
	ScoreBatch(ctx context.Context, cands []model.RawCandidate) []scoring.Outcome
}

// Saver persists scored candidates.
type Saver interface {
	Save(ctx context.Context, cands []model.ScoredCandidate) error
}

// PlanNotifier pushes an allocation plan to the notification channel.
type PlanNotifier interface {
	NotifyPlan(ctx context.Context, plan allocator.Plan) error
}

// Report is the funnel accounting for one pipeline run.
type Report struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	DurationMS     int64          `json:"duration_ms"`
	Ingested       int            `json:"ingested"`
	AfterDedup     int            `json:"after_dedup"`
	AfterPrefilter int            `json:"after_prefilter"`
	Scored         int            `json:"scored"`
	ScoreMethods   map[string]int `json:"score_methods"`
	SelectedHigh   int            `json:"selected_high"`
	SelectedMedium int            `json:"selected_medium"`
	Dropped        int            `json:"dropped"`
	Persisted      int            `json:"persisted"`
	NotifySkipped  bool           `json:"notify_skipped,omitempty"`
}

// Runner wires the curation stages in order: dedup, prefilter, scoring,
// allocation, persistence, notification. Each run gets a fresh ID and a
// funnel report.
type Runner struct {
	rules    config.Curation
	filter   *prefilter.Filter
	deduper  Deduper
	scorer   Scorer
	saver    Saver
	notifier PlanNotifier
	logger   zerolog.Logger
}

func NewRunner(rules config.Curation, deduper Deduper, scorer Scorer, saver Saver, notifier PlanNotifier, logger zerolog.Logger) *Runner {
	return &Runner{
		rules:    rules,
		filter:   prefilter.New(rules.Prefilter),
		deduper:  deduper,
		scorer:   scorer,
		saver:    saver,
		notifier: notifier,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the full pipeline over raw candidates. A persistence
// failure aborts the run before notification; notification failures are
// reported but do not fail the run, since the candidates are already
// durable by then.
func (r *Runner) Run(ctx context.Context, cands []model.RawCandidate) (Report, error) {
	now := globaltime.Now().UTC()
	report := Report{
		RunID:        uuid.NewString(),
		StartedAt:    now,
		Ingested:     len(cands),
		ScoreMethods: make(map[string]int),
	}
	logger := r.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Int("candidates", len(cands)).Msg("pipeline run started")

	dedupResult := r.deduper.Filter(ctx, cands, now)
	report.AfterDedup = len(dedupResult.Kept)
	logger.Info().
		Int("kept", report.AfterDedup).
		Int("batch_duplicates", dedupResult.BatchDuplicates).
		Int("window_duplicates", dedupResult.WindowDuplicates).
		Msg("dedup stage complete")

	filtered := r.filter.FilterBatch(dedupResult.Kept, now, logger)
	report.AfterPrefilter = len(filtered.Kept)

	outcomes := r.scorer.ScoreBatch(ctx, filtered.Kept)
	scored := make([]model.ScoredCandidate, 0, len(outcomes))
	for _, out := range outcomes {
		report.ScoreMethods[string(out.Method)]++
		scored = append(scored, out.Candidate)
	}
	report.Scored = len(scored)
	logger.Info().
		Int("scored", report.Scored).
		Interface("methods", report.ScoreMethods).
		Msg("scoring stage complete")

	plan := allocator.Build(scored, r.rules.Allocator, now)
	report.SelectedHigh = plan.Stats.High
	report.SelectedMedium = plan.Stats.Medium
	report.Dropped = plan.Stats.Dropped

	persist := persistSet(scored, plan, r.rules.Allocator.MinNotifyScore)
	report.Persisted = len(persist)
	if len(persist) > 0 {
		if err := r.saver.Save(ctx, persist); err != nil {
			return report, fmt.Errorf("persist scored candidates: %w", err)
		}
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyPlan(ctx, plan); err != nil {
			report.NotifySkipped = true
			logger.Error().Err(err).Msg("notification push failed")
		}
	}

	report.DurationMS = time.Since(now).Milliseconds()
	logger.Info().
		Int("ingested", report.Ingested).
		Int("after_dedup", report.AfterDedup).
		Int("after_prefilter", report.AfterPrefilter).
		Int("scored", report.Scored).
		Int("selected", report.SelectedHigh+report.SelectedMedium).
		Int("persisted", report.Persisted).
		Msg("pipeline run complete")
	return report, nil
}

// persistSet is the union of plan-selected candidates and any scored
// candidate at or above the persistence floor. Promoted items below the
// floor stay persisted: the plan selected them for a reason.
func persistSet(scored []model.ScoredCandidate, plan allocator.Plan, floor float64) []model.ScoredCandidate {
	selected := make(map[string]bool)
	for _, item := range plan.High {
		selected[item.Candidate.URL] = true
	}
	for _, item := range plan.Medium {
		selected[item.Candidate.URL] = true
	}

	var out []model.ScoredCandidate
	for i := range scored {
		if selected[scored[i].URL] || scored[i].TotalScore() >= floor {
			out = append(out, scored[i])
		}
	}
	return out
}
