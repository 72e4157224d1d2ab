package scoring

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/langdetect"
	"github.com/calderbuild/BenchScope/internal/model"
)

// Method records how a candidate's score was obtained.
type Method string

const (
	MethodCached   Method = "cached"
	MethodLLM      Method = "llm"
	MethodRepaired Method = "repaired"
	MethodFallback Method = "fallback"
)

// Outcome is the per-candidate result of a scoring batch. Err is set only
// when the model path failed and the score came from the rule fallback.
type Outcome struct {
	Candidate model.ScoredCandidate
	Method    Method
	Err       error
}

// Orchestrator scores batches of candidates with bounded concurrency. One
// candidate's failure never aborts its siblings: the fallback scorer closes
// every path.
type Orchestrator struct {
	provider    Provider
	cache       *Cache
	rules       config.ScoringRules
	concurrency int
	logger      zerolog.Logger
}

func NewOrchestrator(provider Provider, cache *Cache, rules config.ScoringRules, concurrency int, logger zerolog.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = 8
	}
	return &Orchestrator{
		provider:    provider,
		cache:       cache,
		rules:       rules,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "scoring").Logger(),
	}
}

// ScoreBatch scores all candidates and returns outcomes in input order.
func (o *Orchestrator) ScoreBatch(ctx context.Context, cands []model.RawCandidate) []Outcome {
	if len(cands) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(cands))

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for i, cand := range cands {
		g.Go(func() error {
			outcomes[i] = o.scoreOne(ctx, cand)
			return nil
		})
	}
	_ = g.Wait()

	counts := map[Method]int{}
	for _, outcome := range outcomes {
		counts[outcome.Method]++
	}
	o.logger.Info().
		Int("candidates", len(cands)).
		Int("cached", counts[MethodCached]).
		Int("llm", counts[MethodLLM]).
		Int("repaired", counts[MethodRepaired]).
		Int("fallback", counts[MethodFallback]).
		Msg("scoring batch complete")

	return outcomes
}

func (o *Orchestrator) scoreOne(ctx context.Context, cand model.RawCandidate) Outcome {
	if cand.Language == "" {
		cand.Language = langdetect.DetectISO6391(cand.Abstract)
	}

	if resp := o.cache.Get(ctx, cand); resp != nil {
		return Outcome{Candidate: Apply(cand, resp), Method: MethodCached}
	}

	if o.provider == nil {
		o.logger.Warn().Str("title", cand.Title).Msg("no scoring provider configured, using rule fallback")
		return Outcome{Candidate: Apply(cand, FallbackScore(cand, o.rules)), Method: MethodFallback}
	}

	// The provider's HTTP client enforces the per-call timeout; the contract
	// loop may legitimately take several calls for repair turns.
	resp, repaired, err := runContract(ctx, o.provider, cand, o.rules, o.logger)
	if err != nil {
		o.logger.Error().Err(err).Str("title", cand.Title).Msg("model scoring failed, using rule fallback")
		return Outcome{
			Candidate: Apply(cand, FallbackScore(cand, o.rules)),
			Method:    MethodFallback,
			Err:       err,
		}
	}

	o.cache.Put(ctx, cand, resp)

	method := MethodLLM
	if repaired {
		method = MethodRepaired
	}
	return Outcome{Candidate: Apply(cand, resp), Method: method}
}
