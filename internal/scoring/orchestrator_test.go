package scoring

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
)

// stubProvider replays canned completions and records the conversations it
// was given.
type stubProvider struct {
	responses []string
	errs      []error
	calls     [][]Message
}

func (s *stubProvider) Name() string      { return "stub" }
func (s *stubProvider) ModelName() string { return "stub-model" }

func (s *stubProvider) Complete(_ context.Context, messages []Message) (string, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, messages)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", &StatusError{Code: 500, Body: "no more canned responses"}
}

func scoringCandidate() model.RawCandidate {
	return model.RawCandidate{
		Title:    "AgentScale: a multi-agent coding benchmark",
		URL:      "https://example.com/agentscale",
		Source:   model.SourceGitHub,
		Abstract: "A benchmark with a standardized test set, Pass@k metrics, and GPT-4 baseline results for multi-agent coding.",
		Language: "en",
	}
}

func newTestOrchestrator(provider Provider) *Orchestrator {
	return NewOrchestrator(provider, NewLocalCache(zerolog.Nop()), testRules(), 4, zerolog.Nop())
}

func TestScoreBatchValidFirstTry(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{responses: []string{marshalPayload(t, validPayload())}}
	orch := newTestOrchestrator(provider)

	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{scoringCandidate()})
	if len(outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(outcomes))
	}
	out := outcomes[0]
	if out.Method != MethodLLM {
		t.Fatalf("method = %s, want llm", out.Method)
	}
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Candidate.Scores.Activity != 8.5 {
		t.Fatalf("activity = %v, want 8.5", out.Candidate.Scores.Activity)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(provider.calls))
	}
}

func TestScoreBatchRepairsShortReasoning(t *testing.T) {
	t.Parallel()

	short := validPayload()
	short["activity_reasoning"] = "too short"
	shortJSON := marshalPayload(t, short)

	provider := &stubProvider{responses: []string{shortJSON, marshalPayload(t, validPayload())}}
	orch := newTestOrchestrator(provider)

	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{scoringCandidate()})
	out := outcomes[0]
	if out.Method != MethodRepaired {
		t.Fatalf("method = %s, want repaired (err=%v)", out.Method, out.Err)
	}

	if len(provider.calls) != 2 {
		t.Fatalf("provider calls = %d, want 2", len(provider.calls))
	}
	// The repair turn extends the original conversation with the previous
	// answer and a deficit-specific instruction.
	repairConv := provider.calls[1]
	if len(repairConv) != 4 {
		t.Fatalf("repair conversation has %d messages, want 4", len(repairConv))
	}
	if repairConv[2].Role != "assistant" || repairConv[2].Content != shortJSON {
		t.Fatalf("repair turn missing prior assistant answer")
	}
	if !strings.Contains(repairConv[3].Content, "activity_reasoning") {
		t.Fatalf("repair prompt does not name the deficient field: %s", repairConv[3].Content)
	}
}

func TestScoreBatchFallsBackAfterRepairBudget(t *testing.T) {
	t.Parallel()

	short := validPayload()
	short["activity_reasoning"] = "still short"
	shortJSON := marshalPayload(t, short)

	provider := &stubProvider{responses: []string{shortJSON, shortJSON, shortJSON}}
	orch := newTestOrchestrator(provider)

	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{scoringCandidate()})
	out := outcomes[0]
	if out.Method != MethodFallback {
		t.Fatalf("method = %s, want fallback", out.Method)
	}
	if out.Err == nil {
		t.Fatalf("fallback outcome must carry the underlying error")
	}
	// Initial call plus exactly two repair attempts.
	if len(provider.calls) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(provider.calls))
	}
}

func TestScoreBatchStructuralFailureSkipsRepair(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{responses: []string{"not json at all"}}
	orch := newTestOrchestrator(provider)

	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{scoringCandidate()})
	out := outcomes[0]
	if out.Method != MethodFallback {
		t.Fatalf("method = %s, want fallback", out.Method)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("structural violations must not be retried, calls = %d", len(provider.calls))
	}
}

func TestScoreBatchUsesCache(t *testing.T) {
	t.Parallel()

	cand := scoringCandidate()
	cache := NewLocalCache(zerolog.Nop())

	resp, _, err := ParseResponse(marshalPayload(t, validPayload()), testRules(), false)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	cache.Put(context.Background(), cand, resp)

	provider := &stubProvider{}
	orch := NewOrchestrator(provider, cache, testRules(), 4, zerolog.Nop())

	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{cand})
	if outcomes[0].Method != MethodCached {
		t.Fatalf("method = %s, want cached", outcomes[0].Method)
	}
	if len(provider.calls) != 0 {
		t.Fatalf("cached candidate must not hit the provider")
	}
}

func TestScoreBatchNoProviderFallsBack(t *testing.T) {
	t.Parallel()

	orch := NewOrchestrator(nil, NewLocalCache(zerolog.Nop()), testRules(), 4, zerolog.Nop())
	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{scoringCandidate()})
	if outcomes[0].Method != MethodFallback {
		t.Fatalf("method = %s, want fallback", outcomes[0].Method)
	}
}

func TestScoreBatchSiblingIsolation(t *testing.T) {
	t.Parallel()

	// Two candidates score concurrently; the stub keys canned output by
	// conversation content instead of call order.
	good := scoringCandidate()
	bad := model.RawCandidate{
		Title:    "BrokenBench candidate entry",
		URL:      "https://example.com/broken",
		Source:   model.SourceGitHub,
		Abstract: "A benchmark whose scoring response will be malformed in this test scenario.",
		Language: "en",
	}

	provider := &keyedProvider{
		byTitle: map[string]string{
			good.Title: marshalPayload(t, validPayload()),
			bad.Title:  "garbage",
		},
	}
	orch := NewOrchestrator(provider, NewLocalCache(zerolog.Nop()), testRules(), 2, zerolog.Nop())

	outcomes := orch.ScoreBatch(context.Background(), []model.RawCandidate{good, bad})
	if outcomes[0].Method != MethodLLM {
		t.Fatalf("good candidate method = %s, want llm", outcomes[0].Method)
	}
	if outcomes[1].Method != MethodFallback {
		t.Fatalf("bad candidate method = %s, want fallback", outcomes[1].Method)
	}
}

type keyedProvider struct {
	byTitle map[string]string
}

func (k *keyedProvider) Name() string      { return "keyed" }
func (k *keyedProvider) ModelName() string { return "keyed-model" }

func (k *keyedProvider) Complete(_ context.Context, messages []Message) (string, error) {
	for title, response := range k.byTitle {
		for _, msg := range messages {
			if strings.Contains(msg.Content, title) {
				return response, nil
			}
		}
	}
	return "", &StatusError{Code: 500, Body: "unknown candidate"}
}

func TestFallbackScoreTiersAndContract(t *testing.T) {
	t.Parallel()

	rules := testRules()

	cases := []struct {
		stars        int
		wantActivity float64
	}{
		{1500, 9.0},
		{600, 7.5},
		{150, 6.0},
		{10, 5.0},
	}
	for _, tc := range cases {
		cand := model.RawCandidate{Title: "T", URL: "https://example.com", GitHubStars: tc.stars}
		resp := FallbackScore(cand, rules)
		if resp.ActivityScore != tc.wantActivity {
			t.Fatalf("stars %d: activity = %v, want %v", tc.stars, resp.ActivityScore, tc.wantActivity)
		}
	}

	cand := model.RawCandidate{
		Title:      "Repro benchmark",
		URL:        "https://example.com/r",
		GitHubURL:  "https://github.com/org/r",
		DatasetURL: "https://huggingface.co/datasets/org/r",
	}
	resp := FallbackScore(cand, rules)
	if resp.ReproducibilityScore != 9.0 {
		t.Fatalf("reproducibility = %v, want 9.0", resp.ReproducibilityScore)
	}

	// The generated reasonings satisfy the same contract the model is held to.
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal fallback: %v", err)
	}
	_, deficits, err := ParseResponse(string(raw), rules, false)
	if err != nil {
		t.Fatalf("fallback violates structural contract: %v", err)
	}
	if len(deficits) != 0 {
		t.Fatalf("fallback violates length contract: %v", deficits)
	}
}

func TestIsTransientAndRateLimited(t *testing.T) {
	t.Parallel()

	if !IsRateLimited(&StatusError{Code: 429}) {
		t.Fatalf("429 should be rate limited")
	}
	if IsRateLimited(&StatusError{Code: 500}) {
		t.Fatalf("500 is not rate limited")
	}
	if !IsTransient(&StatusError{Code: 503}) {
		t.Fatalf("503 should be transient")
	}
	if IsTransient(&StatusError{Code: 400}) {
		t.Fatalf("400 is not transient")
	}
	if IsTransient(context.Canceled) {
		t.Fatalf("cancellation is not transient")
	}
}

func TestCacheKeyStability(t *testing.T) {
	t.Parallel()

	cand := scoringCandidate()
	key := Key(cand)
	if !strings.HasPrefix(key, "benchscope:score:") {
		t.Fatalf("key prefix wrong: %s", key)
	}
	if key != Key(cand) {
		t.Fatalf("key is not stable")
	}
	other := cand
	other.URL = "https://example.com/different"
	if key == Key(other) {
		t.Fatalf("different URLs must not collide")
	}
}
