package config

// Curation is the versioned rule-table configuration injected into the
// pipeline stages. The tables were promoted from module-level constants so
// tests can build variants without cross-test state leakage.
type Curation struct {
	Version string

	Dedup     DedupRules
	Prefilter PrefilterRules
	Scoring   ScoringRules
	Allocator AllocatorRules
}

// DedupRules controls cross-run deduplication windows.
type DedupRules struct {
	// WindowDays maps a source tag to its lookback window. Fast-turnover
	// sources use short windows so re-surfaced items can reappear.
	WindowDays        map[string]int
	DefaultWindowDays int
}

// PrefilterRules holds the deterministic admissibility tables.
type PrefilterRules struct {
	MinTitleLength    int
	MinAbstractLength int

	ValidSources   []string
	TrustedSources []string
	// ShortAbstractExempt sources publish naturally terse descriptions and
	// skip the abstract-length floor.
	ShortAbstractExempt []string

	RequiredKeywords []string
	ExcludedKeywords []string
	PositiveSignals  []string

	// GitHub structural quality gates.
	MinGitHubStars     int
	MinReadmeLength    int
	MaxDaysSinceUpdate int
}

// ScoringRules bounds the orchestrator's contract and retry behavior.
type ScoringRules struct {
	ReasoningMinChars        int
	BackendReasoningMinChars int
	OverallReasoningMinChars int
	RepairMaxAttempts        int
	TransientMaxAttempts     int
	MaxAbstractChars         int
}

// AllocatorRules drives the push-allocation stage.
type AllocatorRules struct {
	HighThreshold   float64
	MediumThreshold float64

	// SourceFloors admit sub-medium candidates whose total clears their
	// source's credibility floor.
	SourceFloors map[string]float64
	// RelevanceFloors adds a per-source minimum relevance for promotion
	// (time-sensitive sources only).
	RelevanceFloors map[string]float64

	// Fast path: candidates this fresh with this much relevance are always
	// included regardless of tier.
	FastPathMaxAgeDays   int
	FastPathMinRelevance float64
	FastPathSources      []string

	PerSourceTopK int

	PriorityDomains    []string
	BackfillScoreFloor float64

	MaxAgeDays       int
	AgeExceptionBar  float64
	FreshBoost3Days  float64
	FreshBoost7Days  float64
	MinNotifyScore   float64
	GlobalCap        int
}

// DefaultCuration returns the production rule tables.
func DefaultCuration() Curation {
	return Curation{
		Version: "v2",
		Dedup: DedupRules{
			WindowDays: map[string]int{
				"arxiv":       7,
				"github":      30,
				"huggingface": 14,
				"twitter":     7,
			},
			DefaultWindowDays: 365,
		},
		Prefilter: PrefilterRules{
			MinTitleLength:    10,
			MinAbstractLength: 20,
			ValidSources: []string{
				"arxiv", "github", "huggingface", "helm",
				"semantic_scholar", "techempower", "dbengines",
			},
			TrustedSources:      []string{"arxiv", "techempower", "dbengines", "helm"},
			ShortAbstractExempt: []string{"helm", "semantic_scholar", "huggingface"},
			RequiredKeywords: []string{
				"code", "coding", "program", "programming", "software", "repository",
				"web", "browser", "gui", "ui", "automation",
				"agent", "multi-agent", "tool", "api", "workflow",
				"performance", "benchmark", "framework", "database", "latency",
				"throughput", "optimization", "http", "server", "service",
				"endpoint", "query", "storage",
				"reasoning", "math", "logic",
			},
			ExcludedKeywords: []string{
				"translation", "summarization", "sentiment analysis",
				"text classification", "dialogue system", "conversational ai",
				"chatbot tutorial", "speech recognition", "audio processing",
				"image classification", "computer vision", "video processing",
				"awesome list", "curated list", "collection of resources",
				"list of tools", "tutorial series", "online course",
				"learning guide", "sdk wrapper", "api wrapper library",
			},
			PositiveSignals: []string{
				"benchmark", "evaluation", "leaderboard", "dataset",
				"agent", "coding", "reasoning", "tool use", "multi-agent",
				"code generation",
			},
			MinGitHubStars:     10,
			MinReadmeLength:    500,
			MaxDaysSinceUpdate: 90,
		},
		Scoring: ScoringRules{
			ReasoningMinChars:        150,
			BackendReasoningMinChars: 200,
			OverallReasoningMinChars: 50,
			RepairMaxAttempts:        2,
			TransientMaxAttempts:     3,
			MaxAbstractChars:         500,
		},
		Allocator: AllocatorRules{
			HighThreshold:   8.0,
			MediumThreshold: 6.0,
			SourceFloors: map[string]float64{
				"arxiv":       6.5,
				"techempower": 6.0,
				"dbengines":   6.0,
				"github":      7.0,
				"huggingface": 7.0,
				"twitter":     7.5,
			},
			RelevanceFloors: map[string]float64{
				"twitter": 7.0,
			},
			FastPathMaxAgeDays:   7,
			FastPathMinRelevance: 7.0,
			FastPathSources:      []string{"arxiv"},
			PerSourceTopK:        2,
			PriorityDomains: []string{
				"Coding", "WebDev", "Backend", "GUI",
				"ToolUse", "Collaboration", "LLM/AgentOps", "Reasoning",
			},
			BackfillScoreFloor: 5.5,
			MaxAgeDays:         30,
			AgeExceptionBar:    8.0,
			FreshBoost3Days:    0.5,
			FreshBoost7Days:    0.3,
			MinNotifyScore:     6.0,
			GlobalCap:          20,
		},
	}
}

// WindowDaysFor resolves the lookback window for a source tag.
func (d DedupRules) WindowDaysFor(source string) int {
	if days, ok := d.WindowDays[source]; ok && days > 0 {
		return days
	}
	return d.DefaultWindowDays
}
