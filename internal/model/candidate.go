package model

import (
	"math"
	"time"
)

// Source tags for the supported upstream providers.
const (
	SourceArxiv           = "arxiv"
	SourceGitHub          = "github"
	SourceHuggingFace     = "huggingface"
	SourceSemanticScholar = "semantic_scholar"
	SourceHelm            = "helm"
	SourceTechEmpower     = "techempower"
	SourceDBEngines       = "dbengines"
	SourceTwitter         = "twitter"
)

// Sentinel strings for absent information. Text fields are never empty once
// a candidate has been scored.
const (
	SentinelUnknown      = "Unknown"
	SentinelNotSpecified = "Not specified"
)

// Priority tiers derived from the weighted total score.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	priorityHighThreshold   = 8.0
	priorityMediumThreshold = 6.0
)

// RawCandidate is a single discovered item as produced by a source
// collector, before scoring. Stages pass candidates by value and never
// mutate one after handing it on.
type RawCandidate struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Abstract    string     `json:"abstract,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Language    string     `json:"language,omitempty"`

	GitHubStars int    `json:"github_stars,omitempty"`
	GitHubURL   string `json:"github_url,omitempty"`
	DatasetURL  string `json:"dataset_url,omitempty"`
	PaperURL    string `json:"paper_url,omitempty"`

	TaskType    string   `json:"task_type,omitempty"`
	LicenseType string   `json:"license_type,omitempty"`
	EvalMetrics []string `json:"evaluation_metrics,omitempty"`

	// Coarse extractions carried from the collectors as scoring hints.
	RawMetrics      []string `json:"raw_metrics,omitempty"`
	RawBaselines    []string `json:"raw_baselines,omitempty"`
	RawInstitutions string   `json:"raw_institutions,omitempty"`
	RawDatasetSize  string   `json:"raw_dataset_size,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// DimensionScores holds the five 0-10 evaluation dimensions.
type DimensionScores struct {
	Activity        float64 `json:"activity_score"`
	Reproducibility float64 `json:"reproducibility_score"`
	License         float64 `json:"license_score"`
	Novelty         float64 `json:"novelty_score"`
	Relevance       float64 `json:"relevance_score"`
}

// ScoreWeights is the fixed weighting applied to the five dimensions.
type ScoreWeights struct {
	Activity        float64
	Reproducibility float64
	License         float64
	Novelty         float64
	Relevance       float64
}

// DefaultScoreWeights mirrors the production weighting: reproducibility and
// relevance dominate, stars-driven activity is deliberately discounted.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Activity:        0.15,
		Reproducibility: 0.30,
		License:         0.15,
		Novelty:         0.15,
		Relevance:       0.25,
	}
}

// ScoredCandidate is a raw candidate plus the full scoring contract output.
type ScoredCandidate struct {
	RawCandidate

	Scores DimensionScores `json:"scores"`

	ActivityReasoning        string `json:"activity_reasoning"`
	ReproducibilityReasoning string `json:"reproducibility_reasoning"`
	LicenseReasoning         string `json:"license_reasoning"`
	NoveltyReasoning         string `json:"novelty_reasoning"`
	RelevanceReasoning       string `json:"relevance_reasoning"`
	OverallReasoning         string `json:"overall_reasoning"`

	// Backend-specialist pair, populated only for recognized backend
	// benchmark candidates.
	BackendRelevance            float64 `json:"backend_relevance,omitempty"`
	BackendRelevanceReasoning   string  `json:"backend_relevance_reasoning,omitempty"`
	BackendEngineering          float64 `json:"backend_engineering,omitempty"`
	BackendEngineeringReasoning string  `json:"backend_engineering_reasoning,omitempty"`

	// Structured extractions.
	TaskDomain      string   `json:"task_domain"`
	Metrics         []string `json:"metrics,omitempty"`
	Baselines       []string `json:"baselines,omitempty"`
	Institution     string   `json:"institution"`
	DatasetSize     int64    `json:"dataset_size,omitempty"`
	DatasetSizeDesc string   `json:"dataset_size_description,omitempty"`

	// OverrideTotal replaces the weighted sum when set (specialist scorers
	// and allocator floors use it). Nil means "derive from dimensions".
	OverrideTotal *float64 `json:"override_total,omitempty"`
}

// TotalScore returns the override total when present, otherwise the fixed
// weighted sum of the five dimensions.
func (c *ScoredCandidate) TotalScore() float64 {
	return c.TotalScoreWith(DefaultScoreWeights())
}

// TotalScoreWith computes the total with explicit weights.
func (c *ScoredCandidate) TotalScoreWith(w ScoreWeights) float64 {
	if c.OverrideTotal != nil {
		return *c.OverrideTotal
	}
	return c.Scores.Activity*w.Activity +
		c.Scores.Reproducibility*w.Reproducibility +
		c.Scores.License*w.License +
		c.Scores.Novelty*w.Novelty +
		c.Scores.Relevance*w.Relevance
}

// Priority derives the notification tier from the total score.
func (c *ScoredCandidate) Priority() string {
	total := c.TotalScore()
	switch {
	case total >= priorityHighThreshold:
		return PriorityHigh
	case total >= priorityMediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// AgeDays returns whole days since publication, or -1 when the publish
// timestamp is unknown.
func (c *RawCandidate) AgeDays(now time.Time) int {
	if c.PublishedAt == nil || c.PublishedAt.IsZero() {
		return -1
	}
	age := now.UTC().Sub(c.PublishedAt.UTC())
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}

// ClampScore bounds a dimension score to the 0-10 scale. NaN collapses to 0.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(10, math.Max(0, v))
}

// Clamp bounds every dimension in place.
func (s *DimensionScores) Clamp() {
	s.Activity = ClampScore(s.Activity)
	s.Reproducibility = ClampScore(s.Reproducibility)
	s.License = ClampScore(s.License)
	s.Novelty = ClampScore(s.Novelty)
	s.Relevance = ClampScore(s.Relevance)
}
