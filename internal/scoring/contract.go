package scoring

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
	scoreschema "github.com/calderbuild/BenchScope/schema"
)

// ErrStructural marks a response the repair loop must not retry: wrong
// shape, not JSON, missing required fields. Only length deficits are
// repairable.
var ErrStructural = errors.New("structural contract violation")

// Deficit describes one reasoning field that came back too short.
type Deficit struct {
	Field string
	Got   int
	Want  int
}

func (d Deficit) String() string {
	return fmt.Sprintf("%s: %d chars, need at least %d", d.Field, d.Got, d.Want)
}

// ParseResponse validates a raw model completion against the scoring
// contract. It strips markdown code fences, enforces the embedded schema,
// and clamps every score to 0-10. Length deficits are returned separately
// so the caller can attempt repair.
func ParseResponse(content string, rules config.ScoringRules, backendRequired bool) (*scoreschema.ScoreResponse, []Deficit, error) {
	payload := stripCodeFence(content)
	if payload == "" {
		return nil, nil, fmt.Errorf("%w: empty completion", ErrStructural)
	}

	resp, err := scoreschema.ValidateScorePayload([]byte(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}

	if backendRequired && (resp.BackendRelevance == nil || resp.BackendEngineering == nil) {
		return nil, nil, fmt.Errorf("%w: backend scores are required for this candidate", ErrStructural)
	}

	resp.ActivityScore = model.ClampScore(resp.ActivityScore)
	resp.ReproducibilityScore = model.ClampScore(resp.ReproducibilityScore)
	resp.LicenseScore = model.ClampScore(resp.LicenseScore)
	resp.NoveltyScore = model.ClampScore(resp.NoveltyScore)
	resp.RelevanceScore = model.ClampScore(resp.RelevanceScore)
	if resp.BackendRelevance != nil {
		clamped := model.ClampScore(*resp.BackendRelevance)
		resp.BackendRelevance = &clamped
	}
	if resp.BackendEngineering != nil {
		clamped := model.ClampScore(*resp.BackendEngineering)
		resp.BackendEngineering = &clamped
	}

	return resp, lengthDeficits(resp, rules), nil
}

// lengthDeficits collects every reasoning field below its minimum. Backend
// reasonings are only held to the floor when the paired score is nonzero.
func lengthDeficits(resp *scoreschema.ScoreResponse, rules config.ScoringRules) []Deficit {
	var deficits []Deficit

	check := func(field, value string, min int) {
		got := len([]rune(strings.TrimSpace(value)))
		if got < min {
			deficits = append(deficits, Deficit{Field: field, Got: got, Want: min})
		}
	}

	check("activity_reasoning", resp.ActivityReasoning, rules.ReasoningMinChars)
	check("reproducibility_reasoning", resp.ReproducibilityReasoning, rules.ReasoningMinChars)
	check("license_reasoning", resp.LicenseReasoning, rules.ReasoningMinChars)
	check("novelty_reasoning", resp.NoveltyReasoning, rules.ReasoningMinChars)
	check("relevance_reasoning", resp.RelevanceReasoning, rules.ReasoningMinChars)
	check("overall_reasoning", resp.OverallReasoning, rules.OverallReasoningMinChars)

	if resp.BackendRelevance != nil && *resp.BackendRelevance != 0 {
		check("backend_relevance_reasoning", resp.BackendRelevanceReasoning, rules.BackendReasoningMinChars)
	}
	if resp.BackendEngineering != nil && *resp.BackendEngineering != 0 {
		check("backend_engineering_reasoning", resp.BackendEngineeringReasoning, rules.BackendReasoningMinChars)
	}

	return deficits
}

// stripCodeFence removes a surrounding markdown fence so models that wrap
// their JSON in ```json blocks still parse.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var datasetSizePattern = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*([km])?`)

// ParseDatasetSize converts a free-text size like "500k samples" or
// "1.2M tasks" into an item count. Unparseable input returns 0.
func ParseDatasetSize(raw string) int64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}

	m := datasetSizePattern.FindStringSubmatch(trimmed)
	if m == nil || m[1] == "" {
		return 0
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		value *= 1_000
	case "m":
		value *= 1_000_000
	}
	return int64(value)
}

// Apply copies a validated response onto a candidate, filling sentinels for
// absent extraction fields.
func Apply(cand model.RawCandidate, resp *scoreschema.ScoreResponse) model.ScoredCandidate {
	scored := model.ScoredCandidate{
		RawCandidate: cand,
		Scores: model.DimensionScores{
			Activity:        resp.ActivityScore,
			Reproducibility: resp.ReproducibilityScore,
			License:         resp.LicenseScore,
			Novelty:         resp.NoveltyScore,
			Relevance:       resp.RelevanceScore,
		},
		ActivityReasoning:        resp.ActivityReasoning,
		ReproducibilityReasoning: resp.ReproducibilityReasoning,
		LicenseReasoning:         resp.LicenseReasoning,
		NoveltyReasoning:         resp.NoveltyReasoning,
		RelevanceReasoning:       resp.RelevanceReasoning,
		OverallReasoning:         resp.OverallReasoning,

		TaskDomain:      strings.TrimSpace(resp.TaskDomain),
		Metrics:         resp.Metrics,
		Baselines:       resp.Baselines,
		Institution:     strings.TrimSpace(resp.Institution),
		DatasetSize:     ParseDatasetSize(resp.DatasetSize),
		DatasetSizeDesc: strings.TrimSpace(resp.DatasetSize),
	}

	if resp.BackendRelevance != nil {
		scored.BackendRelevance = *resp.BackendRelevance
		scored.BackendRelevanceReasoning = resp.BackendRelevanceReasoning
	}
	if resp.BackendEngineering != nil {
		scored.BackendEngineering = *resp.BackendEngineering
		scored.BackendEngineeringReasoning = resp.BackendEngineeringReasoning
	}

	if scored.TaskDomain == "" {
		scored.TaskDomain = "Other"
	}
	if scored.Institution == "" {
		scored.Institution = model.SentinelUnknown
	}
	if scored.DatasetSizeDesc == "" {
		scored.DatasetSizeDesc = model.SentinelNotSpecified
	}

	return scored
}
