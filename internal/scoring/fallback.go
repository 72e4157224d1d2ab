package scoring

import (
	"fmt"
	"strings"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
	scoreschema "github.com/calderbuild/BenchScope/schema"
)

const fallbackDisclaimer = "Rule-based fallback score: the scoring model was unavailable or returned an unusable response, so this assessment is derived from structural signals only and should be treated as a conservative placeholder until a model-backed rescore runs."

// FallbackScore derives a conservative rule-based response when the model
// path is exhausted. The generated reasonings satisfy the length contract so
// downstream consumers never special-case fallback rows.
func FallbackScore(cand model.RawCandidate, rules config.ScoringRules) *scoreschema.ScoreResponse {
	activity := 5.0
	switch {
	case cand.GitHubStars >= 1000:
		activity = 9.0
	case cand.GitHubStars >= 500:
		activity = 7.5
	case cand.GitHubStars >= 100:
		activity = 6.0
	}

	reproducibility := 3.0
	if cand.GitHubURL != "" {
		reproducibility += 3.0
	}
	if cand.DatasetURL != "" {
		reproducibility += 3.0
	}
	reproducibility = model.ClampScore(reproducibility)

	activityReason := pad(fmt.Sprintf(
		"%s Activity was set to %.1f from the star tiers: the repository reports %d stars, and no commit recency or contributor data was inspected.",
		fallbackDisclaimer, activity, cand.GitHubStars,
	), rules.ReasoningMinChars)

	reproReason := pad(fmt.Sprintf(
		"%s Reproducibility starts at 3.0, plus 3.0 when a code repository link is present (%s) and 3.0 when a dataset link is present (%s), capped at 10.",
		fallbackDisclaimer, presence(cand.GitHubURL), presence(cand.DatasetURL),
	), rules.ReasoningMinChars)

	neutralReason := func(dimension string) string {
		return pad(fmt.Sprintf(
			"%s The %s dimension defaults to the neutral midpoint of 5.0 because rule-based scoring has no reliable signal for it.",
			fallbackDisclaimer, dimension,
		), rules.ReasoningMinChars)
	}

	resp := &scoreschema.ScoreResponse{
		ActivityScore:        activity,
		ReproducibilityScore: reproducibility,
		LicenseScore:         5.0,
		NoveltyScore:         5.0,
		RelevanceScore:       5.0,

		ActivityReasoning:        activityReason,
		ReproducibilityReasoning: reproReason,
		LicenseReasoning:         neutralReason("license"),
		NoveltyReasoning:         neutralReason("novelty"),
		RelevanceReasoning:       neutralReason("relevance"),
		OverallReasoning:         pad(fallbackDisclaimer, rules.OverallReasoningMinChars),

		TaskDomain:  "Other",
		Institution: model.SentinelUnknown,
	}

	if BackendRequired(cand) {
		zeroRel, zeroEng := 0.0, 0.0
		resp.BackendRelevance = &zeroRel
		resp.BackendEngineering = &zeroEng
	}

	return resp
}

// pad extends text to the minimum rune count. The filler repeats the source
// disclaimer so the text stays honest about its origin.
func pad(text string, min int) string {
	for len([]rune(text)) < min {
		text += " " + fallbackDisclaimer
	}
	return text
}

func presence(link string) string {
	if strings.TrimSpace(link) == "" {
		return "absent"
	}
	return "present"
}
