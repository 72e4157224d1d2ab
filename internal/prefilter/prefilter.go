package prefilter

import (
	"strings"
	"time"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
)

// Reason is the categorical outcome of one prefilter decision. Every dropped
// candidate gets exactly one reason: the first failed check in order.
type Reason string

const (
	ReasonPass               Reason = "pass"
	ReasonTitleShort         Reason = "title_short"
	ReasonAbstractShort      Reason = "abstract_short"
	ReasonInvalidURL         Reason = "invalid_url"
	ReasonInvalidSource      Reason = "invalid_source"
	ReasonKeywordRule        Reason = "keyword_rule"
	ReasonNoBenchmarkFeature Reason = "no_benchmark_feature"
	ReasonGitHubQuality      Reason = "github_quality"
	ReasonToolRepo           Reason = "tool_repo"
	ReasonAlgoPaper          Reason = "algo_paper"
	ReasonTechReport         Reason = "tech_report"
	ReasonOfftopic           Reason = "offtopic_application"
)

// Filter applies the deterministic admissibility rules to one candidate.
type Filter struct {
	rules config.PrefilterRules

	validSources   map[string]struct{}
	trustedSources map[string]struct{}
	shortExempt    map[string]struct{}
}

func New(rules config.PrefilterRules) *Filter {
	return &Filter{
		rules:          rules,
		validSources:   toSet(rules.ValidSources),
		trustedSources: toSet(rules.TrustedSources),
		shortExempt:    toSet(rules.ShortAbstractExempt),
	}
}

// Check runs the ordered rule chain. now is injected so the GitHub recency
// gate is testable.
func (f *Filter) Check(cand model.RawCandidate, now time.Time) (bool, Reason) {
	if len(strings.TrimSpace(cand.Title)) < f.rules.MinTitleLength {
		return false, ReasonTitleShort
	}

	if _, exempt := f.shortExempt[cand.Source]; !exempt {
		if len(strings.TrimSpace(cand.Abstract)) < f.rules.MinAbstractLength {
			return false, ReasonAbstractShort
		}
	}

	if !strings.HasPrefix(cand.URL, "http://") && !strings.HasPrefix(cand.URL, "https://") {
		return false, ReasonInvalidURL
	}

	if _, ok := f.validSources[cand.Source]; !ok {
		return false, ReasonInvalidSource
	}

	if !f.passesKeywordRules(cand) {
		return false, ReasonKeywordRule
	}

	// GitHub has its own, stricter feature detection below.
	if cand.Source != model.SourceGitHub && !f.hasBenchmarkCharacteristics(cand) {
		return false, ReasonNoBenchmarkFeature
	}

	if cand.Source == model.SourceGitHub {
		if !f.isQualityGitHubRepo(cand, now) {
			return false, ReasonGitHubQuality
		}
		if looksLikeToolRepo(cand) {
			return false, ReasonToolRepo
		}
	}

	if cand.Source == model.SourceArxiv {
		if looksLikeAlgoPaper(cand) {
			return false, ReasonAlgoPaper
		}
		if looksLikeTechnicalReport(cand) {
			return false, ReasonTechReport
		}
		if looksLikeOfftopicApplication(cand) {
			return false, ReasonOfftopic
		}
	}

	return true, ReasonPass
}

// passesKeywordRules applies the allow/deny keyword lists. Trusted sources
// skip the deny list but still need a positive benchmark signal.
func (f *Filter) passesKeywordRules(cand model.RawCandidate) bool {
	if _, trusted := f.trustedSources[cand.Source]; trusted {
		return f.hasPositiveSignal(cand)
	}

	text := candidateText(cand)
	for _, excluded := range f.rules.ExcludedKeywords {
		if strings.Contains(text, excluded) {
			return false
		}
	}
	for _, required := range f.rules.RequiredKeywords {
		if strings.Contains(text, required) {
			return true
		}
	}
	return false
}

func (f *Filter) hasPositiveSignal(cand model.RawCandidate) bool {
	text := candidateText(cand)
	return containsAny(text, f.rules.PositiveSignals)
}

// hasBenchmarkCharacteristics drops framework announcements and resource
// lists unless a strong benchmark signal is present alongside.
func (f *Filter) hasBenchmarkCharacteristics(cand model.RawCandidate) bool {
	text := candidateText(cand)

	if containsAny(text, nonBenchmarkPatterns) && !containsAny(text, strongSignals) {
		return false
	}
	return f.hasPositiveSignal(cand)
}

func (f *Filter) isQualityGitHubRepo(cand model.RawCandidate, now time.Time) bool {
	if cand.GitHubStars < f.rules.MinGitHubStars {
		return false
	}
	if cand.PublishedAt == nil || cand.PublishedAt.IsZero() {
		return false
	}
	if int(now.Sub(*cand.PublishedAt).Hours()/24) > f.rules.MaxDaysSinceUpdate {
		return false
	}
	// For github candidates the abstract carries the README text.
	readme := cand.Abstract
	if len(readme) < f.rules.MinReadmeLength {
		return false
	}

	titleLower := strings.ToLower(cand.Title)
	readmeLower := strings.ToLower(readme)
	if strings.Contains(titleLower, "awesome-") || strings.Contains(titleLower, "awesome ") {
		return false
	}
	if containsAny(readmeLower, curatedPatterns) {
		return false
	}
	return containsAny(readmeLower, githubBenchmarkFeatures)
}

func candidateText(cand model.RawCandidate) string {
	return strings.ToLower(cand.Title + " " + cand.Abstract)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
