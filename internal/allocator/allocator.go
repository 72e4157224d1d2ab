package allocator

import (
	"sort"
	"time"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
)

// Tier labels for planned items.
const (
	TierHigh   = "high"
	TierMedium = "medium"
)

// Promotion records why a sub-threshold candidate was still included.
const (
	PromotionNone           = ""
	PromotionSourceFloor    = "source_floor"
	PromotionFastPath       = "fast_path"
	PromotionTopK           = "top_k"
	PromotionDomainBackfill = "domain_backfill"
)

// DropReason is the categorical outcome for excluded candidates.
type DropReason string

const (
	DropStale          DropReason = "stale"
	DropBelowThreshold DropReason = "below_threshold"
	DropGlobalCap      DropReason = "global_cap"
)

// Item is one planned push. EffectiveScore includes the freshness boost and
// drives tiering; the stored candidate keeps its unboosted scores.
type Item struct {
	Candidate      model.ScoredCandidate
	BaseScore      float64
	Boost          float64
	EffectiveScore float64
	Tier           string
	Promotion      string
	AgeDays        int
}

// Dropped pairs an excluded candidate with its reason.
type Dropped struct {
	Candidate model.ScoredCandidate
	Reason    DropReason
}

// Stats summarizes one plan for the run report.
type Stats struct {
	Input     int            `json:"input"`
	High      int            `json:"high"`
	Medium    int            `json:"medium"`
	Dropped   int            `json:"dropped"`
	PerSource map[string]int `json:"per_source"`
	// Histogram buckets the effective scores of selected items: [0-2),
	// [2-4), [4-6), [6-8), [8-10].
	Histogram [5]int `json:"histogram"`
}

// Plan is the deterministic output of one allocation pass.
type Plan struct {
	High    []Item
	Medium  []Item
	Dropped []Dropped
	Stats   Stats
}

// Build runs the full allocation policy over scored candidates. It is a
// pure function of its inputs: same candidates, rules, and clock always
// produce the same plan.
func Build(cands []model.ScoredCandidate, rules config.AllocatorRules, now time.Time) Plan {
	plan := Plan{Stats: Stats{Input: len(cands), PerSource: make(map[string]int)}}

	items := make([]Item, 0, len(cands))
	for _, cand := range cands {
		age := cand.AgeDays(now)
		base := cand.TotalScore()

		if age > rules.MaxAgeDays && base < rules.AgeExceptionBar {
			plan.Dropped = append(plan.Dropped, Dropped{Candidate: cand, Reason: DropStale})
			continue
		}

		boost := freshnessBoost(age, rules)
		effective := base + boost
		if effective > 10 {
			effective = 10
		}

		items = append(items, Item{
			Candidate:      cand,
			BaseScore:      base,
			Boost:          boost,
			EffectiveScore: effective,
			AgeDays:        age,
		})
	}

	selected, rest := tierAndPromote(items, rules)
	selected, rest = guaranteeTopK(selected, rest, rules)
	selected, rest = backfillDomains(selected, rest, rules)

	for i := range rest {
		plan.Dropped = append(plan.Dropped, Dropped{Candidate: rest[i].Candidate, Reason: DropBelowThreshold})
	}

	sortItems(selected)
	selected, capped := applyGlobalCap(selected, rules.GlobalCap)
	for i := range capped {
		plan.Dropped = append(plan.Dropped, Dropped{Candidate: capped[i].Candidate, Reason: DropGlobalCap})
	}

	for _, item := range selected {
		if item.Tier == TierHigh {
			plan.High = append(plan.High, item)
		} else {
			plan.Medium = append(plan.Medium, item)
		}
		plan.Stats.PerSource[item.Candidate.Source]++
		plan.Stats.Histogram[histogramBucket(item.EffectiveScore)]++
	}
	plan.Stats.High = len(plan.High)
	plan.Stats.Medium = len(plan.Medium)
	plan.Stats.Dropped = len(plan.Dropped)

	return plan
}

func freshnessBoost(ageDays int, rules config.AllocatorRules) float64 {
	switch {
	case ageDays < 0:
		return 0
	case ageDays <= 3:
		return rules.FreshBoost3Days
	case ageDays <= 7:
		return rules.FreshBoost7Days
	default:
		return 0
	}
}

// tierAndPromote splits items into the selected set (tiered high/medium,
// including per-source floor and fast-path promotions) and the remainder.
func tierAndPromote(items []Item, rules config.AllocatorRules) (selected, rest []Item) {
	for _, item := range items {
		switch {
		case item.EffectiveScore >= rules.HighThreshold:
			item.Tier = TierHigh
			selected = append(selected, item)

		case item.EffectiveScore >= rules.MediumThreshold:
			item.Tier = TierMedium
			selected = append(selected, item)

		case isFastPath(item, rules):
			item.Tier = TierMedium
			item.Promotion = PromotionFastPath
			selected = append(selected, item)

		case clearsSourceFloor(item, rules):
			item.Tier = TierMedium
			item.Promotion = PromotionSourceFloor
			selected = append(selected, item)

		default:
			rest = append(rest, item)
		}
	}
	return selected, rest
}

func isFastPath(item Item, rules config.AllocatorRules) bool {
	if item.AgeDays < 0 || item.AgeDays > rules.FastPathMaxAgeDays {
		return false
	}
	if item.Candidate.Scores.Relevance < rules.FastPathMinRelevance {
		return false
	}
	for _, source := range rules.FastPathSources {
		if item.Candidate.Source == source {
			return true
		}
	}
	return false
}

func clearsSourceFloor(item Item, rules config.AllocatorRules) bool {
	floor, ok := rules.SourceFloors[item.Candidate.Source]
	if !ok || item.EffectiveScore < floor {
		return false
	}
	if relFloor, ok := rules.RelevanceFloors[item.Candidate.Source]; ok {
		if item.Candidate.Scores.Relevance < relFloor {
			return false
		}
	}
	return true
}

// guaranteeTopK promotes each source's best remaining items until the
// source holds at least K selected entries. The guarantee deliberately
// overrides the score floors: a quiet source still gets representation.
func guaranteeTopK(selected, rest []Item, rules config.AllocatorRules) ([]Item, []Item) {
	if rules.PerSourceTopK <= 0 {
		return selected, rest
	}

	bySource := make(map[string]int)
	for _, item := range selected {
		bySource[item.Candidate.Source]++
	}

	sortItems(rest)

	var remaining []Item
	for _, item := range rest {
		source := item.Candidate.Source
		if bySource[source] < rules.PerSourceTopK {
			item.Tier = TierMedium
			item.Promotion = PromotionTopK
			selected = append(selected, item)
			bySource[source]++
			continue
		}
		remaining = append(remaining, item)
	}
	return selected, remaining
}

// backfillDomains promotes one candidate per unrepresented priority domain.
// The score floor is waived when nothing was selected at all, so an
// all-quiet run still surfaces its best available coverage.
func backfillDomains(selected, rest []Item, rules config.AllocatorRules) ([]Item, []Item) {
	if len(rules.PriorityDomains) == 0 || len(rest) == 0 {
		return selected, rest
	}

	floor := rules.BackfillScoreFloor
	if len(selected) == 0 {
		floor = 0
	}

	covered := make(map[string]bool)
	for _, item := range selected {
		covered[item.Candidate.TaskDomain] = true
	}

	sortItems(rest)

	taken := make(map[int]bool)
	for _, domain := range rules.PriorityDomains {
		if covered[domain] {
			continue
		}
		for i, item := range rest {
			if taken[i] || item.Candidate.TaskDomain != domain || item.EffectiveScore < floor {
				continue
			}
			item.Tier = TierMedium
			item.Promotion = PromotionDomainBackfill
			selected = append(selected, item)
			covered[domain] = true
			taken[i] = true
			break
		}
	}

	var remaining []Item
	for i, item := range rest {
		if !taken[i] {
			remaining = append(remaining, item)
		}
	}
	return selected, remaining
}

// sortItems orders by recency first, then score, then URL as the stable
// tiebreak. Unknown ages sort last.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := normalizeAge(items[i].AgeDays), normalizeAge(items[j].AgeDays)
		if ai != aj {
			return ai < aj
		}
		if items[i].EffectiveScore != items[j].EffectiveScore {
			return items[i].EffectiveScore > items[j].EffectiveScore
		}
		return items[i].Candidate.URL < items[j].Candidate.URL
	})
}

func normalizeAge(age int) int {
	if age < 0 {
		return int(^uint(0) >> 1)
	}
	return age
}

func applyGlobalCap(selected []Item, limit int) (kept, over []Item) {
	if limit <= 0 || len(selected) <= limit {
		return selected, nil
	}

	// High-tier items survive the cap ahead of medium regardless of the
	// recency ordering.
	var high, medium []Item
	for _, item := range selected {
		if item.Tier == TierHigh {
			high = append(high, item)
		} else {
			medium = append(medium, item)
		}
	}

	combined := append(high, medium...)
	kept = combined[:limit]
	over = combined[limit:]
	sortItems(kept)
	return kept, over
}

func histogramBucket(score float64) int {
	switch {
	case score < 2:
		return 0
	case score < 4:
		return 1
	case score < 6:
		return 2
	case score < 8:
		return 3
	default:
		return 4
	}
}
