package prefilter

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func newTestFilter() *Filter {
	return New(config.DefaultCuration().Prefilter)
}

func ptrTime(t time.Time) *time.Time { return &t }

func goodGitHubCandidate() model.RawCandidate {
	return model.RawCandidate{
		Title:       "agentic-coding-benchmark",
		URL:         "https://github.com/org/agentic-coding-benchmark",
		Source:      model.SourceGitHub,
		Abstract:    strings.Repeat("A benchmark suite for evaluating coding agents with a public leaderboard and baseline comparison. ", 6),
		GitHubStars: 250,
		PublishedAt: ptrTime(testNow.AddDate(0, 0, -10)),
	}
}

func goodArxivCandidate() model.RawCandidate {
	return model.RawCandidate{
		Title:    "SWE-Verify: A Benchmark for Repository-Level Program Repair",
		URL:      "https://arxiv.org/abs/2406.01234",
		Source:   model.SourceArxiv,
		Abstract: "We release a benchmark dataset of 500 real repository issues with an evaluation harness and leaderboard for coding agents.",
	}
}

func TestCheckOrderedReasons(t *testing.T) {
	t.Parallel()

	f := newTestFilter()

	cases := []struct {
		name   string
		mutate func(*model.RawCandidate)
		want   Reason
	}{
		{
			name:   "short title",
			mutate: func(c *model.RawCandidate) { c.Title = "Bench" },
			want:   ReasonTitleShort,
		},
		{
			name: "short abstract",
			mutate: func(c *model.RawCandidate) {
				c.Source = model.SourceArxiv
				c.Abstract = "too short"
			},
			want: ReasonAbstractShort,
		},
		{
			name:   "invalid url",
			mutate: func(c *model.RawCandidate) { c.URL = "ftp://example.com/x" },
			want:   ReasonInvalidURL,
		},
		{
			name:   "unknown source",
			mutate: func(c *model.RawCandidate) { c.Source = "rss" },
			want:   ReasonInvalidSource,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cand := goodGitHubCandidate()
			tc.mutate(&cand)
			passed, reason := f.Check(cand, testNow)
			if passed {
				t.Fatalf("expected drop, got pass")
			}
			if reason != tc.want {
				t.Fatalf("reason = %s, want %s", reason, tc.want)
			}
		})
	}
}

func TestCheckShortAbstractExemption(t *testing.T) {
	t.Parallel()

	f := newTestFilter()
	cand := model.RawCandidate{
		Title:    "helm-capabilities-leaderboard",
		URL:      "https://crfm.stanford.edu/helm/capabilities",
		Source:   model.SourceHelm,
		Abstract: "Benchmark run.",
	}
	passed, reason := f.Check(cand, testNow)
	if !passed {
		t.Fatalf("helm short abstract should be exempt, dropped with %s", reason)
	}
}

func TestCheckTrustedSourceNeedsPositiveSignal(t *testing.T) {
	t.Parallel()

	f := newTestFilter()

	cand := goodArxivCandidate()
	cand.Title = "A Survey of Transformer Architectures in Production"
	cand.Abstract = "This survey reviews transformer architecture choices across industrial deployments with extensive citations."
	passed, reason := f.Check(cand, testNow)
	if passed {
		t.Fatalf("trusted source without positive signal should drop")
	}
	if reason != ReasonKeywordRule {
		t.Fatalf("reason = %s, want %s", reason, ReasonKeywordRule)
	}

	// The deny list does not apply to trusted sources.
	cand = goodArxivCandidate()
	cand.Abstract += " Includes machine translation subtask."
	passed, _ = f.Check(cand, testNow)
	if !passed {
		t.Fatalf("trusted source with positive signal should pass despite deny keyword")
	}
}

func TestCheckGitHubQualityGates(t *testing.T) {
	t.Parallel()

	f := newTestFilter()

	cases := []struct {
		name   string
		mutate func(*model.RawCandidate)
	}{
		{"too few stars", func(c *model.RawCandidate) { c.GitHubStars = 9 }},
		{"stale repo", func(c *model.RawCandidate) { c.PublishedAt = ptrTime(testNow.AddDate(0, 0, -91)) }},
		{"no update timestamp", func(c *model.RawCandidate) { c.PublishedAt = nil }},
		{"short readme", func(c *model.RawCandidate) {
			c.Abstract = "A benchmark for evaluation with dataset and leaderboard."
		}},
		{"awesome list title", func(c *model.RawCandidate) { c.Title = "awesome-llm-benchmark-links" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cand := goodGitHubCandidate()
			tc.mutate(&cand)
			passed, reason := f.Check(cand, testNow)
			if passed {
				t.Fatalf("expected github_quality drop")
			}
			if reason != ReasonGitHubQuality {
				t.Fatalf("reason = %s, want %s", reason, ReasonGitHubQuality)
			}
		})
	}

	passed, reason := f.Check(goodGitHubCandidate(), testNow)
	if !passed {
		t.Fatalf("quality repo should pass, dropped with %s", reason)
	}
}

func TestCheckToolRepoDetection(t *testing.T) {
	t.Parallel()

	f := newTestFilter()

	cand := goodGitHubCandidate()
	cand.Title = "fastjson-tokenizer"
	cand.Abstract = strings.Repeat("A high performance tokenizer for json parsing with testing and score comparison utilities. ", 7)
	passed, reason := f.Check(cand, testNow)
	if passed || reason != ReasonToolRepo {
		t.Fatalf("tool suffix repo: passed=%v reason=%s, want tool_repo", passed, reason)
	}

	// Strong benchmark signal overrides the tool-looking title.
	cand.Abstract = strings.Repeat("An evaluation benchmark comparing tokenizer throughput with a public leaderboard and baseline scores. ", 6)
	passed, reason = f.Check(cand, testNow)
	if !passed {
		t.Fatalf("strong signal should override tool suffix, dropped with %s", reason)
	}
}

func TestCheckArxivHeuristics(t *testing.T) {
	t.Parallel()

	f := newTestFilter()

	algo := goodArxivCandidate()
	algo.Title = "Efficient Sparse Attention for Long-Context Code Models"
	algo.Abstract = "Our approach to sparse attention outperforms existing methods on long-context coding tasks."
	passed, reason := f.Check(algo, testNow)
	if passed || reason != ReasonAlgoPaper {
		t.Fatalf("algo paper: passed=%v reason=%s, want algo_paper", passed, reason)
	}

	report := goodArxivCandidate()
	report.Title = "Qwen3-Coder Technical Report"
	report.Abstract = "We describe the training of our coding model with evaluation results on public benchmark suites and agent workflows."
	passed, reason = f.Check(report, testNow)
	if passed || reason != ReasonTechReport {
		t.Fatalf("tech report: passed=%v reason=%s, want tech_report", passed, reason)
	}

	offtopic := goodArxivCandidate()
	offtopic.Title = "MedBoard: A Benchmark for Clinical Workflow Records"
	offtopic.Abstract = "A benchmark dataset for evaluating models on clinical healthcare record processing with a leaderboard."
	passed, reason = f.Check(offtopic, testNow)
	if passed || reason != ReasonOfftopic {
		t.Fatalf("offtopic: passed=%v reason=%s, want offtopic_application", passed, reason)
	}

	// Offtopic keyword with a core-domain anchor survives.
	anchored := goodArxivCandidate()
	anchored.Abstract += " Applies code generation agents in healthcare tooling with a benchmark dataset."
	passed, reason = f.Check(anchored, testNow)
	if !passed {
		t.Fatalf("core-domain anchor should pass, dropped with %s", reason)
	}
}

func TestFilterBatchCounters(t *testing.T) {
	t.Parallel()

	f := newTestFilter()

	short := goodArxivCandidate()
	short.Title = "Tiny"

	res := f.FilterBatch([]model.RawCandidate{
		goodArxivCandidate(),
		goodGitHubCandidate(),
		short,
	}, testNow, zerolog.Nop())

	if len(res.Kept) != 2 {
		t.Fatalf("kept %d, want 2", len(res.Kept))
	}
	if res.ByReason[ReasonPass] != 2 || res.ByReason[ReasonTitleShort] != 1 {
		t.Fatalf("reason counters wrong: %v", res.ByReason)
	}
	arxivStat := res.BySource[model.SourceArxiv]
	if arxivStat.Input != 2 || arxivStat.Output != 1 {
		t.Fatalf("arxiv stat = %+v, want 2/1", arxivStat)
	}
}
