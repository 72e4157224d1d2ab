package scoring

import (
	"fmt"
	"strings"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
)

const systemPrompt = `You are an AI benchmark review expert. You strictly identify and evaluate genuine benchmark projects.

A genuine benchmark satisfies all four of the following:
1. A clearly defined evaluation task (code generation, QA, reasoning, agent planning, ...)
2. A standardized test dataset (a real test/eval set, not demo data)
3. Explicit evaluation metrics (Accuracy, F1, Pass@k, Success Rate, latency percentiles, ...)
4. Baseline results (reported performance of reference systems)

The following are NOT benchmarks and must be scored accordingly:
- Awesome lists, curated collections, resource roundups
- Tools, libraries, frameworks (agent frameworks, API wrappers, toolkits)
- Tutorials, courses, learning material
- Demo or example projects without standardized evaluation
- Bare datasets with no evaluation task or metrics

Relevance scoring targets multi-agent collaboration, code generation and
understanding, tool calling and task automation, and backend engineering
workloads:
- Benchmarks that directly evaluate multi-agent systems: 9-10
- Code generation or understanding benchmarks: 7-9
- Task planning or tool-use benchmarks: 6-8
- Agent reasoning or decision benchmarks: 6-8
- General AI capability benchmarks: 3-5
- Unrelated-domain benchmarks: 0-2
- Anything that is not a benchmark: relevance at most 2, regardless of popularity.

Always state explicitly in the reasoning whether the candidate is a genuine
benchmark, and which of the four required elements are missing when it is not.
Respond with a single JSON object and nothing else.`

// BuildScorePrompt renders the user turn for one candidate.
func BuildScorePrompt(cand model.RawCandidate, rules config.ScoringRules, backendRequired bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Score the following AI benchmark candidate on a 0-10 scale (one decimal allowed).\n\n")
	fmt.Fprintf(&b, "Candidate:\n")
	fmt.Fprintf(&b, "- Title: %s\n", cand.Title)
	fmt.Fprintf(&b, "- Source: %s\n", cand.Source)
	fmt.Fprintf(&b, "- URL: %s\n", cand.URL)
	fmt.Fprintf(&b, "- Abstract: %s\n", truncate(abstractOrNA(cand), rules.MaxAbstractChars))

	if cand.GitHubURL != "" {
		fmt.Fprintf(&b, "- GitHub: %s\n", cand.GitHubURL)
		if cand.GitHubStars > 0 {
			fmt.Fprintf(&b, "- GitHub stars: %d\n", cand.GitHubStars)
		}
	}
	if cand.DatasetURL != "" {
		fmt.Fprintf(&b, "- Dataset: %s\n", cand.DatasetURL)
	}
	if cand.TaskType != "" {
		fmt.Fprintf(&b, "- Task type: %s\n", cand.TaskType)
	}
	if cand.LicenseType != "" {
		fmt.Fprintf(&b, "- License: %s\n", cand.LicenseType)
	}
	if cand.Language != "" {
		fmt.Fprintf(&b, "- Abstract language: %s\n", cand.Language)
	}

	fmt.Fprintf(&b, `
First decide: is this a genuine benchmark (evaluation task + test set + metrics + baseline results)? If not, relevance_score must be at most 2.

Dimensions:
1. activity_score: repository stars and recent maintenance
2. reproducibility_score: openness of code, data, and documentation
3. license_score: MIT/Apache/BSD score high; unknown or proprietary score low
4. novelty_score: whether the benchmark or methodology is genuinely new
5. relevance_score: fit with multi-agent, coding, tool-use, and backend scenarios

Each of the five *_reasoning fields must cite concrete facts (exact star
counts, dataset sizes, metric names) and contain at least %d characters.
overall_reasoning summarizes the verdict in at least %d characters.
`, rules.ReasoningMinChars, rules.OverallReasoningMinChars)

	if backendRequired {
		fmt.Fprintf(&b, `
This candidate is a backend performance benchmark. Additionally return
backend_relevance and backend_engineering (0-10) with
backend_relevance_reasoning and backend_engineering_reasoning of at least %d
characters each, covering latency/throughput coverage, workload realism, and
engineering value.
`, rules.BackendReasoningMinChars)
	}

	fmt.Fprintf(&b, `
Also extract: task_domain (one of Coding, WebDev, Backend, GUI, ToolUse,
Collaboration, LLM/AgentOps, Reasoning, DeepResearch, Other), metrics (up to
5), baselines (up to 5), institution, dataset_size (e.g. "500", "12k", "1.2M").

Return one JSON object with exactly these fields:
activity_score, reproducibility_score, license_score, novelty_score,
relevance_score, activity_reasoning, reproducibility_reasoning,
license_reasoning, novelty_reasoning, relevance_reasoning, overall_reasoning,
task_domain, metrics, baselines, institution, dataset_size`)
	if backendRequired {
		b.WriteString(`,
backend_relevance, backend_relevance_reasoning, backend_engineering,
backend_engineering_reasoning`)
	}
	b.WriteString(".\n")

	return b.String()
}

// BuildRepairPrompt asks the model to re-emit the full object with the named
// reasoning fields expanded. Scores must not change across repair turns.
func BuildRepairPrompt(deficits []Deficit) string {
	var b strings.Builder
	b.WriteString("Your previous response is valid JSON but some reasoning fields are too short:\n")
	for _, d := range deficits {
		fmt.Fprintf(&b, "- %s\n", d.String())
	}
	b.WriteString(`
Re-emit the complete JSON object. Keep every score exactly as before and keep
all fields that already satisfy their minimum. Expand only the listed fields
with additional concrete detail until each meets its minimum length.
Respond with the JSON object only.`)
	return b.String()
}

// BackendRequired reports whether the backend specialist pair is mandatory
// for a candidate's source.
func BackendRequired(cand model.RawCandidate) bool {
	return cand.Source == model.SourceTechEmpower || cand.Source == model.SourceDBEngines
}

func abstractOrNA(cand model.RawCandidate) string {
	if strings.TrimSpace(cand.Abstract) == "" {
		return "N/A"
	}
	return cand.Abstract
}

func truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
