package prefilter

import (
	"strings"

	"github.com/calderbuild/BenchScope/internal/model"
)

// Heuristic tables for the source-specific drop categories. Kept package
// local: unlike the tunable rule tables these encode the detection logic
// itself and change together with the code that reads them.

// strongSignals override every tool/framework suspicion: a candidate that
// names its benchmark artifact is a benchmark.
var strongSignals = []string{
	"benchmark dataset",
	"evaluation benchmark",
	"test set",
	"leaderboard",
	"benchmark suite",
	"evaluation suite",
}

var nonBenchmarkPatterns = []string{
	"framework for",
	"we propose a",
	"we implement",
	"we develop",
	"a novel system",
	"agent framework",
	"gui agent",
	"awesome",
	"curated list",
	"collection of",
	"list of tools",
	"list of resources",
	"tutorial",
	"course",
	"learning path",
	"how to",
	"robot",
	"robotics",
	"autonomous vehicle",
	"medical",
	"healthcare",
}

var toolSuffixes = []string{
	"-lib",
	"-library",
	"-client",
	"-sdk",
	"-wrapper",
	"-tool",
	"-utils",
	"-helper",
	"-connector",
	"-adapter",
	"-parser",
	"-tokenizer",
	"-splitter",
	"-package",
}

var toolDeclarationPhrases = []string{
	"this is a library",
	"this is a tool",
	"a lightweight library",
	"a simple library",
	"python sdk",
	"client library",
	"command-line tool",
	"cli tool for",
	"wrapper around",
	"bindings for",
}

var toolLikeKeywords = []string{
	"sdk",
	"toolkit",
	"library for",
	"plugin",
	"extension",
	"middleware",
	"protocol implementation",
	"mcp server",
}

var benchmarkDatasetKeywords = []string{
	"benchmark",
	"dataset",
	"evaluation",
	"leaderboard",
	"test set",
}

var algoMethodPhrases = []string{
	"we propose",
	"we present a novel",
	"we introduce a new method",
	"our approach",
	"our method",
	"a novel algorithm",
	"a new framework for",
	"improves the state of the art",
	"outperforms existing methods",
}

var technicalReportPatterns = []string{
	"technical report",
	"model card",
	"release notes",
	"introducing our",
	"announcing",
}

var modelReleaseKeywords = []string{
	"gpt",
	"llama",
	"qwen",
	"deepseek",
	"mistral",
	"gemini",
	"claude",
	"foundation model",
}

var benchmarkTitleSignals = []string{
	"benchmark",
	"bench",
	"eval",
	"leaderboard",
	"test suite",
}

var offtopicApplicationKeywords = []string{
	"medical",
	"clinical",
	"healthcare",
	"biology",
	"protein",
	"molecular",
	"chemistry",
	"drug discovery",
	"robot",
	"robotics",
	"autonomous driving",
	"autonomous vehicle",
	"education assessment",
	"financial trading",
	"legal document",
}

var coreDomainKeywords = []string{
	"code generation",
	"code completion",
	"code review",
	"multi-agent",
	"agent collaboration",
	"tool use",
	"api call",
	"function call",
	"web automation",
	"gui automation",
	"browser automation",
	"software engineering",
	"programming",
}

var curatedPatterns = []string{
	"curated list",
	"collection of",
	"list of tools",
	"awesome list",
}

var githubBenchmarkFeatures = []string{
	"benchmark",
	"evaluation",
	"test set",
	"dataset",
	"leaderboard",
	"baseline",
	"performance",
	"comparison",
	"vs",
	"versus",
	"testing",
	"test suite",
	"test framework",
	"ranking",
	"rating",
	"score",
}

// looksLikeToolRepo flags SDK/tooling repos misfiled as benchmarks. Any
// strong benchmark signal wins, so "Tokenizer Benchmark Suite" survives a
// tool-looking title.
func looksLikeToolRepo(cand model.RawCandidate) bool {
	text := candidateText(cand)
	if containsAny(text, strongSignals) {
		return false
	}

	if hasToolSuffix(cand.Title) {
		return true
	}
	if containsAny(text, toolDeclarationPhrases) {
		return true
	}
	return containsAny(text, toolLikeKeywords) && !containsAny(text, benchmarkDatasetKeywords)
}

func hasToolSuffix(title string) bool {
	normalized := strings.ToLower(title)
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")
	for _, suffix := range toolSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return true
		}
	}
	return false
}

// looksLikeAlgoPaper catches method papers that mention no benchmark
// artifact. Benchmark methodology papers carry dataset keywords and pass.
func looksLikeAlgoPaper(cand model.RawCandidate) bool {
	text := candidateText(cand)
	return containsAny(text, algoMethodPhrases) && !containsAny(text, benchmarkDatasetKeywords)
}

func looksLikeTechnicalReport(cand model.RawCandidate) bool {
	titleLower := strings.ToLower(cand.Title)

	if containsAny(titleLower, benchmarkTitleSignals) {
		return false
	}
	if containsAny(titleLower, technicalReportPatterns) {
		return true
	}
	return containsAny(titleLower, modelReleaseKeywords) && strings.Contains(titleLower, "technical report")
}

// looksLikeOfftopicApplication drops application-domain papers with no
// overlap with the curated engineering domains.
func looksLikeOfftopicApplication(cand model.RawCandidate) bool {
	text := candidateText(cand)
	if !containsAny(text, offtopicApplicationKeywords) {
		return false
	}
	return !containsAny(text, coreDomainKeywords)
}
