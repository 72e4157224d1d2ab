package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/allocator"
	"github.com/calderbuild/BenchScope/internal/globaltime"
)

const (
	webhookTimeout = 10 * time.Second
	paceInterval   = 600 * time.Millisecond

	mediumSummaryTopK = 5

	titleMaxMedium  = 60
	titleMaxCard    = 150
	reasoningMaxLen = 1500

	qualityExcellent = 8.0
	qualityGood      = 7.0
	qualityPass      = 6.5
)

// sourceDisplayNames maps source tags to their presentation names.
var sourceDisplayNames = map[string]string{
	"arxiv":            "arXiv",
	"github":           "GitHub",
	"huggingface":      "HuggingFace",
	"semantic_scholar": "Semantic Scholar",
	"helm":             "HELM",
	"techempower":      "TechEmpower",
	"dbengines":        "DB-Engines",
	"twitter":          "Twitter",
}

// SourceDisplayName returns the presentation name for a source tag,
// falling back to a title-cased tag for unknown sources.
func SourceDisplayName(source string) string {
	if source == "" {
		return "Unknown"
	}
	if name, ok := sourceDisplayNames[strings.ToLower(source)]; ok {
		return name
	}
	return strings.ToUpper(source[:1]) + strings.ToLower(source[1:])
}

// Config carries the webhook channel settings.
type Config struct {
	WebhookURL    string
	WebhookSecret string
	TableURL      string
}

// Notifier posts allocation results to an interactive-card webhook:
// one card per high-tier item, a grouped medium summary, and a run
// summary card. Posts are paced to respect the channel rate limit.
type Notifier struct {
	cfg    Config
	client *http.Client
	pace   time.Duration
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: webhookTimeout},
		pace:   paceInterval,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// NotifyPlan pushes the plan to the webhook. A missing webhook URL or an
// empty plan is a logged no-op, never an error.
func (n *Notifier) NotifyPlan(ctx context.Context, plan allocator.Plan) error {
	if n.cfg.WebhookURL == "" {
		n.logger.Warn().Msg("no webhook configured, skipping notification")
		return nil
	}

	high := itemsWithURL(plan.High)
	medium := itemsWithURL(plan.Medium)
	if len(high)+len(medium) == 0 {
		n.logger.Info().Msg("nothing selected, skipping notification")
		return nil
	}

	for _, item := range high {
		if err := n.send(ctx, n.buildCandidateCard("High-quality benchmark candidate", item)); err != nil {
			return fmt.Errorf("push high-tier card %q: %w", item.Candidate.URL, err)
		}
		if err := n.sleep(ctx); err != nil {
			return err
		}
	}

	if len(medium) > 0 {
		if err := n.send(ctx, n.buildMediumSummary(medium)); err != nil {
			return fmt.Errorf("push medium summary: %w", err)
		}
		if err := n.sleep(ctx); err != nil {
			return err
		}
	}

	if err := n.send(ctx, n.buildRunSummary(plan, high, medium)); err != nil {
		return fmt.Errorf("push run summary: %w", err)
	}

	n.logger.Info().
		Int("high_cards", len(high)).
		Int("medium_summarized", len(medium)).
		Msg("notification push complete")
	return nil
}

// SendText posts a plain text message, used by operational commands.
func (n *Notifier) SendText(ctx context.Context, message string) error {
	if n.cfg.WebhookURL == "" {
		n.logger.Warn().Msg("no webhook configured, skipping notification")
		return nil
	}
	return n.send(ctx, textPayload(message))
}

func itemsWithURL(items []allocator.Item) []allocator.Item {
	kept := items[:0:0]
	for _, item := range items {
		if item.Candidate.URL == "" {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func (n *Notifier) buildCandidateCard(title string, item allocator.Item) payload {
	cand := item.Candidate

	detail := fmt.Sprintf(
		"Total score: **%.1f** / 10  |  Tier: **%s**\n\n"+
			"**Dimensions**\n"+
			"Activity %.1f  |  Reproducibility %.1f  |  License %.1f  |  Novelty %.1f  |  Relevance %.1f\n\n"+
			"**Source**: %s\n\n"+
			"**Reasoning**\n%s",
		item.EffectiveScore, item.Tier,
		cand.Scores.Activity, cand.Scores.Reproducibility, cand.Scores.License,
		cand.Scores.Novelty, cand.Scores.Relevance,
		SourceDisplayName(cand.Source),
		truncate(cand.OverallReasoning, reasoningMaxLen),
	)

	actions := []button{linkButton("View details", cand.URL, "primary")}
	if cand.GitHubURL != "" && cand.GitHubURL != cand.URL {
		actions = append(actions, linkButton("GitHub", cand.GitHubURL, "default"))
	}
	if n.cfg.TableURL != "" {
		actions = append(actions, linkButton("Open table", n.cfg.TableURL, "default"))
	}

	template := "blue"
	if item.Tier == allocator.TierHigh {
		template = "red"
	}

	return cardPayload(title, template,
		markdownDiv("**"+truncate(cand.Title, titleMaxCard)+"**"),
		markdownDiv(detail),
		divider(),
		actionElement{Tag: "action", Actions: actions},
		noteElement{Tag: "note", Elements: []plainText{
			plain("BenchScope curation | " + globaltime.Now().UTC().Format("2006-01-02 15:04")),
		}},
	)
}

func (n *Notifier) buildMediumSummary(medium []allocator.Item) payload {
	sorted := make([]allocator.Item, len(medium))
	copy(sorted, medium)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveScore > sorted[j].EffectiveScore
	})

	var sum, minScore, maxScore float64
	minScore = sorted[len(sorted)-1].EffectiveScore
	maxScore = sorted[0].EffectiveScore
	for _, item := range sorted {
		sum += item.EffectiveScore
	}
	avg := sum / float64(len(sorted))

	top := sorted
	if len(top) > mediumSummaryTopK {
		top = top[:mediumSummaryTopK]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Overview**\n  Count: %d  |  Average: %.1f / 10  |  Range: %.1f ~ %.1f\n\n",
		len(sorted), avg, minScore, maxScore)
	fmt.Fprintf(&b, "**Top %d picks**\n\n", len(top))
	for i, item := range top {
		cand := item.Candidate
		fmt.Fprintf(&b, "**%d. %s**\n   Source: %s  |  Score: %.1f  |  Activity: %.1f  |  Reproducibility: %.1f\n   [View details](%s)\n\n",
			i+1, truncate(cand.Title, titleMaxMedium),
			SourceDisplayName(cand.Source), item.EffectiveScore,
			cand.Scores.Activity, cand.Scores.Reproducibility, cand.URL)
	}
	if rest := len(sorted) - len(top); rest > 0 {
		fmt.Fprintf(&b, "\n%d more candidates available in the table\n", rest)
	}
	if domains := domainCoverage(medium); domains != "" {
		fmt.Fprintf(&b, "\n**Domains covered**: %s\n", domains)
	}

	elements := []any{markdownDiv(b.String())}
	if n.cfg.TableURL != "" {
		elements = append(elements, divider(), actionElement{
			Tag:     "action",
			Actions: []button{linkButton("Open full table", n.cfg.TableURL, "primary")},
		})
	}
	return cardPayload("Medium-tier candidates", "yellow", elements...)
}

func (n *Notifier) buildRunSummary(plan allocator.Plan, high, medium []allocator.Item) payload {
	selected := append(append([]allocator.Item{}, high...), medium...)

	var sum float64
	bands := [4]int{}
	sources := map[string]int{}
	for _, item := range selected {
		sum += item.EffectiveScore
		switch {
		case item.EffectiveScore >= 9.0:
			bands[0]++
		case item.EffectiveScore >= 8.0:
			bands[1]++
		case item.EffectiveScore >= 7.0:
			bands[2]++
		default:
			bands[3]++
		}
		sources[item.Candidate.Source]++
	}
	avg := 0.0
	if len(selected) > 0 {
		avg = sum / float64(len(selected))
	}

	content := fmt.Sprintf(
		"**%s**  |  %d selected of %d scored  |  Average %.1f (%s)\n\n"+
			"**Tiers**: high %d (cards)  |  medium %d (summary)  |  dropped %d\n\n"+
			"**Score bands**: 9.0+ %d  |  8.0~8.9 %d  |  7.0~7.9 %d  |  below %d\n\n"+
			"**Sources**: %s",
		globaltime.Now().UTC().Format("2006-01-02 15:04"),
		len(selected), plan.Stats.Input, avg, qualityLabel(avg),
		len(high), len(medium), plan.Stats.Dropped,
		bands[0], bands[1], bands[2], bands[3],
		sourceBreakdown(sources),
	)
	if n.cfg.TableURL != "" {
		content += fmt.Sprintf("\n\n[Open table](%s)", n.cfg.TableURL)
	}

	return cardPayload("Curation run summary", "blue", markdownDiv(content))
}

func qualityLabel(avg float64) string {
	switch {
	case avg >= qualityExcellent:
		return "excellent"
	case avg >= qualityGood:
		return "good"
	case avg >= qualityPass:
		return "pass"
	default:
		return "fair"
	}
}

func sourceBreakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	type entry struct {
		source string
		count  int
	}
	entries := make([]entry, 0, len(counts))
	for source, count := range counts {
		entries = append(entries, entry{source, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].source < entries[j].source
	})

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s %d", SourceDisplayName(e.source), e.count))
	}
	return strings.Join(parts, "  |  ")
}

func domainCoverage(items []allocator.Item) string {
	seen := map[string]bool{}
	var domains []string
	for _, item := range items {
		domain := item.Candidate.TaskDomain
		if domain == "" || domain == "Other" || seen[domain] {
			continue
		}
		seen[domain] = true
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return strings.Join(domains, ", ")
}

func (n *Notifier) send(ctx context.Context, msg payload) error {
	if n.cfg.WebhookSecret != "" {
		timestamp := globaltime.Now().Unix()
		msg.Timestamp = strconv.FormatInt(timestamp, 10)
		msg.Sign = Signature(timestamp, n.cfg.WebhookSecret)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("webhook rejected: %d %s", result.Code, result.Msg)
	}
	return nil
}

// Signature computes the webhook signing string: the HMAC-SHA256 key is
// "timestamp\nsecret" over an empty message, base64 encoded.
func Signature(timestamp int64, secret string) string {
	key := strconv.FormatInt(timestamp, 10) + "\n" + secret
	mac := hmac.New(sha256.New, []byte(key))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (n *Notifier) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(n.pace):
		return nil
	}
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
