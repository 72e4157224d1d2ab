package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
)

const (
	writeBatchSize    = 20
	writeRateInterval = 600 * time.Millisecond

	httpTimeout         = 15 * time.Second
	httpMaxRetries      = 5
	httpRetryBaseDelay  = 1500 * time.Millisecond
	httpRetryMaxDelay   = 30 * time.Second
	httpRateLimitExtra  = 10 * time.Second
	tokenRefreshMargin  = 5 * time.Minute
	tokenMinimumRefresh = 10 * time.Minute

	listPageSize = 500
	listMaxPages = 20
)

// TableConfig carries the record-service credentials.
type TableConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
	AppToken  string
	TableID   string
}

// TableClient talks to the bitable-style record service that backs the
// curation table. It refreshes its tenant token lazily, pages through
// list reads, and writes in paced batches.
type TableClient struct {
	cfg        TableConfig
	client     *http.Client
	logger     zerolog.Logger
	retryDelay time.Duration

	mu            sync.Mutex
	accessToken   string
	tokenExpireAt time.Time
}

func NewTableClient(cfg TableConfig, logger zerolog.Logger) *TableClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://open.feishu.cn/open-apis"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TableClient{
		cfg:        cfg,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger.With().Str("component", "table-sink").Logger(),
		retryDelay: httpRetryBaseDelay,
	}
}

// ReadKnownRecords lists stored records and projects them for dedup. The
// since bound is applied client side: the record service has no indexed
// filter on creation time.
func (c *TableClient) ReadKnownRecords(ctx context.Context, since time.Time) ([]KnownRecord, error) {
	if err := c.ensureAccessToken(ctx); err != nil {
		return nil, err
	}

	var records []KnownRecord
	pageToken := ""
	for page := 0; page < listMaxPages; page++ {
		body, err := c.listPage(ctx, pageToken)
		if err != nil {
			return nil, err
		}

		for _, item := range body.Data.Items {
			rec := KnownRecord{
				URLKey:    item.Fields.URL,
				Source:    item.Fields.Source,
				CreatedAt: time.UnixMilli(item.CreatedTime).UTC(),
			}
			if item.Fields.PublishDate > 0 {
				rec.PublishedAt = time.UnixMilli(item.Fields.PublishDate).UTC()
			}
			if rec.URLKey == "" {
				continue
			}
			if !since.IsZero() && rec.CreatedAt.Before(since) {
				continue
			}
			records = append(records, rec)
		}

		if !body.Data.HasMore || body.Data.PageToken == "" {
			break
		}
		pageToken = body.Data.PageToken
	}

	c.logger.Debug().Int("records", len(records)).Msg("known records loaded")
	return records, nil
}

// Save writes scored candidates in paced batches. A batch that fails after
// retries fails the whole call so the manager can divert to the fallback
// store.
func (c *TableClient) Save(ctx context.Context, cands []model.ScoredCandidate) error {
	if len(cands) == 0 {
		return nil
	}
	if err := c.ensureAccessToken(ctx); err != nil {
		return err
	}

	for start := 0; start < len(cands); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(cands) {
			end = len(cands)
		}
		chunk := cands[start:end]

		records := make([]tableRecord, 0, len(chunk))
		for i := range chunk {
			records = append(records, toTableRecord(&chunk[i]))
		}
		if err := c.batchCreate(ctx, records); err != nil {
			return fmt.Errorf("write batch %d-%d: %w", start, end, err)
		}

		if end < len(cands) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(writeRateInterval):
			}
		}
	}

	c.logger.Info().Int("records", len(cands)).Msg("table write complete")
	return nil
}

// Ping verifies credentials for the health command.
func (c *TableClient) Ping(ctx context.Context) error {
	return c.ensureAccessToken(ctx)
}

type tableRecord struct {
	Fields recordFields `json:"fields"`
}

type recordFields struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Abstract    string `json:"abstract,omitempty"`
	PublishDate int64  `json:"publish_date,omitempty"`

	ActivityScore        float64 `json:"activity_score"`
	ReproducibilityScore float64 `json:"reproducibility_score"`
	LicenseScore         float64 `json:"license_score"`
	NoveltyScore         float64 `json:"novelty_score"`
	RelevanceScore       float64 `json:"relevance_score"`
	TotalScore           float64 `json:"total_score"`
	Priority             string  `json:"priority"`
	Reasoning            string  `json:"reasoning,omitempty"`

	TaskDomain      string `json:"task_domain,omitempty"`
	Metrics         string `json:"metrics,omitempty"`
	Baselines       string `json:"baselines,omitempty"`
	Institution     string `json:"institution,omitempty"`
	Authors         string `json:"authors,omitempty"`
	DatasetSize     int64  `json:"dataset_size,omitempty"`
	DatasetSizeDesc string `json:"dataset_size_description,omitempty"`
	DatasetURL      string `json:"dataset_url,omitempty"`

	GitHubStars int    `json:"github_stars,omitempty"`
	GitHubURL   string `json:"github_url,omitempty"`
	LicenseType string `json:"license_type,omitempty"`
}

const (
	abstractMaxLen  = 200
	reasoningMaxLen = 1500
	joinedMaxLen    = 200
)

func toTableRecord(cand *model.ScoredCandidate) tableRecord {
	fields := recordFields{
		Title:    cand.Title,
		Source:   cand.Source,
		URL:      cand.URL,
		Abstract: truncateRunes(cand.Abstract, abstractMaxLen),

		ActivityScore:        cand.Scores.Activity,
		ReproducibilityScore: cand.Scores.Reproducibility,
		LicenseScore:         cand.Scores.License,
		NoveltyScore:         cand.Scores.Novelty,
		RelevanceScore:       cand.Scores.Relevance,
		TotalScore:           cand.TotalScore(),
		Priority:             cand.Priority(),
		Reasoning:            truncateRunes(cand.OverallReasoning, reasoningMaxLen),

		TaskDomain:      cand.TaskDomain,
		Metrics:         joinTruncated(cand.Metrics, joinedMaxLen),
		Baselines:       joinTruncated(cand.Baselines, joinedMaxLen),
		Institution:     cand.Institution,
		Authors:         joinTruncated(cand.Authors, joinedMaxLen),
		DatasetSize:     cand.DatasetSize,
		DatasetSizeDesc: cand.DatasetSizeDesc,
		DatasetURL:      cand.DatasetURL,

		GitHubStars: cand.GitHubStars,
		GitHubURL:   cand.GitHubURL,
		LicenseType: cand.LicenseType,
	}
	if cand.PublishedAt != nil && !cand.PublishedAt.IsZero() {
		fields.PublishDate = cand.PublishedAt.UnixMilli()
	}
	return tableRecord{Fields: fields}
}

type apiEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type listResponse struct {
	apiEnvelope
	Data struct {
		Items []struct {
			RecordID    string `json:"record_id"`
			CreatedTime int64  `json:"created_time"`
			Fields      struct {
				URL         string `json:"url"`
				Source      string `json:"source"`
				PublishDate int64  `json:"publish_date"`
			} `json:"fields"`
		} `json:"items"`
		HasMore   bool   `json:"has_more"`
		PageToken string `json:"page_token"`
	} `json:"data"`
}

func (c *TableClient) listPage(ctx context.Context, pageToken string) (*listResponse, error) {
	endpoint := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records?page_size=%d",
		c.cfg.BaseURL, c.cfg.AppToken, c.cfg.TableID, listPageSize)
	if pageToken != "" {
		endpoint += "&page_token=" + pageToken
	}

	raw, err := c.doWithRetry(ctx, http.MethodGet, endpoint, nil, true)
	if err != nil {
		return nil, err
	}

	var body listResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	if body.Code != 0 {
		return nil, fmt.Errorf("record list rejected: %d %s", body.Code, body.Msg)
	}
	return &body, nil
}

func (c *TableClient) batchCreate(ctx context.Context, records []tableRecord) error {
	endpoint := fmt.Sprintf("%s/bitable/v1/apps/%s/tables/%s/records/batch_create",
		c.cfg.BaseURL, c.cfg.AppToken, c.cfg.TableID)

	payload, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	raw, err := c.doWithRetry(ctx, http.MethodPost, endpoint, payload, true)
	if err != nil {
		return err
	}

	var body struct {
		apiEnvelope
		Data struct {
			Records []json.RawMessage `json:"records"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("decode batch response: %w", err)
	}
	if body.Code != 0 {
		return fmt.Errorf("batch create rejected: %d %s", body.Code, body.Msg)
	}
	if created := len(body.Data.Records); created != len(records) {
		c.logger.Warn().
			Int("expected", len(records)).
			Int("created", created).
			Msg("batch write partially applied")
	}
	return nil
}

func (c *TableClient) ensureAccessToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.accessToken != "" && now.Before(c.tokenExpireAt) {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	})
	if err != nil {
		return fmt.Errorf("marshal token request: %w", err)
	}

	raw, err := c.doWithRetry(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/v3/tenant_access_token/internal", payload, false)
	if err != nil {
		return fmt.Errorf("refresh access token: %w", err)
	}

	var body struct {
		apiEnvelope
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if body.TenantAccessToken == "" {
		return fmt.Errorf("token refresh rejected: %d %s", body.Code, body.Msg)
	}

	c.accessToken = body.TenantAccessToken
	lifetime := time.Duration(body.Expire)*time.Second - tokenRefreshMargin
	if lifetime < tokenMinimumRefresh {
		lifetime = tokenMinimumRefresh
	}
	c.tokenExpireAt = now.Add(lifetime)
	c.logger.Debug().Msg("access token refreshed")
	return nil
}

// doWithRetry retries transient failures with exponential backoff. Rate
// limit responses wait an extra padded delay before retrying.
func (c *TableClient) doWithRetry(ctx context.Context, method, endpoint string, payload []byte, authorized bool) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 1; attempt <= httpMaxRetries; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if authorized {
			c.mu.Lock()
			token := c.accessToken
			c.mu.Unlock()
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("record service rate limited (429)")
				if attempt < httpMaxRetries {
					wait := delay + httpRateLimitExtra
					if wait > httpRetryMaxDelay {
						wait = httpRetryMaxDelay
					}
					c.logger.Warn().
						Int("attempt", attempt).
						Dur("wait", wait).
						Msg("rate limited, padded backoff")
					if err := sleepCtx(ctx, wait); err != nil {
						return nil, err
					}
					delay = nextDelay(delay)
					continue
				}
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("record service status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
			case resp.StatusCode >= 400:
				return nil, fmt.Errorf("record service status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
			default:
				return raw, nil
			}
		}

		if attempt < httpMaxRetries {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			delay = nextDelay(delay)
		}
	}
	return nil, fmt.Errorf("record service request failed after %d attempts: %w", httpMaxRetries, lastErr)
}

func nextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * 1.8)
	if next > httpRetryMaxDelay {
		next = httpRetryMaxDelay
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func joinTruncated(items []string, max int) string {
	if len(items) == 0 {
		return ""
	}
	return truncateRunes(strings.Join(items, ", "), max)
}
