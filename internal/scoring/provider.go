package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultEndpoint points to the public OpenAI API.
	DefaultEndpoint = "https://api.openai.com/v1"
	// DefaultModel is the scoring model used when none is configured.
	DefaultModel = "gpt-4o"

	completionMaxTokens = 2000
	completionTemp      = 0.2
)

// Message is one turn of a scoring conversation. Repair attempts extend the
// same conversation rather than starting over.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a raw completion for a scoring conversation.
type Provider interface {
	Name() string
	ModelName() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// StatusError carries the HTTP status of a failed provider call so the
// orchestrator can pad backoff on rate limits.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scoring endpoint status %d: %s", e.Code, e.Body)
}

// IsRateLimited reports whether err is an HTTP 429 from the provider.
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests
}

// IsTransient reports whether a provider error is worth retrying.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	// Network-level failures without a status are treated as transient.
	return !errors.Is(err, context.Canceled)
}

// ChatProvider scores candidates by calling an OpenAI-compatible chat
// completions endpoint.
type ChatProvider struct {
	endpointURL string
	apiKey      string
	model       string
	client      *http.Client
}

// NewChatProvider builds a provider for the given endpoint/model.
func NewChatProvider(endpoint, apiKey, model string, timeout time.Duration) *ChatProvider {
	normalizedEndpoint := normalizeEndpoint(endpoint)
	trimmedModel := strings.TrimSpace(model)
	if trimmedModel == "" {
		trimmedModel = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatProvider{
		endpointURL: chatCompletionsURL(normalizedEndpoint),
		apiKey:      strings.TrimSpace(apiKey),
		model:       trimmedModel,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *ChatProvider) Name() string {
	return "openai"
}

// ModelName returns the configured model identifier.
func (p *ChatProvider) ModelName() string {
	if p == nil {
		return ""
	}
	return p.model
}

func (p *ChatProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	if p == nil {
		return "", fmt.Errorf("chat provider is nil")
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("messages are required")
	}

	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: completionTemp,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send scoring request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read scoring response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload chatErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return "", &StatusError{Code: resp.StatusCode, Body: msg}
			}
		}
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode scoring response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("scoring response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("scoring response was empty")
	}
	return content, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = "/v1"
	}
	return parsed.String()
}

func chatCompletionsURL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + "/chat/completions"
}
