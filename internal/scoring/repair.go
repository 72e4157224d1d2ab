package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/config"
	"github.com/calderbuild/BenchScope/internal/model"
	scoreschema "github.com/calderbuild/BenchScope/schema"
)

type contractState int

const (
	statePending contractState = iota
	stateValidating
	stateRepair
	stateValid
	stateFailed
)

const (
	retryBaseDelay      = 2 * time.Second
	retryMaxDelay       = 10 * time.Second
	rateLimitExtraDelay = 5 * time.Second
)

// runContract drives one candidate's scoring conversation to a valid
// response. Length deficits trigger bounded repair turns on the same
// conversation; structural violations are terminal.
func runContract(ctx context.Context, provider Provider, cand model.RawCandidate, rules config.ScoringRules, logger zerolog.Logger) (*scoreschema.ScoreResponse, bool, error) {
	backendRequired := BackendRequired(cand)
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: BuildScorePrompt(cand, rules, backendRequired)},
	}

	var (
		content  string
		resp     *scoreschema.ScoreResponse
		deficits []Deficit
		repairs  int
	)

	state := statePending
	for {
		switch state {
		case statePending:
			completed, err := completeWithRetry(ctx, provider, messages, rules, logger)
			if err != nil {
				return nil, repairs > 0, err
			}
			content = completed
			state = stateValidating

		case stateValidating:
			parsed, parsedDeficits, err := ParseResponse(content, rules, backendRequired)
			if err != nil {
				return nil, repairs > 0, err
			}
			resp = parsed
			deficits = parsedDeficits
			if len(deficits) == 0 {
				state = stateValid
			} else {
				state = stateRepair
			}

		case stateRepair:
			if repairs >= rules.RepairMaxAttempts {
				state = stateFailed
				continue
			}
			repairs++
			logger.Debug().
				Str("title", cand.Title).
				Int("attempt", repairs).
				Int("deficits", len(deficits)).
				Msg("reasoning too short, requesting repair")
			messages = append(messages,
				Message{Role: "assistant", Content: content},
				Message{Role: "user", Content: BuildRepairPrompt(deficits)},
			)
			state = statePending

		case stateValid:
			return resp, repairs > 0, nil

		case stateFailed:
			return nil, true, fmt.Errorf("reasoning lengths below contract after %d repair attempts: %v", rules.RepairMaxAttempts, deficits)
		}
	}
}

// completeWithRetry retries transient provider failures with exponential
// backoff. Rate-limit responses get an extra padded delay.
func completeWithRetry(ctx context.Context, provider Provider, messages []Message, rules config.ScoringRules, logger zerolog.Logger) (string, error) {
	maxAttempts := rules.TransientMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		content, err := provider.Complete(ctx, messages)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == maxAttempts {
			break
		}

		delay := retryBaseDelay << (attempt - 1)
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
		if IsRateLimited(err) {
			delay += rateLimitExtraDelay
		}
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("scoring call failed, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", lastErr
}
