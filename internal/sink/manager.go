package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
)

// Manager routes writes to the primary table sink and spills to the local
// fallback store when the primary is down. Reads always come from the
// primary; a read failure is reported but never fatal to a run.
type Manager struct {
	primary  Sink
	fallback *FallbackStore
	logger   zerolog.Logger
}

func NewManager(primary Sink, fallback *FallbackStore, logger zerolog.Logger) *Manager {
	return &Manager{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "sink-manager").Logger(),
	}
}

// ReadKnownRecords proxies to the primary sink. With no primary configured
// it returns an empty slate, which makes dedup batch-local.
func (m *Manager) ReadKnownRecords(ctx context.Context, since time.Time) ([]KnownRecord, error) {
	if m.primary == nil {
		return nil, nil
	}
	return m.primary.ReadKnownRecords(ctx, since)
}

// Save writes to the primary and diverts the whole batch to the fallback
// store when the primary write fails. The returned error reflects the
// final outcome: nil when the candidates are durable somewhere.
func (m *Manager) Save(ctx context.Context, cands []model.ScoredCandidate) error {
	if len(cands) == 0 {
		return nil
	}

	if m.primary != nil {
		err := m.primary.Save(ctx, cands)
		if err == nil {
			return nil
		}
		m.logger.Error().Err(err).Int("candidates", len(cands)).Msg("primary sink write failed, spilling to fallback")
	} else {
		m.logger.Warn().Int("candidates", len(cands)).Msg("no primary sink configured, writing to fallback")
	}

	if m.fallback == nil {
		return fmt.Errorf("primary sink unavailable and no fallback store configured")
	}
	if err := m.fallback.SaveScored(ctx, cands); err != nil {
		return fmt.Errorf("fallback spill failed: %w", err)
	}
	return nil
}

// ReconcileResult reports one reconciliation pass.
type ReconcileResult struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
}

// Reconcile pushes spilled candidates back to the primary sink and marks
// the delivered ones. It is safe to run repeatedly.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	if m.fallback == nil {
		return result, nil
	}
	if m.primary == nil {
		return result, fmt.Errorf("no primary sink configured")
	}

	pending, err := m.fallback.LoadUnsynced(ctx)
	if err != nil {
		return result, err
	}
	result.Pending = len(pending)
	if len(pending) == 0 {
		return result, nil
	}

	if err := m.primary.Save(ctx, pending); err != nil {
		return result, fmt.Errorf("replay spilled candidates: %w", err)
	}

	urls := make([]string, 0, len(pending))
	for i := range pending {
		urls = append(urls, pending[i].URL)
	}
	if err := m.fallback.MarkSynced(ctx, urls); err != nil {
		return result, err
	}
	result.Synced = len(urls)

	m.logger.Info().Int("synced", result.Synced).Msg("fallback reconciliation complete")
	return result, nil
}

// Cleanup expires old synced fallback rows.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if m.fallback == nil {
		return 0, nil
	}
	return m.fallback.Cleanup(ctx, retentionDays)
}

// Stats exposes fallback occupancy when a fallback store exists.
func (m *Manager) Stats(ctx context.Context) (StoreStats, error) {
	if m.fallback == nil {
		return StoreStats{}, nil
	}
	return m.fallback.Stats(ctx)
}
