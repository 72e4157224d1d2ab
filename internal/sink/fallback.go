package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/calderbuild/BenchScope/internal/model"
)

// fallbackCandidate is the local spill row for candidates that could not
// reach the primary table. The full scored payload rides along as JSON so
// reconciliation loses nothing.
type fallbackCandidate struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Source      string `gorm:"not null;index"`
	URL         string `gorm:"not null;uniqueIndex"`
	PublishedAt *time.Time
	ScoreJSON   string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
	Synced      bool      `gorm:"not null;default:false;index"`
}

func (fallbackCandidate) TableName() string { return "fallback_candidates" }

// FallbackStore persists scored candidates to a local sqlite file when the
// primary sink is unavailable, and feeds them back during reconciliation.
type FallbackStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewFallbackStore(path string, logger zerolog.Logger) (*FallbackStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open fallback database: %w", err)
	}
	if err := db.AutoMigrate(&fallbackCandidate{}); err != nil {
		return nil, fmt.Errorf("migrate fallback schema: %w", err)
	}
	return &FallbackStore{
		db:     db,
		logger: logger.With().Str("component", "fallback-store").Logger(),
	}, nil
}

// SaveScored spills candidates locally. Rows already present by URL are
// left untouched so a retried run cannot duplicate them.
func (s *FallbackStore) SaveScored(ctx context.Context, cands []model.ScoredCandidate) error {
	if len(cands) == 0 {
		return nil
	}

	rows := make([]fallbackCandidate, 0, len(cands))
	for i := range cands {
		payload, err := json.Marshal(&cands[i])
		if err != nil {
			return fmt.Errorf("marshal candidate %q: %w", cands[i].URL, err)
		}
		rows = append(rows, fallbackCandidate{
			Title:       cands[i].Title,
			Source:      cands[i].Source,
			URL:         cands[i].URL,
			PublishedAt: cands[i].PublishedAt,
			ScoreJSON:   string(payload),
		})
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "url"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return fmt.Errorf("spill candidates: %w", res.Error)
	}

	s.logger.Info().
		Int("candidates", len(cands)).
		Int64("inserted", res.RowsAffected).
		Msg("candidates spilled to fallback store")
	return nil
}

// LoadUnsynced returns candidates waiting for reconciliation, oldest first.
func (s *FallbackStore) LoadUnsynced(ctx context.Context) ([]model.ScoredCandidate, error) {
	var rows []fallbackCandidate
	err := s.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load unsynced candidates: %w", err)
	}

	cands := make([]model.ScoredCandidate, 0, len(rows))
	for _, row := range rows {
		var cand model.ScoredCandidate
		if err := json.Unmarshal([]byte(row.ScoreJSON), &cand); err != nil {
			s.logger.Warn().
				Str("url", row.URL).
				Err(err).
				Msg("skipping corrupt fallback row")
			continue
		}
		cands = append(cands, cand)
	}
	return cands, nil
}

// MarkSynced flags the given URLs as delivered to the primary sink.
func (s *FallbackStore) MarkSynced(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&fallbackCandidate{}).
		Where("url IN ?", urls).
		Update("synced", true).Error
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// Cleanup deletes synced rows older than the retention window and returns
// how many were removed. Unsynced rows are kept regardless of age.
func (s *FallbackStore) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ctx).
		Where("synced = ? AND created_at < ?", true, cutoff).
		Delete(&fallbackCandidate{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup fallback store: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", res.RowsAffected).Msg("expired fallback rows removed")
	}
	return res.RowsAffected, nil
}

// StoreStats reports fallback store occupancy for the stats command.
type StoreStats struct {
	Total    int64 `json:"total"`
	Unsynced int64 `json:"unsynced"`
}

func (s *FallbackStore) Stats(ctx context.Context) (StoreStats, error) {
	var stats StoreStats
	if err := s.db.WithContext(ctx).Model(&fallbackCandidate{}).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("count fallback rows: %w", err)
	}
	err := s.db.WithContext(ctx).
		Model(&fallbackCandidate{}).
		Where("synced = ?", false).
		Count(&stats.Unsynced).Error
	if err != nil {
		return stats, fmt.Errorf("count unsynced rows: %w", err)
	}
	return stats, nil
}

func (s *FallbackStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
