package sink

import (
	"context"
	"time"

	"github.com/calderbuild/BenchScope/internal/model"
)

// KnownRecord is the minimal projection of a persisted candidate used for
// cross-run deduplication.
type KnownRecord struct {
	URLKey      string
	Source      string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// Sink persists scored candidates and exposes the dedup projection.
type Sink interface {
	ReadKnownRecords(ctx context.Context, since time.Time) ([]KnownRecord, error)
	Save(ctx context.Context, cands []model.ScoredCandidate) error
}
