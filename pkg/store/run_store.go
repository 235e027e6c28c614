package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RunStore appends completed arbitrage runs and serves historical reads.
// Writes are insert-only: past runs are never updated or deleted, so
// concurrent writers for the same collectivite never conflict.
type RunStore struct {
	db *gorm.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// AutoMigrate creates or updates the arbitrage_runs table.
func (s *RunStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&RunRecord{}); err != nil {
		return fmt.Errorf("auto-migrate arbitrage_runs: %w", err)
	}
	return nil
}

// Append inserts a completed run. There is no update path; an id collision
// is an error, never an overwrite.
func (s *RunStore) Append(ctx context.Context, record *RunRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return wrapErr("append run", err)
	}
	return nil
}

// Get retrieves one run by collectivite and arbitrage id.
func (s *RunStore) Get(ctx context.Context, collectiviteID, arbitrageID string) (*RunRecord, error) {
	var record RunRecord
	err := s.db.WithContext(ctx).
		Where("collectivite_id = ? AND arbitrage_id = ?", collectiviteID, arbitrageID).
		First(&record).Error
	if err != nil {
		return nil, wrapErr("get run", err)
	}
	return &record, nil
}

// GetLatest returns the n most recent runs for a collectivite, newest first.
// Ordering is by creation timestamp with the arbitrage id as tie-break; the
// id also serves as a string-sortable fallback for legacy rows whose
// timestamps collide.
func (s *RunStore) GetLatest(ctx context.Context, collectiviteID string, n int) ([]RunRecord, error) {
	if n <= 0 {
		n = 1
	}
	var records []RunRecord
	err := s.db.WithContext(ctx).
		Where("collectivite_id = ?", collectiviteID).
		Order("created_at DESC, arbitrage_id DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, wrapErr("get latest runs", err)
	}
	return records, nil
}

// Count returns the total number of runs recorded for a collectivite.
func (s *RunStore) Count(ctx context.Context, collectiviteID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&RunRecord{}).
		Where("collectivite_id = ?", collectiviteID).
		Count(&total).Error
	if err != nil {
		return 0, wrapErr("count runs", err)
	}
	return total, nil
}

// List returns one offset-paginated page of runs, newest first, plus a
// has-next flag. The flag comes from fetching limit+1 rows, avoiding a
// second count query on the hot path.
func (s *RunStore) List(ctx context.Context, collectiviteID string, offset, limit int) ([]RunRecord, bool, error) {
	var records []RunRecord
	err := s.db.WithContext(ctx).
		Where("collectivite_id = ?", collectiviteID).
		Order("created_at DESC, arbitrage_id DESC").
		Offset(offset).
		Limit(limit + 1).
		Find(&records).Error
	if err != nil {
		return nil, false, wrapErr("list runs", err)
	}

	hasNext := len(records) > limit
	if hasNext {
		records = records[:limit]
	}
	return records, hasNext, nil
}

// ListAfter returns up to limit runs strictly older than the given
// (createdAt, arbitrageID) sort key, newest first. A zero createdAt starts
// from the newest run. Pages keyed this way stay stable when new runs are
// inserted between fetches.
func (s *RunStore) ListAfter(ctx context.Context, collectiviteID string, createdAt time.Time, arbitrageID string, limit int) ([]RunRecord, error) {
	query := s.db.WithContext(ctx).
		Where("collectivite_id = ?", collectiviteID).
		Order("created_at DESC, arbitrage_id DESC").
		Limit(limit)

	if !createdAt.IsZero() {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND arbitrage_id < ?)",
			createdAt, createdAt, arbitrageID,
		)
	}

	var records []RunRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, wrapErr("list runs after cursor", err)
	}
	return records, nil
}

// Ping checks store reachability for the health probe.
func (s *RunStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrapErr("ping store", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store: %v: %w", err, ErrStoreUnavailable)
	}
	return nil
}
