package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/colconnect/arbitrage/pkg/engine"
)

// WeightsStore holds the scoring weights configuration, one document per
// collectivite. Defaults apply when a collectivite has never stored weights.
type WeightsStore struct {
	db *gorm.DB
}

// NewWeightsStore creates a new WeightsStore.
func NewWeightsStore(db *gorm.DB) *WeightsStore {
	return &WeightsStore{db: db}
}

// AutoMigrate creates or updates the collectivite_settings table.
func (s *WeightsStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&WeightsRecord{}); err != nil {
		return fmt.Errorf("auto-migrate collectivite_settings: %w", err)
	}
	return nil
}

// Get returns the weights for a collectivite, falling back to the engine
// defaults when none are stored.
func (s *WeightsStore) Get(ctx context.Context, collectiviteID string) (engine.Weights, error) {
	var record WeightsRecord
	err := s.db.WithContext(ctx).
		Where("collectivite_id = ?", collectiviteID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.DefaultWeights(), nil
		}
		return engine.Weights{}, wrapErr("get weights", err)
	}
	return engine.Weights{
		Climate:   record.ClimateWeight,
		Education: record.EducationWeight,
		Financial: record.FinancialWeight,
	}, nil
}

// Upsert replaces the weights for a collectivite. Idempotent; concurrent
// upserts are last-writer-wins, an accepted trade-off for a rare, low-stakes
// configuration edit.
func (s *WeightsStore) Upsert(ctx context.Context, collectiviteID string, w engine.Weights) (*WeightsRecord, error) {
	if err := validateWeights(w); err != nil {
		return nil, err
	}

	record := &WeightsRecord{
		CollectiviteID:  collectiviteID,
		ClimateWeight:   w.Climate,
		EducationWeight: w.Education,
		FinancialWeight: w.Financial,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "collectivite_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"poids_climat", "poids_education", "poids_financier", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return nil, wrapErr("upsert weights", err)
	}
	return record, nil
}

func validateWeights(w engine.Weights) error {
	check := func(field string, v float64) error {
		if v < 0 || v > 1 {
			return &engine.ValidationError{Field: field, Message: fmt.Sprintf("weight must lie in [0, 1], got %v", v)}
		}
		return nil
	}
	if err := check("poids_climat", w.Climate); err != nil {
		return err
	}
	if err := check("poids_education", w.Education); err != nil {
		return err
	}
	return check("poids_financier", w.Financial)
}
