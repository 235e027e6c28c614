// Package store provides the gorm-backed persistence layer: the append-only
// run log and the per-collectivite weights configuration.
package store

import (
	"time"
)

// RunRecord is one arbitrage run in the append-only log. The full run
// document is kept verbatim as JSON text; the remaining columns are
// extracted copies used for filtering and ordering only. Historical rows may
// hold documents written by older engine versions, which is why readers
// normalize the document instead of trusting the columns.
type RunRecord struct {
	ArbitrageID    string    `gorm:"primaryKey;column:arbitrage_id;type:varchar(64)"`
	CollectiviteID string    `gorm:"column:collectivite_id;index:idx_runs_coll_created,priority:1;not null"`
	Mandat         string    `gorm:"column:mandat"`
	EngineVersion  string    `gorm:"column:engine_version"`
	TriggeredBy    string    `gorm:"column:triggered_by"`
	PayloadHash    string    `gorm:"column:payload_hash"`
	Document       string    `gorm:"column:document;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;index:idx_runs_coll_created,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (RunRecord) TableName() string { return "arbitrage_runs" }

// WeightsRecord holds the scoring weights for one collectivite. Exactly one
// row per collectivite; concurrent upserts are last-writer-wins.
type WeightsRecord struct {
	CollectiviteID  string    `gorm:"primaryKey;column:collectivite_id;type:varchar(64)"`
	ClimateWeight   float64   `gorm:"column:poids_climat;not null"`
	EducationWeight float64   `gorm:"column:poids_education;not null"`
	FinancialWeight float64   `gorm:"column:poids_financier;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (WeightsRecord) TableName() string { return "collectivite_settings" }
