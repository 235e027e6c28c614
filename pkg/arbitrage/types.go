// Package arbitrage implements the run service: it orchestrates scoring and
// selection, records the audit trail, appends runs to the store and
// reconstructs historical runs into the current output contract.
package arbitrage

import (
	"github.com/colconnect/arbitrage/pkg/engine"
)

// SchemaVersion marks the shape of run documents written by this version of
// the service. Historical documents carry older shapes (or no marker at all)
// and go through normalization on every read.
const SchemaVersion = 2

// RunRequest is the input contract of a run.
type RunRequest struct {
	Mandat      string             `json:"mandat"`
	Constraints engine.Constraints `json:"contraintes"`
	Hypotheses  *engine.Hypotheses `json:"hypotheses,omitempty"`
	Projects    []engine.Project   `json:"projets"`
}

// Validate checks the request envelope. Project-level validation happens in
// the engine.
func (r RunRequest) Validate() error {
	if r.Mandat == "" {
		return &engine.ValidationError{Field: "mandat", Message: "mandat label is required"}
	}
	return r.Constraints.Validate()
}

// Audit traces who triggered a run, with which engine version, over which
// exact input.
type Audit struct {
	EngineVersion string `json:"engine_version"`
	TriggeredBy   string `json:"triggered_by"`
	PayloadHash   string `json:"payload_hash"`
	TimestampUTC  string `json:"timestamp_utc"`
}

// Run is the unit of record: one execution of the scoring and selection
// algorithm, permanently recorded. Append-only; never mutated after
// creation.
type Run struct {
	ArbitrageID    string                 `json:"arbitrage_id"`
	CollectiviteID string                 `json:"collectivite_id"`
	Mandat         string                 `json:"mandat"`
	SchemaVersion  int                    `json:"schema_version,omitempty"`
	Synthese       engine.Synthese        `json:"synthese"`
	Projects       []engine.ScoredProject `json:"projets"`
	Audit          Audit                  `json:"audit"`
	CreatedAt      string                 `json:"created_at,omitempty"`
	Weights        *engine.Weights        `json:"weights,omitempty"`
}

// RunSummary is the listing shape: everything except the project detail.
type RunSummary struct {
	ArbitrageID    string          `json:"arbitrage_id"`
	CollectiviteID string          `json:"collectivite_id"`
	Mandat         string          `json:"mandat"`
	Synthese       engine.Synthese `json:"synthese"`
	Audit          Audit           `json:"audit"`
}

// OffsetPage is the response of the offset-paginated listing.
type OffsetPage struct {
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Total   int64        `json:"total"`
	HasNext bool         `json:"has_next"`
	Items   []RunSummary `json:"items"`
}

// CursorPage is the response of the cursor-paginated listing. NextCursor is
// null when the listing is exhausted.
type CursorPage struct {
	Items      []RunSummary `json:"items"`
	NextCursor *string      `json:"next_cursor"`
}

// Settings is the weights configuration document exposed by the API.
type Settings struct {
	CollectiviteID string  `json:"collectivite_id"`
	Climate        float64 `json:"poids_climat"`
	Education      float64 `json:"poids_education"`
	Financial      float64 `json:"poids_financier"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}
