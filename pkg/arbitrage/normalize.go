package arbitrage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/colconnect/arbitrage/pkg/engine"
)

// errCorruptRecord reports a stored document that cannot be reconstructed
// into the current contract. Handled internally by the scan window in
// LatestConforming; it degrades to a not-found, never a fault surfaced to
// the caller.
var errCorruptRecord = errors.New("corrupt historical record")

// unknownValue marks audit fields that legacy documents never recorded.
const unknownValue = "unknown"

// docVersion tags the recognized historical document shapes.
type docVersion int

const (
	// docV0: earliest documents. No audit block, no top-level audit
	// siblings, creation time as a structured date or missing.
	docV0 docVersion = iota
	// docV1: audit fields stored flat at the top level, creation time as
	// an ISO string plus a structured sort timestamp.
	docV1
	// docV2: current shape with an embedded audit block and a schema
	// version marker.
	docV2
)

// flexTime tolerates the timestamp shapes that accumulated across versions:
// RFC3339 strings (with or without sub-second precision), structured
// {"$date": ...} objects, and epoch milliseconds.
type flexTime struct {
	t  time.Time
	ok bool
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	f.ok = false
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.t, f.ok = parseTimeString(s)
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		f.t = time.UnixMilli(millis).UTC()
		f.ok = true
		return nil
	}

	var wrapped struct {
		Date json.RawMessage `json:"$date"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Date != nil {
		return f.UnmarshalJSON(wrapped.Date)
	}

	// Unrecognized shape: leave unset rather than failing the document.
	return nil
}

func parseTimeString(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// flexFloat coerces a numeric field that may be a number, a numeric string,
// or missing entirely. Anything unreadable is zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexFloat(v)
		}
	}
	return nil
}

// flexInt coerces like flexFloat but truncates to an integer.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var v flexFloat
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

// rawProjectDoc is a stored project entry with every numeric field coerced
// defensively, so one malformed entry never aborts the read of a listing.
type rawProjectDoc struct {
	ID       string               `json:"id"`
	Name     string               `json:"nom"`
	CostTTC  flexFloat            `json:"cout_ttc"`
	Year     flexInt              `json:"annee_realisation"`
	Score    flexFloat            `json:"score"`
	Retained bool                 `json:"retenu"`
	Decision string               `json:"decision"`
	Details  *engine.ScoreDetails `json:"details_score"`
}

// rawSyntheseDoc is a stored synthese with coerced numerics.
type rawSyntheseDoc struct {
	BudgetMax       flexFloat                  `json:"budget_max"`
	BudgetRetained  flexFloat                  `json:"budget_retenu"`
	BudgetRemaining flexFloat                  `json:"budget_restant"`
	TotalCount      flexInt                    `json:"nb_projets_total"`
	RetainedCount   flexInt                    `json:"nb_projets_retenus"`
	DeferredCount   flexInt                    `json:"nb_projets_reportes"`
	DroppedCount    flexInt                    `json:"nb_projets_abandonnes"`
	Capacity        *engine.CapacityProjection `json:"capacite"`
}

// rawAuditDoc is a stored audit block; any field may be absent.
type rawAuditDoc struct {
	EngineVersion string `json:"engine_version"`
	TriggeredBy   string `json:"triggered_by"`
	PayloadHash   string `json:"payload_hash"`
	TimestampUTC  string `json:"timestamp_utc"`
}

// rawRunDoc is the superset of every document shape ever written. Version
// detection and the per-version mapping functions below turn it into the
// canonical Run; no other code branches on "does this key exist".
type rawRunDoc struct {
	ArbitrageID    string          `json:"arbitrage_id"`
	CollectiviteID string          `json:"collectivite_id"`
	Mandat         string          `json:"mandat"`
	SchemaVersion  flexInt         `json:"schema_version"`
	Synthese       *rawSyntheseDoc `json:"synthese"`
	Projects       []rawProjectDoc `json:"projets"`
	Audit          *rawAuditDoc    `json:"audit"`
	CreatedAt      flexTime        `json:"created_at"`
	CreatedAtDT    flexTime        `json:"created_at_dt"`
	EngineVersion  string          `json:"engine_version"`
	TriggeredBy    string          `json:"triggered_by"`
	PayloadHash    string          `json:"payload_hash"`
	Weights        *engine.Weights `json:"weights"`
}

func (d *rawRunDoc) version() docVersion {
	switch {
	case d.Audit != nil && d.Audit.EngineVersion != "":
		return docV2
	case d.EngineVersion != "" || d.PayloadHash != "" || d.TriggeredBy != "":
		return docV1
	default:
		return docV0
	}
}

// resolveTimestamp picks the canonical creation time: the structured sort
// timestamp first, then the string timestamp, then the audit stamp, and
// synthesizes "now" only when nothing else exists (a documented lossy
// fallback).
func (d *rawRunDoc) resolveTimestamp(now time.Time) string {
	if d.CreatedAtDT.ok {
		return d.CreatedAtDT.t.Format(time.RFC3339)
	}
	if d.CreatedAt.ok {
		return d.CreatedAt.t.Format(time.RFC3339)
	}
	if d.Audit != nil && d.Audit.TimestampUTC != "" {
		if t, ok := parseTimeString(d.Audit.TimestampUTC); ok {
			return t.Format(time.RFC3339)
		}
	}
	return now.UTC().Format(time.RFC3339)
}

// NormalizeRun reconstructs a stored document, whatever its vintage, into
// the current Run contract. Applied to a document written by the current
// engine it is a no-op.
func NormalizeRun(raw []byte) (Run, error) {
	return normalizeRunAt(raw, time.Now())
}

func normalizeRunAt(raw []byte, now time.Time) (Run, error) {
	var doc rawRunDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Run{}, fmt.Errorf("decode run document: %v: %w", err, errCorruptRecord)
	}

	var run Run
	switch doc.version() {
	case docV2:
		run = mapV2(&doc, now)
	case docV1:
		run = mapV1(&doc, now)
	default:
		run = mapV0(&doc, now)
	}

	backfillSynthese(&run)
	backfillDecisions(&run)
	run.SchemaVersion = SchemaVersion
	return run, nil
}

// mapV2 handles current documents: mostly pass-through, with missing audit
// fields completed from the top-level siblings kept for the store columns.
func mapV2(doc *rawRunDoc, now time.Time) Run {
	run := baseRun(doc)
	run.Audit = Audit{
		EngineVersion: firstNonEmpty(doc.Audit.EngineVersion, doc.EngineVersion, unknownValue),
		TriggeredBy:   firstNonEmpty(doc.Audit.TriggeredBy, doc.TriggeredBy, unknownValue),
		PayloadHash:   firstNonEmpty(doc.Audit.PayloadHash, doc.PayloadHash, unknownValue),
		TimestampUTC:  firstNonEmpty(doc.Audit.TimestampUTC, doc.resolveTimestamp(now)),
	}
	return run
}

// mapV1 rebuilds the audit block from the flat top-level fields.
func mapV1(doc *rawRunDoc, now time.Time) Run {
	run := baseRun(doc)
	run.Audit = Audit{
		EngineVersion: firstNonEmpty(doc.EngineVersion, unknownValue),
		TriggeredBy:   firstNonEmpty(doc.TriggeredBy, unknownValue),
		PayloadHash:   firstNonEmpty(doc.PayloadHash, unknownValue),
		TimestampUTC:  doc.resolveTimestamp(now),
	}
	return run
}

// mapV0 handles the earliest documents, which recorded no audit trail at
// all: every audit field is unknown rather than a failure.
func mapV0(doc *rawRunDoc, now time.Time) Run {
	run := baseRun(doc)
	run.Audit = Audit{
		EngineVersion: unknownValue,
		TriggeredBy:   unknownValue,
		PayloadHash:   unknownValue,
		TimestampUTC:  doc.resolveTimestamp(now),
	}
	return run
}

func baseRun(doc *rawRunDoc) Run {
	run := Run{
		ArbitrageID:    doc.ArbitrageID,
		CollectiviteID: doc.CollectiviteID,
		Mandat:         doc.Mandat,
		Projects:       make([]engine.ScoredProject, 0, len(doc.Projects)),
		Weights:        doc.Weights,
	}
	if doc.CreatedAtDT.ok {
		run.CreatedAt = doc.CreatedAtDT.t.Format(time.RFC3339)
	} else if doc.CreatedAt.ok {
		run.CreatedAt = doc.CreatedAt.t.Format(time.RFC3339)
	}
	for _, p := range doc.Projects {
		sp := engine.ScoredProject{
			ID:       p.ID,
			Name:     p.Name,
			CostTTC:  float64(p.CostTTC),
			Year:     int(p.Year),
			Score:    float64(p.Score),
			Retained: p.Retained,
			Decision: p.Decision,
		}
		if p.Details != nil {
			sp.Details = *p.Details
		}
		run.Projects = append(run.Projects, sp)
	}
	if doc.Synthese != nil {
		run.Synthese = engine.Synthese{
			BudgetMax:       float64(doc.Synthese.BudgetMax),
			BudgetRetained:  float64(doc.Synthese.BudgetRetained),
			BudgetRemaining: float64(doc.Synthese.BudgetRemaining),
			TotalCount:      int(doc.Synthese.TotalCount),
			RetainedCount:   int(doc.Synthese.RetainedCount),
			DeferredCount:   int(doc.Synthese.DeferredCount),
			DroppedCount:    int(doc.Synthese.DroppedCount),
			Capacity:        doc.Synthese.Capacity,
		}
	}
	return run
}

// backfillSynthese recomputes the aggregates from the stored project list
// when the stored synthese is absent or disagrees with it.
func backfillSynthese(run *Run) {
	retainedBudget := 0.0
	retained := 0
	for _, p := range run.Projects {
		if p.Retained {
			retained++
			retainedBudget += p.CostTTC
		}
	}

	s := &run.Synthese
	complete := s.TotalCount == len(run.Projects) &&
		s.RetainedCount == retained &&
		withinCent(s.BudgetRetained, retainedBudget)
	if complete {
		return
	}

	s.TotalCount = len(run.Projects)
	s.RetainedCount = retained
	s.BudgetRetained = roundCurrency(retainedBudget)
	if s.BudgetMax > 0 {
		s.BudgetRemaining = roundCurrency(s.BudgetMax - retainedBudget)
	}
}

// backfillDecisions derives the decision labels for documents written before
// labels existed. Retained projects are "retenu"; non-retained ones are
// deferred, or dropped when their cost alone exceeds a known ceiling.
func backfillDecisions(run *Run) {
	budgetMax := run.Synthese.BudgetMax
	deferred, dropped := 0, 0
	for i := range run.Projects {
		p := &run.Projects[i]
		if p.Decision == "" {
			switch {
			case p.Retained:
				p.Decision = engine.DecisionRetained
			case budgetMax > 0 && p.CostTTC > budgetMax:
				p.Decision = engine.DecisionDropped
			default:
				p.Decision = engine.DecisionDeferred
			}
		}
		switch p.Decision {
		case engine.DecisionDeferred:
			deferred++
		case engine.DecisionDropped:
			dropped++
		}
	}
	if run.Synthese.DeferredCount == 0 && run.Synthese.DroppedCount == 0 {
		run.Synthese.DeferredCount = deferred
		run.Synthese.DroppedCount = dropped
	}
}

// ValidateRun checks that a normalized run satisfies the output contract
// invariants. Used by the conforming-latest scan to skip documents that
// normalization could not salvage.
func ValidateRun(run Run) error {
	if run.ArbitrageID == "" {
		return fmt.Errorf("missing arbitrage_id: %w", errCorruptRecord)
	}
	if run.CollectiviteID == "" {
		return fmt.Errorf("missing collectivite_id: %w", errCorruptRecord)
	}
	if run.Synthese.RetainedCount > run.Synthese.TotalCount {
		return fmt.Errorf("retained count %d exceeds total %d: %w",
			run.Synthese.RetainedCount, run.Synthese.TotalCount, errCorruptRecord)
	}
	if run.Synthese.BudgetMax > 0 && run.Synthese.BudgetRetained > run.Synthese.BudgetMax+1e-9 {
		return fmt.Errorf("retained budget %v exceeds ceiling %v: %w",
			run.Synthese.BudgetRetained, run.Synthese.BudgetMax, errCorruptRecord)
	}
	seen := make(map[string]struct{}, len(run.Projects))
	for _, p := range run.Projects {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate project id %s: %w", p.ID, errCorruptRecord)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func roundCurrency(x float64) float64 {
	return math.Round(x*100) / 100
}

func withinCent(a, b float64) bool {
	return math.Abs(a-roundCurrency(b)) <= 0.01
}
