package arbitrage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/colconnect/arbitrage/pkg/cache"
	"github.com/colconnect/arbitrage/pkg/engine"
	"github.com/colconnect/arbitrage/pkg/store"
)

// latestScanWindow bounds how many recent raw documents the latest-run scan
// inspects before giving up. A single corrupt historical write must not
// block all reads.
const latestScanWindow = 20

// Service orchestrates the write path (weights -> scoring -> selection ->
// audit -> append) and the read path (normalize -> current contract).
type Service struct {
	runs    *store.RunStore
	weights *store.WeightsStore
	logger  *slog.Logger

	// runCache holds normalized runs by collectivite/arbitrage id. Run rows
	// are immutable, so a cached entry can never go stale. Nil when disabled.
	runCache *cache.Cache[Run]

	now   func() time.Time
	newID func(now time.Time) string
}

// NewService creates a Service over the given stores.
func NewService(runs *store.RunStore, weights *store.WeightsStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	var runCache *cache.Cache[Run]
	if cfg := cache.ConfigFromEnv(); cfg.Enabled {
		runCache = cache.New[Run](cfg.MaxSize, cfg.TTL)
	}

	return &Service{
		runs:     runs,
		weights:  weights,
		logger:   logger,
		runCache: runCache,
		now:      time.Now,
		newID:    newArbitrageID,
	}
}

// newArbitrageID generates a fresh run identifier. Every invocation creates
// a new run, even for an identical payload.
func newArbitrageID(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("arb-%d-%s", now.UTC().Year(), hex.EncodeToString(u[:])[:8])
}

// Run computes and persists one arbitrage run for a collectivite.
func (s *Service) Run(ctx context.Context, collectiviteID string, req RunRequest, triggeredBy string) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if triggeredBy == "" {
		triggeredBy = "anonymous"
	}

	now := s.now().UTC()
	audit, err := NewAudit(req, triggeredBy, engine.Version, now)
	if err != nil {
		return nil, fmt.Errorf("audit run input: %w", err)
	}

	weights, err := s.weights.Get(ctx, collectiviteID)
	if err != nil {
		return nil, err
	}

	projects, synthese, err := engine.Run(req.Projects, weights, req.Constraints, req.Hypotheses)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ArbitrageID:    s.newID(now),
		CollectiviteID: collectiviteID,
		Mandat:         req.Mandat,
		SchemaVersion:  SchemaVersion,
		Synthese:       synthese,
		Projects:       projects,
		Audit:          audit,
		CreatedAt:      now.Format(time.RFC3339),
		Weights:        &weights,
	}

	doc, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run document: %w", err)
	}

	record := &store.RunRecord{
		ArbitrageID:    run.ArbitrageID,
		CollectiviteID: collectiviteID,
		Mandat:         run.Mandat,
		EngineVersion:  audit.EngineVersion,
		TriggeredBy:    audit.TriggeredBy,
		PayloadHash:    audit.PayloadHash,
		Document:       string(doc),
		CreatedAt:      now,
	}
	if err := s.runs.Append(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("arbitrage run recorded",
		"collectivite", collectiviteID,
		"arbitrage_id", run.ArbitrageID,
		"projects", synthese.TotalCount,
		"retained", synthese.RetainedCount,
		"payload_hash", audit.PayloadHash,
	)
	return run, nil
}

// Get returns one historical run, normalized into the current contract.
func (s *Service) Get(ctx context.Context, collectiviteID, arbitrageID string) (*Run, error) {
	key := collectiviteID + "/" + arbitrageID
	if s.runCache != nil {
		if run, ok := s.runCache.Get(key); ok {
			return &run, nil
		}
	}

	record, err := s.runs.Get(ctx, collectiviteID, arbitrageID)
	if err != nil {
		return nil, err
	}
	run, err := NormalizeRun([]byte(record.Document))
	if err != nil {
		s.logger.Warn("stored run failed normalization",
			"collectivite", collectiviteID, "arbitrage_id", arbitrageID, "error", err)
		return nil, fmt.Errorf("run %s: %w", arbitrageID, store.ErrNotFound)
	}

	if s.runCache != nil {
		s.runCache.Set(key, run)
	}
	return &run, nil
}

// Latest walks the most recent documents and returns the first one that
// normalizes and validates, so a corrupt or partial historical write never
// blocks the read. An exhausted scan degrades to not-found.
func (s *Service) Latest(ctx context.Context, collectiviteID string) (*Run, error) {
	records, err := s.runs.GetLatest(ctx, collectiviteID, latestScanWindow)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		run, err := NormalizeRun([]byte(record.Document))
		if err == nil {
			err = ValidateRun(run)
		}
		if err != nil {
			s.logger.Warn("skipping non-conforming run document",
				"collectivite", collectiviteID, "arbitrage_id", record.ArbitrageID, "error", err)
			continue
		}
		return &run, nil
	}
	return nil, fmt.Errorf("no conforming run for collectivite %s: %w", collectiviteID, store.ErrNotFound)
}

// ListOffset serves the offset-paginated listing.
func (s *Service) ListOffset(ctx context.Context, collectiviteID string, params ListParams) (*OffsetPage, error) {
	records, hasNext, err := s.runs.List(ctx, collectiviteID, params.Offset(), params.Limit)
	if err != nil {
		return nil, err
	}
	total, err := s.runs.Count(ctx, collectiviteID)
	if err != nil {
		return nil, err
	}

	return &OffsetPage{
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		HasNext: hasNext,
		Items:   s.summarize(collectiviteID, records),
	}, nil
}

// ListCursor serves the cursor-paginated listing. The token encodes the
// last-seen sort key, so pages remain stable even when runs are inserted
// between fetches.
func (s *Service) ListCursor(ctx context.Context, collectiviteID string, limit int, token string) (*CursorPage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	c, err := decodeCursor(token)
	if err != nil {
		return nil, &engine.ValidationError{Field: "cursor", Message: err.Error()}
	}

	records, err := s.runs.ListAfter(ctx, collectiviteID, c.CreatedAt, c.ArbitrageID, limit+1)
	if err != nil {
		return nil, err
	}

	var nextCursor *string
	if len(records) > limit {
		records = records[:limit]
		last := records[limit-1]
		token := encodeCursor(cursor{CreatedAt: last.CreatedAt, ArbitrageID: last.ArbitrageID})
		nextCursor = &token
	}

	return &CursorPage{
		Items:      s.summarize(collectiviteID, records),
		NextCursor: nextCursor,
	}, nil
}

// summarize normalizes each stored document into a listing summary. A
// document that cannot be decoded at all is skipped, never fatal.
func (s *Service) summarize(collectiviteID string, records []store.RunRecord) []RunSummary {
	items := make([]RunSummary, 0, len(records))
	for _, record := range records {
		run, err := NormalizeRun([]byte(record.Document))
		if err != nil {
			s.logger.Warn("skipping undecodable run document in listing",
				"collectivite", collectiviteID, "arbitrage_id", record.ArbitrageID, "error", err)
			continue
		}
		items = append(items, RunSummary{
			ArbitrageID:    run.ArbitrageID,
			CollectiviteID: run.CollectiviteID,
			Mandat:         run.Mandat,
			Synthese:       run.Synthese,
			Audit:          run.Audit,
		})
	}
	return items
}

// GetSettings returns the stored weights for a collectivite, or the engine
// defaults when none exist.
func (s *Service) GetSettings(ctx context.Context, collectiviteID string) (*Settings, error) {
	weights, err := s.weights.Get(ctx, collectiviteID)
	if err != nil {
		return nil, err
	}
	return &Settings{
		CollectiviteID: collectiviteID,
		Climate:        weights.Climate,
		Education:      weights.Education,
		Financial:      weights.Financial,
	}, nil
}

// PutSettings replaces the weights for a collectivite. Idempotent.
func (s *Service) PutSettings(ctx context.Context, collectiviteID string, w engine.Weights) (*Settings, error) {
	record, err := s.weights.Upsert(ctx, collectiviteID, w)
	if err != nil {
		return nil, err
	}
	return &Settings{
		CollectiviteID: record.CollectiviteID,
		Climate:        record.ClimateWeight,
		Education:      record.EducationWeight,
		Financial:      record.FinancialWeight,
		UpdatedAt:      record.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// Health checks that the underlying store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.runs.Ping(ctx)
}
