package arbitrage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/colconnect/arbitrage/pkg/engine"
	"github.com/colconnect/arbitrage/pkg/store"
)

type serviceFixture struct {
	svc   *Service
	runs  *store.RunStore
	clock time.Time
}

// newServiceFixture wires a Service over an in-memory SQLite store with a
// deterministic stepping clock and sequential run ids.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	runs := store.NewRunStore(db)
	weights := store.NewWeightsStore(db)
	require.NoError(t, runs.AutoMigrate())
	require.NoError(t, weights.AutoMigrate())

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &serviceFixture{
		svc:   NewService(runs, weights, quiet),
		runs:  runs,
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	seq := 0
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.svc.newID = func(now time.Time) string {
		seq++
		return fmt.Sprintf("arb-%d-%04d", now.Year(), seq)
	}
	return f
}

func testRunRequest() RunRequest {
	req := RunRequest{
		Mandat: "2026-2032",
		Projects: []engine.Project{
			{ID: "ecole", Name: "Renovation ecole", CostTTC: 60, Priority: engine.PriorityElevee,
				ClimateImpact: engine.LevelMoyen, EducationImpact: engine.LevelFort, Year: 2027},
			{ID: "piste", Name: "Piste cyclable", CostTTC: 30, Priority: engine.PriorityMoyenne,
				ClimateImpact: engine.LevelFort, EducationImpact: engine.LevelFaible, Year: 2028},
		},
	}
	req.Constraints.BudgetMax = 80
	return req
}

func TestService_RunPersistsAndReadsBack(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
	require.NoError(t, err)

	assert.Equal(t, "arb-2026-0001", run.ArbitrageID)
	assert.Equal(t, "ville-a", run.CollectiviteID)
	assert.Equal(t, SchemaVersion, run.SchemaVersion)
	assert.Equal(t, engine.Version, run.Audit.EngineVersion)
	assert.Equal(t, "alice", run.Audit.TriggeredBy)
	assert.Equal(t, 2, run.Synthese.TotalCount)

	got, err := f.svc.Get(ctx, "ville-a", run.ArbitrageID)
	require.NoError(t, err)
	assert.Equal(t, run, got, "the stored document round-trips through normalization unchanged")
}

func TestService_RunEachInvocationCreatesNewRun(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	req := testRunRequest()

	first, err := f.svc.Run(ctx, "ville-a", req, "alice")
	require.NoError(t, err)
	second, err := f.svc.Run(ctx, "ville-a", req, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first.ArbitrageID, second.ArbitrageID)
	assert.Equal(t, first.Audit.PayloadHash, second.Audit.PayloadHash,
		"identical payloads hash identically across runs")
	assert.Equal(t, first.Synthese, second.Synthese, "identical inputs yield identical outcomes")

	total, err := f.runs.Count(ctx, "ville-a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestService_RunRejectsInvalidRequest(t *testing.T) {
	f := newServiceFixture(t)

	req := testRunRequest()
	req.Mandat = ""
	_, err := f.svc.Run(context.Background(), "ville-a", req, "alice")

	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mandat", verr.Field)

	total, cErr := f.runs.Count(context.Background(), "ville-a")
	require.NoError(t, cErr)
	assert.Zero(t, total, "nothing is persisted on a validation failure")
}

func TestService_GetServesFromCacheOnRepeat(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
	require.NoError(t, err)
	require.NotNil(t, f.svc.runCache)
	assert.Zero(t, f.svc.runCache.Size(), "writes do not populate the cache")

	first, err := f.svc.Get(ctx, "ville-a", run.ArbitrageID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.runCache.Size())

	second, err := f.svc.Get(ctx, "ville-a", run.ArbitrageID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.svc.runCache.Size())
}

func TestService_GetUnknownRun(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Get(context.Background(), "ville-a", "arb-2026-zzzz")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_GetScopedByCollectivite(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, "ville-b", run.ArbitrageID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_LatestSkipsNonConformingDocuments(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	good, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
	require.NoError(t, err)

	// A newer row whose document is truncated mid-write.
	require.NoError(t, f.runs.Append(ctx, &store.RunRecord{
		ArbitrageID:    "arb-2026-corrupt",
		CollectiviteID: "ville-a",
		Document:       `{"arbitrage_id": "arb-2026-corrupt", "proj`,
		CreatedAt:      f.clock.Add(time.Hour),
	}))
	// And another that decodes but fails the output contract: the document
	// body never recorded its collectivite.
	require.NoError(t, f.runs.Append(ctx, &store.RunRecord{
		ArbitrageID:    "arb-2026-invalid",
		CollectiviteID: "ville-a",
		Document:       `{"arbitrage_id": "arb-2026-invalid", "projets": []}`,
		CreatedAt:      f.clock.Add(2 * time.Hour),
	}))

	latest, err := f.svc.Latest(ctx, "ville-a")
	require.NoError(t, err)
	assert.Equal(t, good.ArbitrageID, latest.ArbitrageID)
}

func TestService_LatestNoRuns(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Latest(context.Background(), "ville-a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ListOffsetPaging(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
		require.NoError(t, err)
	}

	page1, err := f.svc.ListOffset(ctx, "ville-a", ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.True(t, page1.HasNext)
	assert.EqualValues(t, 15, page1.Total)

	page2, err := f.svc.ListOffset(ctx, "ville-a", ListParams{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 5)
	assert.False(t, page2.HasNext)

	seen := make(map[string]bool)
	for _, item := range append(page1.Items, page2.Items...) {
		assert.False(t, seen[item.ArbitrageID], "pages must not overlap")
		seen[item.ArbitrageID] = true
	}
	assert.Len(t, seen, 15)

	// Newest first across the whole listing.
	assert.Equal(t, "arb-2026-0015", page1.Items[0].ArbitrageID)
	assert.Equal(t, "arb-2026-0001", page2.Items[4].ArbitrageID)
}

func TestService_ListCursorStableUnderInserts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
		require.NoError(t, err)
	}

	page1, err := f.svc.ListCursor(ctx, "ville-a", 2, "")
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.NotNil(t, page1.NextCursor)
	assert.Equal(t, "arb-2026-0005", page1.Items[0].ArbitrageID)

	// A run lands between the two page fetches.
	_, err = f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
	require.NoError(t, err)

	page2, err := f.svc.ListCursor(ctx, "ville-a", 2, *page1.NextCursor)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, "arb-2026-0003", page2.Items[0].ArbitrageID)
	assert.Equal(t, "arb-2026-0002", page2.Items[1].ArbitrageID)
	require.NotNil(t, page2.NextCursor)

	page3, err := f.svc.ListCursor(ctx, "ville-a", 2, *page2.NextCursor)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Equal(t, "arb-2026-0001", page3.Items[0].ArbitrageID)
	assert.Nil(t, page3.NextCursor, "exhausted listing carries no cursor")
}

func TestService_ListCursorRejectsMalformedToken(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.ListCursor(context.Background(), "ville-a", 10, "not-a-cursor")
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cursor", verr.Field)
}

func TestService_SettingsDefaultsAndUpdate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	settings, err := f.svc.GetSettings(ctx, "ville-a")
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultWeights(), engine.Weights{
		Climate:   settings.Climate,
		Education: settings.Education,
		Financial: settings.Financial,
	})

	updated, err := f.svc.PutSettings(ctx, "ville-a", engine.Weights{Climate: 0.6, Education: 0.2, Financial: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.6, updated.Climate)
	assert.NotEmpty(t, updated.UpdatedAt)

	// The next run scores with the stored weights.
	run, err := f.svc.Run(ctx, "ville-a", testRunRequest(), "alice")
	require.NoError(t, err)
	require.NotNil(t, run.Weights)
	assert.Equal(t, 0.6, run.Weights.Climate)
}

func TestService_Health(t *testing.T) {
	f := newServiceFixture(t)
	assert.NoError(t, f.svc.Health(context.Background()))
}
