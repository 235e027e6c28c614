package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id string, cost, score float64) ScoredProject {
	return ScoredProject{ID: id, Name: id, CostTTC: cost, Score: score, Year: 2026}
}

func TestAllocate_GreedyFirstFit(t *testing.T) {
	// A fits (60/100), B does not (110 > 100) and is deferred, C still
	// fits afterwards (70/100).
	projects := []ScoredProject{
		scored("A", 60, 0.9),
		scored("B", 50, 0.8),
		scored("C", 10, 0.5),
	}

	out, synthese := Allocate(projects, 100)

	byID := map[string]ScoredProject{}
	for _, p := range out {
		byID[p.ID] = p
	}
	assert.True(t, byID["A"].Retained)
	assert.False(t, byID["B"].Retained)
	assert.True(t, byID["C"].Retained)
	assert.Equal(t, DecisionDeferred, byID["B"].Decision)

	assert.Equal(t, 3, synthese.TotalCount)
	assert.Equal(t, 2, synthese.RetainedCount)
	assert.Equal(t, 70.0, synthese.BudgetRetained)
	assert.Equal(t, 30.0, synthese.BudgetRemaining)
	assert.Equal(t, 100.0, synthese.BudgetMax)
}

func TestAllocate_EmptyList(t *testing.T) {
	out, synthese := Allocate(nil, 500)

	assert.Empty(t, out)
	assert.Equal(t, 0, synthese.TotalCount)
	assert.Equal(t, 0, synthese.RetainedCount)
	assert.Equal(t, 0.0, synthese.BudgetRetained)
	assert.Equal(t, 500.0, synthese.BudgetRemaining)
}

func TestAllocate_ExactFit(t *testing.T) {
	out, synthese := Allocate([]ScoredProject{scored("A", 100, 0.5)}, 100)

	require.Len(t, out, 1)
	assert.True(t, out[0].Retained)
	assert.Equal(t, 100.0, synthese.BudgetRetained)
	assert.Equal(t, 0.0, synthese.BudgetRemaining)
}

func TestAllocate_NeverExceedsBudget(t *testing.T) {
	projects := []ScoredProject{
		scored("A", 40, 0.9),
		scored("B", 40, 0.8),
		scored("C", 40, 0.7),
		scored("D", 40, 0.6),
	}

	_, synthese := Allocate(projects, 100)

	assert.LessOrEqual(t, synthese.BudgetRetained, synthese.BudgetMax)
	assert.Equal(t, 2, synthese.RetainedCount)
}

func TestAllocate_TieBreakCheaperWins(t *testing.T) {
	projects := []ScoredProject{
		scored("expensive", 80, 0.7),
		scored("cheap", 30, 0.7),
	}

	out, _ := Allocate(projects, 90)

	// Equal score: the cheaper project is walked first and retained; the
	// expensive one no longer fits.
	assert.Equal(t, "cheap", out[0].ID)
	assert.True(t, out[0].Retained)
	assert.False(t, out[1].Retained)
}

func TestAllocate_DecisionLabels(t *testing.T) {
	projects := []ScoredProject{
		scored("keep", 50, 0.9),
		scored("defer", 80, 0.5),     // fits the ceiling alone, not after keep
		scored("drop", 500, 0.8),     // exceeds the ceiling on its own
	}

	out, synthese := Allocate(projects, 100)

	byID := map[string]ScoredProject{}
	for _, p := range out {
		byID[p.ID] = p
	}
	assert.Equal(t, DecisionRetained, byID["keep"].Decision)
	assert.Equal(t, DecisionDeferred, byID["defer"].Decision)
	assert.Equal(t, DecisionDropped, byID["drop"].Decision)

	assert.Equal(t, 1, synthese.RetainedCount)
	assert.Equal(t, 1, synthese.DeferredCount)
	assert.Equal(t, 1, synthese.DroppedCount)
}

func TestAllocate_InputNotMutated(t *testing.T) {
	projects := []ScoredProject{scored("A", 10, 0.5)}

	out, _ := Allocate(projects, 100)

	assert.False(t, projects[0].Retained)
	assert.True(t, out[0].Retained)
}

func TestRun_EndToEnd(t *testing.T) {
	projects := []Project{
		{ID: "a", Name: "A", CostTTC: 60, Priority: PriorityElevee, ClimateImpact: LevelFort, EducationImpact: LevelFort, Year: 2026},
		{ID: "b", Name: "B", CostTTC: 50, Priority: PriorityMoyenne, ClimateImpact: LevelMoyen, EducationImpact: LevelMoyen, Year: 2027},
	}

	out, synthese, err := Run(projects, DefaultWeights(), Constraints{BudgetMax: 100}, nil)
	require.NoError(t, err)

	assert.Len(t, out, 2)
	assert.Equal(t, 2, synthese.TotalCount)
	assert.LessOrEqual(t, synthese.BudgetRetained, 100.0)
	assert.Nil(t, synthese.Capacity)
}

func TestRun_DuplicateProjectID(t *testing.T) {
	projects := []Project{
		{ID: "a", Name: "A", CostTTC: 60, Year: 2026},
		{ID: "a", Name: "A bis", CostTTC: 50, Year: 2027},
	}

	_, _, err := Run(projects, DefaultWeights(), Constraints{BudgetMax: 100}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRun_InvalidBudget(t *testing.T) {
	_, _, err := Run(nil, DefaultWeights(), Constraints{BudgetMax: 0}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "budget_investissement_max", verr.Field)
}
