package engine

import "sort"

// Allocate walks the scored projects in merit order and decides which fit
// under the budget ceiling. First-fit greedy: a project that does not fit is
// skipped, and later cheaper projects can still be retained. This is a
// deliberate predictability trade-off over a knapsack optimum.
//
// Ordering uses the rounded scores (descending) with cost ascending as the
// tie-break, so the cheaper of two equally scored projects wins. The budget
// arithmetic uses the unrounded costs.
func Allocate(scored []ScoredProject, budgetMax float64) ([]ScoredProject, Synthese) {
	out := make([]ScoredProject, len(scored))
	copy(out, scored)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CostTTC < out[j].CostTTC
	})

	retained := 0.0
	for i := range out {
		if retained+out[i].CostTTC <= budgetMax {
			out[i].Retained = true
			out[i].Decision = DecisionRetained
			retained += out[i].CostTTC
			continue
		}
		out[i].Retained = false
		if out[i].CostTTC > budgetMax {
			// Could never fit this mandat's ceiling on its own.
			out[i].Decision = DecisionDropped
		} else {
			out[i].Decision = DecisionDeferred
		}
	}

	synthese := Synthese{
		BudgetMax:       round2(budgetMax),
		BudgetRetained:  round2(retained),
		BudgetRemaining: round2(budgetMax - retained),
		TotalCount:      len(out),
	}
	for _, p := range out {
		switch p.Decision {
		case DecisionRetained:
			synthese.RetainedCount++
		case DecisionDeferred:
			synthese.DeferredCount++
		case DecisionDropped:
			synthese.DroppedCount++
		}
	}

	return out, synthese
}
