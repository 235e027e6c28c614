package engine

import "math"

// ProjectCapacity projects the post-run debt-service capacity from the
// retained projects and the supplied financial hypotheses.
//
// The net cost of a retained project is its cost after the average subsidy
// rate, inflated from the reference year to its realisation year. Projects
// scheduled before the reference year are not deflated. Projected debt is
// the opening debt plus the total net retained cost; capacity is that debt
// expressed in years of annual gross savings.
func ProjectCapacity(projects []ScoredProject, h Hypotheses, thresholdYears float64) CapacityProjection {
	netCost := 0.0
	for _, p := range projects {
		if !p.Retained {
			continue
		}
		years := p.Year - h.ReferenceYear
		if years < 0 {
			years = 0
		}
		inflation := math.Pow(1.0+h.WorksInflation, float64(years))
		netCost += p.CostTTC * (1.0 - h.SubsidyRate) * inflation
	}

	debt := h.OpeningDebt + netCost
	capacity := debt / h.AnnualSavings

	return CapacityProjection{
		NetRetainedCost: round2(netCost),
		ProjectedDebt:   round2(debt),
		CapacityYears:   round2(capacity),
		ThresholdYears:  thresholdYears,
		WithinThreshold: capacity <= thresholdYears,
	}
}

// Run scores the candidate projects, allocates them under the constraints
// and, when hypotheses are present and a debt-capacity threshold is set,
// attaches the capacity projection to the synthese.
func Run(projects []Project, w Weights, constraints Constraints, hypotheses *Hypotheses) ([]ScoredProject, Synthese, error) {
	if err := constraints.Validate(); err != nil {
		return nil, Synthese{}, err
	}
	if hypotheses != nil {
		if err := hypotheses.Validate(); err != nil {
			return nil, Synthese{}, err
		}
	}
	if err := validateUniqueIDs(projects); err != nil {
		return nil, Synthese{}, err
	}

	scored, err := ScoreAll(projects, w, constraints.BudgetMax)
	if err != nil {
		return nil, Synthese{}, err
	}

	allocated, synthese := Allocate(scored, constraints.BudgetMax)

	if hypotheses != nil && constraints.DebtCapacityYears != nil {
		capacity := ProjectCapacity(allocated, *hypotheses, *constraints.DebtCapacityYears)
		synthese.Capacity = &capacity
	}

	return allocated, synthese, nil
}

func validateUniqueIDs(projects []Project) error {
	seen := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		if _, dup := seen[p.ID]; dup {
			return &ValidationError{Field: "id", Message: "duplicate project id " + p.ID}
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
