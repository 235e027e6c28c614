package engine

import "math"

// impactLevels maps categorical impact levels to the fixed ordinal scale.
// Unknown or missing levels map to 0.0 rather than failing the run.
var impactLevels = map[string]float64{
	LevelFaible: 0.2,
	LevelMoyen:  0.6,
	LevelFort:   1.0,
}

// priorityLevels maps the priority field to its own ordinal scale.
var priorityLevels = map[string]float64{
	PriorityFaible:  0.2,
	PriorityMoyenne: 0.6,
	PriorityElevee:  1.0,
}

func mapImpact(level string) float64 {
	return impactLevels[level]
}

func mapPriority(p string) float64 {
	return priorityLevels[p]
}

// round6 fixes the score precision at 6 decimal places so identical inputs
// produce bit-identical scores across platforms.
func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}

// round2 is the precision used for currency amounts in the synthese.
func round2(x float64) float64 {
	return math.Round(x*1e2) / 1e2
}

// Score computes the normalized score of a single project under the given
// weights and budget ceiling. The engine does not renormalize the weights;
// weight hygiene is the caller's responsibility.
func Score(p Project, w Weights, budgetMax float64) (ScoredProject, error) {
	if err := p.Validate(); err != nil {
		return ScoredProject{}, err
	}

	climate := mapImpact(p.ClimateImpact)
	education := mapImpact(p.EducationImpact)
	priority := mapPriority(p.Priority)

	// Monotonically decreasing in cost, bounded to (0, 1]. The max guards
	// against a zero ceiling.
	financial := 1.0 / (1.0 + p.CostTTC/math.Max(budgetMax, 1.0))

	score := w.Climate*climate +
		w.Education*education +
		w.Financial*(0.6*financial+0.4*priority)

	return ScoredProject{
		ID:      p.ID,
		Name:    p.Name,
		CostTTC: p.CostTTC,
		Year:    p.Year,
		Score:   round6(score),
		Details: ScoreDetails{
			Climate:   climate,
			Education: education,
			Financial: financial,
			Priority:  priority,
			Weights:   w,
		},
	}, nil
}

// ScoreAll scores every project in the slice, preserving input order. The
// first validation failure aborts the whole run.
func ScoreAll(projects []Project, w Weights, budgetMax float64) ([]ScoredProject, error) {
	scored := make([]ScoredProject, 0, len(projects))
	for _, p := range projects {
		sp, err := Score(p, w, budgetMax)
		if err != nil {
			return nil, err
		}
		scored = append(scored, sp)
	}
	return scored, nil
}
