// Package engine implements the arbitrage scoring and selection algorithm.
// Everything in this package is pure: no storage, no clock, no I/O. The
// service layer feeds it candidate projects and weights and persists what
// comes out.
package engine

import "fmt"

// Version is the semantic version of the scoring/selection algorithm. It is
// stamped on every run and used to interpret historical documents.
const Version = "2.0.0"

// Ordinal levels accepted for impact fields.
const (
	LevelFort   = "fort"
	LevelMoyen  = "moyen"
	LevelFaible = "faible"
)

// Priority levels accepted for projects.
const (
	PriorityElevee  = "elevee"
	PriorityMoyenne = "moyenne"
	PriorityFaible  = "faible"
)

// Decision labels assigned by the planner.
const (
	DecisionRetained = "retenu"    // funded under this mandat's ceiling
	DecisionDeferred = "reporte"   // fundable in principle, deferred to a later mandat
	DecisionDropped  = "abandonne" // cost alone exceeds the ceiling, can never fit
)

// Project is a candidate capital-investment project submitted for a run.
// Immutable once submitted.
type Project struct {
	ID              string  `json:"id"`
	Name            string  `json:"nom"`
	CostTTC         float64 `json:"cout_ttc"`
	Priority        string  `json:"priorite"`
	ClimateImpact   string  `json:"impact_climat"`
	EducationImpact string  `json:"impact_education"`
	Year            int     `json:"annee_realisation"`
}

// Validate checks the declared domain of the project fields. Categorical
// fields are deliberately not validated here: an unknown level scores 0.0
// instead of failing the whole run.
func (p Project) Validate() error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Message: "project id is required"}
	}
	if p.Name == "" {
		return &ValidationError{Field: "nom", Message: "project name is required"}
	}
	if p.CostTTC < 0 {
		return &ValidationError{Field: "cout_ttc", Message: fmt.Sprintf("cost must be non-negative, got %v", p.CostTTC)}
	}
	if p.Year < 2000 || p.Year > 2100 {
		return &ValidationError{Field: "annee_realisation", Message: fmt.Sprintf("year must be within [2000, 2100], got %d", p.Year)}
	}
	return nil
}

// Weights are the per-collectivite scoring weights. Each weight lies in
// [0, 1]; range validation belongs to the weights store, not the engine.
type Weights struct {
	Climate   float64 `json:"poids_climat"`
	Education float64 `json:"poids_education"`
	Financial float64 `json:"poids_financier"`
}

// DefaultWeights returns the weights applied when a collectivite has no
// stored configuration.
func DefaultWeights() Weights {
	return Weights{Climate: 0.4, Education: 0.3, Financial: 0.3}
}

// ScoreDetails carries the sub-scores and the weights snapshot so a score
// can be explained after the fact.
type ScoreDetails struct {
	Climate   float64 `json:"score_climat"`
	Education float64 `json:"score_education"`
	Financial float64 `json:"score_financier"`
	Priority  float64 `json:"score_priorite"`
	Weights   Weights `json:"poids"`
}

// ScoredProject is a project with its computed score and, after planning,
// its retention decision.
type ScoredProject struct {
	ID       string       `json:"id"`
	Name     string       `json:"nom"`
	CostTTC  float64      `json:"cout_ttc"`
	Year     int          `json:"annee_realisation"`
	Score    float64      `json:"score"`
	Retained bool         `json:"retenu"`
	Decision string       `json:"decision,omitempty"`
	Details  ScoreDetails `json:"details_score"`
}

// Constraints bound a run.
type Constraints struct {
	BudgetMax         float64  `json:"budget_investissement_max"`
	DebtCapacityYears *float64 `json:"seuil_capacite_desendettement_ans,omitempty"`
}

// Validate checks the run constraints.
func (c Constraints) Validate() error {
	if c.BudgetMax <= 0 {
		return &ValidationError{Field: "budget_investissement_max", Message: fmt.Sprintf("budget ceiling must be positive, got %v", c.BudgetMax)}
	}
	if c.DebtCapacityYears != nil && *c.DebtCapacityYears <= 0 {
		return &ValidationError{Field: "seuil_capacite_desendettement_ans", Message: "debt capacity threshold must be positive"}
	}
	return nil
}

// Hypotheses are the financial assumptions used to project post-run
// debt-service capacity. Optional on a run.
type Hypotheses struct {
	SubsidyRate    float64 `json:"taux_subventions_moyen"`
	WorksInflation float64 `json:"inflation_travaux"`
	ReferenceYear  int     `json:"annee_reference"`
	AnnualSavings  float64 `json:"epargne_brute_annuelle"`
	OpeningDebt    float64 `json:"encours_dette_initial"`
}

// Validate checks the financial hypotheses.
func (h Hypotheses) Validate() error {
	if h.SubsidyRate < 0 || h.SubsidyRate > 1 {
		return &ValidationError{Field: "taux_subventions_moyen", Message: "subsidy rate must lie in [0, 1]"}
	}
	if h.WorksInflation < -0.5 || h.WorksInflation > 2 {
		return &ValidationError{Field: "inflation_travaux", Message: "works inflation must lie in [-0.5, 2]"}
	}
	if h.ReferenceYear < 2000 || h.ReferenceYear > 2100 {
		return &ValidationError{Field: "annee_reference", Message: "reference year must lie in [2000, 2100]"}
	}
	if h.AnnualSavings <= 0 {
		return &ValidationError{Field: "epargne_brute_annuelle", Message: "annual gross savings must be positive"}
	}
	if h.OpeningDebt < 0 {
		return &ValidationError{Field: "encours_dette_initial", Message: "opening debt must be non-negative"}
	}
	return nil
}

// CapacityProjection is the projected debt-service capacity after funding the
// retained projects, present on the synthese when hypotheses were supplied.
type CapacityProjection struct {
	NetRetainedCost float64 `json:"cout_net_retenu"`
	ProjectedDebt   float64 `json:"dette_projetee"`
	CapacityYears   float64 `json:"capacite_desendettement_ans"`
	ThresholdYears  float64 `json:"seuil_ans"`
	WithinThreshold bool    `json:"seuil_respecte"`
}

// Synthese aggregates the outcome of a run.
type Synthese struct {
	BudgetMax       float64             `json:"budget_max"`
	BudgetRetained  float64             `json:"budget_retenu"`
	BudgetRemaining float64             `json:"budget_restant"`
	TotalCount      int                 `json:"nb_projets_total"`
	RetainedCount   int                 `json:"nb_projets_retenus"`
	DeferredCount   int                 `json:"nb_projets_reportes"`
	DroppedCount    int                 `json:"nb_projets_abandonnes"`
	Capacity        *CapacityProjection `json:"capacite,omitempty"`
}

// ValidationError reports malformed or out-of-range input. Nothing is
// retried on a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
