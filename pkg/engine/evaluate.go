package engine

import (
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// Result is the outcome of evaluating one facts document against one model.
// Encoding the same inputs twice yields byte-identical JSON.
type Result struct {
	ActivatedDomains  []string           `json:"activated_domains"`
	RequiredQuestions []RequiredQuestion `json:"required_questions"`
	DerivedControls   []DerivedControl   `json:"derived_controls"`
}

// Evaluate runs domain activation, required question resolution and control
// derivation for f against m. Derivation is independent of activation.
func Evaluate(f facts.Facts, m *model.Model) Result {
	activated := ActivateDomains(f, m.TriggerRules)
	return Result{
		ActivatedDomains:  activated,
		RequiredQuestions: RequiredQuestions(f, m.BaseQuestions, activated, m.QuestionsFor),
		DerivedControls:   DeriveControls(f, m.ControlRules, m.Catalog, m.Links),
	}
}

// MissingQuestions returns the ids of unanswered required questions.
func (r Result) MissingQuestions() []string {
	return Missing(r.RequiredQuestions)
}

// ControlIDs returns the derived control ids, sorted.
func (r Result) ControlIDs() []string {
	return ControlIDs(r.DerivedControls)
}
