package engine

import (
	"sort"

	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// Placeholder values for controls required by a rule but absent from the
// catalog.
const (
	MissingTitle = "(missing from catalog)"
	UnknownField = "unknown"
)

// DerivedControl is a control instance in an evaluation result.
type DerivedControl struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Scope             string   `json:"scope"`
	EnforcementIntent string   `json:"enforcement_intent"`
	ActivationPhase   string   `json:"activation_phase"`
	EvidenceType      []string `json:"evidence_type"`
	// InCatalog is false when the id was required by a rule but the catalog
	// has no entry for it.
	InCatalog bool `json:"-"`
	// Because holds the full condition of every rule that required the
	// control, in rule order. Identical conditions from different rules are
	// all kept.
	Because    []model.Condition `json:"because"`
	References []model.Reference `json:"references,omitempty"`
}

// DeriveControls applies every control rule whose condition matches f and
// returns the required controls sorted by id.
//
// Each control is seeded from the catalog, or from placeholder values when
// the catalog has no entry, so rule and catalog drift stays visible instead
// of being dropped. Evidence references are attached when links has a
// non-empty list for the id.
func DeriveControls(f facts.Facts, rules []model.ControlRule, catalog map[string]model.Control, links map[string][]model.Reference) []DerivedControl {
	acc := make(map[string]*DerivedControl)
	for _, rule := range rules {
		if !Matches(f, rule.When) {
			continue
		}
		for _, id := range rule.Require {
			dc, ok := acc[id]
			if !ok {
				dc = seedControl(id, catalog)
				acc[id] = dc
			}
			dc.Because = append(dc.Because, rule.When)
		}
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]DerivedControl, 0, len(ids))
	for _, id := range ids {
		dc := acc[id]
		if refs := links[id]; len(refs) > 0 {
			dc.References = append([]model.Reference(nil), refs...)
		}
		out = append(out, *dc)
	}
	return out
}

func seedControl(id string, catalog map[string]model.Control) *DerivedControl {
	c, ok := catalog[id]
	if !ok {
		return &DerivedControl{
			ID:                id,
			Title:             MissingTitle,
			Scope:             UnknownField,
			EnforcementIntent: UnknownField,
			ActivationPhase:   UnknownField,
			EvidenceType:      []string{},
		}
	}
	return &DerivedControl{
		ID:                id,
		Title:             c.Title,
		Description:       c.Description,
		Scope:             c.Scope,
		EnforcementIntent: c.EnforcementIntent,
		ActivationPhase:   c.ActivationPhase,
		EvidenceType:      append([]string{}, c.EvidenceType...),
		InCatalog:         true,
	}
}

// ControlIDs returns the ids of derived controls in result order.
func ControlIDs(controls []DerivedControl) []string {
	out := make([]string, len(controls))
	for i, c := range controls {
		out[i] = c.ID
	}
	return out
}
