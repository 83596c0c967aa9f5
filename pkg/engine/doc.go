// Package engine evaluates facts against a knowledge model.
//
// The engine is pure: every function reads its inputs, builds a fresh result
// and performs no I/O. Evaluations share nothing and may run concurrently
// against the same *model.Model.
//
// # Evaluation Flow
//
//	Facts + Model
//	       ↓
//	ActivateDomains (trigger rules)   → activated domains, sorted
//	       ↓
//	RequiredQuestions (base + active) → [{id, answered}]
//	       ↓
//	DeriveControls (control rules)    → controls with provenance, sorted by id
//
// Control derivation does not depend on activation. Activation only decides
// which questions are surfaced; a control rule fires whenever its condition
// holds, even if the owning domain was never activated.
//
// # Conditions
//
// A condition is a conjunction of (key, expected) clauses. Bare keys read
// base.<key>; dotted keys read the exact path. When the fact is a list and the
// expected value a scalar, the clause tests membership. Otherwise it tests
// strict equality. Absent or null facts never match, not even false.
//
// # Basic Usage
//
//	m, err := model.NewLoader(logger).Load(ctx, model.NewFileSource("model"))
//	if err != nil {
//	    return err
//	}
//	result := engine.Evaluate(f, m)
//	for _, c := range result.DerivedControls {
//	    fmt.Println(c.ID, len(c.Because))
//	}
//
//	// Safety-check a model upgrade before rollout
//	d := engine.Diff(f, current, candidate)
//	fmt.Println(d.Controls.Added, d.Questions.NewlyMissing)
package engine
