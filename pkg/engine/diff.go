package engine

import (
	"sort"

	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// DiffResult describes how the outcome for one facts document changes
// between two model versions. Every list is sorted and never nil, so an
// empty delta encodes as [] rather than null.
type DiffResult struct {
	Controls         ControlDelta  `json:"controls"`
	Questions        QuestionDelta `json:"questions"`
	ActivatedDomains DomainLists   `json:"activatedDomains"`
}

// ControlDelta lists control ids derived by only one of the two models.
type ControlDelta struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// QuestionDelta lists required questions whose missing state changed.
type QuestionDelta struct {
	NewlyMissing    []string `json:"newlyMissing"`
	NoLongerMissing []string `json:"noLongerMissing"`
}

// DomainLists holds the raw activation lists of both models.
type DomainLists struct {
	Old []string `json:"old"`
	New []string `json:"new"`
}

// Empty reports whether the two models produce the same controls and the
// same missing questions.
func (d DiffResult) Empty() bool {
	return len(d.Controls.Added) == 0 && len(d.Controls.Removed) == 0 &&
		len(d.Questions.NewlyMissing) == 0 && len(d.Questions.NoLongerMissing) == 0
}

// DomainsChanged reports whether the activation lists differ.
func (d DiffResult) DomainsChanged() bool {
	if len(d.ActivatedDomains.Old) != len(d.ActivatedDomains.New) {
		return true
	}
	for i := range d.ActivatedDomains.Old {
		if d.ActivatedDomains.Old[i] != d.ActivatedDomains.New[i] {
			return true
		}
	}
	return false
}

// Diff evaluates f against both models and compares the outcomes.
func Diff(f facts.Facts, oldModel, newModel *model.Model) DiffResult {
	return DiffResults(Evaluate(f, oldModel), Evaluate(f, newModel))
}

// DiffResults compares two evaluation results of the same facts.
func DiffResults(oldResult, newResult Result) DiffResult {
	oldControls, newControls := oldResult.ControlIDs(), newResult.ControlIDs()
	oldMissing, newMissing := oldResult.MissingQuestions(), newResult.MissingQuestions()

	return DiffResult{
		Controls: ControlDelta{
			Added:   difference(newControls, oldControls),
			Removed: difference(oldControls, newControls),
		},
		Questions: QuestionDelta{
			NewlyMissing:    difference(newMissing, oldMissing),
			NoLongerMissing: difference(oldMissing, newMissing),
		},
		ActivatedDomains: DomainLists{
			Old: nonNil(oldResult.ActivatedDomains),
			New: nonNil(newResult.ActivatedDomains),
		},
	}
}

// difference returns the sorted, de-duplicated elements of a not in b.
func difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, s := range b {
		exclude[s] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	out := []string{}
	for _, s := range a {
		if _, skip := exclude[s]; skip {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
