package engine

import (
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// Matches reports whether f satisfies every clause of cond. An empty
// condition matches every document. Matches never fails: unreadable or
// malformed facts simply do not match.
func Matches(f facts.Facts, cond model.Condition) bool {
	for _, cl := range cond {
		if !MatchClause(f, cl) {
			return false
		}
	}
	return true
}

// MatchClause reports whether a single clause holds.
func MatchClause(f facts.Facts, cl model.Clause) bool {
	path := cl.Path()
	if facts.IsReasonsPath(path) {
		return false
	}
	actual := f.Lookup(path)
	if actual.Kind() == facts.KindList && cl.Expected.Kind() != facts.KindList {
		return actual.Contains(cl.Expected)
	}
	return actual.Equal(cl.Expected)
}

// ClauseResult is the outcome of one clause, used to explain why a rule did
// or did not fire.
type ClauseResult struct {
	Key      string      `json:"key"`
	Expected facts.Value `json:"expected"`
	Actual   facts.Value `json:"actual"`
	Matched  bool        `json:"matched"`
}

// Explain evaluates each clause of cond independently and reports the fact
// value it saw. Matches(f, cond) equals the conjunction of the results.
func Explain(f facts.Facts, cond model.Condition) []ClauseResult {
	out := make([]ClauseResult, len(cond))
	for i, cl := range cond {
		out[i] = ClauseResult{
			Key:      cl.Key,
			Expected: cl.Expected,
			Actual:   f.Lookup(cl.Path()),
			Matched:  MatchClause(f, cl),
		}
	}
	return out
}
