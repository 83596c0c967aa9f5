package engine

import (
	"sort"

	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// ActivateDomains returns the union of the domains activated by every
// trigger rule whose condition matches f, sorted. Rule order is irrelevant
// and a domain activated by several rules appears once.
func ActivateDomains(f facts.Facts, rules []model.TriggerRule) []string {
	seen := make(map[string]struct{})
	for _, rule := range rules {
		if !Matches(f, rule.When) {
			continue
		}
		for _, d := range rule.Activate {
			seen[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
