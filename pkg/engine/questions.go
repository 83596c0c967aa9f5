package engine

import (
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// RequiredQuestion is a question that must be answered, identified by its
// full <domain>.<id> path.
type RequiredQuestion struct {
	ID       string `json:"id"`
	Answered bool   `json:"answered"`
}

// QuestionLookup returns the question catalog of a domain. Unknown domains
// return nil.
type QuestionLookup func(domain string) []model.Question

// RequiredQuestions lists every base question followed by the questions of
// each activated domain, in the order the domains are given. A question is
// answered when its path resolves to a non-null value; empty strings and
// empty lists count as answers.
func RequiredQuestions(f facts.Facts, base []model.Question, activated []string, lookup QuestionLookup) []RequiredQuestion {
	out := make([]RequiredQuestion, 0, len(base))
	add := func(section string, qs []model.Question) {
		for _, q := range qs {
			id := section + "." + q.ID
			out = append(out, RequiredQuestion{ID: id, Answered: f.Has(id)})
		}
	}

	add(facts.BaseSection, base)
	for _, domain := range activated {
		if lookup == nil {
			break
		}
		add(domain, lookup(domain))
	}
	return out
}

// Missing returns the ids of the unanswered questions, in input order.
func Missing(required []RequiredQuestion) []string {
	out := []string{}
	for _, q := range required {
		if !q.Answered {
			out = append(out, q.ID)
		}
	}
	return out
}
