// Package report renders assessment results as plain text for terminals and
// CI logs.
package report

import (
	"fmt"
	"io"
	"strings"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/engine"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

// printer remembers the first write error so rendering code can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func list(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// Evaluation writes the activated domains, required questions and derived
// controls of ev.
func Evaluation(w io.Writer, ev *assessment.Evaluation) error {
	p := &printer{w: w}
	if ev.SystemID != "" {
		p.printf("System: %s\n", ev.SystemID)
	}
	p.printf("Model version: %s\n", ev.ModelVersion)
	p.line("")

	activatedDomains(p, ev.Result.ActivatedDomains)
	requiredQuestions(p, ev.Result)
	derivedControls(p, ev.Result.DerivedControls)
	return p.err
}

func activatedDomains(p *printer, domains []string) {
	p.line("Activated domains:")
	if len(domains) == 0 {
		p.line("- (none)")
	}
	for _, d := range domains {
		p.printf("- %s (%s)\n", d, model.DomainFile(d))
	}
	p.line("")
}

func requiredQuestions(p *printer, r engine.Result) {
	bySection := make(map[string][]engine.RequiredQuestion)
	for _, q := range r.RequiredQuestions {
		section, _, _ := strings.Cut(q.ID, ".")
		bySection[section] = append(bySection[section], q)
	}
	marker := func(q engine.RequiredQuestion) string {
		if q.Answered {
			return "answered"
		}
		return "missing"
	}

	p.line("Required questions (progressive disclosure):")
	p.line("- base:")
	for _, q := range bySection[facts.BaseSection] {
		p.printf("  - %s (%s)\n", strings.TrimPrefix(q.ID, facts.BaseSection+"."), marker(q))
	}
	for _, d := range r.ActivatedDomains {
		p.printf("- %s:\n", d)
		qs := bySection[d]
		if len(qs) == 0 {
			p.line("  - (no question file found)")
			continue
		}
		for _, q := range qs {
			p.printf("  - %s (%s)\n", q.ID, marker(q))
		}
	}
	p.line("")
}

func derivedControls(p *printer, controls []engine.DerivedControl) {
	p.line("Derived controls:")
	if len(controls) == 0 {
		p.line("- (none)")
		return
	}
	for _, c := range controls {
		p.printf("- %s: %s\n", c.ID, c.Title)
		p.printf("  scope: %s\n", c.Scope)
		p.printf("  enforcement_intent: %s\n", c.EnforcementIntent)
		p.printf("  activation_phase: %s\n", c.ActivationPhase)
		if len(c.EvidenceType) > 0 {
			p.printf("  evidence_type: %s\n", list(c.EvidenceType))
		}
		p.line("  because:")
		for _, why := range c.Because {
			p.printf("    - when: %s\n", why)
		}
		if len(c.References) > 0 {
			p.line("  references:")
			for _, ref := range c.References {
				if ref.Description != "" {
					p.printf("    - %s %s: %s\n", ref.Type, ref.Ref, ref.Description)
				} else {
					p.printf("    - %s %s\n", ref.Type, ref.Ref)
				}
			}
		}
	}
	p.line("")
}

// Comparison writes the control, missing question and domain deltas of c.
func Comparison(w io.Writer, c *assessment.Comparison) error {
	p := &printer{w: w}
	p.printf("Diff: %s (%s) -> %s (%s)\n", c.Old.ModelRef, c.Old.ModelVersion, c.New.ModelRef, c.New.ModelVersion)
	p.line("")

	p.line("Controls:")
	if len(c.Controls.Added) == 0 && len(c.Controls.Removed) == 0 {
		p.line("- (no changes)")
	}
	if len(c.Controls.Added) > 0 {
		p.printf("- added: %s\n", list(c.Controls.Added))
	}
	if len(c.Controls.Removed) > 0 {
		p.printf("- removed: %s\n", list(c.Controls.Removed))
	}
	p.line("")

	p.line("Required questions (missing):")
	if len(c.Questions.NewlyMissing) == 0 && len(c.Questions.NoLongerMissing) == 0 {
		p.line("- (no changes)")
	}
	if len(c.Questions.NewlyMissing) > 0 {
		p.printf("- newly missing: %s\n", list(c.Questions.NewlyMissing))
	}
	if len(c.Questions.NoLongerMissing) > 0 {
		p.printf("- no longer missing: %s\n", list(c.Questions.NoLongerMissing))
	}
	p.line("")

	p.line("Activated domains:")
	if c.DomainsChanged() {
		p.printf("- old: %s\n", list(c.ActivatedDomains.Old))
		p.printf("- new: %s\n", list(c.ActivatedDomains.New))
	} else {
		p.printf("- (unchanged) %s\n", list(c.ActivatedDomains.Old))
	}
	return p.err
}

// Portfolio writes one aligned row per system.
func Portfolio(w io.Writer, pf *assessment.Portfolio) error {
	p := &printer{w: w}
	p.printf("Model version: %s\n", pf.ModelVersion)
	p.line("")
	if len(pf.Rows) == 0 {
		p.line("(no systems)")
	} else {
		table(p, "SYSTEM\tCONTROLS\tMISSING\tDOMAINS", func(tp *printer) {
			for _, r := range pf.Rows {
				tp.printf("%s\t%d\t%d\t%s\n", r.ID, r.DerivedControls, r.MissingAnswers, strings.Join(r.Domains, ","))
			}
		})
	}
	for _, s := range pf.Skipped {
		p.printf("skipped %s: %s\n", s.ID, s.Error)
	}
	return p.err
}

// Warnings writes one "WARN:" line per warning.
func Warnings(w io.Writer, warnings []model.Warning) error {
	p := &printer{w: w}
	for _, warning := range warnings {
		p.printf("WARN: %s\n", warning)
	}
	return p.err
}
