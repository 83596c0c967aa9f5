package report

import (
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
)

// table writes aligned columns through a tabwriter and flushes it, carrying
// any error into p.
func table(p *printer, header string, rows func(tp *printer)) {
	if p.err != nil {
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	tp := &printer{w: tw}
	tp.line(header)
	rows(tp)
	if tp.err == nil {
		tp.err = tw.Flush()
	}
	p.err = tp.err
}

// History writes one row per stored evaluation, newest first as given.
func History(w io.Writer, records []*history.Record) error {
	p := &printer{w: w}
	if len(records) == 0 {
		p.line("(no evaluations recorded)")
		return p.err
	}
	table(p, "EVALUATED\tSYSTEM\tMODEL\tVERSION\tCONTROLS\tMISSING", func(tp *printer) {
		for _, r := range records {
			tp.printf("%s\t%s\t%s\t%s\t%d\t%d\n",
				r.EvaluatedAt.UTC().Format(time.RFC3339), r.SystemID, r.ModelRef, r.ModelVersion,
				len(r.DerivedControls), len(r.MissingAnswers))
		}
	})
	return p.err
}

// Revisions writes the commits that changed a model.
func Revisions(w io.Writer, revs []model.Revision) error {
	p := &printer{w: w}
	if len(revs) == 0 {
		p.line("(no revisions)")
		return p.err
	}
	table(p, "COMMIT\tDATE\tAUTHOR\tMESSAGE", func(tp *printer) {
		for _, r := range revs {
			msg, _, _ := strings.Cut(r.Message, "\n")
			tp.printf("%s\t%s\t%s\t%s\n", r.Short, r.When.UTC().Format("2006-01-02"), r.Author, msg)
		}
	})
	return p.err
}

// ModelInfo writes a summary of a model: version, question counts per
// domain and trigger rules.
func ModelInfo(w io.Writer, info *assessment.ModelInfo) error {
	p := &printer{w: w}
	p.printf("Model: %s\n", info.ModelRef)
	p.printf("Model version: %s\n", info.ModelVersion)
	p.printf("Controls in catalog: %d\n", info.Controls)
	p.line("")

	p.printf("Base questions: %d\n", len(info.BaseQuestions))
	p.line("Domains:")
	if len(info.Domains) == 0 {
		p.line("- (none)")
	}
	for _, d := range info.Domains {
		p.printf("- %s (%d questions)", d, len(info.DomainQuestions[d]))
		if desc := info.DomainDescriptions[d]; desc != "" {
			p.printf(": %s", desc)
		}
		p.line("")
	}
	p.line("")

	p.line("Triggers:")
	if len(info.Triggers) == 0 {
		p.line("- (none)")
	}
	for _, t := range info.Triggers {
		p.printf("- when %s activate %s\n", t.When, list(t.Activate))
	}
	return p.err
}
