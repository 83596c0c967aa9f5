package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/engine"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

func TestEvaluation(t *testing.T) {
	ev := &assessment.Evaluation{
		SystemID:     "billing",
		ModelRef:     "model",
		ModelVersion: "1.4.0",
		Result: engine.Result{
			ActivatedDomains: []string{"ai", "ops"},
			RequiredQuestions: []engine.RequiredQuestion{
				{ID: "base.uses_ai", Answered: true},
				{ID: "base.exposure", Answered: false},
				{ID: "ai.model_type", Answered: false},
			},
			DerivedControls: []engine.DerivedControl{
				{
					ID:                "AI-GOV-001",
					Title:             "Govern AI use",
					Scope:             "ai",
					EnforcementIntent: "preventive",
					ActivationPhase:   "design",
					EvidenceType:      []string{"document", "log"},
					Because: []model.Condition{
						{{Key: "uses_ai", Expected: facts.Bool(true)}},
						{{Key: "exposure", Expected: facts.String("public")}, {Key: "ai.model_type", Expected: facts.String("llm")}},
					},
					References: []model.Reference{
						{Type: "policy", Ref: "POL-7", Description: "AI policy"},
						{Type: "ticket", Ref: "SEC-12"},
					},
				},
				{
					ID:                "SEC-NET-001",
					Title:             engine.MissingTitle,
					Scope:             engine.UnknownField,
					EnforcementIntent: engine.UnknownField,
					ActivationPhase:   engine.UnknownField,
					Because:           []model.Condition{{{Key: "uses_ai", Expected: facts.Bool(true)}}},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := Evaluation(&buf, ev); err != nil {
		t.Fatalf("Evaluation() error = %v", err)
	}
	want := `System: billing
Model version: 1.4.0

Activated domains:
- ai (questions/ai.questions.yaml)
- ops (questions/ops.questions.yaml)

Required questions (progressive disclosure):
- base:
  - uses_ai (answered)
  - exposure (missing)
- ai:
  - ai.model_type (missing)
- ops:
  - (no question file found)

Derived controls:
- AI-GOV-001: Govern AI use
  scope: ai
  enforcement_intent: preventive
  activation_phase: design
  evidence_type: [document, log]
  because:
    - when: {uses_ai: true}
    - when: {exposure: public, ai.model_type: llm}
  references:
    - policy POL-7: AI policy
    - ticket SEC-12
- SEC-NET-001: (missing from catalog)
  scope: unknown
  enforcement_intent: unknown
  activation_phase: unknown
  because:
    - when: {uses_ai: true}

`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Evaluation() mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluationEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Evaluation(&buf, &assessment.Evaluation{ModelVersion: model.UnknownVersion})
	if err != nil {
		t.Fatal(err)
	}
	want := `Model version: (unknown)

Activated domains:
- (none)

Required questions (progressive disclosure):
- base:

Derived controls:
- (none)
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Evaluation() mismatch (-want +got):\n%s", diff)
	}
}

func TestComparison(t *testing.T) {
	tests := []struct {
		name string
		diff engine.DiffResult
		want string
	}{
		{
			name: "no changes",
			diff: engine.DiffResult{
				Controls:         engine.ControlDelta{Added: []string{}, Removed: []string{}},
				Questions:        engine.QuestionDelta{NewlyMissing: []string{}, NoLongerMissing: []string{}},
				ActivatedDomains: engine.DomainLists{Old: []string{"ai"}, New: []string{"ai"}},
			},
			want: `Diff: model (1.0.0) -> git:v2 (2.0.0)

Controls:
- (no changes)

Required questions (missing):
- (no changes)

Activated domains:
- (unchanged) [ai]
`,
		},
		{
			name: "changes",
			diff: engine.DiffResult{
				Controls:         engine.ControlDelta{Added: []string{"A-1", "B-2"}, Removed: []string{"C-3"}},
				Questions:        engine.QuestionDelta{NewlyMissing: []string{}, NoLongerMissing: []string{"ai.model_type"}},
				ActivatedDomains: engine.DomainLists{Old: []string{"ai"}, New: []string{}},
			},
			want: `Diff: model (1.0.0) -> git:v2 (2.0.0)

Controls:
- added: [A-1, B-2]
- removed: [C-3]

Required questions (missing):
- no longer missing: [ai.model_type]

Activated domains:
- old: [ai]
- new: []
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &assessment.Comparison{
				Old:        assessment.ModelSide{ModelRef: "model", ModelVersion: "1.0.0"},
				New:        assessment.ModelSide{ModelRef: "git:v2", ModelVersion: "2.0.0"},
				DiffResult: tt.diff,
			}
			var buf bytes.Buffer
			if err := Comparison(&buf, c); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("Comparison() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPortfolio(t *testing.T) {
	pf := &assessment.Portfolio{
		ModelVersion: "1.0.0",
		Rows: []assessment.PortfolioRow{
			{ID: "billing", DerivedControls: 12, MissingAnswers: 3, Domains: []string{"ai", "data"}},
			{ID: "crm", DerivedControls: 1, Domains: []string{}},
		},
		Skipped: []assessment.SkippedSystem{{ID: "broken", Error: "invalid system file"}},
	}
	var buf bytes.Buffer
	if err := Portfolio(&buf, pf); err != nil {
		t.Fatal(err)
	}
	want := `Model version: 1.0.0

SYSTEM   CONTROLS  MISSING  DOMAINS
billing  12        3        ai,data
crm      1         0        
skipped broken: invalid system file
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Portfolio() mismatch (-want +got):\n%s", diff)
	}
}

func TestWarnings(t *testing.T) {
	var buf bytes.Buffer
	err := Warnings(&buf, []model.Warning{
		{Subject: "facts", Path: "base.colour", Message: "unknown key (no matching question id)"},
		{Subject: "model", Message: "no manifest"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "WARN: facts: base.colour unknown key (no matching question id)\nWARN: model: no manifest\n"
	if buf.String() != want {
		t.Errorf("Warnings() = %q, want %q", buf.String(), want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteError(t *testing.T) {
	err := Evaluation(failingWriter{}, &assessment.Evaluation{})
	if err == nil || err.Error() != "disk full" {
		t.Errorf("Evaluation() error = %v, want disk full", err)
	}
}
