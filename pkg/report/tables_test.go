package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/riskctl/pkg/assessment"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/history"
	"mercator-hq/riskctl/pkg/model"
)

func TestHistory(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	records := []*history.Record{
		{SystemID: "billing", ModelRef: "model", ModelVersion: "1.4.0", EvaluatedAt: at,
			DerivedControls: []string{"A", "B"}, MissingAnswers: []string{"base.x"}},
		{SystemID: "crm", ModelRef: "git:v1:model", ModelVersion: "1.3.0", EvaluatedAt: at.Add(-time.Hour)},
	}

	var buf bytes.Buffer
	if err := History(&buf, records); err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := `EVALUATED             SYSTEM   MODEL         VERSION  CONTROLS  MISSING
2026-03-04T10:00:00Z  billing  model         1.4.0    2         1
2026-03-04T09:00:00Z  crm      git:v1:model  1.3.0    0         0
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := History(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "(no evaluations recorded)\n" {
		t.Errorf("empty history = %q", buf.String())
	}
}

func TestRevisions(t *testing.T) {
	revs := []model.Revision{
		{Short: "a1b2c3d", Author: "Model Owner", When: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC), Message: "bump model\n\nlonger body"},
	}
	var buf bytes.Buffer
	if err := Revisions(&buf, revs); err != nil {
		t.Fatal(err)
	}
	want := `COMMIT   DATE        AUTHOR       MESSAGE
a1b2c3d  2026-01-02  Model Owner  bump model
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestModelInfo(t *testing.T) {
	info := &assessment.ModelInfo{
		ModelRef:           "model",
		ModelVersion:       "1.4.0",
		BaseQuestions:      []model.Question{{ID: "uses_ai"}, {ID: "exposure"}},
		DomainQuestions:    map[string][]model.Question{"ai": {{ID: "model_type"}}, "data": {}},
		DomainDescriptions: map[string]string{"ai": "AI specifics"},
		Triggers: []model.TriggerRule{
			{When: model.Condition{{Key: "uses_ai", Expected: facts.Bool(true)}}, Activate: model.Strings{"ai"}},
		},
		Domains:  []string{"ai", "data"},
		Controls: 3,
	}
	var buf bytes.Buffer
	if err := ModelInfo(&buf, info); err != nil {
		t.Fatal(err)
	}
	want := `Model: model
Model version: 1.4.0
Controls in catalog: 3

Base questions: 2
Domains:
- ai (1 questions): AI specifics
- data (0 questions)

Triggers:
- when {uses_ai: true} activate [ai]
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}
