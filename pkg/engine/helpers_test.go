package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
)

const baseQuestions = `questions:
  - id: uses_ai
    type: bool
  - id: exposure
    type: enum
    allowed: [internal, public]
`

const catalog = `controls:
  - id: DATA-ENC-001
    title: Encrypt personal data
    description: Encrypt at rest and in transit.
    scope: data
    enforcement_intent: preventive
    activation_phase: design
    evidence_type: [config]
  - id: SEC-NET-001
    title: Segment trust boundaries
    scope: platform
    enforcement_intent: preventive
    activation_phase: pre_go_live
    evidence_type: [pipeline, document]
  - id: AI-GOV-001
    title: Register the model
    scope: ai
    enforcement_intent: detective
    activation_phase: runtime
    evidence_type: [document]
  - id: BLANK-001
`

func loadModel(t *testing.T, docs map[string]string) *model.Model {
	t.Helper()
	full := map[string]string{
		model.BaseQuestionsDoc: baseQuestions,
		model.TriggersDoc:      "triggers: []\n",
		model.ControlRulesDoc:  "rules: []\n",
		model.CatalogDoc:       catalog,
	}
	for k, v := range docs {
		full[k] = v
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := model.NewLoader(logger).Load(context.Background(), model.NewMemorySource(t.Name(), full))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return m
}

func parseFacts(t *testing.T, src string) facts.Facts {
	t.Helper()
	f, err := facts.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return f
}

func parseCondition(t *testing.T, src string) model.Condition {
	t.Helper()
	var c model.Condition
	if err := c.UnmarshalJSON([]byte(src)); err != nil {
		t.Fatalf("condition %s: %v", src, err)
	}
	return c
}
