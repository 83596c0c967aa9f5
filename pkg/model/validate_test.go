package model

import (
	"context"
	"strings"
	"testing"

	"mercator-hq/riskctl/pkg/facts"
)

func hasWarning(ws []Warning, subject, fragment string) bool {
	for _, w := range ws {
		if w.Subject == subject && strings.Contains(w.String(), fragment) {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	docs := sampleDocs()
	docs[CatalogDoc] = `version: 2
controls:
  - id: DATA-ENC-001
    activation_phase: someday
    evidence_type: [config, telepathy]
`
	docs["questions/ai.questions.yaml"] = `schema_version: true
questions:
  - id: model_type
    type: free_text
  - id: model_type
    type: bool
`
	src := NewMemorySource("mem", docs)
	r, err := src.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewLoader(quietLogger()).Read("mem", r)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	ws := Validate(r, m)

	tests := []struct {
		subject  string
		fragment string
	}{
		{"model", "controls/controls.catalog.yaml uses 'version' header"},
		{"model", "controls/controls.catalog.yaml missing required 'schema_version'"},
		{"model", "questions/ai.questions.yaml schema_version should be number or string"},
		{"questions schema", "model_type has unknown type 'free_text'"},
		{"questions schema", "duplicate question id 'model_type'"},
		{"controls catalog", "DATA-ENC-001 has unknown activation_phase 'someday'"},
		{"controls catalog", "unknown evidence_type 'telepathy'"},
		{"controls rules", "rule #1 references missing control 'SEC-NET-001'"},
		{"controls rules", "rule #2 references missing control 'AI-GOV-001' (when: {uses_ai: true})"},
	}
	for _, tt := range tests {
		if !hasWarning(ws, tt.subject, tt.fragment) {
			t.Errorf("missing warning %s: %q in %v", tt.subject, tt.fragment, ws)
		}
	}
	if hasWarning(ws, "controls catalog", "unknown evidence_type 'config'") {
		t.Error("config is a recognised evidence type")
	}
}

func TestValidateFacts(t *testing.T) {
	m, err := NewLoader(quietLogger()).Load(context.Background(), NewMemorySource("mem", sampleDocs()))
	if err != nil {
		t.Fatal(err)
	}

	f, err := facts.Parse([]byte(`
model_version: 1.3.0
base:
  uses_ai: "yes"
  exposure: galaxy
  colour: blue
  _reasons:
    uses_ai: pilot
data: not-a-map
ai:
  model_type: [llm]
`))
	if err != nil {
		t.Fatal(err)
	}

	ws := ValidateFacts(m, f, []string{"ai", "security"})

	tests := []string{
		"model_version '1.3.0' does not match loaded model '1.4.0'",
		"base.uses_ai should be bool, got string",
		"base.exposure has invalid value 'galaxy'",
		"base.colour unknown key",
		"data section should be an object",
		"ai.model_type should be string enum, got list",
		"security activated domain is missing its section",
	}
	for _, fragment := range tests {
		if !hasWarning(ws, "facts", fragment) {
			t.Errorf("missing warning %q in %v", fragment, ws)
		}
	}
	if hasWarning(ws, "facts", "_reasons") {
		t.Errorf("reasons must not be reported as unknown keys: %v", ws)
	}
	if hasWarning(ws, "facts", "ai activated domain") {
		t.Error("ai has a section and should not be reported")
	}
}

func TestValidateFactsSetMembership(t *testing.T) {
	m := &Model{
		Version:       "1",
		BaseQuestions: []Question{{ID: "regions", Type: QuestionSet, Allowed: []string{"eu", "us"}}},
	}
	f := facts.New("x").Set("base.regions", facts.List("eu", "mars"))

	ws := ValidateFacts(m, f, nil)
	if !hasWarning(ws, "facts", "base.regions contains invalid item 'mars'") {
		t.Errorf("missing set membership warning in %v", ws)
	}
	if hasWarning(ws, "facts", "'eu'") {
		t.Errorf("eu is allowed: %v", ws)
	}

	typed := facts.New("x").Set("base.regions", facts.ListOf(facts.String("eu"), facts.Bool(true)))
	ws = ValidateFacts(m, typed, nil)
	if !hasWarning(ws, "facts", "base.regions item true should be string, got bool") {
		t.Errorf("missing item type warning in %v", ws)
	}
}
