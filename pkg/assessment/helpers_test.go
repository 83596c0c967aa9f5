package assessment

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/facts"
	"mercator-hq/riskctl/pkg/model"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
	"mercator-hq/riskctl/pkg/workspace"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func modelDocs(version string) map[string]string {
	return map[string]string{
		"model.manifest.yaml": "model_version: " + version + "\n",
		model.BaseQuestionsDoc: `schema_version: 1
description: Core questions
questions:
  - id: uses_ai
    text: Does the system use AI?
    type: bool
  - id: personal_data
    text: Does it process personal data?
    type: bool
`,
		"questions/ai.questions.yaml": `schema_version: 1
description: AI specifics
questions:
  - id: model_type
    text: Which model family?
    type: enum
    allowed: [llm, classic]
`,
		model.TriggersDoc: `schema_version: 1
triggers:
  - when: { uses_ai: true }
    activate: [ai]
`,
		model.ControlRulesDoc: `schema_version: 1
rules:
  - when: { uses_ai: true }
    require: [AI-GOV-001]
  - when: { personal_data: true }
    require: [DATA-ENC-001]
`,
		model.CatalogDoc: `schema_version: 1
controls:
  - id: AI-GOV-001
    title: Govern AI use
  - id: DATA-ENC-001
    title: Encrypt personal data
  - id: SEC-LOG-001
    title: Centralise logs
`,
	}
}

// memSources resolves references to in-memory models. The empty reference
// selects "current".
type memSources map[string]*model.MemorySource

func (m memSources) Resolve(ref string) (model.Source, error) {
	if ref == "" {
		ref = "current"
	}
	src, ok := m[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidRef, ref)
	}
	return src, nil
}

func mustFacts(t *testing.T, doc string) facts.Facts {
	t.Helper()
	f, err := facts.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("facts.Parse() error = %v", err)
	}
	return f
}

func newWorkspace(t *testing.T) *workspace.Store {
	t.Helper()
	return workspace.New(workspace.Config{
		Root:          t.TempDir(),
		PortfolioFile: "portfolio.yaml",
		SystemsDir:    "systems",
	}, quietLogger())
}

func addSystem(t *testing.T, ws *workspace.Store, id, doc string) {
	t.Helper()
	if _, err := ws.Create(id, ""); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
	if err := ws.Save(id, mustFacts(t, doc)); err != nil {
		t.Fatalf("Save(%s) error = %v", id, err)
	}
}

func newCollector() (*metrics.Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "riskctl"}, reg), reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func writeModelDir(t *testing.T, dir string, docs map[string]string) {
	t.Helper()
	for name, content := range docs {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
