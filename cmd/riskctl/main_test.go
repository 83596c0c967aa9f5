package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/riskctl/pkg/cli"
	"mercator-hq/riskctl/pkg/model"
)

func modelFiles(version string, extraRule string) map[string]string {
	return map[string]string{
		"model.manifest.yaml": "model_version: " + version + "\n",
		model.BaseQuestionsDoc: `schema_version: 1
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
` + extraRule,
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

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// newWorkspace lays out a model, a second model version and a config file
// in a temp dir and returns the dir and the config path.
func newWorkspace(t *testing.T, historyEnabled bool) (string, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, filepath.Join(dir, "model"), modelFiles("1.0.0", ""))
	writeFiles(t, filepath.Join(dir, "model-next"), modelFiles("1.1.0", `  - when: { uses_ai: true }
    require: [SEC-LOG-001]
`))

	enabled := "false"
	if historyEnabled {
		enabled = "true"
	}
	cfg := `workspace:
  root: ` + dir + `
model:
  dir: ` + filepath.Join(dir, "model") + `
history:
  enabled: ` + enabled + `
  driver: sqlite
  path: ` + filepath.Join(dir, "data", "history.db") + `
`
	cfgPath := filepath.Join(dir, "riskctl.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, cfgPath
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, cfgPath string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", cfgPath}, args...), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestEvaluateCommand(t *testing.T) {
	dir, cfgPath := newWorkspace(t, false)
	factsPath := filepath.Join(dir, "facts.yaml")
	writeFiles(t, dir, map[string]string{"facts.yaml": "scope: demo\nbase:\n  uses_ai: true\n  colour: blue\n"})

	res := runCLI(t, cfgPath, "evaluate", factsPath)
	if res.code != cli.ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	for _, want := range []string{"Model version: 1.0.0", "- ai (questions/ai.questions.yaml)", "- AI-GOV-001: Govern AI use", "when: {uses_ai: true}"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "DATA-ENC-001") {
		t.Errorf("DATA-ENC-001 should not be derived:\n%s", res.stdout)
	}
	if !strings.Contains(res.stderr, "WARN: facts: base.colour unknown key") {
		t.Errorf("expected the unknown key warning on stderr, got:\n%s", res.stderr)
	}

	res = runCLI(t, cfgPath, "--format", "json", "evaluate", factsPath)
	if res.code != cli.ExitOK {
		t.Fatalf("json exit code = %d, stderr = %s", res.code, res.stderr)
	}
	var got struct {
		ModelVersion string `json:"modelVersion"`
		Result       struct {
			ActivatedDomains []string `json:"activated_domains"`
			DerivedControls  []struct {
				ID string `json:"id"`
			} `json:"derived_controls"`
		} `json:"result"`
		Warnings []any `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, res.stdout)
	}
	if got.ModelVersion != "1.0.0" || len(got.Result.DerivedControls) != 1 || got.Result.DerivedControls[0].ID != "AI-GOV-001" {
		t.Errorf("unexpected evaluation: %+v", got)
	}
	if diff := cmp.Diff([]string{"ai"}, got.Result.ActivatedDomains); diff != "" {
		t.Errorf("activated domains mismatch (-want +got):\n%s", diff)
	}
	if len(got.Warnings) == 0 {
		t.Error("JSON output should carry the facts warnings")
	}
}

func TestEvaluateInputErrors(t *testing.T) {
	dir, cfgPath := newWorkspace(t, false)
	writeFiles(t, dir, map[string]string{"list.yaml": "- a\n- b\n"})

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"missing file", []string{"evaluate", filepath.Join(dir, "nope.yaml")}, cli.ExitUsage, "facts file not found"},
		{"not an object", []string{"evaluate", filepath.Join(dir, "list.yaml")}, cli.ExitUsage, "root must be an object"},
		{"no input", []string{"evaluate"}, cli.ExitUsage, "give either a facts file or --system"},
		{"unknown format", []string{"--format", "xml", "version"}, cli.ExitUsage, "unknown output format"},
		{"unknown system", []string{"evaluate", "--system", "ghost"}, cli.ExitError, "system not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, cfgPath, tt.args...)
			if res.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr %s)", res.code, tt.wantCode, res.stderr)
			}
			if !strings.Contains(res.stderr, tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", res.stderr, tt.wantErr)
			}
		})
	}
}

func TestDiffCommand(t *testing.T) {
	dir, cfgPath := newWorkspace(t, false)
	writeFiles(t, dir, map[string]string{"facts.yaml": "base:\n  uses_ai: true\n"})

	res := runCLI(t, cfgPath, "diff", filepath.Join(dir, "facts.yaml"),
		"--old", filepath.Join(dir, "model"), "--new", filepath.Join(dir, "model-next"))
	if res.code != cli.ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	for _, want := range []string{"(1.0.0) -> ", "(1.1.0)", "- added: [SEC-LOG-001]", "- (unchanged) [ai]"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, cfgPath, "diff", filepath.Join(dir, "facts.yaml"), "--old", filepath.Join(dir, "model"))
	if res.code == cli.ExitOK {
		t.Error("diff without --new should fail")
	}
}

func TestValidateCommand(t *testing.T) {
	dir, cfgPath := newWorkspace(t, false)
	writeFiles(t, filepath.Join(dir, "broken"), modelFiles("2.0.0", `  - when: { uses_ai: true }
    require: [NOPE-001]
`))

	res := runCLI(t, cfgPath, "validate", "--model-dir", filepath.Join(dir, "broken"), "--strict")
	if res.code != cli.ExitError {
		t.Errorf("exit code = %d, want %d", res.code, cli.ExitError)
	}
	if !strings.Contains(res.stdout, "references missing control 'NOPE-001'") {
		t.Errorf("stdout missing the dangling control warning:\n%s", res.stdout)
	}

	res = runCLI(t, cfgPath, "validate", "--model-dir", filepath.Join(dir, "broken"))
	if res.code != cli.ExitOK {
		t.Errorf("without --strict warnings must not fail, got %d", res.code)
	}
}

func TestSystemWorkflow(t *testing.T) {
	dir, cfgPath := newWorkspace(t, true)

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"system", "create", "Payments API"}, "Created system Payments-API"},
		{[]string{"system", "set", "Payments-API", "base.uses_ai", "true", "--reason", "chat assistant"}, "Updated system Payments-API"},
		{[]string{"system", "set", "Payments-API", "base.personal_data", "false"}, "Updated system Payments-API"},
		{[]string{"system", "list"}, "Payments-API\n"},
		{[]string{"system", "show", "Payments-API"}, "uses_ai: true"},
		{[]string{"evaluate", "--system", "Payments-API"}, "System: Payments-API"},
		{[]string{"--format", "csv", "portfolio"}, "Payments-API,1,1,1,ai\n"},
		{[]string{"history", "list"}, "Payments-API"},
		{[]string{"system", "unset", "Payments-API", "base.personal_data"}, "Updated system Payments-API"},
		{[]string{"system", "remove", "Payments-API"}, "Removed system Payments-API"},
	}
	for _, step := range steps {
		res := runCLI(t, cfgPath, step.args...)
		if res.code != cli.ExitOK {
			t.Fatalf("%v: exit code = %d, stderr = %s", step.args, res.code, res.stderr)
		}
		if !strings.Contains(res.stdout, step.want) {
			t.Errorf("%v: stdout missing %q:\n%s", step.args, step.want, res.stdout)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "systems", "Payments-API.yaml"))
	if err != nil {
		t.Fatalf("facts file should survive remove: %v", err)
	}
	for _, want := range []string{"uses_ai: true", "_reasons:", "uses_ai: chat assistant"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("facts file missing %q:\n%s", want, data)
		}
	}
	if strings.Contains(string(data), "personal_data") {
		t.Errorf("personal_data should have been unset:\n%s", data)
	}

	res := runCLI(t, cfgPath, "--format", "json", "history", "export", "--export-format", "json")
	if res.code != cli.ExitOK {
		t.Fatalf("export exit code = %d, stderr = %s", res.code, res.stderr)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &records); err != nil {
		t.Fatalf("invalid export: %v\n%s", err, res.stdout)
	}
	if len(records) != 1 || records[0]["system_id"] != "Payments-API" {
		t.Errorf("unexpected export: %v", records)
	}

	res = runCLI(t, cfgPath, "history", "prune", "--days", "1")
	if res.code != cli.ExitOK || !strings.Contains(res.stdout, "Pruned 0 record(s)") {
		t.Errorf("prune: code=%d stdout=%q stderr=%q", res.code, res.stdout, res.stderr)
	}
}

func TestSystemSetRejectsBadPaths(t *testing.T) {
	_, cfgPath := newWorkspace(t, false)
	runCLI(t, cfgPath, "system", "create", "billing")

	for _, path := range []string{"uses_ai", "base._reasons", "base.a.b"} {
		res := runCLI(t, cfgPath, "system", "set", "billing", path, "true")
		if res.code != cli.ExitUsage {
			t.Errorf("set %s: exit code = %d, want %d", path, res.code, cli.ExitUsage)
		}
	}
}

func TestHistoryDisabled(t *testing.T) {
	_, cfgPath := newWorkspace(t, false)
	res := runCLI(t, cfgPath, "history", "list")
	if res.code != cli.ExitUsage || !strings.Contains(res.stderr, "history is disabled") {
		t.Errorf("code=%d stderr=%q", res.code, res.stderr)
	}
}

func TestVersionCommand(t *testing.T) {
	res := runCLI(t, filepath.Join(t.TempDir(), "missing.yaml"), "version")
	if res.code != cli.ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	if !strings.HasPrefix(res.stdout, "riskctl "+Version+"\n") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestLocalModelDir(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"", "model"},
		{"other", "other"},
		{"git:HEAD", ""},
		{"git:v1:model", ""},
	}
	for _, tt := range tests {
		if got := localModelDir(tt.ref, "model"); got != tt.want {
			t.Errorf("localModelDir(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
