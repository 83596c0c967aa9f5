package model

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/riskctl/pkg/facts"
)

var (
	// ActivationPhases are the recognised catalog activation phases.
	ActivationPhases = []string{"design", "pre_go_live", "runtime", "post_go_live"}
	// EvidenceTypes are the recognised catalog evidence types.
	EvidenceTypes = []string{"config", "pipeline", "log", "document"}
	// QuestionTypes are the recognised question types.
	QuestionTypes = []string{QuestionBool, QuestionEnum, QuestionSet}
)

// Warning is a non-fatal finding about a model or a facts document.
// Warnings never block evaluation.
type Warning struct {
	// Subject is the area the warning concerns, e.g. "controls catalog".
	Subject string `json:"subject"`
	// Path locates the offending document or fact.
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// String renders the warning as "subject: path message".
func (w Warning) String() string {
	if w.Path == "" {
		return w.Subject + ": " + w.Message
	}
	return w.Subject + ": " + w.Path + " " + w.Message
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Validate reports authoring problems in a loaded model: component headers,
// question types and ids, catalog phases and evidence types, and control
// rules that reference ids missing from the catalog. r must serve the same
// documents m was read from.
func Validate(r Reader, m *Model) []Warning {
	var out []Warning
	out = append(out, validateHeaders(r)...)
	out = append(out, validateQuestions(m)...)
	out = append(out, validateCatalog(m)...)
	out = append(out, validateRules(m)...)
	return out
}

func validateHeaders(r Reader) []Warning {
	var out []Warning
	for _, dir := range []string{QuestionsDir, RulesDir, ControlsDir} {
		names, err := r.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, name := range names {
			if !strings.HasSuffix(name, ".yaml") {
				continue
			}
			p := path.Join(dir, name)
			data, err := r.ReadFile(p)
			if err != nil {
				out = append(out, Warning{Subject: "model", Path: p, Message: fmt.Sprintf("failed to read: %v", err)})
				continue
			}
			root, err := parseDocument(data)
			if err != nil {
				out = append(out, Warning{Subject: "model", Path: p, Message: fmt.Sprintf("failed to parse: %v", err)})
				continue
			}
			if root == nil || root.Kind != yaml.MappingNode {
				out = append(out, Warning{Subject: "model", Path: p, Message: "expected YAML object"})
				continue
			}
			if lookupKey(root, "version") != nil {
				out = append(out, Warning{Subject: "model", Path: p, Message: "uses 'version' header; use 'schema_version' to avoid confusion with the model version"})
			}
			sv := lookupKey(root, "schema_version")
			switch {
			case sv == nil:
				out = append(out, Warning{Subject: "model", Path: p, Message: "missing required 'schema_version' header"})
			case sv.Kind != yaml.ScalarNode || sv.ShortTag() == "!!null" || sv.ShortTag() == "!!bool":
				out = append(out, Warning{Subject: "model", Path: p, Message: "schema_version should be number or string"})
			}
		}
	}
	return out
}

func validateQuestions(m *Model) []Warning {
	var out []Warning
	check := func(doc string, qs []Question) {
		seen := make(map[string]bool, len(qs))
		for _, q := range qs {
			if seen[q.ID] {
				out = append(out, Warning{Subject: "questions schema", Path: doc, Message: fmt.Sprintf("duplicate question id '%s'", q.ID)})
			}
			seen[q.ID] = true
			if !contains(QuestionTypes, q.Type) {
				out = append(out, Warning{Subject: "questions schema", Path: doc, Message: fmt.Sprintf("%s has unknown type '%s'", q.ID, q.Type)})
			}
		}
	}
	check(BaseQuestionsDoc, m.BaseQuestions)
	for _, d := range m.Domains() {
		check(DomainFile(d), m.DomainQuestions[d])
	}
	return out
}

func validateCatalog(m *Model) []Warning {
	var out []Warning
	for _, id := range m.ControlIDs() {
		c := m.Catalog[id]
		if c.ActivationPhase != "" && !contains(ActivationPhases, c.ActivationPhase) {
			out = append(out, Warning{
				Subject: "controls catalog",
				Path:    id,
				Message: fmt.Sprintf("has unknown activation_phase '%s' (allowed: %v)", c.ActivationPhase, sortedCopy(ActivationPhases)),
			})
		}
		for _, e := range c.EvidenceType {
			if !contains(EvidenceTypes, e) {
				out = append(out, Warning{
					Subject: "controls catalog",
					Path:    id,
					Message: fmt.Sprintf("has unknown evidence_type '%s' (allowed: %v)", e, sortedCopy(EvidenceTypes)),
				})
			}
		}
	}
	return out
}

func validateRules(m *Model) []Warning {
	var out []Warning
	for i, rule := range m.ControlRules {
		for _, id := range rule.Require {
			if _, ok := m.Catalog[id]; ok {
				continue
			}
			out = append(out, Warning{
				Subject: "controls rules",
				Path:    fmt.Sprintf("rule #%d", i+1),
				Message: fmt.Sprintf("references missing control '%s' (when: %s)", id, rule.When),
			})
		}
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// ValidateFacts reports facts that will silently fail to match: unknown
// keys, values of the wrong type, values outside a question's allowed set,
// activated domains without a section, and a pinned model version that
// differs from m.
func ValidateFacts(m *Model, f facts.Facts, activated []string) []Warning {
	var out []Warning

	if pinned := strings.TrimSpace(f.ModelVersion()); pinned != "" && pinned != m.Version {
		out = append(out, Warning{
			Subject: "facts",
			Path:    "model_version",
			Message: fmt.Sprintf("'%s' does not match loaded model '%s'", pinned, m.Version),
		})
	}

	out = append(out, validateSection(f, facts.BaseSection, m.QuestionIndex(facts.BaseSection))...)
	for _, d := range m.Domains() {
		out = append(out, validateSection(f, d, m.QuestionIndex(d))...)
	}

	for _, d := range activated {
		if _, ok := f.Root().Get(d); !ok {
			out = append(out, Warning{Subject: "facts", Path: d, Message: "activated domain is missing its section"})
		}
	}
	return out
}

func validateSection(f facts.Facts, section string, index map[string]Question) []Warning {
	v, ok := f.Root().Get(section)
	if !ok || v.IsNull() {
		return nil
	}
	if v.Kind() != facts.KindMap {
		return []Warning{{Subject: "facts", Path: section, Message: "section should be an object"}}
	}

	var out []Warning
	for _, k := range v.Keys() {
		if k == facts.ReasonsKey {
			continue
		}
		if _, known := index[k]; !known {
			out = append(out, Warning{Subject: "facts", Path: section + "." + k, Message: "unknown key (no matching question id)"})
		}
	}

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		val, ok := v.Get(id)
		if !ok || val.IsNull() {
			continue
		}
		out = append(out, validateValue(section+"."+id, index[id], val)...)
	}
	return out
}

func validateValue(p string, q Question, v facts.Value) []Warning {
	switch q.Type {
	case QuestionBool:
		if v.Kind() != facts.KindBool {
			return []Warning{{Subject: "facts", Path: p, Message: fmt.Sprintf("should be bool, got %s", v.Kind())}}
		}
	case QuestionEnum:
		s, ok := v.AsString()
		if !ok {
			return []Warning{{Subject: "facts", Path: p, Message: fmt.Sprintf("should be string enum, got %s", v.Kind())}}
		}
		if len(q.Allowed) > 0 && !contains(q.Allowed, s) {
			return []Warning{{Subject: "facts", Path: p, Message: fmt.Sprintf("has invalid value '%s' (allowed: %v)", s, q.Allowed)}}
		}
	case QuestionSet:
		items, ok := v.Items()
		if !ok {
			return []Warning{{Subject: "facts", Path: p, Message: fmt.Sprintf("should be a list (set), got %s", v.Kind())}}
		}
		var out []Warning
		for _, item := range items {
			s, ok := item.AsString()
			if !ok {
				out = append(out, Warning{Subject: "facts", Path: p, Message: fmt.Sprintf("item %s should be string, got %s", item, item.Kind())})
				continue
			}
			if len(q.Allowed) > 0 && !contains(q.Allowed, s) {
				out = append(out, Warning{Subject: "facts", Path: p, Message: fmt.Sprintf("contains invalid item '%s' (allowed: %v)", s, q.Allowed)})
			}
		}
		return out
	}
	return nil
}
