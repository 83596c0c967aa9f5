package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/riskctl/pkg/facts"
)

// Question types recognised by the questionnaire.
const (
	QuestionBool = "bool"
	QuestionEnum = "enum"
	QuestionSet  = "set"
)

// UnknownVersion is the label used when a model carries no manifest version.
const UnknownVersion = "(unknown)"

// Question is one entry of a question catalog. Identity is ID scoped within
// its owning catalog (base or one named domain).
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Text        string   `yaml:"text" json:"text"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Type        string   `yaml:"type" json:"type"`
	Allowed     []string `yaml:"allowed,omitempty" json:"allowed,omitempty"`
}

// Clause is one (key, expected) pair of a condition.
type Clause struct {
	// Key is either a bare question id (resolved under base) or a dotted path.
	Key string
	// Expected is a scalar or a sequence.
	Expected facts.Value
}

// Path returns the facts path the clause reads.
func (c Clause) Path() string {
	if strings.Contains(c.Key, ".") {
		return c.Key
	}
	return facts.BaseSection + "." + c.Key
}

// Condition is a conjunctive set of clauses in authored order.
//
// Conditions serialize as mappings in both YAML and JSON so that provenance
// in results reads exactly like the rule that produced it:
//
//	when:
//	  data.personal_data: true
//	  security.crosses_trust_boundary: true
type Condition []Clause

// Keys returns the clause keys in authored order.
func (c Condition) Keys() []string {
	keys := make([]string, len(c))
	for i, cl := range c {
		keys[i] = cl.Key
	}
	return keys
}

// String renders the condition as an inline mapping, e.g. {uses_ai: true}.
func (c Condition) String() string {
	parts := make([]string, len(c))
	for i, cl := range c {
		parts[i] = cl.Key + ": " + cl.Expected.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// UnmarshalYAML implements yaml.Unmarshaler. A null or missing condition is
// empty, which matches every document.
func (c *Condition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		*c = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: condition must be a mapping", node.Line)
	}
	out := make(Condition, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: condition key must be a scalar", key.Line)
		}
		v, err := facts.FromNode(node.Content[i+1])
		if err != nil {
			return err
		}
		out = append(out, Clause{Key: key.Value, Expected: v})
	}
	*c = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Condition) MarshalYAML() (interface{}, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, cl := range c {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: cl.Key},
			facts.ToNode(cl.Expected))
	}
	return m, nil
}

// MarshalJSON implements json.Marshaler. The empty condition is {}.
func (c Condition) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cl := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(cl.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := cl.Expected.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var v facts.Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.IsNull() {
		*c = nil
		return nil
	}
	if v.Kind() != facts.KindMap {
		return fmt.Errorf("condition must be an object, got %s", v.Kind())
	}
	out := make(Condition, 0, v.Len())
	for _, k := range v.Keys() {
		child, _ := v.Get(k)
		out = append(out, Clause{Key: k, Expected: child})
	}
	*c = out
	return nil
}

// Strings is a list of identifiers that also accepts a single scalar in YAML.
// Non-scalar items are dropped.
type Strings []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*s = nil
			return nil
		}
		*s = Strings{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Strings, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode && item.ShortTag() == "!!str" {
				out = append(out, item.Value)
			}
		}
		*s = out
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// TriggerRule activates domains when its condition matches.
type TriggerRule struct {
	When     Condition `yaml:"when" json:"when"`
	Activate Strings   `yaml:"activate" json:"activate"`
}

// ControlRule derives controls when its condition matches.
type ControlRule struct {
	When    Condition `yaml:"when" json:"when"`
	Require Strings   `yaml:"require" json:"require"`
}

// Control is a control catalog entry. Empty fields are rendered with
// placeholder values at derivation time.
type Control struct {
	ID                string  `yaml:"id" json:"id"`
	Title             string  `yaml:"title,omitempty" json:"title,omitempty"`
	Description       string  `yaml:"description,omitempty" json:"description,omitempty"`
	Scope             string  `yaml:"scope,omitempty" json:"scope,omitempty"`
	EnforcementIntent string  `yaml:"enforcement_intent,omitempty" json:"enforcement_intent,omitempty"`
	ActivationPhase   string  `yaml:"activation_phase,omitempty" json:"activation_phase,omitempty"`
	EvidenceType      Strings `yaml:"evidence_type,omitempty" json:"evidence_type,omitempty"`
}

// Reference is a pointer to material that evidences a control.
type Reference struct {
	Type        string `yaml:"type" json:"type"`
	Ref         string `yaml:"ref" json:"ref"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Model is one consistent snapshot of the knowledge model: question
// catalogs, trigger rules, control rules, the control catalog and evidence
// links.
//
// A Model is read-only once loaded and may be shared between concurrent
// evaluations.
type Model struct {
	// Ref identifies where the model was loaded from.
	Ref string
	// Version is the manifest model_version, or UnknownVersion.
	Version string

	BaseQuestions   []Question
	BaseDescription string

	// DomainQuestions holds every domain question catalog found, keyed by
	// domain name. A domain without a catalog contributes no questions.
	DomainQuestions    map[string][]Question
	DomainDescriptions map[string]string

	TriggerRules []TriggerRule
	ControlRules []ControlRule

	// Catalog is keyed by control id.
	Catalog map[string]Control
	// Links maps control ids to their non-empty reference lists.
	Links map[string][]Reference
}

// QuestionsFor returns the question catalog of domain, or nil.
func (m *Model) QuestionsFor(domain string) []Question {
	if m == nil {
		return nil
	}
	return m.DomainQuestions[domain]
}

// Domains returns the names of all domains with a question catalog, sorted.
func (m *Model) Domains() []string {
	out := make([]string, 0, len(m.DomainQuestions))
	for d := range m.DomainQuestions {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ControlIDs returns the catalog ids, sorted.
func (m *Model) ControlIDs() []string {
	out := make([]string, 0, len(m.Catalog))
	for id := range m.Catalog {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// QuestionIndex returns the questions of a catalog keyed by id. Section
// "base" selects the base catalog.
func (m *Model) QuestionIndex(section string) map[string]Question {
	qs := m.BaseQuestions
	if section != facts.BaseSection {
		qs = m.DomainQuestions[section]
	}
	idx := make(map[string]Question, len(qs))
	for _, q := range qs {
		idx[q.ID] = q
	}
	return idx
}
