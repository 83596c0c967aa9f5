package model

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixed document layout of a model, relative to its root.
const (
	QuestionsDir     = "questions"
	RulesDir         = "rules"
	ControlsDir      = "controls"
	BaseQuestionsDoc = "questions/base.questions.yaml"
	TriggersDoc      = "rules/triggers.rules.yaml"
	ControlRulesDoc  = "rules/controls.rules.yaml"
	CatalogDoc       = "controls/controls.catalog.yaml"
	LinksDoc         = "controls/controls.links.yaml"

	questionsSuffix = ".questions.yaml"
)

// ManifestDocs lists the accepted manifest names in lookup order.
var ManifestDocs = []string{"model.manifest.yaml", "manifest.yaml"}

// DomainFile returns the path of the question catalog for domain.
func DomainFile(domain string) string {
	return path.Join(QuestionsDir, domain+questionsSuffix)
}

// Loader reads models from sources.
//
// Base questions, trigger rules, control rules and the control catalog are
// required: if any of them cannot be read or parsed, loading fails with a
// *LoadError. Evidence links, domain question catalogs and the manifest are
// optional enrichment; problems with them are logged and ignored.
//
// Inside a readable document, malformed list entries are skipped with a
// warning so that a single authoring mistake does not hide the whole model.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("component", "model.loader")}
}

// Load opens src and reads the model from it.
func (l *Loader) Load(ctx context.Context, src Source) (*Model, error) {
	r, err := src.Open(ctx)
	if err != nil {
		return nil, &LoadError{Ref: src.String(), Cause: err}
	}
	return l.Read(src.String(), r)
}

type questionsDoc struct {
	Description string
	Questions   []Question
}

type linkEntry struct {
	ControlID  string      `yaml:"control_id"`
	References []yaml.Node `yaml:"references"`
}

// Read builds a model from the documents served by r. Ref labels the model
// in errors and in the result.
func (l *Loader) Read(ref string, r Reader) (*Model, error) {
	m := &Model{
		Ref:                ref,
		Version:            l.readVersion(ref, r),
		DomainQuestions:    map[string][]Question{},
		DomainDescriptions: map[string]string{},
		Catalog:            map[string]Control{},
		Links:              map[string][]Reference{},
	}

	base, err := l.required(ref, r, BaseQuestionsDoc)
	if err != nil {
		return nil, err
	}
	bq := l.questions(ref, BaseQuestionsDoc, base)
	m.BaseQuestions, m.BaseDescription = bq.Questions, bq.Description

	triggers, err := l.required(ref, r, TriggersDoc)
	if err != nil {
		return nil, err
	}
	m.TriggerRules = decodeItems[TriggerRule](l, ref, TriggersDoc, triggers, "triggers")

	rules, err := l.required(ref, r, ControlRulesDoc)
	if err != nil {
		return nil, err
	}
	m.ControlRules = decodeItems[ControlRule](l, ref, ControlRulesDoc, rules, "rules")

	catalog, err := l.required(ref, r, CatalogDoc)
	if err != nil {
		return nil, err
	}
	for _, c := range decodeItems[Control](l, ref, CatalogDoc, catalog, "controls") {
		if c.ID == "" {
			l.logger.Warn("skipping control without id", "model", ref, "document", CatalogDoc)
			continue
		}
		m.Catalog[c.ID] = c
	}

	l.readDomains(ref, r, m)
	l.readLinks(ref, r, m)

	l.logger.Debug("loaded model",
		"model", ref,
		"version", m.Version,
		"base_questions", len(m.BaseQuestions),
		"domains", len(m.DomainQuestions),
		"triggers", len(m.TriggerRules),
		"control_rules", len(m.ControlRules),
		"controls", len(m.Catalog),
		"linked_controls", len(m.Links),
	)
	return m, nil
}

// required reads and parses a document whose absence is fatal. An empty
// document is accepted and yields nil.
func (l *Loader) required(ref string, r Reader, name string) (*yaml.Node, error) {
	data, err := r.ReadFile(name)
	if err != nil {
		return nil, &LoadError{Ref: ref, Document: name, Cause: err}
	}
	root, err := parseDocument(data)
	if err != nil {
		return nil, &LoadError{Ref: ref, Document: name, Cause: err}
	}
	if root != nil && root.Kind != yaml.MappingNode {
		l.logger.Warn("document root is not a mapping; treating as empty", "model", ref, "document", name)
		return nil, nil
	}
	return root, nil
}

// optional reads and parses a document whose absence is tolerated. The
// boolean reports whether a usable mapping was found.
func (l *Loader) optional(ref string, r Reader, name string) (*yaml.Node, bool) {
	data, err := r.ReadFile(name)
	if err != nil {
		if !isNotExist(err) {
			l.logger.Warn("failed to read optional model document", "model", ref, "document", name, "error", err)
		}
		return nil, false
	}
	root, err := parseDocument(data)
	if err != nil {
		l.logger.Warn("failed to parse optional model document", "model", ref, "document", name, "error", err)
		return nil, false
	}
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, false
	}
	return root, true
}

func parseDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.AliasNode {
		root = root.Alias
	}
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil, nil
	}
	return root, nil
}

// lookupKey returns the value node stored under key in a mapping node.
func lookupKey(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			v := m.Content[i+1]
			if v.Kind == yaml.AliasNode {
				v = v.Alias
			}
			return v
		}
	}
	return nil
}

// decodeItems decodes the sequence stored under key one entry at a time.
// A missing key yields no items.
func decodeItems[T any](l *Loader, ref, name string, doc *yaml.Node, key string) []T {
	seq := lookupKey(doc, key)
	if seq == nil || (seq.Kind == yaml.ScalarNode && seq.ShortTag() == "!!null") {
		return nil
	}
	if seq.Kind != yaml.SequenceNode {
		l.logger.Warn("expected a list; ignoring", "model", ref, "document", name, "key", key, "line", seq.Line)
		return nil
	}
	out := make([]T, 0, len(seq.Content))
	for i, item := range seq.Content {
		if item.Kind == yaml.AliasNode {
			item = item.Alias
		}
		if item.Kind != yaml.MappingNode {
			l.logger.Warn("skipping non-object entry", "model", ref, "document", name, "key", key, "index", i, "line", item.Line)
			continue
		}
		var v T
		if err := item.Decode(&v); err != nil {
			l.logger.Warn("skipping malformed entry", "model", ref, "document", name, "key", key, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func (l *Loader) questions(ref, name string, doc *yaml.Node) questionsDoc {
	var out questionsDoc
	if d := lookupKey(doc, "description"); d != nil && d.Kind == yaml.ScalarNode && d.ShortTag() != "!!null" {
		out.Description = d.Value
	}
	for _, q := range decodeItems[Question](l, ref, name, doc, "questions") {
		if q.ID == "" {
			l.logger.Warn("skipping question without id", "model", ref, "document", name)
			continue
		}
		out.Questions = append(out.Questions, q)
	}
	return out
}

func (l *Loader) readDomains(ref string, r Reader, m *Model) {
	names, err := r.ReadDir(QuestionsDir)
	if err != nil {
		if !isNotExist(err) {
			l.logger.Warn("failed to list domain question catalogs", "model", ref, "error", err)
		}
		return
	}
	for _, name := range names {
		domain, ok := DomainFromFile(name)
		if !ok || domain == "base" {
			continue
		}
		docPath := path.Join(QuestionsDir, name)
		doc, ok := l.optional(ref, r, docPath)
		if !ok {
			continue
		}
		qs := l.questions(ref, docPath, doc)
		m.DomainQuestions[domain] = qs.Questions
		if qs.Description != "" {
			m.DomainDescriptions[domain] = qs.Description
		}
	}
}

// DomainFromFile returns the domain name of a <domain>.questions.yaml file.
func DomainFromFile(name string) (string, bool) {
	domain, ok := strings.CutSuffix(path.Base(name), questionsSuffix)
	if !ok || domain == "" {
		return "", false
	}
	return domain, true
}

func (l *Loader) readLinks(ref string, r Reader, m *Model) {
	doc, ok := l.optional(ref, r, LinksDoc)
	if !ok {
		return
	}
	for _, entry := range decodeItems[linkEntry](l, ref, LinksDoc, doc, "links") {
		if entry.ControlID == "" {
			continue
		}
		var refs []Reference
		for _, n := range entry.References {
			var rf Reference
			if n.Kind != yaml.MappingNode || n.Decode(&rf) != nil {
				continue
			}
			if rf.Type == "" || rf.Ref == "" {
				continue
			}
			refs = append(refs, rf)
		}
		if len(refs) > 0 {
			m.Links[entry.ControlID] = refs
		}
	}
}

func (l *Loader) readVersion(ref string, r Reader) string {
	for _, name := range ManifestDocs {
		data, err := r.ReadFile(name)
		if err != nil {
			continue
		}
		root, err := parseDocument(data)
		if err != nil || root == nil || root.Kind != yaml.MappingNode {
			l.logger.Warn("model manifest is not a mapping", "model", ref, "document", name)
			return UnknownVersion
		}
		v := lookupKey(root, "model_version")
		if v != nil && v.Kind == yaml.ScalarNode && v.ShortTag() == "!!str" {
			if s := strings.TrimSpace(v.Value); s != "" {
				return s
			}
		}
		return UnknownVersion
	}
	return UnknownVersion
}

// LoadAll loads several sources in order and stops at the first failure.
func (l *Loader) LoadAll(ctx context.Context, srcs ...Source) ([]*Model, error) {
	out := make([]*Model, 0, len(srcs))
	for _, src := range srcs {
		m, err := l.Load(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", src, err)
		}
		out = append(out, m)
	}
	return out, nil
}
