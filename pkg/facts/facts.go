package facts

import (
	"strings"
)

// ReasonsKey is the per-section child that holds free-text justifications
// keyed by question id. It never participates in condition matching.
const ReasonsKey = "_reasons"

// BaseSection is the namespace bare condition keys resolve into.
const BaseSection = "base"

// Facts is the recorded answer set for one system under assessment.
//
// The zero value is an empty document. Facts are immutable: Set and Delete
// return a new document and leave the receiver untouched, so a Facts value
// may be shared freely between goroutines.
type Facts struct {
	root Value
}

// New returns the document a freshly created system starts from:
// {scope, description: "", base: {}}.
func New(scope string) Facts {
	root := EmptyMap().
		With("scope", String(scope)).
		With("description", String("")).
		With(BaseSection, EmptyMap())
	return Facts{root: root}
}

// FromValue wraps a map value as a facts document. Non-map values yield an
// empty document.
func FromValue(v Value) Facts {
	if v.Kind() != KindMap {
		return Facts{root: EmptyMap()}
	}
	return Facts{root: v}
}

// Root returns the underlying tree.
func (f Facts) Root() Value {
	if f.root.Kind() != KindMap {
		return EmptyMap()
	}
	return f.root
}

// Lookup resolves a dotted path. Traversal through a missing key or a
// non-map value yields Null; it never fails.
//
// Example:
//
//	f.Lookup("security.tier")   // the value at root.security.tier
//	f.Lookup("nope.deeper")     // Null
func (f Facts) Lookup(path string) Value {
	cur := f.root
	for _, part := range strings.Split(path, ".") {
		child, ok := cur.Get(part)
		if !ok {
			return Null()
		}
		cur = child
	}
	return cur
}

// Has reports whether path resolves to a non-null value.
func (f Facts) Has(path string) bool {
	return !f.Lookup(path).IsNull()
}

// Set returns a copy of f with the leaf at path replaced by v. Missing or
// non-map intermediates are replaced by maps.
func (f Facts) Set(path string, v Value) Facts {
	parts := strings.Split(path, ".")
	return Facts{root: setIn(f.Root(), parts, v)}
}

func setIn(node Value, parts []string, v Value) Value {
	if len(parts) == 1 {
		return node.With(parts[0], v)
	}
	child, _ := node.Get(parts[0])
	if child.Kind() != KindMap {
		child = EmptyMap()
	}
	return node.With(parts[0], setIn(child, parts[1:], v))
}

// Delete returns a copy of f without the leaf at path. If an intermediate
// is missing or not a map the document is returned unchanged.
func (f Facts) Delete(path string) Facts {
	parts := strings.Split(path, ".")
	out, _ := deleteIn(f.Root(), parts)
	return Facts{root: out}
}

func deleteIn(node Value, parts []string) (Value, bool) {
	if len(parts) == 1 {
		if _, ok := node.Get(parts[0]); !ok {
			return node, false
		}
		return node.Without(parts[0]), true
	}
	child, ok := node.Get(parts[0])
	if !ok || child.Kind() != KindMap {
		return node, false
	}
	updated, changed := deleteIn(child, parts[1:])
	if !changed {
		return node, false
	}
	return node.With(parts[0], updated), true
}

// Scope returns the free-text scope label, or "".
func (f Facts) Scope() string {
	s, _ := f.Lookup("scope").AsString()
	return s
}

// Description returns the system description, or "".
func (f Facts) Description() string {
	s, _ := f.Lookup("description").AsString()
	return s
}

// ModelVersion returns the pinned model version, or "" when unpinned.
func (f Facts) ModelVersion() string {
	s, _ := f.Lookup("model_version").AsString()
	return s
}

// Section returns the namespace stored under name, or Null.
func (f Facts) Section(name string) Value {
	v, _ := f.root.Get(name)
	return v
}

// Sections returns the names of root-level map namespaces in document order.
func (f Facts) Sections() []string {
	var out []string
	for _, k := range f.root.Keys() {
		child, _ := f.root.Get(k)
		if child.Kind() == KindMap {
			out = append(out, k)
		}
	}
	return out
}

// Reason returns the justification recorded for section.questionID.
func (f Facts) Reason(section, questionID string) string {
	s, _ := f.Lookup(section + "." + ReasonsKey + "." + questionID).AsString()
	return s
}

// SetReason records a justification; an empty reason removes it.
func (f Facts) SetReason(section, questionID, reason string) Facts {
	path := section + "." + ReasonsKey + "." + questionID
	if reason == "" {
		return f.Delete(path)
	}
	return f.Set(path, String(reason))
}

// IsReasonsPath reports whether any segment of path is the reasons key.
func IsReasonsPath(path string) bool {
	for _, part := range strings.Split(path, ".") {
		if part == ReasonsKey {
			return true
		}
	}
	return false
}

// Equal reports whether two documents hold the same tree. Unlike Value.Equal,
// two empty documents are equal.
func (f Facts) Equal(o Facts) bool {
	a, b := f.Root(), o.Root()
	if a.Len() == 0 && b.Len() == 0 {
		return true
	}
	return a.Equal(b)
}
