package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromNode converts a decoded YAML node into a Value.
//
// Scalars keep their YAML type: booleans, numbers and null map to their kinds,
// everything else is a string. Sequence items keep their scalar type; null
// items and nested collections are skipped because set answers are flat.
func FromNode(node *yaml.Node) (Value, error) {
	if node == nil {
		return Null(), nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return FromNode(node.Content[0])
	case yaml.AliasNode:
		return FromNode(node.Alias)
	case yaml.ScalarNode:
		return scalarFromNode(node), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.AliasNode {
				item = item.Alias
			}
			if item.Kind != yaml.ScalarNode {
				continue
			}
			items = append(items, scalarFromNode(item))
		}
		return ListOf(items...), nil
	case yaml.MappingNode:
		out := EmptyMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Null(), fmt.Errorf("line %d: mapping key must be a scalar", key.Line)
			}
			child, err := FromNode(node.Content[i+1])
			if err != nil {
				return Null(), err
			}
			out = out.With(key.Value, child)
		}
		return out, nil
	}
	return Null(), fmt.Errorf("line %d: unsupported yaml node kind %d", node.Line, node.Kind)
}

func scalarFromNode(node *yaml.Node) Value {
	switch node.ShortTag() {
	case "!!null":
		return Null()
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int", "!!float":
		var n float64
		if err := node.Decode(&n); err == nil {
			return Number(n)
		}
	}
	return String(node.Value)
}

// ToNode converts a Value into a YAML node tree.
func ToNode(v Value) *yaml.Node {
	switch v.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case KindNumber:
		tag := "!!float"
		if v.n == float64(int64(v.n)) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: formatNumber(v.n)}
	case KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			seq.Content = append(seq.Content, ToNode(item))
		}
		return seq
	case KindMap:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.keys {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToNode(v.m[k]))
		}
		return m
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	out, err := FromNode(node)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return ToNode(v), nil
}

// MarshalJSON implements json.Marshaler. Map keys keep their document order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.m[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Object key order is preserved.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	out, err := decodeJSON(dec)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(n), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return ListOf(items...), nil
		case '{':
			out := EmptyMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("facts: object key %v is not a string", keyTok)
				}
				child, err := decodeJSON(dec)
				if err != nil {
					return Null(), err
				}
				out = out.With(key, child)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return out, nil
		}
	}
	return Null(), fmt.Errorf("facts: unexpected json token %v", tok)
}

// UnmarshalYAML implements yaml.Unmarshaler for a whole document.
func (f *Facts) UnmarshalYAML(node *yaml.Node) error {
	v, err := FromNode(node)
	if err != nil {
		return err
	}
	if v.Kind() != KindMap && !v.IsNull() {
		return fmt.Errorf("facts: document root must be an object, got %s", v.Kind())
	}
	*f = FromValue(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Facts) MarshalYAML() (interface{}, error) {
	return ToNode(f.Root()), nil
}

// MarshalJSON implements json.Marshaler.
func (f Facts) MarshalJSON() ([]byte, error) {
	return f.Root().MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Facts) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.Kind() != KindMap && !v.IsNull() {
		return fmt.Errorf("facts: document root must be an object, got %s", v.Kind())
	}
	*f = FromValue(v)
	return nil
}

// Parse decodes a YAML (or JSON, which is valid YAML) facts document. An
// empty document yields empty facts.
func Parse(data []byte) (Facts, error) {
	var f Facts
	if len(bytes.TrimSpace(data)) == 0 {
		return FromValue(EmptyMap()), nil
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Facts{}, fmt.Errorf("parse facts: %w", err)
	}
	return f, nil
}

// Encode renders facts as YAML with two-space indentation.
func Encode(f Facts) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToNode(f.Root())); err != nil {
		return nil, fmt.Errorf("encode facts: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode facts: %w", err)
	}
	return buf.Bytes(), nil
}
