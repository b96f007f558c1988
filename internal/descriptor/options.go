package descriptor

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Options is the free-form option map attached to steps and plugins. Values
// come from YAML (ints) or JSON (float64), so the accessors normalise both.
type Options map[string]any

func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

func (o Options) Int(key string, def int64) int64 {
	switch v := o[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		if v > 1<<63-1 {
			return 1<<63 - 1
		}
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		// limit: false disables inlining, limit: true inlines everything
		if v {
			return 1<<63 - 1
		}
		return -1
	}
	return def
}

func (o Options) Float(key string, def float64) float64 {
	switch v := o[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return def
}

// Strings returns a string list option; a single string is returned as a one-element list.
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// StringMap returns a map option with values rendered as strings. Non-string
// scalars are JSON encoded so they can be used as define replacements.
func (o Options) StringMap(key string) (map[string]string, error) {
	raw, ok := o[key]
	if !ok {
		return nil, nil
	}
	var m map[string]any
	switch v := raw.(type) {
	case Options:
		// yaml.v3 decodes nested mappings as the enclosing map type
		m = v
	case map[string]any:
		m = v
	default:
		return nil, fmt.Errorf("option %q must be a map", key)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("option %q key %q: %w", key, k, err)
			}
			out[k] = string(b)
		}
	}
	return out, nil
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type plainStep Step

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Loader = node.Value
		s.Options = nil
		return nil
	}
	var p plainStep
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Step(p)
	return nil
}

func (s Step) MarshalYAML() (any, error) {
	if len(s.Options) == 0 {
		return s.Loader, nil
	}
	return plainStep(s), nil
}

func (s *Step) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		s.Options = nil
		return json.Unmarshal(data, &s.Loader)
	}
	var p plainStep
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Step(p)
	return nil
}

func (s Step) MarshalJSON() ([]byte, error) {
	if len(s.Options) == 0 {
		return json.Marshal(s.Loader)
	}
	return json.Marshal(plainStep(s))
}
