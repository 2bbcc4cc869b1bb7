package domain

import (
	"sort"
	"strings"
)

// ParamMap is a parameter mapping that preserves declaration order, so the
// formatted flag string is deterministic across runs. Re-setting a key
// replaces its value but keeps the original position, which is what key-wise
// tier merging needs.
type ParamMap struct {
	keys []string
	vals map[string]Value
}

// NewParamMap creates an empty ParamMap.
func NewParamMap() *ParamMap {
	return &ParamMap{vals: make(map[string]Value)}
}

// Set stores a parameter value.
func (m *ParamMap) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get looks up a parameter value.
func (m *ParamMap) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns parameter names in declaration order.
func (m *ParamMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of parameters.
func (m *ParamMap) Len() int {
	return len(m.keys)
}

// Canonical returns a sorted-key representation of the mapping, used as the
// parameter component of the staleness fingerprint.
func (m *ParamMap) Canonical() string {
	sorted := make([]string, len(m.keys))
	copy(sorted, m.keys)
	sort.Strings(sorted)

	var sb strings.Builder
	for _, k := range sorted {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(m.vals[k].Canonical())
		sb.WriteByte(0)
	}
	return sb.String()
}

// MergeParameters merges the four precedence tiers for one rule, lowest
// first: general defaults, command-line overrides, profile parameters, step
// parameters. A key in a higher tier fully replaces the lower tier's value.
// Nil tiers are skipped.
func MergeParameters(tiers ...*ParamMap) *ParamMap {
	merged := NewParamMap()
	for _, tier := range tiers {
		if tier == nil {
			continue
		}
		for _, k := range tier.keys {
			merged.Set(k, tier.vals[k])
		}
	}
	return merged
}

// Format renders the merged parameters as the {PARAMETERS} substitution for
// the given rule: keys in declaration order, booleans as bare flags, lists as
// repeated flags, scalars as flag plus value. Values are shell-quoted unless
// the key is listed in the rule's unquoted_params; an empty scalar keeps only
// the flag.
func (m *ParamMap) Format(rule *Rule) string {
	var tokens []string
	for _, key := range m.keys {
		v := m.vals[key]
		flag := rule.Dash + key

		switch v.Kind() {
		case KindBool:
			if v.Bool() {
				tokens = append(tokens, flag)
			}
		case KindList:
			for _, item := range v.List() {
				tokens = append(tokens, flag, rule.quoteParam(key, item))
			}
		default:
			s := v.String()
			if s == "" {
				tokens = append(tokens, flag)
				continue
			}
			tokens = append(tokens, flag, rule.quoteParam(key, s))
		}
	}
	return strings.Join(tokens, " ")
}

func (r *Rule) quoteParam(key, value string) string {
	if r.UnquotedParams[key] {
		return value
	}
	return ShellQuote(value)
}
