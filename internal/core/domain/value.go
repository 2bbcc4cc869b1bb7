package domain

import (
	"strings"
)

// Kind discriminates the variants of a configuration Value.
type Kind int

const (
	// KindString is a scalar value rendered as text.
	KindString Kind = iota
	// KindBool is a boolean value.
	KindBool
	// KindList is an ordered list of scalar strings.
	KindList
)

// Value is the tagged variant the core operates on instead of raw dynamic
// configuration nodes. Parameters and context entries are Values; numbers are
// carried in their textual form since they only ever reach a shell command.
type Value struct {
	kind Kind
	str  string
	b    bool
	list []string
}

// StringValue creates a scalar Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// BoolValue creates a boolean Value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// ListValue creates a list Value.
func ListValue(items ...string) Value {
	return Value{kind: KindList, list: items}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Bool returns the boolean payload. Only meaningful for KindBool.
func (v Value) Bool() bool {
	return v.b
}

// List returns the list payload. A scalar yields a single-element list so
// callers expanding inputs can treat both shapes uniformly.
func (v Value) List() []string {
	if v.kind == KindList {
		return v.list
	}
	return []string{v.String()}
}

// Index returns the n-th element of a list Value.
func (v Value) Index(n int) (string, bool) {
	items := v.List()
	if n < 0 || n >= len(items) {
		return "", false
	}
	return items[n], true
}

// String renders the Value as template substitution text. Lists join with a
// single space, matching how a bare {KEY} reference to a list behaves.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindList:
		return strings.Join(v.list, " ")
	default:
		return v.str
	}
}

// Canonical renders the Value for fingerprint hashing. It is unambiguous
// across kinds so a scalar "a b" never collides with the list [a, b].
func (v Value) Canonical() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "bool:true"
		}
		return "bool:false"
	case KindList:
		var sb strings.Builder
		sb.WriteString("list:")
		for _, item := range v.list {
			sb.WriteString(item)
			sb.WriteByte(0)
		}
		return sb.String()
	default:
		return "str:" + v.str
	}
}
