package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the dynamic type of an attribute value.
type Kind string

const (
	KindNumber Kind = "number"
	KindBool   Kind = "boolean"
	KindArray  Kind = "array"
	KindString Kind = "string"
)

// Value is a tagged variant holding one product attribute value. The
// pipeline treats values as opaque except for two narrow inspection points:
// list membership (Contains, used for the usage_context check) and the
// attribute *name* substring checks done by the effect expander.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
	Str  string
	List []string
}

func Number(f float64) Value      { return Value{Kind: KindNumber, Num: f} }
func Boolean(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Array(items ...string) Value { return Value{Kind: KindArray, List: items} }

// Contains reports whether v is an array containing member.
// Non-array values never match.
func (v Value) Contains(member string) bool {
	if v.Kind != KindArray {
		return false
	}
	for _, item := range v.List {
		if item == member {
			return true
		}
	}
	return false
}

// String renders the value for human-readable output (prompts, CLI tables).
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindArray:
		return "[" + strings.Join(v.List, ", ") + "]"
	default:
		return v.Str
	}
}

// MarshalJSON renders the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindArray:
		list := v.List
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON infers the kind from the JSON token, matching how the
// catalog importer types incoming attribute cells.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*v = String("")
		return nil
	}
	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Boolean(b)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err == nil {
			*v = Array(list...)
			return nil
		}
		// Mixed-type array: stringify each element.
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, len(raw))
		for i, e := range raw {
			items[i] = fmt.Sprint(e)
		}
		*v = Array(items...)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unsupported attribute value %s", trimmed)
		}
		*v = Number(f)
	}
	return nil
}

// StoredText returns the TEXT column representation of the value.
// Arrays are stored as JSON, scalars as their literal string form.
func (v Value) StoredText() (string, error) {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), nil
	case KindBool:
		return strconv.FormatBool(v.Bool), nil
	case KindArray:
		b, err := json.Marshal(v.List)
		if err != nil {
			return "", fmt.Errorf("encoding array attribute: %w", err)
		}
		return string(b), nil
	default:
		return v.Str, nil
	}
}

// ParseStored reconstructs a Value from its type tag and stored text.
// Malformed numbers degrade to strings and malformed arrays to a
// single-element list rather than failing the whole read.
func ParseStored(kind Kind, text string) Value {
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return String(text)
		}
		return Number(f)
	case KindBool:
		return Boolean(strings.EqualFold(text, "true"))
	case KindArray:
		var list []string
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return Array(text)
		}
		return Array(list...)
	default:
		return String(text)
	}
}
