package attribute

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Type names the value domain of a custom attribute.
type Type string

const (
	TypeText     Type = "text"
	TypeNumber   Type = "number"
	TypeBoolean  Type = "boolean"
	TypeDate     Type = "date"
	TypeDatetime Type = "datetime"
	TypeSelect   Type = "select"
	TypeUser     Type = "user"
)

// Types lists every supported attribute type in display order.
var Types = []Type{TypeText, TypeNumber, TypeBoolean, TypeDate, TypeDatetime, TypeSelect, TypeUser}

// ParseType validates a raw type name.
func ParseType(raw string) (Type, error) {
	t := Type(strings.TrimSpace(raw))
	if _, ok := kinds[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
	return t, nil
}

// HasOptions reports whether the type draws its values from an option list.
func (t Type) HasOptions() bool {
	return t == TypeSelect || t == TypeUser
}

// Option is one selectable row of a select or user attribute.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Options is the normalized option list. It accepts scalars or
// {label,value} objects on input and always emits objects.
type Options []Option

// UnmarshalJSON normalizes loosely shaped option lists.
func (o *Options) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("options must be an array: %w", err)
	}
	out := make(Options, 0, len(raw))
	for _, item := range raw {
		opt, ok := normalizeOption(item)
		if !ok {
			continue
		}
		out = append(out, opt)
	}
	if len(out) == 0 {
		*o = nil
		return nil
	}
	*o = out
	return nil
}

// MarshalJSON emits null for an empty list.
func (o Options) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal([]Option(o))
}

func normalizeOption(item json.RawMessage) (Option, bool) {
	if s, ok := scalarString(item); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return Option{}, false
		}
		return Option{Label: s, Value: s}, true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return Option{}, false
	}
	label, _ := scalarString(obj["label"])
	value, _ := scalarString(obj["value"])
	label, value = strings.TrimSpace(label), strings.TrimSpace(value)
	if label == "" || value == "" {
		return Option{}, false
	}
	return Option{Label: label, Value: value}, true
}

// Contains reports whether value is one of the option values.
func (o Options) Contains(value string) bool {
	_, ok := o.Lookup(value)
	return ok
}

// Lookup returns the option carrying value.
func (o Options) Lookup(value string) (Option, bool) {
	for _, opt := range o {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// Index returns the position of value in the list, or -1.
func (o Options) Index(value string) int {
	for i, opt := range o {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

// ColorMap maps option values to hex colors.
type ColorMap map[string]string

// UnmarshalJSON drops rows with an empty key or color.
func (m *ColorMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("value color map must be an object: %w", err)
	}
	out := ColorMap{}
	for k, v := range raw {
		color, ok := scalarString(v)
		k, color = strings.TrimSpace(k), strings.TrimSpace(color)
		if !ok || k == "" || color == "" {
			continue
		}
		out[k] = color
	}
	if len(out) == 0 {
		*m = nil
		return nil
	}
	*m = out
	return nil
}

// MarshalJSON emits null for an empty map.
func (m ColorMap) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]string(m))
}

// Definition is the schema entry the codec needs for one attribute.
type Definition struct {
	Name     string
	Label    string
	Type     Type
	Required bool
	Default  *string
	Options  Options
	ColorMap ColorMap
	Order    *float64
}

// Bag is the wire form of a task's custom attributes: values are strings or null.
type Bag map[string]*string

// UnmarshalJSON accepts loosely typed values and converts them to strings.
// Objects carrying a "value" field are reduced to that field.
func (b *Bag) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("custom attributes must be an object: %w", err)
	}
	out := make(Bag, len(raw))
	for k, v := range raw {
		trimmed := bytes.TrimSpace(v)
		if bytes.Equal(trimmed, []byte("null")) {
			out[k] = nil
			continue
		}
		if s, ok := scalarString(trimmed); ok {
			out[k] = &s
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if s, ok := scalarString(obj["value"]); ok {
				out[k] = &s
				continue
			}
		}
		return fmt.Errorf("custom attribute %q: unsupported value %s", k, string(trimmed))
	}
	*b = out
	return nil
}

// Get returns the non-null value stored under key.
func (b Bag) Get(key string) (string, bool) {
	v, ok := b[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Clone copies the bag so callers can mutate it safely.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}
	out := make(Bag, len(b))
	for k, v := range b {
		if v == nil {
			out[k] = nil
			continue
		}
		s := *v
		out[k] = &s
	}
	return out
}

func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", false
		}
		return strconv.FormatBool(v), true
	case '{', '[', 'n':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
}
