package attribute

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02T15:04:05"
)

// FormValue is a typed form-side value: string, float64, bool, time.Time or UserRef.
type FormValue = any

// UserRef is the form representation of a user attribute.
type UserRef struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Kind is the per-type strategy of the codec.
type Kind interface {
	// Encode converts a form value to its wire string. ok is false when the
	// value is empty and the key must be omitted.
	Encode(v FormValue, def Definition) (wire string, ok bool, err error)
	// Decode converts a wire string back to a form value.
	Decode(raw string, def Definition) FormValue
	// Validate checks a wire string against the definition.
	Validate(raw string, def Definition) error
}

var kinds = map[Type]Kind{
	TypeText:     textKind{},
	TypeNumber:   numberKind{},
	TypeBoolean:  booleanKind{},
	TypeDate:     dateKind{},
	TypeDatetime: datetimeKind{},
	TypeSelect:   selectKind{},
	TypeUser:     userKind{},
}

// KindOf returns the strategy for t. Unknown types are treated as text.
func KindOf(t Type) Kind {
	if k, ok := kinds[t]; ok {
		return k
	}
	return textKind{}
}

// Encode converts a single form value for def.
func Encode(v FormValue, def Definition) (string, bool, error) {
	return KindOf(def.Type).Encode(v, def)
}

// Decode converts a single wire value for def.
func Decode(raw string, def Definition) FormValue {
	return KindOf(def.Type).Decode(raw, def)
}

type textKind struct{}

func (textKind) Encode(v FormValue, _ Definition) (string, bool, error) {
	s, err := formString(v)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

func (textKind) Decode(raw string, _ Definition) FormValue { return raw }

func (textKind) Validate(string, Definition) error { return nil }

type numberKind struct{}

func (numberKind) Encode(v FormValue, _ Definition) (string, bool, error) {
	s, err := formString(v)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	if _, ok := parseFinite(s); !ok {
		return "", false, ErrInvalidNumber
	}
	return s, true, nil
}

func (numberKind) Decode(raw string, _ Definition) FormValue {
	if f, ok := parseFinite(strings.TrimSpace(raw)); ok {
		return f
	}
	return raw
}

func (numberKind) Validate(raw string, _ Definition) error {
	if _, ok := parseFinite(strings.TrimSpace(raw)); !ok {
		return ErrInvalidNumber
	}
	return nil
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

type booleanKind struct{}

func (booleanKind) Encode(v FormValue, _ Definition) (string, bool, error) {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b), true, nil
	}
	s, err := formString(v)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	if s != "true" && s != "false" {
		return "", false, ErrInvalidBoolean
	}
	return s, true, nil
}

func (booleanKind) Decode(raw string, _ Definition) FormValue {
	switch strings.TrimSpace(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func (booleanKind) Validate(raw string, _ Definition) error {
	if raw != "true" && raw != "false" {
		return ErrInvalidBoolean
	}
	return nil
}

type dateKind struct{}

func (dateKind) Encode(v FormValue, _ Definition) (string, bool, error) {
	return encodeTime(v, DateLayout, ErrInvalidDate, DateLayout, DatetimeLayout, time.RFC3339)
}

func (dateKind) Decode(raw string, _ Definition) FormValue {
	if t, err := time.Parse(DateLayout, strings.TrimSpace(raw)); err == nil {
		return t
	}
	return raw
}

func (dateKind) Validate(raw string, _ Definition) error {
	if _, err := time.Parse(DateLayout, raw); err != nil {
		return ErrInvalidDate
	}
	return nil
}

type datetimeKind struct{}

func (datetimeKind) Encode(v FormValue, _ Definition) (string, bool, error) {
	return encodeTime(v, DatetimeLayout, ErrInvalidDatetime, DatetimeLayout, "2006-01-02 15:04:05", time.RFC3339)
}

func (datetimeKind) Decode(raw string, _ Definition) FormValue {
	if t, err := time.Parse(DatetimeLayout, strings.TrimSpace(raw)); err == nil {
		return t
	}
	return raw
}

func (datetimeKind) Validate(raw string, _ Definition) error {
	if _, err := time.Parse(DatetimeLayout, raw); err != nil {
		return ErrInvalidDatetime
	}
	return nil
}

// encodeTime formats t with its own wall clock; no zone conversion happens.
func encodeTime(v FormValue, layout string, invalidErr error, accept ...string) (string, bool, error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case time.Time:
		if t.IsZero() {
			return "", false, nil
		}
		return t.Format(layout), true, nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return "", false, nil
		}
		return t.Format(layout), true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return "", false, nil
		}
		for _, l := range accept {
			if parsed, err := time.Parse(l, s); err == nil {
				return parsed.Format(layout), true, nil
			}
		}
		return "", false, invalidErr
	}
	return "", false, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

type selectKind struct{}

func (selectKind) Encode(v FormValue, def Definition) (string, bool, error) {
	s, err := formString(v)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	if !def.Options.Contains(s) {
		return "", false, ErrNotInOptions
	}
	return s, true, nil
}

func (selectKind) Decode(raw string, _ Definition) FormValue { return raw }

func (selectKind) Validate(raw string, def Definition) error {
	if !def.Options.Contains(raw) {
		return ErrNotInOptions
	}
	return nil
}

type userKind struct{}

func (userKind) Encode(v FormValue, def Definition) (string, bool, error) {
	s, err := formString(v)
	if err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	if !def.Options.Contains(s) {
		return "", false, ErrNotInOptions
	}
	return s, true, nil
}

func (userKind) Decode(raw string, def Definition) FormValue {
	ref := UserRef{Value: raw, Label: raw}
	if opt, ok := def.Options.Lookup(raw); ok {
		ref.Label = opt.Label
	}
	return ref
}

func (userKind) Validate(raw string, def Definition) error {
	if !def.Options.Contains(raw) {
		return ErrNotInOptions
	}
	return nil
}

// formString reduces scalar-like form values to a string. References and
// option rows contribute their value only.
func formString(v FormValue) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	case UserRef:
		return t.Value, nil
	case *UserRef:
		if t == nil {
			return "", nil
		}
		return t.Value, nil
	case Option:
		return t.Value, nil
	case map[string]any:
		return formString(t["value"])
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}
