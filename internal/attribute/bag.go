package attribute

import (
	"errors"
	"sort"
	"strings"
)

// Form is the decoded, form-side view of a task's custom attributes.
type Form struct {
	Values map[string]FormValue
	// ReadOnly holds keys that no schema entry describes. They survive a
	// round trip untouched.
	ReadOnly map[string]string
}

// EncodeAll converts a whole form to its wire bag. Every failing field is
// reported; errors.Is works against the joined result.
func EncodeAll(form Form, defs []Definition) (Bag, error) {
	out := Bag{}
	known := make(map[string]struct{}, len(defs))
	var errs []error

	for _, def := range defs {
		known[def.Name] = struct{}{}
		wire, ok, err := Encode(form.Values[def.Name], def)
		if err != nil {
			errs = append(errs, invalid(def.Name, err))
			continue
		}
		if !ok {
			if def.Required {
				errs = append(errs, invalid(def.Name, ErrRequired))
			}
			continue
		}
		out[def.Name] = &wire
	}

	for key, v := range form.Values {
		if _, ok := known[key]; ok {
			continue
		}
		s, err := formString(v)
		if err != nil {
			errs = append(errs, invalid(key, err))
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out[key] = &s
		}
	}

	for key, v := range form.ReadOnly {
		if _, exists := out[key]; exists {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		s := v
		out[key] = &s
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// DecodeAll converts a wire bag to form values. Null values are skipped.
func DecodeAll(bag Bag, defs []Definition) Form {
	byName := index(defs)
	form := Form{Values: map[string]FormValue{}, ReadOnly: map[string]string{}}
	for key, v := range bag {
		if v == nil {
			continue
		}
		def, ok := byName[key]
		if !ok {
			form.ReadOnly[key] = *v
			continue
		}
		form.Values[key] = Decode(*v, def)
	}
	return form
}

// Defaults builds the initial form values from configured default values.
func Defaults(defs []Definition) map[string]FormValue {
	out := map[string]FormValue{}
	for _, def := range defs {
		if def.Default == nil {
			continue
		}
		raw := strings.TrimSpace(*def.Default)
		if raw == "" {
			continue
		}
		out[def.Name] = Decode(raw, def)
	}
	return out
}

// UnknownKeys lists keys of bag that no definition describes, sorted.
func UnknownKeys(bag Bag, defs []Definition) []string {
	byName := index(defs)
	var keys []string
	for key := range bag {
		if _, ok := byName[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Label resolves the display label of a wire value: the option label for
// select and user attributes, the raw value otherwise.
func Label(raw string, def Definition) string {
	if def.Type.HasOptions() {
		if opt, ok := def.Options.Lookup(raw); ok {
			return opt.Label
		}
	}
	return raw
}

func index(defs []Definition) map[string]Definition {
	out := make(map[string]Definition, len(defs))
	for _, def := range defs {
		out[def.Name] = def
	}
	return out
}
