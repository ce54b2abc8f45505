package attribute

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Policy decides how task writes treat values of known attributes.
type Policy string

const (
	// PolicyStrict rejects values the codec would not produce.
	PolicyStrict Policy = "strict"
	// PolicyLenient stores values untouched.
	PolicyLenient Policy = "lenient"
)

// ParsePolicy accepts "strict" or "lenient"; empty means strict.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyStrict, nil
	case PolicyStrict, PolicyLenient:
		return p, nil
	default:
		return "", fmt.Errorf("unknown attribute policy %q", raw)
	}
}

// Check validates bag against defs. Unknown keys always pass.
func (p Policy) Check(bag Bag, defs []Definition) error {
	if p == PolicyLenient {
		return nil
	}
	byName := index(defs)
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		v := bag[key]
		def, ok := byName[key]
		if !ok || v == nil {
			continue
		}
		if err := KindOf(def.Type).Validate(*v, def); err != nil {
			errs = append(errs, invalid("customAttributes."+key, err))
		}
	}
	return errors.Join(errs...)
}
