package attribute

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultColor is offered for a new color map row.
const DefaultColor = "#1677ff"

const maxNameAttempts = 32

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// GenerateName returns a fresh "f_xxxxxxxx" attribute name not reported
// as taken.
func GenerateName(taken func(name string) bool) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		name := "f_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if taken == nil || !taken(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique attribute name after %d attempts", maxNameAttempts)
}

// ValidateName checks a client supplied attribute name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return invalid("attributeName", ErrInvalidName)
	}
	return nil
}

// ValidateConfig checks a schema entry against the attribute invariants:
// options and colors only for select/user, color keys among the option
// values, and a default that the type accepts.
func ValidateConfig(def Definition) error {
	var errs []error

	if _, ok := kinds[def.Type]; !ok {
		return invalid("attributeType", fmt.Errorf("%w: %q", ErrUnknownType, def.Type))
	}
	if strings.TrimSpace(def.Label) == "" {
		errs = append(errs, invalid("attributeLabel", ErrRequired))
	}

	if !def.Type.HasOptions() {
		if len(def.Options) > 0 {
			errs = append(errs, invalid("options", ErrOptionsNotAllowed))
		}
		if len(def.ColorMap) > 0 {
			errs = append(errs, invalid("valueColorMap", ErrOptionsNotAllowed))
		}
	}

	keys := make([]string, 0, len(def.ColorMap))
	for k := range def.ColorMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !def.Options.Contains(k) {
			errs = append(errs, invalid("valueColorMap", fmt.Errorf("%w: %q", ErrColorKeyNotInOptions, k)))
		}
	}

	if def.Default != nil {
		if raw := strings.TrimSpace(*def.Default); raw != "" {
			if err := KindOf(def.Type).Validate(raw, def); err != nil {
				if errors.Is(err, ErrNotInOptions) {
					err = ErrDefaultNotInOptions
				}
				errs = append(errs, invalid("defaultValue", err))
			}
		}
	}

	return errors.Join(errs...)
}
