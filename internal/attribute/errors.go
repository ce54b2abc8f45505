package attribute

import "errors"

var (
	ErrUnknownType          = errors.New("unknown attribute type")
	ErrUnsupportedValue     = errors.New("unsupported form value")
	ErrInvalidNumber        = errors.New("value is not a finite number")
	ErrInvalidBoolean       = errors.New(`value must be "true" or "false"`)
	ErrInvalidDate          = errors.New("value is not a YYYY-MM-DD date")
	ErrInvalidDatetime      = errors.New("value is not a YYYY-MM-DDTHH:mm:ss datetime")
	ErrNotInOptions         = errors.New("value is not one of the configured options")
	ErrDefaultNotInOptions  = errors.New("default value is not one of the configured options")
	ErrColorKeyNotInOptions = errors.New("color map key is not one of the configured options")
	ErrOptionsNotAllowed    = errors.New("options are only allowed for select and user attributes")
	ErrRequired             = errors.New("value is required")
	ErrImmutable            = errors.New("field cannot be changed after creation")
	ErrInvalidName          = errors.New("attribute name must start with a letter or underscore and contain only letters, digits and underscores")
)

// ValidationError ties a codec or schema error to the field it concerns.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
