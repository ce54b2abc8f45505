package attribute

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

var priorityOptions = Options{
	{Label: "Low", Value: "low"},
	{Label: "High", Value: "high"},
}

var ownerOptions = Options{
	{Label: "Ann", Value: "42"},
	{Label: "Bob", Value: "43"},
}

func TestEncodeEmptyIsAbsent(t *testing.T) {
	for _, typ := range Types {
		def := Definition{Name: "f_x", Type: typ, Options: priorityOptions}
		for _, v := range []FormValue{nil, "", "   "} {
			wire, ok, err := Encode(v, def)
			require.NoError(t, err, "type %s", typ)
			assert.False(t, ok, "type %s value %#v", typ, v)
			assert.Empty(t, wire)
		}
	}
}

func TestEncodeText(t *testing.T) {
	wire, ok, err := Encode("  hello ", Definition{Type: TypeText})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", wire)
}

func TestEncodeNumber(t *testing.T) {
	def := Definition{Type: TypeNumber}

	wire, ok, err := Encode(1.5, def)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.5", wire)

	wire, _, err = Encode(" 12 ", def)
	require.NoError(t, err)
	assert.Equal(t, "12", wire)

	_, _, err = Encode("abc", def)
	assert.ErrorIs(t, err, ErrInvalidNumber)

	_, _, err = Encode("NaN", def)
	assert.ErrorIs(t, err, ErrInvalidNumber)

	_, _, err = Encode("+Inf", def)
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestEncodeBoolean(t *testing.T) {
	def := Definition{Type: TypeBoolean}

	wire, ok, err := Encode(true, def)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", wire)

	wire, _, err = Encode(false, def)
	require.NoError(t, err)
	assert.Equal(t, "false", wire)

	_, _, err = Encode("yes", def)
	assert.ErrorIs(t, err, ErrInvalidBoolean)
}

func TestEncodeDateAndDatetime(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	wire, ok, err := Encode(at, Definition{Type: TypeDate})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-03-09", wire)

	wire, _, err = Encode(at, Definition{Type: TypeDatetime})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09T14:05:07", wire)

	wire, _, err = Encode("2024-03-09T14:05:07", Definition{Type: TypeDate})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", wire)

	_, _, err = Encode("03/09/2024", Definition{Type: TypeDate})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, _, err = Encode("2024-03-09T25:00:00", Definition{Type: TypeDatetime})
	assert.ErrorIs(t, err, ErrInvalidDatetime)
}

func TestEncodeDatetimeKeepsWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, loc)

	wire, _, err := Encode(at, Definition{Type: TypeDatetime})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T09:00:00", wire)
}

func TestEncodeSelectRejectsUnknownOption(t *testing.T) {
	def := Definition{Type: TypeSelect, Options: priorityOptions}

	wire, ok, err := Encode("high", def)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "high", wire)

	_, _, err = Encode("urgent", def)
	assert.ErrorIs(t, err, ErrNotInOptions)
}

func TestEncodeUserPersistsValueOnly(t *testing.T) {
	def := Definition{Type: TypeUser, Options: ownerOptions}

	wire, ok, err := Encode(UserRef{Value: "42", Label: "Ann"}, def)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", wire)

	wire, _, err = Encode(map[string]any{"value": "43", "label": "Bob"}, def)
	require.NoError(t, err)
	assert.Equal(t, "43", wire)

	_, _, err = Encode(UserRef{Value: "99"}, def)
	assert.ErrorIs(t, err, ErrNotInOptions)
}

func TestDecodePassesInvalidDatesThrough(t *testing.T) {
	assert.Equal(t, "not a date", Decode("not a date", Definition{Type: TypeDate}))
	assert.Equal(t, "2024-13-01", Decode("2024-13-01", Definition{Type: TypeDate}))
	assert.Equal(t, "yesterday", Decode("yesterday", Definition{Type: TypeDatetime}))

	got := Decode("2024-02-29", Definition{Type: TypeDate})
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)
}

func TestDecodeUserResolvesLabel(t *testing.T) {
	def := Definition{Type: TypeUser, Options: ownerOptions}
	assert.Equal(t, UserRef{Value: "42", Label: "Ann"}, Decode("42", def))
	assert.Equal(t, UserRef{Value: "7", Label: "7"}, Decode("7", def))
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		def   Definition
		value FormValue
	}{
		{Definition{Type: TypeText}, "abc"},
		{Definition{Type: TypeNumber}, 1.25},
		{Definition{Type: TypeNumber}, -3.0},
		{Definition{Type: TypeBoolean}, true},
		{Definition{Type: TypeBoolean}, false},
		{Definition{Type: TypeDate}, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{Definition{Type: TypeDatetime}, time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC)},
		{Definition{Type: TypeSelect, Options: priorityOptions}, "low"},
		{Definition{Type: TypeUser, Options: ownerOptions}, UserRef{Value: "43", Label: "Bob"}},
	}
	for _, tc := range cases {
		wire, ok, err := Encode(tc.value, tc.def)
		require.NoError(t, err, "type %s", tc.def.Type)
		require.True(t, ok)
		assert.Equal(t, tc.value, Decode(wire, tc.def), "type %s", tc.def.Type)
	}
}

func TestEncodeAllPreservesUnknownKeys(t *testing.T) {
	defs := []Definition{
		{Name: "f_prio", Type: TypeSelect, Options: priorityOptions},
		{Name: "f_note", Type: TypeText},
	}
	form := DecodeAll(Bag{
		"f_prio":   strPtr("high"),
		"f_note":   nil,
		"f_legacy": strPtr("kept"),
	}, defs)

	assert.Equal(t, map[string]string{"f_legacy": "kept"}, form.ReadOnly)
	assert.Equal(t, map[string]FormValue{"f_prio": "high"}, form.Values)

	form.Values["f_note"] = " written "
	bag, err := EncodeAll(form, defs)
	require.NoError(t, err)

	got := map[string]string{}
	for k, v := range bag {
		got[k] = *v
	}
	assert.Equal(t, map[string]string{"f_prio": "high", "f_note": "written", "f_legacy": "kept"}, got)
}

func TestEncodeAllCollectsFieldErrors(t *testing.T) {
	defs := []Definition{
		{Name: "f_prio", Type: TypeSelect, Options: priorityOptions},
		{Name: "f_done", Type: TypeBoolean},
		{Name: "f_title", Type: TypeText, Required: true},
	}
	_, err := EncodeAll(Form{Values: map[string]FormValue{
		"f_prio": "urgent",
		"f_done": "maybe",
	}}, defs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInOptions)
	assert.ErrorIs(t, err, ErrInvalidBoolean)
	assert.ErrorIs(t, err, ErrRequired)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "f_prio", verr.Field)
}

func TestDefaults(t *testing.T) {
	defs := []Definition{
		{Name: "f_done", Type: TypeBoolean, Default: strPtr("true")},
		{Name: "f_est", Type: TypeNumber, Default: strPtr("3")},
		{Name: "f_due", Type: TypeDate, Default: strPtr("2024-05-01")},
		{Name: "f_owner", Type: TypeUser, Default: strPtr("42"), Options: ownerOptions},
		{Name: "f_blank", Type: TypeText, Default: strPtr("  ")},
		{Name: "f_none", Type: TypeText},
	}
	got := Defaults(defs)
	assert.Equal(t, map[string]FormValue{
		"f_done":  true,
		"f_est":   3.0,
		"f_due":   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		"f_owner": UserRef{Value: "42", Label: "Ann"},
	}, got)
}

func TestPolicyCheck(t *testing.T) {
	defs := []Definition{
		{Name: "f_prio", Type: TypeSelect, Options: priorityOptions},
		{Name: "f_est", Type: TypeNumber},
	}
	bag := Bag{
		"f_prio":    strPtr("urgent"),
		"f_est":     strPtr("two"),
		"f_unknown": strPtr("anything"),
		"f_cleared": nil,
	}

	err := PolicyStrict.Check(bag, defs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInOptions)
	assert.ErrorIs(t, err, ErrInvalidNumber)

	assert.NoError(t, PolicyLenient.Check(bag, defs))
	assert.NoError(t, PolicyStrict.Check(Bag{"f_prio": strPtr("low"), "f_unknown": strPtr("x")}, defs))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	p, err = ParsePolicy(" Lenient ")
	require.NoError(t, err)
	assert.Equal(t, PolicyLenient, p)

	_, err = ParsePolicy("loose")
	assert.Error(t, err)
}
