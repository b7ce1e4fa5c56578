package drivelock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidParameter marks a parameter rejected before any request.
	ErrInvalidParameter = errors.New("invalid parameter")

	idPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
)

// maxIntFloat is 2^(IntSize-1), the first float above the int range.
const maxIntFloat = float64(1 << (strconv.IntSize - 1))

// ParameterError names the item and parameter that failed validation.
type ParameterError struct {
	Item      int
	Parameter string
	Err       error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("item %d: parameter %q: %v", e.Item, e.Parameter, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

func (e *ParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

func paramErr(item int, name string, format string, args ...any) *ParameterError {
	return &ParameterError{Item: item, Parameter: name, Err: fmt.Errorf(format, args...)}
}

// Text is a string parameter that also accepts numbers, booleans and lists
// of those; lists are joined with commas.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	if err := dec.Decode(&v); err != nil {
		return err
	}

	s, err := scalarText(v)
	if err != nil {
		return err
	}

	*t = Text(s)

	return nil
}

func (t Text) String() string { return string(t) }

func scalarText(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case []any:
		parts := make([]string, 0, len(val))

		for _, p := range val {
			s, err := scalarText(p)
			if err != nil {
				return "", err
			}

			parts = append(parts, s)
		}

		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("expected text, got %T", v)
	}
}

// Number is an integer parameter that also accepts numeric strings. Values
// with a fraction or beyond the range of int are rejected.
type Number int

func (n *Number) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}

	s := strings.TrimSpace(string(t))
	if s == "" {
		*n = 0

		return nil
	}

	if i, err := strconv.ParseInt(s, 10, strconv.IntSize); err == nil {
		*n = Number(i)

		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil && !errors.Is(err, strconv.ErrRange):
		return fmt.Errorf("expected a number, got %q", s)
	case err != nil, f >= maxIntFloat, f < -maxIntFloat:
		return fmt.Errorf("number %q is out of range", s)
	case f != math.Trunc(f):
		return fmt.Errorf("expected a whole number, got %q", s)
	}

	*n = Number(f)

	return nil
}

// Flag is a boolean parameter that also accepts "true"/"false" strings.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}

	s := strings.TrimSpace(string(t))
	if s == "" {
		*f = false

		return nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("expected a boolean, got %q", s)
	}

	*f = Flag(v)

	return nil
}

// ParseJSONParameter returns the JSON value of a parameter. Strings are
// parsed strictly; any other value is already structured and returned as is.
func ParseJSONParameter(item int, name string, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		if value == nil {
			return nil, paramErr(item, name, "is required")
		}

		return value, nil
	}

	if strings.TrimSpace(s) == "" {
		return nil, paramErr(item, name, "is required")
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, paramErr(item, name, "invalid JSON: %w", err)
	}

	if dec.More() {
		return nil, paramErr(item, name, "invalid JSON: unexpected data after value")
	}

	return out, nil
}

// SplitIDs splits a comma-separated ID list. Entries are trimmed and must be
// non-empty and consist of letters, digits, '-' or '_'.
func SplitIDs(item int, name string, value Text) ([]string, error) {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" {
		return nil, paramErr(item, name, "cannot be empty")
	}

	parts := strings.Split(trimmed, ",")
	ids := make([]string, 0, len(parts))

	for _, p := range parts {
		id := strings.TrimSpace(p)
		if !idPattern.MatchString(id) {
			return nil, paramErr(item, name, "invalid ID format %q", id)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// requireText returns a trimmed required parameter.
func requireText(item int, name string, value Text) (string, error) {
	s := strings.TrimSpace(string(value))
	if s == "" {
		return "", paramErr(item, name, "is required")
	}

	return s, nil
}

// pathSegment validates a value used as a single URL path segment.
func pathSegment(item int, name string, value Text) (string, error) {
	s, err := requireText(item, name, value)
	if err != nil {
		return "", err
	}

	if !idPattern.MatchString(s) {
		return "", paramErr(item, name, "invalid ID format %q", s)
	}

	return s, nil
}
