package generation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CoerceInt parses s as a base-10 integer, tolerating surrounding
// whitespace.
func CoerceInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("coercing %q to int: %w", s, err)
	}
	return v, nil
}

// CoerceInt64 parses s as a base-10 64-bit integer, tolerating
// surrounding whitespace. Seeds in particular exceed 32 bits.
func CoerceInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("coercing %q to int64: %w", s, err)
	}
	return v, nil
}

// CoerceFloat parses s as a float64, tolerating surrounding whitespace.
func CoerceFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("coercing %q to float: %w", s, err)
	}
	return v, nil
}

// CoerceBool parses s as a boolean, accepting the strconv spellings.
func CoerceBool(s string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("coercing %q to bool: %w", s, err)
	}
	return v, nil
}

// CoerceTime parses s in the given layout and location.
func CoerceTime(s, layout string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("coercing %q to time: %w", s, err)
	}
	return t, nil
}
