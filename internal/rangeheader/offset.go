// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package rangeheader

import (
	"fmt"
	"math"
	"strconv"
)

// Offset is a byte position within a resource.
//
// Two sentinel values extend the integer range: Unbounded stands for an open
// upper bound and Invalid for text that did not parse as a number. Invalid
// behaves like NaN: it never compares equal, less or greater than anything.
type Offset int64

const (
	// Unbounded is the upper bound of an open range ("bytes=0-").
	Unbounded Offset = math.MaxInt64

	// Invalid marks a bound that could not be parsed.
	Invalid Offset = math.MinInt64
)

const (
	unboundedText = "Infinity"
	invalidText   = "NaN"
)

// IsUnbounded reports whether o is the open upper bound.
func (o Offset) IsUnbounded() bool { return o == Unbounded }

// IsValid reports whether o holds a parsed number or Unbounded.
func (o Offset) IsValid() bool { return o != Invalid }

// Less reports o < other. Any comparison with Invalid is false.
func (o Offset) Less(other Offset) bool {
	if !o.IsValid() || !other.IsValid() {
		return false
	}
	return o < other
}

// Greater reports o > other. Any comparison with Invalid is false.
func (o Offset) Greater(other Offset) bool {
	return other.Less(o)
}

// Equal reports o == other. Invalid is not equal to itself.
func (o Offset) Equal(other Offset) bool {
	if !o.IsValid() || !other.IsValid() {
		return false
	}
	return o == other
}

// Next returns the offset immediately after o and whether it exists.
// Unbounded and Invalid have no successor.
func (o Offset) Next() (Offset, bool) {
	if !o.IsValid() || o.IsUnbounded() {
		return Invalid, false
	}
	return o + 1, true
}

// String returns the canonical text form used in signatures.
func (o Offset) String() string {
	switch o {
	case Unbounded:
		return unboundedText
	case Invalid:
		return invalidText
	default:
		return strconv.FormatInt(int64(o), 10)
	}
}

// ParseOffset converts canonical text back into an Offset. It accepts the
// forms produced by String and is the inverse of it.
func ParseOffset(s string) Offset {
	switch s {
	case unboundedText:
		return Unbounded
	case invalidText, "":
		return Invalid
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == math.MaxInt64 || n == math.MinInt64 {
		return Invalid
	}
	return Offset(n)
}

// MarshalJSON encodes numbers as JSON numbers and the sentinels as their
// canonical strings.
func (o Offset) MarshalJSON() ([]byte, error) {
	if o == Unbounded || o == Invalid {
		return []byte(`"` + o.String() + `"`), nil
	}
	return []byte(strconv.FormatInt(int64(o), 10)), nil
}

// UnmarshalJSON accepts the output of MarshalJSON.
func (o *Offset) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		*o = ParseOffset(s[1 : len(s)-1])
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %s: %w", s, err)
	}
	*o = Offset(n)
	return nil
}
