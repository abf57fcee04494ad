// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package rangeheader

import (
	"regexp"
	"strings"
)

// Unit is the only range unit understood by this package.
const Unit = "bytes"

var grammar = regexp.MustCompile(`^bytes=-?\d+-?\d*(, ?-?\d+-?\d*)*$`)

// Pair is one requested sub-range.
type Pair struct {
	From Offset
	To   Offset

	// FromText and ToText keep the bound text as it appeared in the header,
	// so callers can tell an omitted bound from a zero one.
	FromText string
	ToText   string
}

// Valid reports whether header matches the range grammar.
func Valid(header string) bool {
	return grammar.MatchString(header)
}

// Parse splits header into ordered pairs. It does not reject malformed input;
// unparseable bounds become Invalid and an omitted end becomes Unbounded.
// The result always holds at least one pair.
func Parse(header string) []Pair {
	set := header
	if i := strings.IndexByte(set, '='); i >= 0 {
		set = set[i+1:]
	}

	parts := strings.Split(set, ",")
	pairs := make([]Pair, 0, len(parts))
	for _, part := range parts {
		pairs = append(pairs, parsePair(strings.TrimPrefix(part, " ")))
	}
	return pairs
}

// Count returns the number of comma separated sub-ranges in header.
func Count(header string) int {
	return strings.Count(header, ",") + 1
}

// parsePair splits part on every "-" and keeps the first two fields, so
// "-5-10" yields an empty start and an end of 5.
func parsePair(part string) Pair {
	fields := strings.Split(part, "-")
	fromText := fields[0]
	var toText string
	if len(fields) > 1 {
		toText = fields[1]
	}

	p := Pair{
		From:     ParseOffset(fromText),
		FromText: fromText,
		ToText:   toText,
	}
	if toText == "" {
		p.To = Unbounded
	} else {
		p.To = ParseOffset(toText)
		if p.To.IsUnbounded() {
			// "Infinity" is canonical signature text, not header syntax
			p.To = Invalid
		}
	}
	if p.From.IsUnbounded() {
		p.From = Invalid
	}
	return p
}

// Format renders pairs back into a header value.
func Format(pairs []Pair) string {
	var b strings.Builder
	b.WriteString(Unit)
	b.WriteByte('=')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		if p.From.IsValid() {
			b.WriteString(p.From.String())
		}
		b.WriteByte('-')
		if p.To.IsValid() && !p.To.IsUnbounded() {
			b.WriteString(p.To.String())
		}
	}
	return b.String()
}
