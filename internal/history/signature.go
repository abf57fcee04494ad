// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/rangeguard/internal/rangeheader"
)

// ByteSignature encodes the ranges of records as "from,to;" per record in
// arrival order. Two clients with equal signatures requested the same
// ranges in the same order.
func ByteSignature(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.From.String())
		b.WriteByte(',')
		b.WriteString(r.To.String())
		b.WriteByte(';')
	}
	return b.String()
}

// ParseByteSignature decodes the output of ByteSignature.
func ParseByteSignature(sig string) ([]rangeheader.Pair, error) {
	if sig == "" {
		return nil, nil
	}
	if !strings.HasSuffix(sig, ";") {
		return nil, fmt.Errorf("signature %q is not terminated by ';'", sig)
	}

	entries := strings.Split(strings.TrimSuffix(sig, ";"), ";")
	pairs := make([]rangeheader.Pair, 0, len(entries))
	for i, entry := range entries {
		fromText, toText, ok := strings.Cut(entry, ",")
		if !ok {
			return nil, fmt.Errorf("signature entry %d %q has no ','", i, entry)
		}
		pairs = append(pairs, rangeheader.Pair{
			From:     rangeheader.ParseOffset(fromText),
			To:       rangeheader.ParseOffset(toText),
			FromText: fromText,
			ToText:   toText,
		})
	}
	return pairs, nil
}

// TimingSignature encodes the gaps between consecutive record timestamps,
// joined by ",". Histories with fewer than two records have an empty
// signature.
func TimingSignature(records []Record) string {
	if len(records) < 2 {
		return ""
	}
	var b strings.Builder
	for i := 1; i < len(records); i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(records[i].Timestamp-records[i-1].Timestamp, 10))
	}
	return b.String()
}
