// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

/*
Package rangeheader parses HTTP Range header values into ordered byte offset pairs.

The accepted grammar is:

	bytes=<start>-<end>?(,<start>-<end>?)*

with an optional single space after each comma. Parse never fails: malformed
input yields pairs whose bounds are Invalid, and Valid reports whether the raw
header matched the grammar. Callers decide what a malformed header means.

An omitted end bound is Unbounded (an open range such as "bytes=100-").
*/
package rangeheader
