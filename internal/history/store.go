// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

// Package history stores the ordered, append-only range request history of
// every client seen by the classifier.
package history

import (
	"context"
	"errors"

	"github.com/tomtom215/rangeguard/internal/rangeheader"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("history store is closed")

// Record is one requested sub-range. Records are immutable once appended.
type Record struct {
	Timestamp int64              `json:"timestamp"`
	From      rangeheader.Offset `json:"from"`
	To        rangeheader.Offset `json:"to"`
}

// Bucket is the history of a single client.
type Bucket struct {
	ClientID string   `json:"client_id"`
	Records  []Record `json:"records"`
}

// Store maps client identifiers to their request history.
//
// Buckets are created lazily and never pruned; histories only grow. Clients
// and LatestBucketHead observe buckets in the order they were created.
// Implementations must be safe for concurrent use, but callers that need a
// consistent view across several calls must serialize them.
type Store interface {
	// Ensure creates an empty bucket for clientID if none exists.
	Ensure(ctx context.Context, clientID string) error

	// Append adds rec to the end of the client's history, creating the
	// bucket if needed.
	Append(ctx context.Context, clientID string, rec Record) error

	// Last returns the most recent record of the client.
	Last(ctx context.Context, clientID string) (Record, bool, error)

	// History returns a copy of the client's records in arrival order.
	History(ctx context.Context, clientID string) ([]Record, error)

	// Clients returns every bucket in creation order.
	Clients(ctx context.Context) ([]Bucket, error)

	// LatestBucketHead returns the first record of the most recently
	// created bucket. ok is false if there are no buckets or that bucket
	// is still empty.
	LatestBucketHead(ctx context.Context) (rec Record, ok bool, err error)
}

// Clone returns an independent copy of records.
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
