// RangeGuard - Byte-Range Request Classification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rangeguard

package history

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key layout:
//
//	meta:seq                       last bucket sequence number
//	client:<id>                    bucketMeta
//	order:<seq>                    client id, seq is 8 byte big endian
//	rec:<id>\x00<index>            Record, index is 8 byte big endian
const (
	seqKey          = "meta:seq"
	clientKeyPrefix = "client:"
	orderKeyPrefix  = "order:"
	recordKeyPrefix = "rec:"
)

type bucketMeta struct {
	Seq   uint64 `json:"seq"`
	Count uint64 `json:"count"`
}

// BadgerStore persists histories in BadgerDB so they survive restarts and
// can be shared by every process that opens the same directory in turn.
type BadgerStore struct {
	db     *badger.DB
	owned  bool
	closed atomic.Bool
}

// NewBadgerStore wraps an already open database. The caller keeps ownership
// of db and must close it.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens (or creates) a database at dir. An empty dir opens
// an in-memory database.
func OpenBadgerStore(dir string, syncWrites bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithSyncWrites(syncWrites)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// DB exposes the underlying database.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

// Close releases the database if the store opened it.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// RunGC runs one value log garbage collection cycle.
func (s *BadgerStore) RunGC(discardRatio float64) error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}

// Ensure creates the client's bucket if needed.
func (s *BadgerStore) Ensure(ctx context.Context, clientID string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := ensureBucket(txn, clientID)
		return err
	})
}

// Append adds rec to the client's history.
func (s *BadgerStore) Append(ctx context.Context, clientID string, rec Record) error {
	if s.closed.Load() {
		return ErrClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		meta, err := ensureBucket(txn, clientID)
		if err != nil {
			return err
		}
		if err := txn.Set(recordKey(clientID, meta.Count), data); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		meta.Count++
		return putMeta(txn, clientID, meta)
	})
}

// Last returns the client's most recent record.
func (s *BadgerStore) Last(ctx context.Context, clientID string) (Record, bool, error) {
	if s.closed.Load() {
		return Record{}, false, ErrClosed
	}

	var (
		rec   Record
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		meta, ok, err := getMeta(txn, clientID)
		if err != nil || !ok || meta.Count == 0 {
			return err
		}
		rec, err = getRecord(txn, clientID, meta.Count-1)
		found = err == nil
		return err
	})
	return rec, found, err
}

// History returns the client's records in arrival order.
func (s *BadgerStore) History(ctx context.Context, clientID string) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		records, err = scanRecords(txn, clientID)
		return err
	})
	return records, err
}

// Clients returns every bucket in creation order.
func (s *BadgerStore) Clients(ctx context.Context) ([]Bucket, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var buckets []Bucket
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(orderKeyPrefix)
		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}

		buckets = make([]Bucket, 0, len(ids))
		for _, id := range ids {
			records, err := scanRecords(txn, id)
			if err != nil {
				return err
			}
			buckets = append(buckets, Bucket{ClientID: id, Records: records})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return buckets, nil
}

// LatestBucketHead returns the first record of the newest bucket.
func (s *BadgerStore) LatestBucketHead(ctx context.Context) (Record, bool, error) {
	if s.closed.Load() {
		return Record{}, false, ErrClosed
	}

	var (
		rec   Record
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(orderKeyPrefix)
		it.Seek(append([]byte(orderKeyPrefix), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return nil
		}

		var id string
		if err := it.Item().Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		meta, ok, err := getMeta(txn, id)
		if err != nil || !ok || meta.Count == 0 {
			return err
		}
		rec, err = getRecord(txn, id, 0)
		found = err == nil
		return err
	})
	return rec, found, err
}

func ensureBucket(txn *badger.Txn, clientID string) (bucketMeta, error) {
	meta, ok, err := getMeta(txn, clientID)
	if err != nil || ok {
		return meta, err
	}

	seq, err := nextSeq(txn)
	if err != nil {
		return bucketMeta{}, err
	}
	meta = bucketMeta{Seq: seq}
	if err := txn.Set(orderKey(seq), []byte(clientID)); err != nil {
		return bucketMeta{}, fmt.Errorf("set order: %w", err)
	}
	return meta, putMeta(txn, clientID, meta)
}

func nextSeq(txn *badger.Txn) (uint64, error) {
	var seq uint64
	item, err := txn.Get([]byte(seqKey))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, fmt.Errorf("get sequence: %w", err)
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) == 8 {
				seq = binary.BigEndian.Uint64(val)
			}
			return nil
		}); err != nil {
			return 0, err
		}
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := txn.Set([]byte(seqKey), buf); err != nil {
		return 0, fmt.Errorf("set sequence: %w", err)
	}
	return seq, nil
}

func getMeta(txn *badger.Txn, clientID string) (bucketMeta, bool, error) {
	var meta bucketMeta
	item, err := txn.Get([]byte(clientKeyPrefix + clientID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta, false, nil
	}
	if err != nil {
		return meta, false, fmt.Errorf("get client: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return meta, err == nil, err
}

func putMeta(txn *badger.Txn, clientID string, meta bucketMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal client: %w", err)
	}
	if err := txn.Set([]byte(clientKeyPrefix+clientID), data); err != nil {
		return fmt.Errorf("set client: %w", err)
	}
	return nil
}

func getRecord(txn *badger.Txn, clientID string, index uint64) (Record, error) {
	var rec Record
	item, err := txn.Get(recordKey(clientID, index))
	if err != nil {
		return rec, fmt.Errorf("get record: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

func scanRecords(txn *badger.Txn, clientID string) ([]Record, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := recordPrefix(clientID)
	records := []Record{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec Record
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func orderKey(seq uint64) []byte {
	key := make([]byte, len(orderKeyPrefix)+8)
	copy(key, orderKeyPrefix)
	binary.BigEndian.PutUint64(key[len(orderKeyPrefix):], seq)
	return key
}

func recordPrefix(clientID string) []byte {
	key := make([]byte, 0, len(recordKeyPrefix)+len(clientID)+1)
	key = append(key, recordKeyPrefix...)
	key = append(key, clientID...)
	return append(key, 0)
}

func recordKey(clientID string, index uint64) []byte {
	key := recordPrefix(clientID)
	return binary.BigEndian.AppendUint64(key, index)
}
