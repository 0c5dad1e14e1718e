// Copyright 2024 The Project Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kvstore defines the ordered key-value backend abstraction:
// named column families ("buckets"), point get/put/delete, ordered
// prefix iteration, atomic multi-bucket write batches via transactions,
// and optimistic-conflict detection.
//
// The FromFlat adapter lets a backend exposing only a single flat
// keyspace, like bbolt's default bucket or a raw Badger instance,
// pretend to be bucketed by namespacing keys with a bucket-name
// prefix.
package kvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Bucket.Get for an absent key.
	ErrNotFound = errors.New("kvstore: not found")
	// ErrNoBucket is returned by BucketTx.Bucket(name, OpGet) when name
	// has never been created.
	ErrNoBucket = errors.New("kvstore: bucket is missing")
	// ErrBucketExists is returned by BucketTx.Bucket(name, OpCreate) when
	// name already exists.
	ErrBucketExists = errors.New("kvstore: bucket already exists")
)

// Tx is the common transaction lifecycle: commit or roll back.
type Tx interface {
	Commit() error
	Rollback() error
}

// Bucket is one ordered, byte-keyed column family.
type Bucket interface {
	Get(k []byte) ([]byte, error)
	Put(k, v []byte) error
	Del(k []byte) error
	// Scan returns an iterator over all keys with prefix pref, in
	// ascending byte order.
	Scan(pref []byte) Iterator
}

// Iterator is a restartable, lazy ordered scan over a key prefix. It
// carries a read snapshot for its lifetime.
type Iterator interface {
	Next(ctx context.Context) bool
	Err() error
	Close() error
	Key() []byte
	Val() []byte
}

// Op selects the bucket-open semantics: fetch an existing bucket only,
// create a new one (error if it exists), or get-or-create.
type Op int

const (
	OpGet Op = iota
	OpCreate
	OpUpsert
)

// BucketTx is a transaction that can open named buckets and read/write
// through them; all writes across all buckets opened from one BucketTx
// commit atomically.
type BucketTx interface {
	Tx
	Bucket(name []byte, op Op) (Bucket, error)
}

// BucketKV is a backend that natively understands named column
// families (e.g. bbolt's buckets, memkv's per-bucket maps). A FlatKV such
// as the badger backend is adapted to this interface by FromFlat.
type BucketKV interface {
	Type() string
	Close() error
	// Tx starts a transaction; update selects a writable (true) or
	// read-only (false) transaction. Read-only transactions give
	// repeatable reads up to their start point (a snapshot).
	Tx(update bool) (BucketTx, error)
}

// FlatTx is a transaction over a single flat keyspace (no buckets).
type FlatTx interface {
	Tx
	Bucket
}

// FlatKV is a backend exposing only one flat keyspace; FromFlat adapts
// it to BucketKV by namespacing keys with a bucket-name prefix.
type FlatKV interface {
	Type() string
	Close() error
	Tx(update bool) (FlatTx, error)
}

// Update runs fn in a writable transaction, committing on success and
// rolling back on error or panic.
func Update(kv BucketKV, fn func(tx BucketTx) error) error {
	tx, err := kv.Tx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// View runs fn in a read-only transaction (a snapshot).
func View(kv BucketKV, fn func(tx BucketTx) error) error {
	tx, err := kv.Tx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Rollback()
}

// Each scans every key with prefix pref in bucket b, calling fn for
// each, stopping early if fn returns an error.
func Each(ctx context.Context, b Bucket, pref []byte, fn func(k, v []byte) error) error {
	it := b.Scan(pref)
	defer it.Close()
	for it.Next(ctx) {
		if err := fn(it.Key(), it.Val()); err != nil {
			return err
		}
	}
	return it.Err()
}

const bucketSep = '/'

// FromFlat adapts a FlatKV backend to BucketKV by prefixing every key
// with its bucket name.
func FromFlat(flat FlatKV) BucketKV { return &flatKV{flat: flat} }

type flatKV struct{ flat FlatKV }

func (kv *flatKV) Type() string { return kv.flat.Type() }
func (kv *flatKV) Close() error { return kv.flat.Close() }
func (kv *flatKV) Tx(update bool) (BucketTx, error) {
	tx, err := kv.flat.Tx(update)
	if err != nil {
		return nil, err
	}
	return &flatTx{tx: tx, ro: !update}, nil
}

type flatTx struct {
	tx FlatTx
	ro bool
}

func (v *flatTx) Commit() error   { return v.tx.Commit() }
func (v *flatTx) Rollback() error { return v.tx.Rollback() }

func bucketPref(name []byte) []byte {
	pref := make([]byte, len(name)+1)
	n := copy(pref, name)
	pref[n] = bucketSep
	return pref
}

func (v *flatTx) Bucket(name []byte, op Op) (Bucket, error) {
	if v.ro && op != OpGet {
		return nil, fmt.Errorf("kvstore: create bucket on read-only tx")
	}
	pref := bucketPref(name)
	_, err := v.tx.Get(pref)
	if errors.Is(err, ErrNotFound) {
		if op == OpGet {
			return nil, ErrNoBucket
		}
		if err := v.tx.Put(pref, []byte{0}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else if op == OpCreate {
		return nil, ErrBucketExists
	}
	return &flatBucket{tx: v.tx, ro: v.ro, pref: pref}, nil
}

type flatBucket struct {
	tx   FlatTx
	ro   bool
	pref []byte
}

func (b *flatBucket) key(k []byte) []byte {
	key := make([]byte, len(b.pref)+len(k))
	n := copy(key, b.pref)
	copy(key[n:], k)
	return key
}

func (b *flatBucket) Get(k []byte) ([]byte, error) { return b.tx.Get(b.key(k)) }

func (b *flatBucket) Put(k, v []byte) error {
	if b.ro {
		return fmt.Errorf("kvstore: put on read-only tx")
	}
	return b.tx.Put(b.key(k), v)
}

func (b *flatBucket) Del(k []byte) error {
	if b.ro {
		return fmt.Errorf("kvstore: del on read-only tx")
	}
	return b.tx.Del(b.key(k))
}

type prefIter struct {
	Iterator
	trim []byte
}

func (it *prefIter) Key() []byte { return bytes.TrimPrefix(it.Iterator.Key(), it.trim) }

func (b *flatBucket) Scan(pref []byte) Iterator {
	return &prefIter{Iterator: b.tx.Scan(b.key(pref)), trim: b.pref}
}

// ColumnFamilies lists the nine index buckets plus the ancillary ones
// of the on-disk layout.
var ColumnFamilies = []string{
	"id2str", "spog", "posg", "ospg", "gspo", "gpos", "gosp",
	"dspo", "dpos", "dosp", "graphs", "default",
}
