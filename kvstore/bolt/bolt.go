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

// Package bolt adapts go.etcd.io/bbolt to kvstore.BucketKV. bbolt
// buckets are native, so no FromFlat prefixing is needed, unlike the
// Badger backend.
//
// bbolt serializes all writers behind a single file lock, so unlike
// Badger this backend never reports storeerr.Conflict: a writable
// transaction simply blocks until the previous one finishes.
package bolt

import (
	"bytes"
	"context"
	"os"

	bolt "go.etcd.io/bbolt"

	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/storeerr"
)

// DB wraps an open bbolt database.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database at path.
func Open(path string) (*DB, error) {
	db, err := bolt.Open(path, os.FileMode(0o600), nil)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Type() string { return "bolt" }
func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Tx(update bool) (kvstore.BucketTx, error) {
	tx, err := d.db.Begin(update)
	if err != nil {
		return nil, storeerr.Storage("begin", err)
	}
	return &boltTx{tx: tx, update: update}, nil
}

type boltTx struct {
	tx     *bolt.Tx
	update bool
}

func (t *boltTx) Commit() error {
	if !t.update {
		return t.tx.Rollback()
	}
	return storeerr.Storage("commit", t.tx.Commit())
}
func (t *boltTx) Rollback() error { return t.tx.Rollback() }

func (t *boltTx) Bucket(name []byte, op kvstore.Op) (kvstore.Bucket, error) {
	var b *bolt.Bucket
	var err error
	switch op {
	case kvstore.OpGet:
		b = t.tx.Bucket(name)
		if b == nil {
			return nil, kvstore.ErrNoBucket
		}
	case kvstore.OpCreate:
		if t.tx.Bucket(name) != nil {
			return nil, kvstore.ErrBucketExists
		}
		b, err = t.tx.CreateBucket(name)
	case kvstore.OpUpsert:
		b, err = t.tx.CreateBucketIfNotExists(name)
	}
	if err != nil {
		return nil, storeerr.Storage("bucket", err)
	}
	return &boltBucket{b: b}, nil
}

type boltBucket struct{ b *bolt.Bucket }

func (b *boltBucket) Get(k []byte) ([]byte, error) {
	v := b.b.Get(k)
	if v == nil {
		return nil, kvstore.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}
func (b *boltBucket) Put(k, v []byte) error { return storeerr.Storage("put", b.b.Put(k, v)) }
func (b *boltBucket) Del(k []byte) error    { return storeerr.Storage("del", b.b.Delete(k)) }

func (b *boltBucket) Scan(pref []byte) kvstore.Iterator {
	c := b.b.Cursor()
	return &boltIterator{c: c, pref: pref, first: true}
}

type boltIterator struct {
	c     *bolt.Cursor
	pref  []byte
	first bool
	k, v  []byte
}

func (it *boltIterator) Next(ctx context.Context) bool {
	var k, v []byte
	if it.first {
		it.first = false
		k, v = it.c.Seek(it.pref)
	} else {
		k, v = it.c.Next()
	}
	if k == nil || !bytes.HasPrefix(k, it.pref) {
		it.k, it.v = nil, nil
		return false
	}
	it.k, it.v = k, v
	return true
}
func (it *boltIterator) Key() []byte  { return it.k }
func (it *boltIterator) Val() []byte  { return it.v }
func (it *boltIterator) Err() error   { return nil }
func (it *boltIterator) Close() error { return nil }
