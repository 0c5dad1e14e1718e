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

// Package badger adapts dgraph-io/badger/v4 to the kvstore.FlatKV
// interface. Badger's own optimistic transactions supply the
// conflict-detection guarantee: a Commit that loses a write-write race
// returns badger.ErrConflict, translated here to storeerr.Conflict.
package badger

import (
	"context"
	"errors"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/storeerr"
)

// ErrTxNotWritable is returned by Put/Del on a read-only transaction.
var ErrTxNotWritable = errors.New("badger: transaction is read-only")

// DB wraps an open Badger database.
type DB struct {
	db       *badgerdb.DB
	isClosed bool
}

// Open opens (creating if absent) a Badger database rooted at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, err
	}
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// New wraps an already-opened Badger database (e.g. an in-memory one
// opened with badgerdb.DefaultOptions("").WithInMemory(true)).
func New(db *badgerdb.DB) *DB { return &DB{db: db} }

func (d *DB) Type() string { return "badger" }

func (d *DB) Close() error {
	if d.db == nil || d.isClosed {
		return nil
	}
	d.isClosed = true
	return d.db.Close()
}

func (d *DB) Tx(update bool) (kvstore.FlatTx, error) {
	return &tx{db: d, txn: d.db.NewTransaction(update), update: update}, nil
}

// BucketKV exposes this backend through the bucketed interface directly
// (bucket names become key prefixes via kvstore.FromFlat).
func (d *DB) BucketKV() kvstore.BucketKV { return kvstore.FromFlat(d) }

type tx struct {
	db     *DB
	txn    *badgerdb.Txn
	update bool
}

func (t *tx) Commit() error {
	if !t.update {
		t.txn.Discard()
		return nil
	}
	err := t.txn.Commit()
	if errors.Is(err, badgerdb.ErrConflict) {
		return storeerr.Conflict
	}
	return storeerr.Storage("commit", err)
}

func (t *tx) Rollback() error {
	t.txn.Discard()
	return nil
}

func (t *tx) Get(k []byte) ([]byte, error) {
	item, err := t.txn.Get(k)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, kvstore.ErrNotFound
	} else if err != nil {
		return nil, storeerr.Storage("get", err)
	}
	return item.ValueCopy(nil)
}

func (t *tx) Put(k, v []byte) error {
	if !t.update {
		return ErrTxNotWritable
	}
	return storeerr.Storage("put", t.txn.Set(k, v))
}

func (t *tx) Del(k []byte) error {
	if !t.update {
		return ErrTxNotWritable
	}
	return storeerr.Storage("del", t.txn.Delete(k))
}

func (t *tx) Scan(pref []byte) kvstore.Iterator {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	return &iterator{iter: it, first: true, pref: pref}
}

type iterator struct {
	iter  *badgerdb.Iterator
	first bool
	pref  []byte
	err   error
}

func (it *iterator) Next(ctx context.Context) bool {
	if it.first {
		it.first = false
		if it.pref != nil {
			it.iter.Seek(it.pref)
		} else {
			it.iter.Rewind()
		}
	} else {
		it.iter.Next()
	}
	if it.pref != nil {
		return it.iter.ValidForPrefix(it.pref)
	}
	return it.iter.Valid()
}

func (it *iterator) Key() []byte { return it.iter.Item().KeyCopy(nil) }
func (it *iterator) Val() []byte {
	val, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		it.err = err
	}
	return val
}
func (it *iterator) Err() error { return it.err }
func (it *iterator) Close() error {
	it.iter.Close()
	return it.err
}
