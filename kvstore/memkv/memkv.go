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

// Package memkv is an in-process, ordered BucketKV backend with no
// persistence: a zero-setup backend for unit tests and ephemeral
// stores. Sorted-slice scans are adequate at the scale those run at.
//
// A writable transaction takes the whole-database write lock for its
// lifetime, so writers never conflict; read transactions share a read
// lock. Writes stage in a per-transaction overlay applied on Commit and
// discarded on Rollback.
package memkv

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/oxigraph/oxigraph-go/kvstore"
)

// ErrTxNotWritable is returned by Put/Del on a read-only transaction.
var ErrTxNotWritable = errors.New("memkv: transaction is read-only")

// DB is an in-memory BucketKV. The zero value is not usable; use New.
type DB struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// New creates an empty in-memory backend.
func New() *DB { return &DB{buckets: make(map[string]map[string][]byte)} }

func (db *DB) Type() string { return "memkv" }
func (db *DB) Close() error { return nil }

func (db *DB) Tx(update bool) (kvstore.BucketTx, error) {
	if update {
		db.mu.Lock()
	} else {
		db.mu.RLock()
	}
	return &tx{
		db:      db,
		update:  update,
		overlay: make(map[string]map[string]*[]byte),
		created: make(map[string]bool),
	}, nil
}

type tx struct {
	db     *DB
	update bool
	done   bool

	// overlay stages writes per bucket; a nil value slice pointer is a
	// tombstone. created tracks buckets made inside this transaction.
	overlay map[string]map[string]*[]byte
	created map[string]bool
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.update {
		for name := range t.created {
			if _, ok := t.db.buckets[name]; !ok {
				t.db.buckets[name] = make(map[string][]byte)
			}
		}
		for name, entries := range t.overlay {
			base, ok := t.db.buckets[name]
			if !ok {
				base = make(map[string][]byte)
				t.db.buckets[name] = base
			}
			for k, v := range entries {
				if v == nil {
					delete(base, k)
				} else {
					base[k] = *v
				}
			}
		}
	}
	t.unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.unlock()
	return nil
}

func (t *tx) unlock() {
	if t.update {
		t.db.mu.Unlock()
	} else {
		t.db.mu.RUnlock()
	}
}

func (t *tx) Bucket(name []byte, op kvstore.Op) (kvstore.Bucket, error) {
	key := string(name)
	_, exists := t.db.buckets[key]
	if !exists {
		exists = t.created[key]
	}
	switch {
	case !exists && op == kvstore.OpGet:
		return nil, kvstore.ErrNoBucket
	case exists && op == kvstore.OpCreate:
		return nil, kvstore.ErrBucketExists
	case !exists:
		if !t.update {
			return nil, ErrTxNotWritable
		}
		t.created[key] = true
	}
	return &bucket{tx: t, name: key}, nil
}

type bucket struct {
	tx   *tx
	name string
}

func (b *bucket) Get(k []byte) ([]byte, error) {
	if entries, ok := b.tx.overlay[b.name]; ok {
		if v, staged := entries[string(k)]; staged {
			if v == nil {
				return nil, kvstore.ErrNotFound
			}
			return append([]byte(nil), *v...), nil
		}
	}
	base := b.tx.db.buckets[b.name]
	v, ok := base[string(k)]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *bucket) stage(k string, v *[]byte) error {
	if !b.tx.update {
		return ErrTxNotWritable
	}
	entries, ok := b.tx.overlay[b.name]
	if !ok {
		entries = make(map[string]*[]byte)
		b.tx.overlay[b.name] = entries
	}
	entries[k] = v
	return nil
}

func (b *bucket) Put(k, v []byte) error {
	cv := append([]byte(nil), v...)
	return b.stage(string(k), &cv)
}

func (b *bucket) Del(k []byte) error {
	return b.stage(string(k), nil)
}

func (b *bucket) Scan(pref []byte) kvstore.Iterator {
	// Merge the committed state with this transaction's overlay.
	merged := make(map[string][]byte)
	for k, v := range b.tx.db.buckets[b.name] {
		if bytes.HasPrefix([]byte(k), pref) {
			merged[k] = v
		}
	}
	for k, v := range b.tx.overlay[b.name] {
		if !bytes.HasPrefix([]byte(k), pref) {
			continue
		}
		if v == nil {
			delete(merged, k)
		} else {
			merged[k] = *v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = merged[k]
	}
	return &iterator{keys: keys, vals: vals, pos: -1}
}

type iterator struct {
	keys []string
	vals [][]byte
	pos  int
}

func (it *iterator) Next(ctx context.Context) bool {
	if it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}
func (it *iterator) Err() error   { return nil }
func (it *iterator) Close() error { return nil }
func (it *iterator) Key() []byte  { return []byte(it.keys[it.pos]) }
func (it *iterator) Val() []byte  { return it.vals[it.pos] }

var _ kvstore.BucketKV = (*DB)(nil)
