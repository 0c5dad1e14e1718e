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

// Package dictionary implements the content-addressed string
// dictionary: a mapping from the 128-bit SipHash-2-4 hash of a UTF-8
// string to the string itself, living in its own column family
// ("id2str"). Insert is idempotent: concurrent inserts of the same
// string converge on the same hash, since hashing is pure and the
// backend's Put for an identical key/value is itself idempotent. The
// indexes embed the hash directly, so no surrogate-id indirection is
// needed.
package dictionary

import (
	"github.com/oxigraph/oxigraph-go/internal/lru"
	"github.com/oxigraph/oxigraph-go/internal/siphash"
	"github.com/oxigraph/oxigraph-go/kvstore"
)

// Hash128 is the dictionary's content-address: SipHash-2-4(string).
type Hash128 = lru.Hash128

// Bucket is the column family name the dictionary lives in.
var Bucket = []byte("id2str")

// Hash computes the content-address of s.
func Hash(s string) Hash128 { return siphash.Sum128([]byte(s)) }

// Dictionary maps string hashes to strings inside a single column
// family of a kvstore.BucketKV, with a small LRU in front of repeated
// lookups.
type Dictionary struct {
	cache *lru.Cache
}

// New creates a dictionary with an in-process cache of the given size
// (0 disables caching).
func New(cacheSize int) *Dictionary {
	return &Dictionary{cache: lru.New(cacheSize)}
}

// Insert writes s into the dictionary if not already present and
// returns its hash. Safe to call redundantly: two inserts of the same
// string return the same hash and the second is a no-op write.
func (d *Dictionary) Insert(tx kvstore.BucketTx, s string) (Hash128, error) {
	h := Hash(s)
	if _, ok := d.cache.Get(h); ok {
		return h, nil
	}
	b, err := tx.Bucket(Bucket, kvstore.OpUpsert)
	if err != nil {
		return h, err
	}
	if _, err := b.Get(h[:]); err == nil {
		d.cache.Put(h, s)
		return h, nil
	}
	if err := b.Put(h[:], []byte(s)); err != nil {
		return h, err
	}
	d.cache.Put(h, s)
	return h, nil
}

// Get returns the string for hash h, if present.
func (d *Dictionary) Get(tx kvstore.BucketTx, h Hash128) (string, bool, error) {
	if v, ok := d.cache.Get(h); ok {
		return v.(string), true, nil
	}
	b, err := tx.Bucket(Bucket, kvstore.OpGet)
	if err == kvstore.ErrNoBucket {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	v, err := b.Get(h[:])
	if err == kvstore.ErrNotFound {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	s := string(v)
	d.cache.Put(h, s)
	return s, true, nil
}

// Contains reports whether h is present in the dictionary.
func (d *Dictionary) Contains(tx kvstore.BucketTx, h Hash128) (bool, error) {
	_, ok, err := d.Get(tx, h)
	return ok, err
}
