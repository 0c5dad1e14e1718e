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

// Package storetest is the shared conformance suite every
// kvstore.BucketKV backend and every storage engine configuration is
// run against: backend packages call TestBucketKV / TestStore from
// their own _test files.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/options"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

// TestBucketKV runs the key-value backend contract against a fresh
// backend per subtest.
func TestBucketKV(t *testing.T, open func(t *testing.T) kvstore.BucketKV) {
	t.Run("PutGetDel", func(t *testing.T) { testPutGetDel(t, open(t)) })
	t.Run("ScanOrder", func(t *testing.T) { testScanOrder(t, open(t)) })
	t.Run("PrefixScan", func(t *testing.T) { testPrefixScan(t, open(t)) })
	t.Run("BucketIsolation", func(t *testing.T) { testBucketIsolation(t, open(t)) })
	t.Run("RollbackDiscards", func(t *testing.T) { testRollbackDiscards(t, open(t)) })
	t.Run("Merge", func(t *testing.T) { testMerge(t, open(t)) })
}

var bucketA = []byte("a")

func testPutGetDel(t *testing.T, kv kvstore.BucketKV) {
	defer kv.Close()
	require.NoError(t, kvstore.Update(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpUpsert)
		require.NoError(t, err)
		require.NoError(t, b.Put([]byte("k1"), []byte("v1")))
		v, err := b.Get([]byte("k1"))
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), v)
		_, err = b.Get([]byte("absent"))
		require.ErrorIs(t, err, kvstore.ErrNotFound)
		require.NoError(t, b.Del([]byte("k1")))
		_, err = b.Get([]byte("k1"))
		require.ErrorIs(t, err, kvstore.ErrNotFound)
		return nil
	}))
}

func testScanOrder(t *testing.T, kv kvstore.BucketKV) {
	defer kv.Close()
	keys := []string{"b", "a", "d", "c"}
	require.NoError(t, kvstore.Update(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpUpsert)
		require.NoError(t, err)
		for _, k := range keys {
			require.NoError(t, b.Put([]byte(k), []byte{1}))
		}
		return nil
	}))
	require.NoError(t, kvstore.View(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpGet)
		require.NoError(t, err)
		var got []string
		require.NoError(t, kvstore.Each(context.Background(), b, nil, func(k, v []byte) error {
			got = append(got, string(k))
			return nil
		}))
		require.Equal(t, []string{"a", "b", "c", "d"}, got)
		return nil
	}))
}

func testPrefixScan(t *testing.T, kv kvstore.BucketKV) {
	defer kv.Close()
	require.NoError(t, kvstore.Update(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpUpsert)
		require.NoError(t, err)
		for _, k := range []string{"p/1", "p/2", "q/1"} {
			require.NoError(t, b.Put([]byte(k), []byte{1}))
		}
		return nil
	}))
	require.NoError(t, kvstore.View(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpGet)
		require.NoError(t, err)
		var got []string
		require.NoError(t, kvstore.Each(context.Background(), b, []byte("p/"), func(k, v []byte) error {
			got = append(got, string(k))
			return nil
		}))
		require.Equal(t, []string{"p/1", "p/2"}, got)
		return nil
	}))
}

func testBucketIsolation(t *testing.T, kv kvstore.BucketKV) {
	defer kv.Close()
	require.NoError(t, kvstore.Update(kv, func(tx kvstore.BucketTx) error {
		b1, err := tx.Bucket([]byte("one"), kvstore.OpUpsert)
		require.NoError(t, err)
		b2, err := tx.Bucket([]byte("two"), kvstore.OpUpsert)
		require.NoError(t, err)
		require.NoError(t, b1.Put([]byte("k"), []byte("1")))
		require.NoError(t, b2.Put([]byte("k"), []byte("2")))
		v1, err := b1.Get([]byte("k"))
		require.NoError(t, err)
		v2, err := b2.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), v1)
		require.Equal(t, []byte("2"), v2)
		return nil
	}))
}

func testRollbackDiscards(t *testing.T, kv kvstore.BucketKV) {
	defer kv.Close()
	tx, err := kv.Tx(true)
	require.NoError(t, err)
	b, err := tx.Bucket(bucketA, kvstore.OpUpsert)
	require.NoError(t, err)
	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	require.NoError(t, tx.Rollback())

	require.NoError(t, kvstore.View(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpGet)
		if err == kvstore.ErrNoBucket {
			return nil // the whole bucket creation rolled back too
		}
		require.NoError(t, err)
		_, err = b.Get([]byte("k"))
		require.ErrorIs(t, err, kvstore.ErrNotFound)
		return nil
	}))
}

func testMerge(t *testing.T, kv kvstore.BucketKV) {
	defer kv.Close()
	require.NoError(t, kvstore.Update(kv, func(tx kvstore.BucketTx) error {
		b, err := tx.Bucket(bucketA, kvstore.OpUpsert)
		require.NoError(t, err)
		require.NoError(t, kvstore.Merge(b, []byte("n"), kvstore.Int64Operand(2), kvstore.AddInt64))
		require.NoError(t, kvstore.Merge(b, []byte("n"), kvstore.Int64Operand(3), kvstore.AddInt64))
		v, err := b.Get([]byte("n"))
		require.NoError(t, err)
		require.Equal(t, int64(5), kvstore.DecodeInt64(v))
		return nil
	}))
}

// TestStore runs the storage-engine contract against a store opened
// over a fresh backend.
func TestStore(t *testing.T, open func(t *testing.T) kvstore.BucketKV) {
	newStore := func(t *testing.T) *storage.Store {
		s, err := storage.Open(open(t), options.Options{"bloom_capacity": 1 << 12})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}
	iri := func(s string) term.IRI { return term.IRI("http://example.org/" + s) }

	t.Run("InsertOnce", func(t *testing.T) {
		s := newStore(t)
		q := term.NewQuad(iri("s"), iri("p"), iri("o"))
		ok, err := s.Insert(q)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.Insert(q)
		require.NoError(t, err)
		require.False(t, ok)
		n, err := s.Len()
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
	})
	t.Run("PatternRoundTrip", func(t *testing.T) {
		s := newStore(t)
		q := term.NewQuadIn(iri("s"), iri("p"), term.NewString("hello world, quite a long literal"), iri("g"))
		_, err := s.Insert(q)
		require.NoError(t, err)
		got, err := s.QuadsForPattern(nil, nil, nil, iri("g")).All(context.Background())
		require.NoError(t, err)
		require.Equal(t, []term.Quad{q}, got)
	})
	t.Run("RemoveRestores", func(t *testing.T) {
		s := newStore(t)
		q := term.NewQuad(iri("s"), iri("p"), iri("o"))
		_, err := s.Insert(q)
		require.NoError(t, err)
		ok, err := s.Remove(q)
		require.NoError(t, err)
		require.True(t, ok)
		empty, err := s.IsEmpty()
		require.NoError(t, err)
		require.True(t, empty)
	})
	t.Run("LenMatchesIndexCounts", func(t *testing.T) {
		// The merge-maintained counters must agree with the literal
		// DSPO+GSPO key counts they cache.
		s := newStore(t)
		for _, q := range []term.Quad{
			term.NewQuad(iri("a"), iri("p"), iri("b")),
			term.NewQuad(iri("b"), iri("p"), iri("c")),
			term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g")),
		} {
			_, err := s.Insert(q)
			require.NoError(t, err)
		}
		_, err := s.Remove(term.NewQuad(iri("b"), iri("p"), iri("c")))
		require.NoError(t, err)

		n, err := s.Len()
		require.NoError(t, err)

		var scanned int64
		tx, err := s.KV().Tx(false)
		require.NoError(t, err)
		defer tx.Rollback()
		for _, name := range []string{"dspo", "gspo"} {
			b, err := tx.Bucket([]byte(name), kvstore.OpGet)
			require.NoError(t, err)
			require.NoError(t, kvstore.Each(context.Background(), b, nil, func(k, v []byte) error {
				scanned++
				return nil
			}))
		}
		require.Equal(t, scanned, n)
	})
	t.Run("CreateDropGraph", func(t *testing.T) {
		s := newStore(t)
		g := iri("g")
		ok, err := s.InsertNamedGraph(g)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.RemoveNamedGraph(g)
		require.NoError(t, err)
		require.True(t, ok)
		has, err := s.ContainsNamedGraph(g)
		require.NoError(t, err)
		require.False(t, has)
	})
}
