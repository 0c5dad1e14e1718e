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

package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
	"github.com/oxigraph/oxigraph-go/options"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(memkv.New(), options.Options{"bloom_capacity": 1 << 12})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func iri(s string) term.IRI { return term.IRI("http://example.org/" + s) }

func TestInsertContainsRemove(t *testing.T) {
	s := newStore(t)
	q := term.NewQuad(iri("a"), iri("p"), iri("b"))

	ok, err := s.Insert(q)
	require.NoError(t, err)
	require.True(t, ok)

	// Insert twice counts once.
	ok, err = s.Insert(q)
	require.NoError(t, err)
	require.False(t, ok)

	has, err := s.Contains(q)
	require.NoError(t, err)
	require.True(t, has)

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	ok, err = s.Remove(q)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Remove(q)
	require.NoError(t, err)
	require.False(t, ok)

	has, err = s.Contains(q)
	require.NoError(t, err)
	require.False(t, has)

	empty, err := s.IsEmpty()
	require.NoError(t, err)
	require.True(t, empty)
}

func TestPatternScansAllShapes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	quads := []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("a"), iri("q"), iri("c")),
		term.NewQuad(iri("b"), iri("p"), iri("c")),
		term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g1")),
		term.NewQuadIn(iri("x"), iri("p"), iri("y"), iri("g2")),
	}
	for _, q := range quads {
		_, err := s.Insert(q)
		require.NoError(t, err)
	}

	cases := []struct {
		name      string
		s, p, o   term.Value
		g         term.GraphName
		wantQuads int
	}{
		{name: "all unbound", wantQuads: 5},
		{name: "s", s: iri("a"), wantQuads: 3},
		{name: "sp", s: iri("a"), p: iri("p"), wantQuads: 2},
		{name: "spo", s: iri("a"), p: iri("p"), o: iri("b"), wantQuads: 2},
		{name: "p", p: iri("p"), wantQuads: 4},
		{name: "po", p: iri("p"), o: iri("b"), wantQuads: 2},
		{name: "o", o: iri("c"), wantQuads: 2},
		{name: "so", s: iri("a"), o: iri("b"), wantQuads: 2},
		{name: "g default", g: term.DefaultGraph, wantQuads: 3},
		{name: "g named", g: iri("g1"), wantQuads: 1},
		{name: "spog", s: iri("a"), p: iri("p"), o: iri("b"), g: iri("g1"), wantQuads: 1},
		{name: "sg", s: iri("x"), g: iri("g2"), wantQuads: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.QuadsForPattern(tc.s, tc.p, tc.o, tc.g).All(ctx)
			require.NoError(t, err)
			require.Len(t, got, tc.wantQuads)
			// Every yielded quad matches the pattern, exactly once.
			seen := map[string]bool{}
			for _, q := range got {
				require.False(t, seen[q.String()], "duplicate %s", q)
				seen[q.String()] = true
				if tc.s != nil {
					require.Equal(t, tc.s, q.Subject)
				}
				if tc.p != nil {
					require.Equal(t, tc.p, term.Value(q.Predicate))
				}
				if tc.o != nil {
					require.Equal(t, tc.o, q.Object)
				}
				if tc.g != nil {
					require.Equal(t, tc.g, q.Graph)
				}
			}
		})
	}
}

func TestDefaultAndNamedKeyspacesAreDisjoint(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Insert(term.NewQuad(iri("a"), iri("p"), iri("b")))
	require.NoError(t, err)

	// The default-graph quad must not surface under any named-graph scan.
	got, err := s.QuadsForPattern(nil, nil, nil, iri("a")).All(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = s.QuadsForPattern(nil, nil, nil, term.DefaultGraph).All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestNamedGraphRegistry(t *testing.T) {
	s := newStore(t)
	g := iri("g1")

	has, err := s.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.False(t, has)

	// Created empty, before any quad references it.
	ok, err := s.InsertNamedGraph(g)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.InsertNamedGraph(g)
	require.NoError(t, err)
	require.False(t, ok)

	has, err = s.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.True(t, has)

	graphs, err := s.NamedGraphs()
	require.NoError(t, err)
	require.Equal(t, []term.GraphName{g}, graphs)

	// Inserting a quad auto-registers its graph.
	_, err = s.Insert(term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g2")))
	require.NoError(t, err)
	graphs, err = s.NamedGraphs()
	require.NoError(t, err)
	require.Len(t, graphs, 2)

	// Removing the quad keeps the registration.
	_, err = s.Remove(term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g2")))
	require.NoError(t, err)
	has, err = s.ContainsNamedGraph(iri("g2"))
	require.NoError(t, err)
	require.True(t, has)
}

func TestClearAndRemoveNamedGraph(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	g := iri("g1")
	_, err := s.Insert(term.NewQuadIn(iri("a"), iri("p"), iri("b"), g))
	require.NoError(t, err)
	_, err = s.Insert(term.NewQuadIn(iri("b"), iri("p"), iri("c"), g))
	require.NoError(t, err)
	_, err = s.Insert(term.NewQuad(iri("a"), iri("p"), iri("b")))
	require.NoError(t, err)

	require.NoError(t, s.ClearGraph(g))
	got, err := s.QuadsForPattern(nil, nil, nil, g).All(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	// CLEAR keeps the registration; DROP-equivalent removes it.
	has, err := s.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.True(t, has)

	ok, err := s.RemoveNamedGraph(g)
	require.NoError(t, err)
	require.True(t, ok)
	has, err = s.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.False(t, has)

	// Default graph untouched throughout.
	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestClearDefaultGraph(t *testing.T) {
	s := newStore(t)
	_, err := s.Insert(term.NewQuad(iri("a"), iri("p"), iri("b")))
	require.NoError(t, err)
	_, err = s.Insert(term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g")))
	require.NoError(t, err)

	require.NoError(t, s.ClearGraph(term.DefaultGraph))
	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := newStore(t)
	q := term.NewQuad(iri("a"), iri("p"), iri("b"))
	boom := func(*storage.Txn) error { return context.Canceled }

	err := s.Transaction(func(tx *storage.Txn) error {
		ok, err := tx.Insert(q)
		require.NoError(t, err)
		require.True(t, ok)
		return boom(tx)
	})
	require.Error(t, err)

	has, err := s.Contains(q)
	require.NoError(t, err)
	require.False(t, has)
	n, err := s.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	s := newStore(t)
	q := term.NewQuad(iri("a"), iri("p"), iri("b"))
	err := s.Transaction(func(tx *storage.Txn) error {
		if _, err := tx.Insert(q); err != nil {
			return err
		}
		has, err := tx.Contains(q)
		require.NoError(t, err)
		require.True(t, has)
		// Double insert inside one transaction still counts once.
		ok, err := tx.Insert(q)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestBulkLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	// Zero quads: accept and return 0.
	n, err := s.BulkLoad(ctx, storage.SliceSource(nil))
	require.NoError(t, err)
	require.Zero(t, n)

	quads := []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("a"), iri("p"), iri("b")), // duplicate in input
		term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g1")),
		term.NewQuadIn(iri("b"), iri("p"), iri("c"), iri("g1")),
	}
	n, err = s.BulkLoad(ctx, storage.SliceSource(quads))
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	total, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	// Graph registry picked up the new graph.
	has, err := s.ContainsNamedGraph(iri("g1"))
	require.NoError(t, err)
	require.True(t, has)

	// Loading the same data again inserts nothing.
	n, err = s.BulkLoad(ctx, storage.SliceSource(quads))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInsertRemoveRoundTripsState(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := term.NewQuad(iri("a"), iri("p"), iri("b"))
	_, err := s.Insert(base)
	require.NoError(t, err)

	extra := term.NewQuadIn(iri("x"), iri("p"), term.NewString("a long literal value beyond inline size"), iri("g"))
	_, err = s.Insert(extra)
	require.NoError(t, err)
	_, err = s.Remove(extra)
	require.NoError(t, err)

	got, err := s.QuadsForPattern(nil, nil, nil, nil).All(ctx)
	require.NoError(t, err)
	require.Equal(t, []term.Quad{base}, got)
}
