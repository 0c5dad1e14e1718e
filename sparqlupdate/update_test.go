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

package sparqlupdate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
	"github.com/oxigraph/oxigraph-go/options"
	alg "github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/sparqlupdate"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

func iri(s string) term.IRI { return term.IRI("http://example.org/" + s) }

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(memkv.New(), options.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func exec(t *testing.T, s *storage.Store, ops ...alg.Update) error {
	t.Helper()
	return sparqlupdate.New(s, sparqlupdate.Options{}).Execute(context.Background(), ops)
}

func TestInsertAndDeleteData(t *testing.T) {
	s := newStore(t)
	q := term.NewQuad(iri("a"), iri("p"), iri("b"))
	require.NoError(t, exec(t, s, alg.InsertData{Quads: []term.Quad{q}}))
	has, err := s.Contains(q)
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, exec(t, s, alg.DeleteData{Quads: []term.Quad{q}}))
	has, err = s.Contains(q)
	require.NoError(t, err)
	require.False(t, has)
}

func TestInsertDataRelabelsBlankNodes(t *testing.T) {
	s := newStore(t)
	q := term.NewQuad(term.BlankNode("b0"), iri("p"), iri("o"))
	require.NoError(t, exec(t, s, alg.InsertData{Quads: []term.Quad{q}}))
	require.NoError(t, exec(t, s, alg.InsertData{Quads: []term.Quad{q}}))
	// Two operations mint two distinct blank nodes.
	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	// Each stored quad is still isomorphic to the template, just under a
	// fresh label.
	got, err := s.QuadsForPattern(nil, nil, nil, nil).All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, term.IsomorphicQuads(got[:1], []term.Quad{q}))
	require.True(t, term.IsomorphicQuads(got[1:], []term.Quad{q}))
}

func TestDeleteInsertWhere(t *testing.T) {
	s := newStore(t)
	require.NoError(t, exec(t, s, alg.InsertData{Quads: []term.Quad{
		term.NewQuad(iri("a"), iri("old"), iri("b")),
		term.NewQuad(iri("c"), iri("old"), iri("d")),
	}}))
	op := alg.DeleteInsert{
		Where: alg.Bgp{Patterns: []alg.TriplePattern{{
			Subject: alg.Var("s"), Predicate: alg.Term(iri("old")), Object: alg.Var("o"),
		}}},
		Delete: []alg.QuadTemplate{{
			Subject: alg.Var("s"), Predicate: alg.Term(iri("old")), Object: alg.Var("o"),
		}},
		Insert: []alg.QuadTemplate{{
			Subject: alg.Var("s"), Predicate: alg.Term(iri("new")), Object: alg.Var("o"),
		}},
	}
	require.NoError(t, exec(t, s, op))

	got, err := s.QuadsForPattern(nil, iri("old"), nil, nil).All(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
	got, err = s.QuadsForPattern(nil, iri("new"), nil, nil).All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestCreateAndDrop(t *testing.T) {
	s := newStore(t)
	g := iri("g")
	require.NoError(t, exec(t, s, alg.Create{Graph: g}))
	err := exec(t, s, alg.Create{Graph: g})
	require.ErrorIs(t, err, storeerr.ErrGraphAlreadyExists)
	require.NoError(t, exec(t, s, alg.Create{Graph: g, Silent: true}))

	require.NoError(t, exec(t, s, alg.Drop{Target: alg.GraphTarget{Kind: alg.TargetGraph, Graph: g}}))
	err = exec(t, s, alg.Drop{Target: alg.GraphTarget{Kind: alg.TargetGraph, Graph: g}})
	require.ErrorIs(t, err, storeerr.ErrGraphDoesNotExist)
	require.NoError(t, exec(t, s, alg.Drop{Target: alg.GraphTarget{Kind: alg.TargetGraph, Graph: g}, Silent: true}))

	// CREATE then DROP of an empty graph leaves the registry unchanged.
	has, err := s.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.False(t, has)
}

func TestClearKeepsRegistration(t *testing.T) {
	s := newStore(t)
	g := iri("g")
	require.NoError(t, exec(t, s,
		alg.InsertData{Quads: []term.Quad{term.NewQuadIn(iri("a"), iri("p"), iri("b"), g)}},
		alg.Clear{Target: alg.GraphTarget{Kind: alg.TargetGraph, Graph: g}},
	))
	n, err := s.Len()
	require.NoError(t, err)
	require.Zero(t, n)
	has, err := s.ContainsNamedGraph(g)
	require.NoError(t, err)
	require.True(t, has)
}

func TestClearAll(t *testing.T) {
	s := newStore(t)
	require.NoError(t, exec(t, s, alg.InsertData{Quads: []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g")),
	}}))
	require.NoError(t, exec(t, s, alg.Clear{Target: alg.GraphTarget{Kind: alg.TargetAll}}))
	n, err := s.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCopyMoveAdd(t *testing.T) {
	ctx := context.Background()
	g1, g2 := iri("g1"), iri("g2")
	seed := func(t *testing.T) *storage.Store {
		s := newStore(t)
		require.NoError(t, exec(t, s, alg.InsertData{Quads: []term.Quad{
			term.NewQuadIn(iri("a"), iri("p"), iri("b"), g1),
			term.NewQuadIn(iri("x"), iri("p"), iri("y"), g2),
		}}))
		return s
	}

	t.Run("Copy", func(t *testing.T) {
		s := seed(t)
		require.NoError(t, exec(t, s, alg.Copy{From: g1, To: g2}))
		got, err := s.QuadsForPattern(nil, nil, nil, g2).All(ctx)
		require.NoError(t, err)
		// Copy clears the target first.
		require.Len(t, got, 1)
		require.Equal(t, term.Value(iri("a")), got[0].Subject)
		// The source is untouched.
		got, err = s.QuadsForPattern(nil, nil, nil, g1).All(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("Move", func(t *testing.T) {
		s := seed(t)
		require.NoError(t, exec(t, s, alg.Move{From: g1, To: g2}))
		got, err := s.QuadsForPattern(nil, nil, nil, g2).All(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		got, err = s.QuadsForPattern(nil, nil, nil, g1).All(ctx)
		require.NoError(t, err)
		require.Empty(t, got)
		has, err := s.ContainsNamedGraph(g1)
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("Add", func(t *testing.T) {
		s := seed(t)
		require.NoError(t, exec(t, s, alg.Add{From: g1, To: g2}))
		got, err := s.QuadsForPattern(nil, nil, nil, g2).All(ctx)
		require.NoError(t, err)
		// Add does not clear: both quads present.
		require.Len(t, got, 2)
	})
}

type sliceLoader struct{ quads []term.Quad }

func (l *sliceLoader) Load(ctx context.Context, source term.IRI) (storage.QuadSource, error) {
	return storage.SliceSource(l.quads), nil
}

func TestLoadIntoGraph(t *testing.T) {
	s := newStore(t)
	loader := &sliceLoader{quads: []term.Quad{term.NewQuad(iri("a"), iri("p"), iri("b"))}}
	x := sparqlupdate.New(s, sparqlupdate.Options{Loader: loader})
	require.NoError(t, x.Execute(context.Background(), []alg.Update{
		alg.Load{Source: iri("doc"), Destination: iri("g")},
	}))
	got, err := s.QuadsForPattern(nil, nil, nil, iri("g")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLoadWithoutLoaderFailsUnlessSilent(t *testing.T) {
	s := newStore(t)
	require.Error(t, exec(t, s, alg.Load{Source: iri("doc")}))
	require.NoError(t, exec(t, s, alg.Load{Source: iri("doc"), Silent: true}))
}
