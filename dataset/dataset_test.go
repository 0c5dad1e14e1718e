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

package dataset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/dataset"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
	"github.com/oxigraph/oxigraph-go/options"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

func iri(s string) term.IRI { return term.IRI("http://example.org/" + s) }

func seedStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(memkv.New(), options.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	for _, q := range []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuadIn(iri("a"), iri("p"), iri("c"), iri("g1")),
		term.NewQuadIn(iri("a"), iri("p"), iri("c"), iri("g2")),
		term.NewQuadIn(iri("x"), iri("p"), iri("y"), iri("g2")),
	} {
		_, err := s.Insert(q)
		require.NoError(t, err)
	}
	return s
}

func newView(t *testing.T, s *storage.Store, spec *dataset.Spec) *dataset.View {
	t.Helper()
	r, err := s.Snapshot()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	v, err := dataset.NewView(r, spec)
	require.NoError(t, err)
	return v
}

func collect(t *testing.T, v *dataset.View, it *dataset.Iterator) []term.Quad {
	t.Helper()
	defer it.Close()
	var out []term.Quad
	ctx := context.Background()
	for it.Next(ctx) {
		q, err := v.ExternalizeQuad(it.Quad())
		require.NoError(t, err)
		out = append(out, q)
	}
	require.NoError(t, it.Err())
	return out
}

func defaultMarker() *encoding.EncodedTerm {
	return &encoding.EncodedTerm{Kind: encoding.KindDefaultGraph}
}

func TestDefaultDatasetSeesOnlyDefaultGraph(t *testing.T) {
	s := seedStore(t)
	v := newView(t, s, nil)
	got := collect(t, v, v.QuadsForPattern(nil, nil, nil, defaultMarker()))
	require.Len(t, got, 1)
	require.True(t, got[0].InDefaultGraph())
}

func TestFromUnionRewritesGraphToDefault(t *testing.T) {
	s := seedStore(t)
	v := newView(t, s, &dataset.Spec{DefaultGraphs: []term.IRI{iri("g1"), iri("g2")}})
	got := collect(t, v, v.QuadsForPattern(nil, nil, nil, defaultMarker()))
	// g1 and g2 share one triple; the union dedupes it.
	require.Len(t, got, 2)
	for _, q := range got {
		require.True(t, q.InDefaultGraph())
	}
}

func TestFromNamedRestrictsVisibleGraphs(t *testing.T) {
	s := seedStore(t)
	v := newView(t, s, &dataset.Spec{NamedGraphs: []term.IRI{iri("g1")}})

	g2, err := v.InternalizeTerm(iri("g2"))
	require.NoError(t, err)
	got := collect(t, v, v.QuadsForPattern(nil, nil, nil, &g2))
	require.Empty(t, got)

	g1, err := v.InternalizeTerm(iri("g1"))
	require.NoError(t, err)
	got = collect(t, v, v.QuadsForPattern(nil, nil, nil, &g1))
	require.Len(t, got, 1)

	graphs, err := v.NamedGraphs()
	require.NoError(t, err)
	require.Len(t, graphs, 1)
}

func TestUnboundGraphWithNamedSpecIteratesList(t *testing.T) {
	s := seedStore(t)
	v := newView(t, s, &dataset.Spec{NamedGraphs: []term.IRI{iri("g2")}})
	got := collect(t, v, v.QuadsForPattern(nil, nil, nil, nil))
	require.Len(t, got, 2)
	for _, q := range got {
		require.Equal(t, term.Value(iri("g2")), q.Graph)
	}
}

func TestInternalizeKeepsPersistentDictionaryUntouched(t *testing.T) {
	s := seedStore(t)
	v := newView(t, s, nil)

	// A term only the query mentions: interned temporarily, still
	// externalizable, and absent from later persistent lookups.
	long := term.NewString("an ad-hoc filter constant well over sixteen bytes")
	et, err := v.InternalizeTerm(long)
	require.NoError(t, err)
	back, err := v.ExternalizeTerm(et)
	require.NoError(t, err)
	require.Equal(t, term.Value(long), back)

	// A fresh view over the same store cannot resolve it: nothing leaked
	// into the persistent dictionary.
	v2 := newView(t, s, nil)
	_, err = v2.ExternalizeTerm(et)
	require.Error(t, err)
}

func TestInternalizeReusesPersistentEncoding(t *testing.T) {
	s := seedStore(t)
	v := newView(t, s, nil)
	// iri("a") is stored; its internalized encoding must match the stored
	// quads so pattern scans line up.
	ea, err := v.InternalizeTerm(iri("a"))
	require.NoError(t, err)
	got := collect(t, v, v.QuadsForPattern(&ea, nil, nil, defaultMarker()))
	require.Len(t, got, 1)
}
