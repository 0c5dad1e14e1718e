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

package sparql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
	"github.com/oxigraph/oxigraph-go/options"
	"github.com/oxigraph/oxigraph-go/sparql"
	alg "github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/sparqlerr"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

func iri(s string) term.IRI { return term.IRI("http://example.org/" + s) }

func newStore(t *testing.T, quads ...term.Quad) *storage.Store {
	t.Helper()
	s, err := storage.Open(memkv.New(), options.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	for _, q := range quads {
		_, err := s.Insert(q)
		require.NoError(t, err)
	}
	return s
}

func selectQuery(p alg.Pattern, vars ...alg.Variable) *alg.Query {
	return &alg.Query{Form: alg.FormSelect, Pattern: alg.Project{Inner: p, Vars: vars}}
}

func TestSelectEndToEnd(t *testing.T) {
	s := newStore(t, term.NewQuad(iri("a"), iri("p"), iri("b")))
	q := selectQuery(alg.Bgp{Patterns: []alg.TriplePattern{{
		Subject: alg.Term(iri("a")), Predicate: alg.Term(iri("p")), Object: alg.Var("o"),
	}}}, "o")

	res, err := sparql.NewEvaluator().PrepareQuery(q).OnStore(s).Execute(context.Background())
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, sparql.ResultsSolutions, res.Kind)
	require.Equal(t, []alg.Variable{"o"}, res.Variables())

	it := res.Solutions()
	require.True(t, it.Next(context.Background()))
	require.Equal(t, term.Value(iri("b")), it.Binding()["o"])
	require.False(t, it.Next(context.Background()))
	require.NoError(t, it.Err())
}

func TestAsk(t *testing.T) {
	s := newStore(t, term.NewQuad(iri("a"), iri("p"), iri("b")))
	pattern := alg.Bgp{Patterns: []alg.TriplePattern{{
		Subject: alg.Term(iri("a")), Predicate: alg.Term(iri("p")), Object: alg.Var("o"),
	}}}
	res, err := sparql.NewEvaluator().
		PrepareQuery(&alg.Query{Form: alg.FormAsk, Pattern: pattern}).
		OnStore(s).Execute(context.Background())
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, sparql.ResultsBoolean, res.Kind)
	require.True(t, res.Boolean())

	missing := alg.Bgp{Patterns: []alg.TriplePattern{{
		Subject: alg.Term(iri("zzz")), Predicate: alg.Term(iri("p")), Object: alg.Var("o"),
	}}}
	res2, err := sparql.NewEvaluator().
		PrepareQuery(&alg.Query{Form: alg.FormAsk, Pattern: missing}).
		OnStore(s).Execute(context.Background())
	require.NoError(t, err)
	defer res2.Close()
	require.False(t, res2.Boolean())
}

func TestConstruct(t *testing.T) {
	s := newStore(t,
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("c"), iri("p"), iri("d")),
	)
	q := &alg.Query{
		Form: alg.FormConstruct,
		Pattern: alg.Bgp{Patterns: []alg.TriplePattern{{
			Subject: alg.Var("s"), Predicate: alg.Term(iri("p")), Object: alg.Var("o"),
		}}},
		Template: []alg.TriplePattern{{
			Subject: alg.Var("o"), Predicate: alg.Term(iri("inv")), Object: alg.Var("s"),
		}},
	}
	res, err := sparql.NewEvaluator().PrepareQuery(q).OnStore(s).Execute(context.Background())
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, sparql.ResultsGraph, res.Kind)

	var got []term.Quad
	g := res.Graph()
	for g.Next(context.Background()) {
		got = append(got, g.Quad())
	}
	require.NoError(t, g.Err())
	require.Len(t, got, 2)
	for _, quad := range got {
		require.Equal(t, iri("inv"), quad.Predicate)
	}
}

func TestDescribe(t *testing.T) {
	s := newStore(t,
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("a"), iri("q"), term.NewString("v")),
		term.NewQuad(iri("x"), iri("p"), iri("y")),
	)
	q := &alg.Query{Form: alg.FormDescribe, Resources: []term.Value{iri("a")}}
	res, err := sparql.NewEvaluator().PrepareQuery(q).OnStore(s).Execute(context.Background())
	require.NoError(t, err)
	defer res.Close()

	var got []term.Quad
	g := res.Graph()
	for g.Next(context.Background()) {
		got = append(got, g.Quad())
	}
	require.NoError(t, g.Err())
	require.Len(t, got, 2)
}

func TestSubstitutions(t *testing.T) {
	s := newStore(t,
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("c"), iri("p"), iri("d")),
	)
	q := selectQuery(alg.Bgp{Patterns: []alg.TriplePattern{{
		Subject: alg.Var("s"), Predicate: alg.Term(iri("p")), Object: alg.Var("o"),
	}}}, "s", "o")

	res, err := sparql.NewEvaluator().PrepareQuery(q).OnStore(s).
		WithSubstitutions(map[alg.Variable]term.Value{"s": iri("c")}).
		Execute(context.Background())
	require.NoError(t, err)
	defer res.Close()
	it := res.Solutions()
	require.True(t, it.Next(context.Background()))
	require.Equal(t, term.Value(iri("d")), it.Binding()["o"])
	require.False(t, it.Next(context.Background()))
}

func TestSubstitutionUnknownVariable(t *testing.T) {
	s := newStore(t)
	q := selectQuery(alg.Bgp{}, "o")
	_, err := sparql.NewEvaluator().PrepareQuery(q).OnStore(s).
		WithSubstitutions(map[alg.Variable]term.Value{"nope": iri("x")}).
		Execute(context.Background())
	var want *sparqlerr.NotExistingSubstitutedVariableError
	require.ErrorAs(t, err, &want)
}

func TestExplain(t *testing.T) {
	s := newStore(t, term.NewQuad(iri("a"), iri("p"), iri("b")))
	q := selectQuery(alg.Bgp{Patterns: []alg.TriplePattern{{
		Subject: alg.Var("s"), Predicate: alg.Term(iri("p")), Object: alg.Var("o"),
	}}}, "s", "o")
	bq := sparql.NewEvaluator().PrepareQuery(q).OnStore(s)

	plan, err := bq.Explain(context.Background(), false)
	require.NoError(t, err)
	require.Contains(t, plan, "Project")
	require.Contains(t, plan, "BGP")

	stats, err := bq.Explain(context.Background(), true)
	require.NoError(t, err)
	require.Contains(t, stats, "rows")
}

func TestParseWithoutParser(t *testing.T) {
	_, err := sparql.NewEvaluator().ParseQuery("SELECT * WHERE {}")
	require.ErrorIs(t, err, sparql.ErrNoParser)
	_, err = sparql.NewEvaluator().ParseUpdate("CLEAR ALL")
	require.ErrorIs(t, err, sparql.ErrNoParser)
}

func TestUpdateThroughAPI(t *testing.T) {
	s := newStore(t)
	q := term.NewQuad(iri("a"), iri("p"), iri("b"))
	err := sparql.NewEvaluator().
		PrepareUpdate([]alg.Update{alg.InsertData{Quads: []term.Quad{q}}}).
		OnStore(s).Execute(context.Background())
	require.NoError(t, err)
	has, err := s.Contains(q)
	require.NoError(t, err)
	require.True(t, has)
}
