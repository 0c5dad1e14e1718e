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

package planexec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxigraph-go/dataset"
	"github.com/oxigraph/oxigraph-go/kvstore/memkv"
	"github.com/oxigraph/oxigraph-go/options"
	"github.com/oxigraph/oxigraph-go/planexec"
	alg "github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

func iri(s string) term.IRI { return term.IRI("http://example.org/" + s) }

func intLit(n string) term.Value { return term.NewTypedLiteral(n, term.XSDInteger) }

type env struct {
	store *storage.Store
	view  *dataset.View
	eval  *planexec.Evaluator
}

func newEnv(t *testing.T, quads []term.Quad, spec *dataset.Spec) *env {
	t.Helper()
	s, err := storage.Open(memkv.New(), options.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	for _, q := range quads {
		_, err := s.Insert(q)
		require.NoError(t, err)
	}
	r, err := s.Snapshot()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	view, err := dataset.NewView(r, spec)
	require.NoError(t, err)
	return &env{store: s, view: view, eval: planexec.NewEvaluator(view, planexec.Options{})}
}

func run(t *testing.T, e *env, p alg.Pattern) []planexec.Solution {
	t.Helper()
	it := e.eval.Eval(p, nil)
	defer it.Close()
	var out []planexec.Solution
	for it.Next(context.Background()) {
		out = append(out, it.Binding())
	}
	require.NoError(t, it.Err())
	return out
}

func bgp(patterns ...alg.TriplePattern) alg.Bgp { return alg.Bgp{Patterns: patterns} }

func tp(s, p, o alg.TermOrVar) alg.TriplePattern {
	return alg.TriplePattern{Subject: s, Predicate: p, Object: o}
}

// Insert a triple, then query it back.
func TestBasicBgp(t *testing.T) {
	e := newEnv(t, []term.Quad{term.NewQuad(iri("a"), iri("p"), iri("b"))}, nil)
	sols := run(t, e, bgp(tp(alg.Term(iri("a")), alg.Term(iri("p")), alg.Var("o"))))
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("b")), sols[0]["o"])
}

// Named-graph quads are invisible outside GRAPH unless FROM pulls them in.
func TestNamedGraphIsolation(t *testing.T) {
	quads := []term.Quad{term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g1"))}
	pattern := bgp(tp(alg.Term(iri("a")), alg.Term(iri("p")), alg.Var("o")))

	// No FROM: the pattern sees only the default graph.
	e := newEnv(t, quads, nil)
	require.Empty(t, run(t, e, pattern))

	// GRAPH <g1> { ... } sees it.
	sols := run(t, e, alg.Graph{Name: alg.Term(iri("g1")), Inner: pattern})
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("b")), sols[0]["o"])

	// FROM <g1> rewrites g1 into the default graph.
	e2 := newEnv(t, quads, &dataset.Spec{DefaultGraphs: []term.IRI{iri("g1")}})
	sols = run(t, e2, pattern)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("b")), sols[0]["o"])
}

func TestGraphVariableIteratesNamedGraphs(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuadIn(iri("a"), iri("p"), iri("b"), iri("g1")),
		term.NewQuadIn(iri("a"), iri("p"), iri("c"), iri("g2")),
		term.NewQuad(iri("a"), iri("p"), iri("d")),
	}, nil)
	sols := run(t, e, alg.Graph{Name: alg.Var("g"),
		Inner: bgp(tp(alg.Term(iri("a")), alg.Term(iri("p")), alg.Var("o")))})
	require.Len(t, sols, 2)
	graphs := map[string]bool{}
	for _, s := range sols {
		graphs[s["g"].String()] = true
	}
	require.Len(t, graphs, 2)
}

// Transitive paths reach every hop.
func TestOneOrMorePath(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("b"), iri("p"), iri("c")),
	}, nil)
	sols := run(t, e, alg.Path{
		Subject: alg.Term(iri("a")),
		Path:    alg.OneOrMorePath{Path: alg.PredicatePath{Predicate: iri("p")}},
		Object:  alg.Var("x"),
	})
	got := map[string]bool{}
	for _, s := range sols {
		got[s["x"].String()] = true
	}
	require.Len(t, got, 2)
	require.True(t, got[iri("b").String()])
	require.True(t, got[iri("c").String()])
}

func TestZeroOrMorePathOverCycleTerminatesAndIncludesStart(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("b"), iri("p"), iri("a")),
	}, nil)
	sols := run(t, e, alg.Path{
		Subject: alg.Term(iri("a")),
		Path:    alg.ZeroOrMorePath{Path: alg.PredicatePath{Predicate: iri("p")}},
		Object:  alg.Var("x"),
	})
	got := map[string]bool{}
	for _, s := range sols {
		got[s["x"].String()] = true
	}
	require.True(t, got[iri("a").String()], "zero repetitions include the start node")
	require.True(t, got[iri("b").String()])
	require.Len(t, got, 2)
}

func TestSequenceAndInversePaths(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("b"), iri("q"), iri("c")),
	}, nil)
	sols := run(t, e, alg.Path{
		Subject: alg.Term(iri("a")),
		Path: alg.SequencePath{
			First:  alg.PredicatePath{Predicate: iri("p")},
			Second: alg.PredicatePath{Predicate: iri("q")},
		},
		Object: alg.Var("x"),
	})
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("c")), sols[0]["x"])

	sols = run(t, e, alg.Path{
		Subject: alg.Term(iri("b")),
		Path:    alg.InversePath{Path: alg.PredicatePath{Predicate: iri("p")}},
		Object:  alg.Var("x"),
	})
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("a")), sols[0]["x"])
}

func TestNegatedPropertySet(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("a"), iri("q"), iri("c")),
	}, nil)
	sols := run(t, e, alg.Path{
		Subject: alg.Term(iri("a")),
		Path:    alg.NegatedPropertySet{Direct: []term.IRI{iri("p")}},
		Object:  alg.Var("x"),
	})
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("c")), sols[0]["x"])
}

// An expression error in BIND leaves the variable unbound.
func TestExtendErrorLeavesUnbound(t *testing.T) {
	e := newEnv(t, nil, nil)
	p := alg.Extend{
		Inner: alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{{intLit("1")}}},
		Var:   "r",
		Expr: alg.BinaryExpr{Op: alg.OpAdd,
			X: alg.VarExpr{Name: "x"},
			Y: alg.TermExpr{Value: term.NewString("abc")}},
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	_, bound := sols[0]["r"]
	require.False(t, bound)
	require.Equal(t, term.Value(intLit("1")), sols[0]["x"])
}

// SUM over VALUES rows.
func TestSumAggregate(t *testing.T) {
	e := newEnv(t, nil, nil)
	p := alg.Group{
		Inner: alg.Values{Vars: []alg.Variable{"x"},
			Rows: [][]term.Value{{intLit("1")}, {intLit("2")}, {intLit("3")}}},
		Aggregates: []alg.AggregateBinding{{
			Var:       "s",
			Aggregate: alg.Aggregate{Function: alg.AggSum, Expr: alg.VarExpr{Name: "x"}},
		}},
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(intLit("6")), sols[0]["s"])
}

// Group with no rows and no key yields the aggregate identities.
func TestEmptyGroupYieldsIdentities(t *testing.T) {
	e := newEnv(t, nil, nil)
	p := alg.Group{
		Inner: bgp(tp(alg.Var("s"), alg.Term(iri("nope")), alg.Var("o"))),
		Aggregates: []alg.AggregateBinding{
			{Var: "c", Aggregate: alg.Aggregate{Function: alg.AggCountAll}},
			{Var: "s2", Aggregate: alg.Aggregate{Function: alg.AggSum, Expr: alg.VarExpr{Name: "o"}}},
			{Var: "m", Aggregate: alg.Aggregate{Function: alg.AggMin, Expr: alg.VarExpr{Name: "o"}}},
		},
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(intLit("0")), sols[0]["c"])
	require.Equal(t, term.Value(intLit("0")), sols[0]["s2"])
	_, bound := sols[0]["m"]
	require.False(t, bound)
}

func TestGroupByKey(t *testing.T) {
	e := newEnv(t, nil, nil)
	p := alg.Group{
		Inner: alg.Values{Vars: []alg.Variable{"k", "x"}, Rows: [][]term.Value{
			{term.NewString("a"), intLit("1")},
			{term.NewString("a"), intLit("2")},
			{term.NewString("b"), intLit("5")},
		}},
		Keys: []alg.Variable{"k"},
		Aggregates: []alg.AggregateBinding{{
			Var:       "s",
			Aggregate: alg.Aggregate{Function: alg.AggSum, Expr: alg.VarExpr{Name: "x"}},
		}},
	}
	sols := run(t, e, p)
	require.Len(t, sols, 2)
	byKey := map[string]string{}
	for _, s := range sols {
		byKey[s["k"].String()] = s["s"].String()
	}
	require.Equal(t, intLit("3").String(), byKey[term.NewString("a").String()])
	require.Equal(t, intLit("5").String(), byKey[term.NewString("b").String()])
}

// An empty BGP yields exactly one empty solution.
func TestEmptyBgp(t *testing.T) {
	e := newEnv(t, nil, nil)
	sols := run(t, e, bgp())
	require.Len(t, sols, 1)
	require.Empty(t, sols[0])
}

// LIMIT 0 terminates immediately with no results.
func TestLimitZero(t *testing.T) {
	e := newEnv(t, []term.Quad{term.NewQuad(iri("a"), iri("p"), iri("b"))}, nil)
	sols := run(t, e, alg.Slice{
		Inner: bgp(tp(alg.Var("s"), alg.Var("p"), alg.Var("o"))),
		Limit: 0,
	})
	require.Empty(t, sols)
}

func TestSliceOffsetLimit(t *testing.T) {
	e := newEnv(t, nil, nil)
	values := alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{
		{intLit("1")}, {intLit("2")}, {intLit("3")}, {intLit("4")},
	}}
	sols := run(t, e, alg.Slice{Inner: values, Offset: 1, Limit: 2})
	require.Len(t, sols, 2)
	require.Equal(t, term.Value(intLit("2")), sols[0]["x"])
	require.Equal(t, term.Value(intLit("3")), sols[1]["x"])
}

func TestLeftJoin(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("b"), iri("name"), term.NewString("bee")),
	}, nil)
	p := alg.LeftJoin{
		Left:  bgp(tp(alg.Var("s"), alg.Term(iri("p")), alg.Var("o"))),
		Right: bgp(tp(alg.Var("o"), alg.Term(iri("name")), alg.Var("n"))),
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(term.NewString("bee")), sols[0]["n"])

	// Optional side missing: left row survives with n unbound.
	e2 := newEnv(t, []term.Quad{term.NewQuad(iri("a"), iri("p"), iri("b"))}, nil)
	sols = run(t, e2, p)
	require.Len(t, sols, 1)
	_, bound := sols[0]["n"]
	require.False(t, bound)
}

func TestUnionAndMinus(t *testing.T) {
	e := newEnv(t, nil, nil)
	left := alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{{intLit("1")}, {intLit("2")}}}
	right := alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{{intLit("2")}, {intLit("3")}}}

	sols := run(t, e, alg.Union{Left: left, Right: right})
	require.Len(t, sols, 4) // multiset union

	sols = run(t, e, alg.Minus{Left: left, Right: right})
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(intLit("1")), sols[0]["x"])
}

func TestFilterDropsErrorRows(t *testing.T) {
	e := newEnv(t, nil, nil)
	values := alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{
		{intLit("1")}, {term.NewString("nan")}, {intLit("5")},
	}}
	p := alg.Filter{
		Expr: alg.BinaryExpr{Op: alg.OpGreater,
			X: alg.VarExpr{Name: "x"}, Y: alg.TermExpr{Value: intLit("2")}},
		Inner: values,
	}
	sols := run(t, e, p)
	// "nan" > 2 errors and filters out; 1 > 2 is false.
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(intLit("5")), sols[0]["x"])
}

func TestFilterExists(t *testing.T) {
	e := newEnv(t, []term.Quad{term.NewQuad(iri("a"), iri("p"), iri("b"))}, nil)
	values := alg.Values{Vars: []alg.Variable{"s"}, Rows: [][]term.Value{
		{iri("a")}, {iri("z")},
	}}
	p := alg.Filter{
		Expr: alg.ExistsExpr{Pattern: bgp(tp(alg.Var("s"), alg.Term(iri("p")), alg.Var("any")))},
		Inner: values,
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("a")), sols[0]["s"])
}

func TestDistinctAndProject(t *testing.T) {
	e := newEnv(t, nil, nil)
	values := alg.Values{Vars: []alg.Variable{"x", "y"}, Rows: [][]term.Value{
		{intLit("1"), intLit("10")},
		{intLit("1"), intLit("20")},
	}}
	sols := run(t, e, alg.Distinct{Inner: alg.Project{Inner: values, Vars: []alg.Variable{"x"}}})
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(intLit("1")), sols[0]["x"])
}

func TestOrderBy(t *testing.T) {
	e := newEnv(t, nil, nil)
	values := alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{
		{intLit("3")}, {intLit("1")}, {nil}, {intLit("2")},
	}}
	sols := run(t, e, alg.OrderBy{Inner: values, Conditions: []alg.OrderCondition{
		{Expr: alg.VarExpr{Name: "x"}},
	}})
	require.Len(t, sols, 4)
	// Unbound sorts first, then ascending numeric order.
	_, bound := sols[0]["x"]
	require.False(t, bound)
	require.Equal(t, term.Value(intLit("1")), sols[1]["x"])
	require.Equal(t, term.Value(intLit("3")), sols[3]["x"])

	sols = run(t, e, alg.OrderBy{Inner: values, Conditions: []alg.OrderCondition{
		{Expr: alg.VarExpr{Name: "x"}, Descending: true},
	}})
	require.Equal(t, term.Value(intLit("3")), sols[0]["x"])
}

func TestJoinSharedVariable(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("b")),
		term.NewQuad(iri("b"), iri("q"), iri("c")),
		term.NewQuad(iri("x"), iri("q"), iri("y")),
	}, nil)
	p := alg.Join{
		Left:  bgp(tp(alg.Var("s"), alg.Term(iri("p")), alg.Var("m"))),
		Right: bgp(tp(alg.Var("m"), alg.Term(iri("q")), alg.Var("o"))),
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("c")), sols[0]["o"])
}

func TestLateralRejectsRedefinition(t *testing.T) {
	e := newEnv(t, nil, nil)
	left := alg.Values{Vars: []alg.Variable{"x"}, Rows: [][]term.Value{{intLit("1")}}}
	right := alg.Extend{Inner: alg.Bgp{}, Var: "x", Expr: alg.TermExpr{Value: intLit("2")}}
	it := e.eval.Eval(alg.Lateral{Left: left, Right: right}, nil)
	defer it.Close()
	require.False(t, it.Next(context.Background()))
	require.Error(t, it.Err())
}

func TestValuesMergesWithInput(t *testing.T) {
	e := newEnv(t, []term.Quad{term.NewQuad(iri("a"), iri("p"), iri("b"))}, nil)
	p := alg.Join{
		Left:  alg.Values{Vars: []alg.Variable{"s"}, Rows: [][]term.Value{{iri("a")}, {iri("z")}}},
		Right: bgp(tp(alg.Var("s"), alg.Term(iri("p")), alg.Var("o"))),
	}
	sols := run(t, e, p)
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("a")), sols[0]["s"])
}

func TestRepeatedVariableInPattern(t *testing.T) {
	e := newEnv(t, []term.Quad{
		term.NewQuad(iri("a"), iri("p"), iri("a")),
		term.NewQuad(iri("a"), iri("p"), iri("b")),
	}, nil)
	sols := run(t, e, bgp(tp(alg.Var("x"), alg.Term(iri("p")), alg.Var("x"))))
	require.Len(t, sols, 1)
	require.Equal(t, term.Value(iri("a")), sols[0]["x"])
}
