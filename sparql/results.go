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

package sparql

import (
	"context"

	"github.com/oxigraph/oxigraph-go/dataset"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/planexec"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/term"
)

func defaultGraphMarker() encoding.EncodedTerm {
	return encoding.EncodedTerm{Kind: encoding.KindDefaultGraph}
}

// ResultsKind discriminates the three result shapes.
type ResultsKind int

const (
	// ResultsSolutions is a SELECT result: a solution iterator.
	ResultsSolutions ResultsKind = iota
	// ResultsGraph is a CONSTRUCT/DESCRIBE result: a triple iterator.
	ResultsGraph
	// ResultsBoolean is an ASK result.
	ResultsBoolean
)

// QueryResults owns the snapshot the query runs over; Close releases
// it and all nested iterators deterministically.
type QueryResults struct {
	Kind ResultsKind

	view *dataset.View

	solutions planexec.Solutions
	vars      []sparqlalgebra.Variable

	graph *graphIterator

	boolean bool
}

func newResults(ctx context.Context, q *sparqlalgebra.Query, view *dataset.View, ev *planexec.Evaluator, in planexec.Solution) (*QueryResults, error) {
	switch q.Form {
	case sparqlalgebra.FormAsk:
		it := ev.Eval(q.Pattern, in)
		ok := it.Next(ctx)
		err := it.Err()
		it.Close()
		view.Reader().Close()
		if err != nil {
			return nil, err
		}
		return &QueryResults{Kind: ResultsBoolean, boolean: ok}, nil
	case sparqlalgebra.FormConstruct:
		return &QueryResults{
			Kind:  ResultsGraph,
			view:  view,
			graph: newGraphIterator(ev.Eval(q.Pattern, in), q.Template),
		}, nil
	case sparqlalgebra.FormDescribe:
		return describeResults(ctx, q, view, ev, in)
	default:
		return &QueryResults{
			Kind:      ResultsSolutions,
			view:      view,
			solutions: ev.Eval(q.Pattern, in),
			vars:      q.ProjectedVariables(),
		}, nil
	}
}

// Solutions returns the SELECT iterator.
func (r *QueryResults) Solutions() planexec.Solutions { return r.solutions }

// Variables lists the projected variables of a SELECT result.
func (r *QueryResults) Variables() []sparqlalgebra.Variable { return r.vars }

// Graph returns the CONSTRUCT/DESCRIBE triple iterator.
func (r *QueryResults) Graph() *graphIterator { return r.graph }

// Boolean returns the ASK outcome.
func (r *QueryResults) Boolean() bool { return r.boolean }

// Close releases the snapshot and iterators.
func (r *QueryResults) Close() error {
	if r.solutions != nil {
		r.solutions.Close()
		r.solutions = nil
	}
	if r.graph != nil {
		r.graph.closeInner()
	}
	if r.view != nil {
		err := r.view.Reader().Close()
		r.view = nil
		return err
	}
	return nil
}

// graphIterator instantiates a CONSTRUCT template per solution,
// deduplicating triples (a graph is a set).
type graphIterator struct {
	inner    planexec.Solutions
	template []sparqlalgebra.TriplePattern

	pending []term.Quad
	seen    map[string]struct{}
	cur     term.Quad
	err     error
	fixed   []term.Quad // DESCRIBE pre-materialized output
	pos     int
}

func newGraphIterator(inner planexec.Solutions, template []sparqlalgebra.TriplePattern) *graphIterator {
	return &graphIterator{inner: inner, template: template, seen: make(map[string]struct{}), pos: -1}
}

func newFixedGraphIterator(quads []term.Quad) *graphIterator {
	return &graphIterator{fixed: quads, pos: -1}
}

// Next advances to the next distinct triple.
func (g *graphIterator) Next(ctx context.Context) bool {
	if g.err != nil {
		return false
	}
	if g.fixed != nil {
		if g.pos+1 >= len(g.fixed) {
			return false
		}
		g.pos++
		g.cur = g.fixed[g.pos]
		return true
	}
	for {
		if len(g.pending) > 0 {
			g.cur = g.pending[0]
			g.pending = g.pending[1:]
			return true
		}
		if !g.inner.Next(ctx) {
			g.err = g.inner.Err()
			return false
		}
		sol := g.inner.Binding()
		for _, tp := range g.template {
			q, ok := instantiateTriple(tp, sol)
			if !ok {
				continue
			}
			k := q.String()
			if _, dup := g.seen[k]; dup {
				continue
			}
			g.seen[k] = struct{}{}
			g.pending = append(g.pending, q)
		}
	}
}

// Quad returns the current triple (graph position is always default).
func (g *graphIterator) Quad() term.Quad { return g.cur }

// Err reports the first failure.
func (g *graphIterator) Err() error { return g.err }

func (g *graphIterator) closeInner() {
	if g.inner != nil {
		g.inner.Close()
		g.inner = nil
	}
}

func instantiateTriple(tp sparqlalgebra.TriplePattern, sol planexec.Solution) (term.Quad, bool) {
	resolve := func(tv sparqlalgebra.TermOrVar) (term.Value, bool) {
		if tv.IsVar() {
			v, ok := sol[tv.Var]
			return v, ok
		}
		return tv.Term, true
	}
	s, ok := resolve(tp.Subject)
	if !ok {
		return term.Quad{}, false
	}
	if _, bad := s.(term.Literal); bad {
		return term.Quad{}, false
	}
	p, ok := resolve(tp.Predicate)
	if !ok {
		return term.Quad{}, false
	}
	pi, isIRI := p.(term.IRI)
	if !isIRI {
		return term.Quad{}, false
	}
	o, ok := resolve(tp.Object)
	if !ok {
		return term.Quad{}, false
	}
	return term.NewQuad(s, pi, o), true
}

// describeResults materializes the description of every matched
// resource: each default-graph triple whose subject is one of them.
// Named graphs are not searched.
func describeResults(ctx context.Context, q *sparqlalgebra.Query, view *dataset.View, ev *planexec.Evaluator, in planexec.Solution) (*QueryResults, error) {
	resources := append([]term.Value(nil), q.Resources...)
	if q.Pattern != nil {
		sols := ev.Eval(q.Pattern, in)
		for sols.Next(ctx) {
			for _, v := range sols.Binding() {
				resources = append(resources, v)
			}
		}
		if err := sols.Err(); err != nil {
			sols.Close()
			view.Reader().Close()
			return nil, err
		}
		sols.Close()
	}
	seenRes := make(map[string]struct{})
	seen := make(map[string]struct{})
	var quads []term.Quad
	for _, res := range resources {
		if res == nil {
			continue
		}
		if _, dup := seenRes[res.String()]; dup {
			continue
		}
		seenRes[res.String()] = struct{}{}
		se, err := view.InternalizeTerm(res)
		if err != nil {
			view.Reader().Close()
			return nil, err
		}
		g := defaultGraphMarker()
		it := view.QuadsForPattern(&se, nil, nil, &g)
		for it.Next(ctx) {
			quad, err := view.ExternalizeQuad(it.Quad())
			if err != nil {
				it.Close()
				view.Reader().Close()
				return nil, err
			}
			k := quad.String()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			quads = append(quads, quad)
		}
		if err := it.Err(); err != nil {
			it.Close()
			view.Reader().Close()
			return nil, err
		}
		it.Close()
	}
	view.Reader().Close()
	return &QueryResults{Kind: ResultsGraph, graph: newFixedGraphIterator(quads)}, nil
}
