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

package planexec

import (
	"context"

	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

// Property-path evaluation. The unbounded repetitions (* and +) run
// breadth-first with a visited set scoped per starting node, which both
// terminates on cycles and bounds memory per binding.

type termPair struct {
	s, o encoding.EncodedTerm
}

func termKey(t encoding.EncodedTerm) string {
	return string(storage.AppendTermKey(nil, t))
}

func (e *Evaluator) evalPathPattern(n sparqlalgebra.Path, in Solution, g *encoding.EncodedTerm) Solutions {
	resolve := func(tv sparqlalgebra.TermOrVar) (*encoding.EncodedTerm, sparqlalgebra.Variable, error) {
		v := tv.Term
		if tv.IsVar() {
			bound, ok := in[tv.Var]
			if !ok {
				return nil, tv.Var, nil
			}
			v = bound
		}
		et, err := e.view.InternalizeTerm(v)
		if err != nil {
			return nil, "", err
		}
		return &et, "", nil
	}
	se, sv, err := resolve(n.Subject)
	if err != nil {
		return &errSolutions{err: err}
	}
	oe, ov, err := resolve(n.Object)
	if err != nil {
		return &errSolutions{err: err}
	}
	ctx := context.Background()
	pairs, err := e.evalPath(ctx, n.Path, se, oe, g)
	if err != nil {
		return &errSolutions{err: err}
	}
	var rows []Solution
	for _, p := range pairs {
		row := in.Clone()
		if ok, err := e.bindPosition(row, sv, p.s); err != nil {
			return &errSolutions{err: err}
		} else if !ok {
			continue
		}
		if ok, err := e.bindPosition(row, ov, p.o); err != nil {
			return &errSolutions{err: err}
		} else if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return newSliceSolutions(rows)
}

// evalPath returns the distinct (start, end) pairs the path connects,
// restricted by the bound endpoints.
func (e *Evaluator) evalPath(ctx context.Context, px sparqlalgebra.PathExpression, start, end *encoding.EncodedTerm, g *encoding.EncodedTerm) ([]termPair, error) {
	switch p := px.(type) {
	case sparqlalgebra.PredicatePath:
		pe, err := e.view.InternalizeTerm(p.Predicate)
		if err != nil {
			return nil, err
		}
		return e.scanPairs(ctx, start, &pe, end, g, false)
	case sparqlalgebra.InversePath:
		pairs, err := e.evalPath(ctx, p.Path, end, start, g)
		if err != nil {
			return nil, err
		}
		out := make([]termPair, len(pairs))
		for i, pr := range pairs {
			out[i] = termPair{s: pr.o, o: pr.s}
		}
		return out, nil
	case sparqlalgebra.SequencePath:
		firsts, err := e.evalPath(ctx, p.First, start, nil, g)
		if err != nil {
			return nil, err
		}
		var out []termPair
		seen := make(map[string]struct{})
		for _, f := range firsts {
			mid := f.o
			seconds, err := e.evalPath(ctx, p.Second, &mid, end, g)
			if err != nil {
				return nil, err
			}
			for _, s := range seconds {
				pr := termPair{s: f.s, o: s.o}
				k := termKey(pr.s) + termKey(pr.o)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, pr)
			}
		}
		return out, nil
	case sparqlalgebra.AlternativePath:
		left, err := e.evalPath(ctx, p.First, start, end, g)
		if err != nil {
			return nil, err
		}
		right, err := e.evalPath(ctx, p.Second, start, end, g)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		var out []termPair
		for _, pr := range append(left, right...) {
			k := termKey(pr.s) + termKey(pr.o)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, pr)
		}
		return out, nil
	case sparqlalgebra.NegatedPropertySet:
		return e.evalNegated(ctx, p, start, end, g)
	case sparqlalgebra.ZeroOrOnePath:
		one, err := e.evalPath(ctx, p.Path, start, end, g)
		if err != nil {
			return nil, err
		}
		zero, err := e.identityPairs(ctx, start, end, g)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		var out []termPair
		for _, pr := range append(zero, one...) {
			k := termKey(pr.s) + termKey(pr.o)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, pr)
		}
		return out, nil
	case sparqlalgebra.ZeroOrMorePath:
		return e.evalRepeated(ctx, p.Path, start, end, g, true)
	case sparqlalgebra.OneOrMorePath:
		return e.evalRepeated(ctx, p.Path, start, end, g, false)
	default:
		return nil, nil
	}
}

// scanPairs scans concrete edges (s, pred, o) in g.
func (e *Evaluator) scanPairs(ctx context.Context, s, pred, o, g *encoding.EncodedTerm, invertPred bool) ([]termPair, error) {
	it := e.view.QuadsForPattern(s, pred, o, g)
	defer it.Close()
	var out []termPair
	for it.Next(ctx) {
		q := it.Quad()
		if invertPred {
			out = append(out, termPair{s: q.Object, o: q.Subject})
		} else {
			out = append(out, termPair{s: q.Subject, o: q.Object})
		}
	}
	return out, it.Err()
}

// evalNegated matches forward edges whose predicate is outside Direct
// and inverse edges whose predicate is outside Inverse.
func (e *Evaluator) evalNegated(ctx context.Context, p sparqlalgebra.NegatedPropertySet, start, end, g *encoding.EncodedTerm) ([]termPair, error) {
	excluded := func(list []term.IRI, pred encoding.EncodedTerm) (bool, error) {
		for _, iri := range list {
			pe, err := e.view.InternalizeTerm(iri)
			if err != nil {
				return false, err
			}
			if pe.Equal(pred) {
				return true, nil
			}
		}
		return false, nil
	}
	seen := make(map[string]struct{})
	var out []termPair
	add := func(pr termPair) {
		k := termKey(pr.s) + termKey(pr.o)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, pr)
	}
	if p.Direct != nil || p.Inverse == nil {
		it := e.view.QuadsForPattern(start, nil, end, g)
		for it.Next(ctx) {
			q := it.Quad()
			ex, err := excluded(p.Direct, q.Predicate)
			if err != nil {
				it.Close()
				return nil, err
			}
			if !ex {
				add(termPair{s: q.Subject, o: q.Object})
			}
		}
		err := it.Err()
		it.Close()
		if err != nil {
			return nil, err
		}
	}
	if p.Inverse != nil {
		it := e.view.QuadsForPattern(end, nil, start, g)
		for it.Next(ctx) {
			q := it.Quad()
			ex, err := excluded(p.Inverse, q.Predicate)
			if err != nil {
				it.Close()
				return nil, err
			}
			if !ex {
				add(termPair{s: q.Object, o: q.Subject})
			}
		}
		err := it.Err()
		it.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// identityPairs is the zero-repetition case: every candidate node pairs
// with itself.
func (e *Evaluator) identityPairs(ctx context.Context, start, end *encoding.EncodedTerm, g *encoding.EncodedTerm) ([]termPair, error) {
	switch {
	case start != nil:
		if end != nil && !start.Equal(*end) {
			return nil, nil
		}
		return []termPair{{s: *start, o: *start}}, nil
	case end != nil:
		return []termPair{{s: *end, o: *end}}, nil
	default:
		nodes, err := e.graphNodes(ctx, g)
		if err != nil {
			return nil, err
		}
		out := make([]termPair, len(nodes))
		for i, n := range nodes {
			out[i] = termPair{s: n, o: n}
		}
		return out, nil
	}
}

// graphNodes enumerates the distinct subject and object terms of g.
func (e *Evaluator) graphNodes(ctx context.Context, g *encoding.EncodedTerm) ([]encoding.EncodedTerm, error) {
	it := e.view.QuadsForPattern(nil, nil, nil, g)
	defer it.Close()
	seen := make(map[string]struct{})
	var out []encoding.EncodedTerm
	add := func(t encoding.EncodedTerm) {
		k := termKey(t)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	for it.Next(ctx) {
		q := it.Quad()
		add(q.Subject)
		add(q.Object)
	}
	return out, it.Err()
}

// evalRepeated is p* / p+: breadth-first expansion with a visited set
// per starting node.
func (e *Evaluator) evalRepeated(ctx context.Context, inner sparqlalgebra.PathExpression, start, end, g *encoding.EncodedTerm, includeZero bool) ([]termPair, error) {
	var starts []encoding.EncodedTerm
	switch {
	case start != nil:
		starts = []encoding.EncodedTerm{*start}
	case end != nil:
		// Only the end is bound: walk the inverse path from it, then flip.
		pairs, err := e.evalRepeated(ctx, sparqlalgebra.InversePath{Path: inner}, end, nil, g, includeZero)
		if err != nil {
			return nil, err
		}
		out := make([]termPair, len(pairs))
		for i, pr := range pairs {
			out[i] = termPair{s: pr.o, o: pr.s}
		}
		return out, nil
	default:
		nodes, err := e.graphNodes(ctx, g)
		if err != nil {
			return nil, err
		}
		starts = nodes
	}
	var out []termPair
	for i := range starts {
		from := starts[i]
		reached, err := e.bfs(ctx, inner, from, g, includeZero)
		if err != nil {
			return nil, err
		}
		for _, r := range reached {
			if end != nil && !r.Equal(*end) {
				continue
			}
			out = append(out, termPair{s: from, o: r})
		}
	}
	return out, nil
}

func (e *Evaluator) bfs(ctx context.Context, inner sparqlalgebra.PathExpression, from encoding.EncodedTerm, g *encoding.EncodedTerm, includeZero bool) ([]encoding.EncodedTerm, error) {
	visited := map[string]struct{}{}
	var reached []encoding.EncodedTerm
	frontier := []encoding.EncodedTerm{from}
	if includeZero {
		visited[termKey(from)] = struct{}{}
		reached = append(reached, from)
	}
	for len(frontier) > 0 {
		var next []encoding.EncodedTerm
		for i := range frontier {
			node := frontier[i]
			steps, err := e.evalPath(ctx, inner, &node, nil, g)
			if err != nil {
				return nil, err
			}
			for _, st := range steps {
				k := termKey(st.o)
				if _, dup := visited[k]; dup {
					continue
				}
				visited[k] = struct{}{}
				reached = append(reached, st.o)
				next = append(next, st.o)
			}
		}
		frontier = next
	}
	return reached, nil
}
