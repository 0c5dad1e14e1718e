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
	"fmt"
	"sort"
	"strings"

	"github.com/oxigraph/oxigraph-go/dataset"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/sparqlerr"
	"github.com/oxigraph/oxigraph-go/sparqlexpr"
	"github.com/oxigraph/oxigraph-go/term"
)

// ServiceHandler answers a federated SERVICE call with a synchronous
// solution stream; it runs on the calling thread.
type ServiceHandler interface {
	Query(ctx context.Context, name term.IRI, pattern sparqlalgebra.Pattern, silent bool) (Solutions, error)
}

// CustomAggregate folds the collected group values into one result.
type CustomAggregate func(values []sparqlexpr.Term) (sparqlexpr.Term, bool)

// Options configure an Evaluator.
type Options struct {
	Base             string
	Now              term.DateTime
	Custom           map[term.IRI]sparqlexpr.CustomFunction
	CustomAggregates map[term.IRI]CustomAggregate
	Services         map[term.IRI]ServiceHandler
	DefaultService   ServiceHandler
	// CollectStats makes every node count its produced rows for
	// explain-with-statistics output.
	CollectStats bool
}

// Evaluator walks an algebra tree over one dataset view.
type Evaluator struct {
	view *dataset.View
	opt  Options
	expr *sparqlexpr.Evaluator

	stats      map[string]*int64
	statsOrder []string
}

// NewEvaluator builds an evaluator over view.
func NewEvaluator(view *dataset.View, opt Options) *Evaluator {
	e := &Evaluator{view: view, opt: opt}
	if opt.CollectStats {
		e.stats = make(map[string]*int64)
	}
	e.expr = sparqlexpr.NewEvaluator(sparqlexpr.Options{
		Base:   opt.Base,
		Now:    opt.Now,
		Custom: opt.Custom,
		Exists: e.evalExists,
	})
	return e
}

var defaultGraphTerm = encoding.EncodedTerm{Kind: encoding.KindDefaultGraph}

// Eval evaluates p against the default active graph with in as the
// initial bindings.
func (e *Evaluator) Eval(p sparqlalgebra.Pattern, in Solution) Solutions {
	if in == nil {
		in = Solution{}
	}
	g := defaultGraphTerm
	return e.eval(p, in, &g)
}

func (e *Evaluator) evalExists(p sparqlalgebra.Pattern, t sparqlexpr.Tuple) (bool, error) {
	sol, ok := t.(Solution)
	if !ok {
		sol = Solution{}
	}
	// EXISTS substitutes the current bindings into the nested pattern and
	// short-circuits on the first solution.
	it := e.Eval(p, sol)
	defer it.Close()
	if it.Next(context.Background()) {
		return true, nil
	}
	return false, it.Err()
}

func (e *Evaluator) eval(p sparqlalgebra.Pattern, in Solution, g *encoding.EncodedTerm) Solutions {
	out := e.evalNode(p, in, g)
	if e.stats == nil {
		return out
	}
	label := p.String()
	n, ok := e.stats[label]
	if !ok {
		n = new(int64)
		e.stats[label] = n
		e.statsOrder = append(e.statsOrder, label)
	}
	return &countingSolutions{Solutions: out, n: n}
}

func (e *Evaluator) evalNode(p sparqlalgebra.Pattern, in Solution, g *encoding.EncodedTerm) Solutions {
	switch n := p.(type) {
	case sparqlalgebra.Bgp:
		return e.evalBgp(n, in, g)
	case sparqlalgebra.Path:
		return e.evalPathPattern(n, in, g)
	case sparqlalgebra.Join:
		left, right := n.Left, n.Right
		return lateralJoin(e.eval(left, in, g), func(s Solution) Solutions {
			return e.eval(right, s, g)
		})
	case sparqlalgebra.Lateral:
		if v, bad := lateralRedefines(n); bad {
			return &errSolutions{err: fmt.Errorf("planexec: lateral right side re-defines %s", v)}
		}
		left, right := n.Left, n.Right
		return lateralJoin(e.eval(left, in, g), func(s Solution) Solutions {
			return e.eval(right, s, g)
		})
	case sparqlalgebra.LeftJoin:
		return e.evalLeftJoin(n, in, g)
	case sparqlalgebra.Union:
		return e.evalUnion(n, in, g)
	case sparqlalgebra.Minus:
		return e.evalMinus(n, in, g)
	case sparqlalgebra.Filter:
		return e.evalFilter(n, in, g)
	case sparqlalgebra.Extend:
		return e.evalExtend(n, in, g)
	case sparqlalgebra.Group:
		return e.evalGroup(n, in, g)
	case sparqlalgebra.OrderBy:
		return e.evalOrderBy(n, in, g)
	case sparqlalgebra.Project:
		return e.evalProject(n, in, g)
	case sparqlalgebra.Distinct:
		return e.evalDistinct(n, in, g)
	case sparqlalgebra.Reduced:
		return e.evalReduced(n, in, g)
	case sparqlalgebra.Slice:
		return e.evalSlice(n, in, g)
	case sparqlalgebra.Service:
		return e.evalService(n, in, g)
	case sparqlalgebra.Values:
		return e.evalValues(n, in)
	case sparqlalgebra.Graph:
		return e.evalGraph(n, in)
	default:
		return &errSolutions{err: fmt.Errorf("planexec: unsupported algebra node %T", p)}
	}
}

// lateralJoin streams: for each left row, pull every row of rightFn(row).
type nestedIter struct {
	left    Solutions
	rightFn func(Solution) Solutions
	cur     Solutions
	err     error
	binding Solution
}

func lateralJoin(left Solutions, rightFn func(Solution) Solutions) Solutions {
	return &nestedIter{left: left, rightFn: rightFn}
}

func (it *nestedIter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for {
		if it.cur != nil {
			if it.cur.Next(ctx) {
				it.binding = it.cur.Binding()
				return true
			}
			if err := it.cur.Err(); err != nil {
				it.err = err
				return false
			}
			it.cur.Close()
			it.cur = nil
		}
		if !it.left.Next(ctx) {
			if err := it.left.Err(); err != nil {
				it.err = err
			}
			return false
		}
		it.cur = it.rightFn(it.left.Binding())
	}
}

func (it *nestedIter) Err() error { return it.err }
func (it *nestedIter) Close() error {
	if it.cur != nil {
		it.cur.Close()
		it.cur = nil
	}
	return it.left.Close()
}
func (it *nestedIter) Binding() Solution { return it.binding }

// evalBgp chains the triple patterns as substitution joins, most
// selective first (fewest unbound positions, counting bindings
// accumulated left to right).
func (e *Evaluator) evalBgp(n sparqlalgebra.Bgp, in Solution, g *encoding.EncodedTerm) Solutions {
	if len(n.Patterns) == 0 {
		// Empty BGP yields exactly one empty solution.
		return newSliceSolutions([]Solution{in.Clone()})
	}
	ordered := orderPatterns(n.Patterns, in)
	out := Solutions(newSliceSolutions([]Solution{in.Clone()}))
	for _, tp := range ordered {
		pattern := tp
		out = lateralJoin(out, func(s Solution) Solutions {
			return e.scanPattern(pattern, s, g)
		})
	}
	return out
}

func orderPatterns(patterns []sparqlalgebra.TriplePattern, in Solution) []sparqlalgebra.TriplePattern {
	bound := make(map[sparqlalgebra.Variable]bool, len(in))
	for v := range in {
		bound[v] = true
	}
	remaining := append([]sparqlalgebra.TriplePattern(nil), patterns...)
	out := make([]sparqlalgebra.TriplePattern, 0, len(remaining))
	unboundCount := func(tp sparqlalgebra.TriplePattern) int {
		n := 0
		for _, v := range tp.Variables() {
			if !bound[v] {
				n++
			}
		}
		return n
	}
	for len(remaining) > 0 {
		best := 0
		for i := 1; i < len(remaining); i++ {
			if unboundCount(remaining[i]) < unboundCount(remaining[best]) {
				best = i
			}
		}
		tp := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		out = append(out, tp)
		for _, v := range tp.Variables() {
			bound[v] = true
		}
	}
	return out
}

// scanPattern resolves one triple pattern against the current bindings
// and streams the matching quads as extended solutions.
func (e *Evaluator) scanPattern(tp sparqlalgebra.TriplePattern, in Solution, g *encoding.EncodedTerm) Solutions {
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
	se, sv, err := resolve(tp.Subject)
	if err != nil {
		return &errSolutions{err: err}
	}
	pe, pv, err := resolve(tp.Predicate)
	if err != nil {
		return &errSolutions{err: err}
	}
	oe, ov, err := resolve(tp.Object)
	if err != nil {
		return &errSolutions{err: err}
	}
	quads := e.view.QuadsForPattern(se, pe, oe, g)
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			for quads.Next(ctx) {
				q := quads.Quad()
				row := in.Clone()
				if ok, err := e.bindPosition(row, sv, q.Subject); err != nil {
					return nil, false, err
				} else if !ok {
					continue
				}
				if ok, err := e.bindPosition(row, pv, q.Predicate); err != nil {
					return nil, false, err
				} else if !ok {
					continue
				}
				if ok, err := e.bindPosition(row, ov, q.Object); err != nil {
					return nil, false, err
				} else if !ok {
					continue
				}
				return row, true, nil
			}
			return nil, false, quads.Err()
		},
		cleanup: quads.Close,
	}
}

// bindPosition binds v to the externalized quad term, rejecting the row
// when a repeated variable disagrees with an earlier position.
func (e *Evaluator) bindPosition(row Solution, v sparqlalgebra.Variable, et encoding.EncodedTerm) (bool, error) {
	if v == "" {
		return true, nil
	}
	val, err := e.view.ExternalizeTerm(et)
	if err != nil {
		return false, err
	}
	if prev, ok := row[v]; ok {
		return sameValue(prev, val), nil
	}
	row[v] = val
	return true, nil
}

func (e *Evaluator) evalLeftJoin(n sparqlalgebra.LeftJoin, in Solution, g *encoding.EncodedTerm) Solutions {
	var filter sparqlexpr.Compiled
	if n.Expr != nil {
		filter = e.expr.Compile(n.Expr)
	}
	left := e.eval(n.Left, in, g)
	var (
		pending []Solution
	)
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			for {
				if len(pending) > 0 {
					row := pending[0]
					pending = pending[1:]
					return row, true, nil
				}
				if !left.Next(ctx) {
					return nil, false, left.Err()
				}
				l := left.Binding()
				right := e.eval(n.Right, l, g)
				matched := false
				for right.Next(ctx) {
					r := right.Binding()
					if filter != nil {
						v, ok := filter(r)
						if !ok {
							continue
						}
						b, ok := v.EffectiveBoolean()
						if !ok || !b {
							continue
						}
					}
					matched = true
					pending = append(pending, r)
				}
				if err := right.Err(); err != nil {
					right.Close()
					return nil, false, err
				}
				right.Close()
				if !matched {
					return l, true, nil
				}
			}
		},
		cleanup: left.Close,
	}
}

func (e *Evaluator) evalUnion(n sparqlalgebra.Union, in Solution, g *encoding.EncodedTerm) Solutions {
	cur := e.eval(n.Left, in, g)
	second := false
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			for {
				if cur.Next(ctx) {
					return cur.Binding(), true, nil
				}
				if err := cur.Err(); err != nil {
					return nil, false, err
				}
				if second {
					return nil, false, nil
				}
				cur.Close()
				cur = e.eval(n.Right, in, g)
				second = true
			}
		},
		cleanup: func() error { return cur.Close() },
	}
}

func (e *Evaluator) evalMinus(n sparqlalgebra.Minus, in Solution, g *encoding.EncodedTerm) Solutions {
	left := e.eval(n.Left, in, g)
	var right []Solution
	loaded := false
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			if !loaded {
				var err error
				right, err = drain(ctx, e.eval(n.Right, in, g))
				if err != nil {
					return nil, false, err
				}
				loaded = true
			}
			for left.Next(ctx) {
				l := left.Binding()
				excluded := false
				for _, r := range right {
					if l.SharesVariable(r) && l.Compatible(r) {
						excluded = true
						break
					}
				}
				if !excluded {
					return l, true, nil
				}
			}
			return nil, false, left.Err()
		},
		cleanup: left.Close,
	}
}

func (e *Evaluator) evalFilter(n sparqlalgebra.Filter, in Solution, g *encoding.EncodedTerm) Solutions {
	expr := e.expr.Compile(n.Expr)
	inner := e.eval(n.Inner, in, g)
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			for inner.Next(ctx) {
				row := inner.Binding()
				v, ok := expr(row)
				if !ok {
					continue // errors filter the row out
				}
				b, ok := v.EffectiveBoolean()
				if ok && b {
					return row, true, nil
				}
			}
			return nil, false, inner.Err()
		},
		cleanup: inner.Close,
	}
}

func (e *Evaluator) evalExtend(n sparqlalgebra.Extend, in Solution, g *encoding.EncodedTerm) Solutions {
	expr := e.expr.Compile(n.Expr)
	inner := e.eval(n.Inner, in, g)
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			if !inner.Next(ctx) {
				return nil, false, inner.Err()
			}
			row := inner.Binding().Clone()
			if v, ok := expr(row); ok {
				row[n.Var] = v.ToValue()
			}
			// The error outcome leaves the variable unbound.
			return row, true, nil
		},
		cleanup: inner.Close,
	}
}

func (e *Evaluator) evalProject(n sparqlalgebra.Project, in Solution, g *encoding.EncodedTerm) Solutions {
	// The inner pattern starts from the projected subset of the input so
	// out-of-scope bindings do not leak through the projection boundary.
	scoped := Solution{}
	for _, v := range n.Vars {
		if t, ok := in[v]; ok {
			scoped[v] = t
		}
	}
	inner := e.eval(n.Inner, scoped, g)
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			if !inner.Next(ctx) {
				return nil, false, inner.Err()
			}
			row := inner.Binding()
			out := Solution{}
			for _, v := range n.Vars {
				if t, ok := row[v]; ok {
					out[v] = t
				}
			}
			return out, true, nil
		},
		cleanup: inner.Close,
	}
}

func (e *Evaluator) evalDistinct(n sparqlalgebra.Distinct, in Solution, g *encoding.EncodedTerm) Solutions {
	inner := e.eval(n.Inner, in, g)
	seen := make(map[string]struct{})
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			for inner.Next(ctx) {
				row := inner.Binding()
				k := row.key()
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				return row, true, nil
			}
			return nil, false, inner.Err()
		},
		cleanup: inner.Close,
	}
}

// evalReduced drops consecutive duplicates only: the permitted
// best-effort form.
func (e *Evaluator) evalReduced(n sparqlalgebra.Reduced, in Solution, g *encoding.EncodedTerm) Solutions {
	inner := e.eval(n.Inner, in, g)
	last := ""
	first := true
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			for inner.Next(ctx) {
				row := inner.Binding()
				k := row.key()
				if !first && k == last {
					continue
				}
				first = false
				last = k
				return row, true, nil
			}
			return nil, false, inner.Err()
		},
		cleanup: inner.Close,
	}
}

func (e *Evaluator) evalSlice(n sparqlalgebra.Slice, in Solution, g *encoding.EncodedTerm) Solutions {
	if n.Limit == 0 {
		return newSliceSolutions(nil)
	}
	inner := e.eval(n.Inner, in, g)
	var skipped, yielded int64
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			if n.Limit > 0 && yielded >= n.Limit {
				return nil, false, nil
			}
			for inner.Next(ctx) {
				if skipped < n.Offset {
					skipped++
					continue
				}
				yielded++
				return inner.Binding(), true, nil
			}
			return nil, false, inner.Err()
		},
		cleanup: inner.Close,
	}
}

func (e *Evaluator) evalValues(n sparqlalgebra.Values, in Solution) Solutions {
	var rows []Solution
	for _, r := range n.Rows {
		row := Solution{}
		for i, v := range n.Vars {
			if i < len(r) && r[i] != nil {
				row[v] = r[i]
			}
		}
		if merged := in.Merge(row); merged != nil {
			rows = append(rows, merged)
		}
	}
	return newSliceSolutions(rows)
}

func (e *Evaluator) evalGraph(n sparqlalgebra.Graph, in Solution) Solutions {
	if !n.Name.IsVar() {
		return e.pinnedGraph(n.Name.Term, n.Inner, in)
	}
	if bound, ok := in[n.Name.Var]; ok {
		return e.pinnedGraph(bound, n.Inner, in)
	}
	// GRAPH ?g iterates the dataset's named graphs, binding ?g for each.
	graphs, err := e.view.NamedGraphs()
	if err != nil {
		return &errSolutions{err: err}
	}
	v := n.Name.Var
	var rows []Solution
	for _, eg := range graphs {
		gv, err := e.view.ExternalizeTerm(eg)
		if err != nil {
			return &errSolutions{err: err}
		}
		row := in.Clone()
		row[v] = gv
		rows = append(rows, row)
	}
	inner := n.Inner
	return lateralJoin(newSliceSolutions(rows), func(s Solution) Solutions {
		return e.pinnedGraph(s[v], inner, s)
	})
}

func (e *Evaluator) pinnedGraph(name term.Value, inner sparqlalgebra.Pattern, in Solution) Solutions {
	switch name.(type) {
	case term.IRI, term.BlankNode:
	default:
		if term.IsDefaultGraph(name) {
			return &errSolutions{err: sparqlerr.ErrUnexpectedDefaultGraph}
		}
		return newSliceSolutions(nil)
	}
	eg, err := e.view.InternalizeTerm(name)
	if err != nil {
		return &errSolutions{err: err}
	}
	return e.eval(inner, in, &eg)
}

func (e *Evaluator) evalService(n sparqlalgebra.Service, in Solution, g *encoding.EncodedTerm) Solutions {
	silentOK := func() Solutions { return newSliceSolutions([]Solution{in.Clone()}) }
	fail := func(err error) Solutions {
		if n.Silent {
			return silentOK()
		}
		return &errSolutions{err: err}
	}
	var name term.Value
	if n.Name.IsVar() {
		bound, ok := in[n.Name.Var]
		if !ok {
			return fail(sparqlerr.ErrUnboundService)
		}
		name = bound
	} else {
		name = n.Name.Term
	}
	iri, ok := name.(term.IRI)
	if !ok {
		return fail(&sparqlerr.InvalidServiceNameError{Term: name})
	}
	handler := e.opt.Services[iri]
	if handler == nil {
		handler = e.opt.DefaultService
	}
	if handler == nil {
		return fail(&sparqlerr.UnsupportedServiceError{IRI: iri})
	}
	var remote Solutions
	started := false
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			if !started {
				var err error
				remote, err = handler.Query(ctx, iri, n.Inner, n.Silent)
				if err != nil {
					if n.Silent {
						started = true
						remote = newSliceSolutions([]Solution{{}})
					} else {
						return nil, false, err
					}
				}
				started = true
			}
			for remote.Next(ctx) {
				if merged := in.Merge(remote.Binding()); merged != nil {
					return merged, true, nil
				}
			}
			if err := remote.Err(); err != nil && !n.Silent {
				return nil, false, err
			}
			return nil, false, nil
		},
		cleanup: func() error {
			if remote != nil {
				return remote.Close()
			}
			return nil
		},
	}
}

// lateralRedefines checks SEP-0006's construction constraint: the right
// side must not re-bind a variable the left side has in scope.
func lateralRedefines(n sparqlalgebra.Lateral) (sparqlalgebra.Variable, bool) {
	left := inScopeVars(n.Left)
	for _, v := range definedVars(n.Right) {
		if left[v] {
			return v, true
		}
	}
	return "", false
}

func inScopeVars(p sparqlalgebra.Pattern) map[sparqlalgebra.Variable]bool {
	out := make(map[sparqlalgebra.Variable]bool)
	collectVars(p, out)
	return out
}

func collectVars(p sparqlalgebra.Pattern, out map[sparqlalgebra.Variable]bool) {
	switch n := p.(type) {
	case sparqlalgebra.Bgp:
		for _, tp := range n.Patterns {
			for _, v := range tp.Variables() {
				out[v] = true
			}
		}
	case sparqlalgebra.Path:
		if n.Subject.IsVar() {
			out[n.Subject.Var] = true
		}
		if n.Object.IsVar() {
			out[n.Object.Var] = true
		}
	case sparqlalgebra.Join:
		collectVars(n.Left, out)
		collectVars(n.Right, out)
	case sparqlalgebra.Lateral:
		collectVars(n.Left, out)
		collectVars(n.Right, out)
	case sparqlalgebra.LeftJoin:
		collectVars(n.Left, out)
		collectVars(n.Right, out)
	case sparqlalgebra.Union:
		collectVars(n.Left, out)
		collectVars(n.Right, out)
	case sparqlalgebra.Minus:
		collectVars(n.Left, out)
	case sparqlalgebra.Filter:
		collectVars(n.Inner, out)
	case sparqlalgebra.Extend:
		collectVars(n.Inner, out)
		out[n.Var] = true
	case sparqlalgebra.Group:
		for _, k := range n.Keys {
			out[k] = true
		}
		for _, a := range n.Aggregates {
			out[a.Var] = true
		}
	case sparqlalgebra.OrderBy:
		collectVars(n.Inner, out)
	case sparqlalgebra.Project:
		for _, v := range n.Vars {
			out[v] = true
		}
	case sparqlalgebra.Distinct:
		collectVars(n.Inner, out)
	case sparqlalgebra.Reduced:
		collectVars(n.Inner, out)
	case sparqlalgebra.Slice:
		collectVars(n.Inner, out)
	case sparqlalgebra.Service:
		collectVars(n.Inner, out)
		if n.Name.IsVar() {
			out[n.Name.Var] = true
		}
	case sparqlalgebra.Values:
		for _, v := range n.Vars {
			out[v] = true
		}
	case sparqlalgebra.Graph:
		collectVars(n.Inner, out)
		if n.Name.IsVar() {
			out[n.Name.Var] = true
		}
	}
}

// definedVars lists variables the pattern itself binds via Extend or
// Values, the re-definition cases Lateral forbids.
func definedVars(p sparqlalgebra.Pattern) []sparqlalgebra.Variable {
	var out []sparqlalgebra.Variable
	switch n := p.(type) {
	case sparqlalgebra.Extend:
		out = append(out, n.Var)
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Values:
		out = append(out, n.Vars...)
	case sparqlalgebra.Join:
		out = append(out, definedVars(n.Left)...)
		out = append(out, definedVars(n.Right)...)
	case sparqlalgebra.Lateral:
		out = append(out, definedVars(n.Left)...)
		out = append(out, definedVars(n.Right)...)
	case sparqlalgebra.LeftJoin:
		out = append(out, definedVars(n.Left)...)
		out = append(out, definedVars(n.Right)...)
	case sparqlalgebra.Union:
		out = append(out, definedVars(n.Left)...)
		out = append(out, definedVars(n.Right)...)
	case sparqlalgebra.Filter:
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Group:
		for _, a := range n.Aggregates {
			out = append(out, a.Var)
		}
	case sparqlalgebra.OrderBy:
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Project:
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Distinct:
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Reduced:
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Slice:
		out = append(out, definedVars(n.Inner)...)
	case sparqlalgebra.Graph:
		out = append(out, definedVars(n.Inner)...)
	}
	return out
}

// Stats renders the per-node row counts collected during evaluation.
func (e *Evaluator) Stats() string {
	if e.stats == nil {
		return ""
	}
	var b strings.Builder
	labels := append([]string(nil), e.statsOrder...)
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(&b, "%s: %d rows\n", l, *e.stats[l])
	}
	return b.String()
}
