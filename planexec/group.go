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
	"sort"
	"strings"

	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/sparqlexpr"
)

// evalGroup materializes the inner stream, partitions by the group
// keys and folds each aggregate.
func (e *Evaluator) evalGroup(n sparqlalgebra.Group, in Solution, g *encoding.EncodedTerm) Solutions {
	return &funcSolutions{
		next: e.groupOnce(n, in, g),
	}
}

func (e *Evaluator) groupOnce(n sparqlalgebra.Group, in Solution, g *encoding.EncodedTerm) func(ctx context.Context) (Solution, bool, error) {
	var (
		out []Solution
		pos int
		run bool
	)
	return func(ctx context.Context) (Solution, bool, error) {
		if !run {
			rows, err := drain(ctx, e.eval(n.Inner, in, g))
			if err != nil {
				return nil, false, err
			}
			out = e.aggregateGroups(n, rows)
			run = true
		}
		if pos >= len(out) {
			return nil, false, nil
		}
		row := out[pos]
		pos++
		return row, true, nil
	}
}

func (e *Evaluator) aggregateGroups(n sparqlalgebra.Group, rows []Solution) []Solution {
	type group struct {
		key  Solution
		rows []Solution
	}
	groups := make(map[string]*group)
	var order []string
	for _, row := range rows {
		key := Solution{}
		for _, k := range n.Keys {
			if v, ok := row[k]; ok {
				key[k] = v
			}
		}
		ks := key.key()
		grp, ok := groups[ks]
		if !ok {
			grp = &group{key: key}
			groups[ks] = grp
			order = append(order, ks)
		}
		grp.rows = append(grp.rows, row)
	}
	// A group-less aggregation over zero rows still yields one row of
	// aggregate identities (COUNT=0, SUM=0, MIN/MAX unbound).
	if len(order) == 0 && len(n.Keys) == 0 {
		groups[""] = &group{key: Solution{}}
		order = append(order, "")
	}
	var out []Solution
	for _, ks := range order {
		grp := groups[ks]
		row := grp.key.Clone()
		for _, ab := range n.Aggregates {
			if v, ok := e.computeAggregate(ab.Aggregate, grp.rows); ok {
				row[ab.Var] = v.ToValue()
			}
		}
		out = append(out, row)
	}
	return out
}

func (e *Evaluator) computeAggregate(a sparqlalgebra.Aggregate, rows []Solution) (sparqlexpr.Term, bool) {
	if a.Function == sparqlalgebra.AggCountAll {
		if a.Distinct {
			seen := make(map[string]struct{})
			for _, r := range rows {
				seen[r.key()] = struct{}{}
			}
			return sparqlexpr.NewInteger(int64(len(seen))), true
		}
		return sparqlexpr.NewInteger(int64(len(rows))), true
	}
	expr := e.expr.Compile(a.Expr)
	var values []sparqlexpr.Term
	seen := make(map[string]struct{})
	for _, r := range rows {
		v, ok := expr(r)
		if !ok {
			// Errors are ignored by every aggregate except COUNT(expr),
			// which simply does not count them.
			continue
		}
		if a.Distinct {
			k := v.ToValue().String()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		values = append(values, v)
	}
	switch a.Function {
	case sparqlalgebra.AggCount:
		return sparqlexpr.NewInteger(int64(len(values))), true
	case sparqlalgebra.AggSum:
		acc := sparqlexpr.NewInteger(0)
		for _, v := range values {
			next, ok := sparqlexpr.Add(acc, v)
			if !ok {
				return sparqlexpr.Term{}, false
			}
			acc = next
		}
		return acc, true
	case sparqlalgebra.AggAvg:
		if len(values) == 0 {
			return sparqlexpr.NewInteger(0), true
		}
		acc := sparqlexpr.NewInteger(0)
		for _, v := range values {
			next, ok := sparqlexpr.Add(acc, v)
			if !ok {
				return sparqlexpr.Term{}, false
			}
			acc = next
		}
		return sparqlexpr.Divide(acc, sparqlexpr.NewInteger(int64(len(values))))
	case sparqlalgebra.AggMin, sparqlalgebra.AggMax:
		if len(values) == 0 {
			return sparqlexpr.Term{}, false
		}
		best := values[0]
		for _, v := range values[1:] {
			c, ok := best.Compare(v)
			if !ok {
				bp, vp := best, v
				c = sparqlexpr.TotalCompare(&bp, &vp)
			}
			if (a.Function == sparqlalgebra.AggMin && c > 0) ||
				(a.Function == sparqlalgebra.AggMax && c < 0) {
				best = v
			}
		}
		return best, true
	case sparqlalgebra.AggSample:
		if len(values) == 0 {
			return sparqlexpr.Term{}, false
		}
		return values[0], true
	case sparqlalgebra.AggGroupConcat:
		sep := a.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = v.LexicalString()
		}
		return sparqlexpr.NewString(strings.Join(parts, sep)), true
	case sparqlalgebra.AggCustom:
		fn, ok := e.opt.CustomAggregates[a.Name]
		if !ok {
			return sparqlexpr.Term{}, false
		}
		return fn(values)
	default:
		return sparqlexpr.Term{}, false
	}
}

// orderKey is one row's value under one ORDER BY condition: errors
// rank after every comparable value.
type orderKey struct {
	t   *sparqlexpr.Term
	err bool
}

func (e *Evaluator) evalOrderBy(n sparqlalgebra.OrderBy, in Solution, g *encoding.EncodedTerm) Solutions {
	type keyed struct {
		row  Solution
		keys []orderKey
	}
	compiled := make([]sparqlexpr.Compiled, len(n.Conditions))
	vars := make([]sparqlalgebra.Variable, len(n.Conditions))
	for i, c := range n.Conditions {
		compiled[i] = e.expr.Compile(c.Expr)
		if v, ok := c.Expr.(sparqlalgebra.VarExpr); ok {
			vars[i] = v.Name
		}
	}
	var (
		rows []keyed
		pos  int
		run  bool
	)
	return &funcSolutions{
		next: func(ctx context.Context) (Solution, bool, error) {
			if !run {
				inner, err := drain(ctx, e.eval(n.Inner, in, g))
				if err != nil {
					return nil, false, err
				}
				for _, row := range inner {
					keys := make([]orderKey, len(compiled))
					for i := range compiled {
						// A bare unbound variable is a missing value (sorts
						// first), not an error (sorts last).
						if vars[i] != "" {
							if _, bound := row[vars[i]]; !bound {
								keys[i] = orderKey{}
								continue
							}
						}
						if v, ok := compiled[i](row); ok {
							t := v
							keys[i] = orderKey{t: &t}
						} else {
							keys[i] = orderKey{err: true}
						}
					}
					rows = append(rows, keyed{row: row, keys: keys})
				}
				sort.SliceStable(rows, func(i, j int) bool {
					for c := range n.Conditions {
						ka, kb := rows[i].keys[c], rows[j].keys[c]
						if ka.err != kb.err {
							// Errors go last in either direction.
							return kb.err
						}
						cmp := compareOrderKeys(ka, kb)
						if cmp == 0 {
							continue
						}
						if n.Conditions[c].Descending {
							return cmp > 0
						}
						return cmp < 0
					}
					return false
				})
				run = true
			}
			if pos >= len(rows) {
				return nil, false, nil
			}
			row := rows[pos].row
			pos++
			return row, true, nil
		},
	}
}

func compareOrderKeys(a, b orderKey) int {
	switch {
	case a.err && b.err:
		return 0
	case a.err:
		return 1
	case b.err:
		return -1
	default:
		return sparqlexpr.TotalCompare(a.t, b.t)
	}
}
