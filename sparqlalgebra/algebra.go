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

// Package sparqlalgebra defines the SPARQL algebra tree consumed by
// the plan executor: pattern operators, property paths, expressions,
// query forms and update operations. The core never parses SPARQL
// text; an external parser produces these values.
//
// The operator set is a closed sum: each node type carries an
// unexported marker method and the evaluator dispatches in one type
// switch.
package sparqlalgebra

import (
	"fmt"
	"strings"

	"github.com/oxigraph/oxigraph-go/term"
)

// Variable is a SPARQL variable name, without the leading '?'.
type Variable string

func (v Variable) String() string { return "?" + string(v) }

// TermOrVar is one position of a triple pattern: a ground term or a
// variable.
type TermOrVar struct {
	Term term.Value // nil when Var is set
	Var  Variable
}

// Term wraps a ground term.
func Term(t term.Value) TermOrVar { return TermOrVar{Term: t} }

// Var wraps a variable.
func Var(v Variable) TermOrVar { return TermOrVar{Var: v} }

// IsVar reports whether the position is a variable.
func (tv TermOrVar) IsVar() bool { return tv.Term == nil }

func (tv TermOrVar) String() string {
	if tv.IsVar() {
		return tv.Var.String()
	}
	return tv.Term.String()
}

// TriplePattern is one pattern of a BGP.
type TriplePattern struct {
	Subject   TermOrVar
	Predicate TermOrVar
	Object    TermOrVar
}

func (p TriplePattern) String() string {
	return fmt.Sprintf("%s %s %s", p.Subject, p.Predicate, p.Object)
}

// Variables lists the distinct variables of the pattern.
func (p TriplePattern) Variables() []Variable {
	var out []Variable
	add := func(tv TermOrVar) {
		if !tv.IsVar() {
			return
		}
		for _, v := range out {
			if v == tv.Var {
				return
			}
		}
		out = append(out, tv.Var)
	}
	add(p.Subject)
	add(p.Predicate)
	add(p.Object)
	return out
}

// Pattern is a node of the algebra tree.
type Pattern interface {
	fmt.Stringer
	isPattern()
}

// Bgp is a basic graph pattern: a conjunction of triple patterns.
type Bgp struct {
	Patterns []TriplePattern
}

// Path matches a property-path expression between two positions.
type Path struct {
	Subject TermOrVar
	Path    PathExpression
	Object  TermOrVar
}

// Join is the multiset join of two patterns.
type Join struct {
	Left, Right Pattern
}

// LeftJoin is OPTIONAL: left, extended with right where Expr holds.
type LeftJoin struct {
	Left, Right Pattern
	Expr        Expression // nil means true
}

// Lateral (SEP-0006) is like Join but Right may reference Left's
// bindings.
type Lateral struct {
	Left, Right Pattern
}

// Union is the multiset union of two patterns.
type Union struct {
	Left, Right Pattern
}

// Minus removes left rows with a domain-compatible right row.
type Minus struct {
	Left, Right Pattern
}

// Filter keeps rows where Expr evaluates to true; errors drop the row.
type Filter struct {
	Expr  Expression
	Inner Pattern
}

// Extend is BIND: adds Var bound to Expr to each solution.
type Extend struct {
	Inner Pattern
	Var   Variable
	Expr  Expression
}

// Group partitions by key expressions and computes aggregates.
type Group struct {
	Inner      Pattern
	Keys       []Variable
	Aggregates []AggregateBinding
}

// AggregateBinding binds one aggregate's value to a variable.
type AggregateBinding struct {
	Var       Variable
	Aggregate Aggregate
}

// Aggregate is one aggregate computation.
type Aggregate struct {
	Function  AggregateFunction
	Name      term.IRI // custom aggregate IRI when Function == AggCustom
	Expr      Expression
	Distinct  bool
	Separator string // GROUP_CONCAT; defaults to " "
}

// AggregateFunction enumerates the built-in aggregates.
type AggregateFunction int

const (
	AggCount AggregateFunction = iota
	AggCountAll
	AggSum
	AggMin
	AggMax
	AggAvg
	AggSample
	AggGroupConcat
	AggCustom
)

// OrderBy sorts by the listed conditions.
type OrderBy struct {
	Inner      Pattern
	Conditions []OrderCondition
}

// OrderCondition is one (expression, direction) sort key.
type OrderCondition struct {
	Expr       Expression
	Descending bool
}

// Project restricts output to the listed variables.
type Project struct {
	Inner Pattern
	Vars  []Variable
}

// Distinct removes duplicate solutions.
type Distinct struct {
	Inner Pattern
}

// Reduced permits (best-effort) duplicate removal.
type Reduced struct {
	Inner Pattern
}

// Slice applies OFFSET/LIMIT. Limit < 0 means unlimited.
type Slice struct {
	Inner  Pattern
	Offset int64
	Limit  int64
}

// Service delegates Inner to a federated endpoint.
type Service struct {
	Name   TermOrVar
	Inner  Pattern
	Silent bool
}

// Values inlines solutions; nil cells stay unbound.
type Values struct {
	Vars []Variable
	Rows [][]term.Value
}

// Graph evaluates Inner with the active graph pinned to Name (a term)
// or iterated over the dataset's named graphs (a variable).
type Graph struct {
	Name  TermOrVar
	Inner Pattern
}

func (Bgp) isPattern()      {}
func (Path) isPattern()     {}
func (Join) isPattern()     {}
func (LeftJoin) isPattern() {}
func (Lateral) isPattern()  {}
func (Union) isPattern()    {}
func (Minus) isPattern()    {}
func (Filter) isPattern()   {}
func (Extend) isPattern()   {}
func (Group) isPattern()    {}
func (OrderBy) isPattern()  {}
func (Project) isPattern()  {}
func (Distinct) isPattern() {}
func (Reduced) isPattern()  {}
func (Slice) isPattern()    {}
func (Service) isPattern()  {}
func (Values) isPattern()   {}
func (Graph) isPattern()    {}

func (p Bgp) String() string {
	parts := make([]string, len(p.Patterns))
	for i, tp := range p.Patterns {
		parts[i] = tp.String()
	}
	return "BGP(" + strings.Join(parts, " . ") + ")"
}
func (p Path) String() string     { return fmt.Sprintf("Path(%s %s %s)", p.Subject, p.Path, p.Object) }
func (p Join) String() string     { return fmt.Sprintf("Join(%s, %s)", p.Left, p.Right) }
func (p LeftJoin) String() string { return fmt.Sprintf("LeftJoin(%s, %s)", p.Left, p.Right) }
func (p Lateral) String() string  { return fmt.Sprintf("Lateral(%s, %s)", p.Left, p.Right) }
func (p Union) String() string    { return fmt.Sprintf("Union(%s, %s)", p.Left, p.Right) }
func (p Minus) String() string    { return fmt.Sprintf("Minus(%s, %s)", p.Left, p.Right) }
func (p Filter) String() string   { return fmt.Sprintf("Filter(%s, %s)", p.Expr, p.Inner) }
func (p Extend) String() string   { return fmt.Sprintf("Extend(%s, %s := %s)", p.Inner, p.Var, p.Expr) }
func (p Group) String() string    { return fmt.Sprintf("Group(%s)", p.Inner) }
func (p OrderBy) String() string  { return fmt.Sprintf("OrderBy(%s)", p.Inner) }
func (p Project) String() string  { return fmt.Sprintf("Project(%s, %v)", p.Inner, p.Vars) }
func (p Distinct) String() string { return fmt.Sprintf("Distinct(%s)", p.Inner) }
func (p Reduced) String() string  { return fmt.Sprintf("Reduced(%s)", p.Inner) }
func (p Slice) String() string {
	return fmt.Sprintf("Slice(%s, offset=%d, limit=%d)", p.Inner, p.Offset, p.Limit)
}
func (p Service) String() string { return fmt.Sprintf("Service(%s, %s)", p.Name, p.Inner) }
func (p Values) String() string  { return fmt.Sprintf("Values(%v, %d rows)", p.Vars, len(p.Rows)) }
func (p Graph) String() string   { return fmt.Sprintf("Graph(%s, %s)", p.Name, p.Inner) }
