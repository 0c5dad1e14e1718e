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

package sparqlexpr

import (
	"math/big"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/term"
)

// Tuple is one solution row as the evaluator sees it: variable lookups
// into the current bindings.
type Tuple interface {
	Get(v sparqlalgebra.Variable) (term.Value, bool)
}

// Compiled is a compiled expression: a pure per-tuple function whose
// false second result is the SPARQL error outcome.
type Compiled func(Tuple) (Term, bool)

// ExistsFunc evaluates a nested pattern against the current tuple's
// bindings, supplied by the plan executor to break the layering the
// other way around.
type ExistsFunc func(p sparqlalgebra.Pattern, t Tuple) (bool, error)

// CustomFunction extends the evaluator under a caller-chosen IRI.
type CustomFunction func(args []Term) (Term, bool)

// Options configure an Evaluator.
type Options struct {
	// Base resolves relative IRIs in IRI().
	Base string
	// Now is the fixed query timestamp NOW() returns.
	Now term.DateTime
	// Custom is the IRI → callable registry consulted before the XSD
	// cast matrix.
	Custom map[term.IRI]CustomFunction
	// Exists evaluates EXISTS sub-patterns; nil makes EXISTS an error.
	Exists ExistsFunc
}

// Evaluator compiles expression ASTs. One Evaluator lives for one query
// execution: BNODE(label) determinism and the regex cache are scoped to
// it.
type Evaluator struct {
	opt Options

	mu      sync.Mutex
	regexes map[string]*regexp2.Regexp
	bnodes  map[string]term.BlankNode
}

// NewEvaluator builds an evaluator with the given options.
func NewEvaluator(opt Options) *Evaluator {
	return &Evaluator{
		opt:     opt,
		regexes: make(map[string]*regexp2.Regexp),
		bnodes:  make(map[string]term.BlankNode),
	}
}

var errTerm = Term{}

// Compile turns expr into a per-tuple function.
func (e *Evaluator) Compile(expr sparqlalgebra.Expression) Compiled {
	switch n := expr.(type) {
	case sparqlalgebra.TermExpr:
		t, ok := FromValue(n.Value)
		return func(Tuple) (Term, bool) { return t, ok }
	case sparqlalgebra.VarExpr:
		name := n.Name
		return func(tu Tuple) (Term, bool) {
			v, ok := tu.Get(name)
			if !ok || v == nil {
				return errTerm, false
			}
			return FromValue(v)
		}
	case sparqlalgebra.UnaryExpr:
		return e.compileUnary(n)
	case sparqlalgebra.BinaryExpr:
		return e.compileBinary(n)
	case sparqlalgebra.InExpr:
		return e.compileIn(n)
	case sparqlalgebra.IfExpr:
		cond, then, els := e.Compile(n.Cond), e.Compile(n.Then), e.Compile(n.Else)
		return func(tu Tuple) (Term, bool) {
			c, ok := cond(tu)
			if !ok {
				return errTerm, false
			}
			b, ok := c.EffectiveBoolean()
			if !ok {
				return errTerm, false
			}
			if b {
				return then(tu)
			}
			return els(tu)
		}
	case sparqlalgebra.CoalesceExpr:
		args := e.compileAll(n.Args)
		return func(tu Tuple) (Term, bool) {
			for _, a := range args {
				if v, ok := a(tu); ok {
					return v, true
				}
			}
			return errTerm, false
		}
	case sparqlalgebra.ExistsExpr:
		pattern, negated := n.Pattern, n.Negated
		return func(tu Tuple) (Term, bool) {
			if e.opt.Exists == nil {
				return errTerm, false
			}
			found, err := e.opt.Exists(pattern, tu)
			if err != nil {
				return errTerm, false
			}
			return NewBoolean(found != negated), true
		}
	case sparqlalgebra.FunctionCall:
		return e.compileFunction(n)
	case sparqlalgebra.NamedFunctionCall:
		return e.compileNamed(n)
	default:
		return func(Tuple) (Term, bool) { return errTerm, false }
	}
}

func (e *Evaluator) compileAll(exprs []sparqlalgebra.Expression) []Compiled {
	out := make([]Compiled, len(exprs))
	for i, x := range exprs {
		out[i] = e.Compile(x)
	}
	return out
}

func (e *Evaluator) compileUnary(n sparqlalgebra.UnaryExpr) Compiled {
	x := e.Compile(n.X)
	switch n.Op {
	case sparqlalgebra.OpNot:
		return func(tu Tuple) (Term, bool) {
			v, ok := x(tu)
			if !ok {
				return errTerm, false
			}
			b, ok := v.EffectiveBoolean()
			if !ok {
				return errTerm, false
			}
			return NewBoolean(!b), true
		}
	case sparqlalgebra.OpUnaryMinus:
		return func(tu Tuple) (Term, bool) {
			v, ok := x(tu)
			if !ok {
				return errTerm, false
			}
			return negate(v)
		}
	default: // unary plus: numeric identity
		return func(tu Tuple) (Term, bool) {
			v, ok := x(tu)
			if !ok || !v.IsNumeric() {
				return errTerm, false
			}
			return v, true
		}
	}
}

func negate(v Term) (Term, bool) {
	switch v.Kind {
	case KindInteger:
		return NewIntegerBig(new(big.Int).Neg(v.Int)), true
	case KindDecimal:
		zero, _ := term.NewDecimalFromString("0")
		return NewDecimal(zero.Sub(v.Dec)), true
	case KindFloat:
		return NewFloat(-v.F32), true
	case KindDouble:
		return NewDouble(-v.F64), true
	case KindDuration:
		d := v.Dur
		d.Negative = !d.Negative
		return NewDuration(d, v.Datatype), true
	default:
		return errTerm, false
	}
}

func (e *Evaluator) compileBinary(n sparqlalgebra.BinaryExpr) Compiled {
	x, y := e.Compile(n.X), e.Compile(n.Y)
	switch n.Op {
	case sparqlalgebra.OpAnd:
		return func(tu Tuple) (Term, bool) {
			// Three-valued: a definite false on either side wins over an
			// error on the other.
			lv, lok := x(tu)
			var lb bool
			if lok {
				lb, lok = lv.EffectiveBoolean()
			}
			if lok && !lb {
				return NewBoolean(false), true
			}
			rv, rok := y(tu)
			var rb bool
			if rok {
				rb, rok = rv.EffectiveBoolean()
			}
			if rok && !rb {
				return NewBoolean(false), true
			}
			if lok && rok {
				return NewBoolean(true), true
			}
			return errTerm, false
		}
	case sparqlalgebra.OpOr:
		return func(tu Tuple) (Term, bool) {
			lv, lok := x(tu)
			var lb bool
			if lok {
				lb, lok = lv.EffectiveBoolean()
			}
			if lok && lb {
				return NewBoolean(true), true
			}
			rv, rok := y(tu)
			var rb bool
			if rok {
				rb, rok = rv.EffectiveBoolean()
			}
			if rok && rb {
				return NewBoolean(true), true
			}
			if lok && rok {
				return NewBoolean(false), true
			}
			return errTerm, false
		}
	case sparqlalgebra.OpSameTerm:
		return func(tu Tuple) (Term, bool) {
			a, ok := x(tu)
			if !ok {
				return errTerm, false
			}
			b, ok := y(tu)
			if !ok {
				return errTerm, false
			}
			return NewBoolean(a.SameTerm(b)), true
		}
	case sparqlalgebra.OpEqual, sparqlalgebra.OpNotEqual:
		negated := n.Op == sparqlalgebra.OpNotEqual
		return func(tu Tuple) (Term, bool) {
			a, ok := x(tu)
			if !ok {
				return errTerm, false
			}
			b, ok := y(tu)
			if !ok {
				return errTerm, false
			}
			eq, ok := a.Equals(b)
			if !ok {
				return errTerm, false
			}
			return NewBoolean(eq != negated), true
		}
	case sparqlalgebra.OpLess, sparqlalgebra.OpLessOrEqual,
		sparqlalgebra.OpGreater, sparqlalgebra.OpGreaterOrEqual:
		op := n.Op
		return func(tu Tuple) (Term, bool) {
			a, ok := x(tu)
			if !ok {
				return errTerm, false
			}
			b, ok := y(tu)
			if !ok {
				return errTerm, false
			}
			c, ok := a.Compare(b)
			if !ok {
				return errTerm, false
			}
			switch op {
			case sparqlalgebra.OpLess:
				return NewBoolean(c < 0), true
			case sparqlalgebra.OpLessOrEqual:
				return NewBoolean(c <= 0), true
			case sparqlalgebra.OpGreater:
				return NewBoolean(c > 0), true
			default:
				return NewBoolean(c >= 0), true
			}
		}
	default: // arithmetic
		op := n.Op
		return func(tu Tuple) (Term, bool) {
			a, ok := x(tu)
			if !ok {
				return errTerm, false
			}
			b, ok := y(tu)
			if !ok {
				return errTerm, false
			}
			return arith(op, a, b)
		}
	}
}

// arith implements + - * / over the promoted numeric tower plus the
// date±duration and duration±duration forms.
func arith(op sparqlalgebra.BinaryOp, a, b Term) (Term, bool) {
	if a.Kind == KindDateTime || a.Kind == KindDuration || b.Kind == KindDateTime || b.Kind == KindDuration {
		return temporalArith(op, a, b)
	}
	pa, pb, k, ok := numericPair(a, b)
	if !ok {
		return errTerm, false
	}
	switch k {
	case KindInteger:
		switch op {
		case sparqlalgebra.OpAdd:
			return NewIntegerBig(new(big.Int).Add(pa.Int, pb.Int)), true
		case sparqlalgebra.OpSub:
			return NewIntegerBig(new(big.Int).Sub(pa.Int, pb.Int)), true
		case sparqlalgebra.OpMul:
			return NewIntegerBig(new(big.Int).Mul(pa.Int, pb.Int)), true
		default:
			// Integer division yields a decimal.
			da, _ := term.NewDecimalFromString(pa.Int.String())
			db, _ := term.NewDecimalFromString(pb.Int.String())
			q, ok := da.Div(db)
			if !ok {
				return errTerm, false
			}
			return NewDecimal(q), true
		}
	case KindDecimal:
		switch op {
		case sparqlalgebra.OpAdd:
			return NewDecimal(pa.Dec.Add(pb.Dec)), true
		case sparqlalgebra.OpSub:
			return NewDecimal(pa.Dec.Sub(pb.Dec)), true
		case sparqlalgebra.OpMul:
			return NewDecimal(pa.Dec.Mul(pb.Dec)), true
		default:
			q, ok := pa.Dec.Div(pb.Dec)
			if !ok {
				return errTerm, false
			}
			return NewDecimal(q), true
		}
	case KindFloat:
		af, bf := pa.F32, pb.F32
		switch op {
		case sparqlalgebra.OpAdd:
			return NewFloat(af + bf), true
		case sparqlalgebra.OpSub:
			return NewFloat(af - bf), true
		case sparqlalgebra.OpMul:
			return NewFloat(af * bf), true
		default:
			return NewFloat(af / bf), true
		}
	default:
		af, bf := pa.F64, pb.F64
		switch op {
		case sparqlalgebra.OpAdd:
			return NewDouble(af + bf), true
		case sparqlalgebra.OpSub:
			return NewDouble(af - bf), true
		case sparqlalgebra.OpMul:
			return NewDouble(af * bf), true
		default:
			return NewDouble(af / bf), true
		}
	}
}

func temporalArith(op sparqlalgebra.BinaryOp, a, b Term) (Term, bool) {
	switch {
	case op == sparqlalgebra.OpAdd && a.Kind == KindDateTime && b.Kind == KindDuration:
		return NewDateTime(a.DT.AddDuration(b.Dur), a.Datatype), true
	case op == sparqlalgebra.OpAdd && a.Kind == KindDuration && b.Kind == KindDateTime:
		return NewDateTime(b.DT.AddDuration(a.Dur), b.Datatype), true
	case op == sparqlalgebra.OpSub && a.Kind == KindDateTime && b.Kind == KindDuration:
		neg := b.Dur
		neg.Negative = !neg.Negative
		return NewDateTime(a.DT.AddDuration(neg), a.Datatype), true
	case op == sparqlalgebra.OpSub && a.Kind == KindDateTime && b.Kind == KindDateTime:
		return NewDuration(a.DT.Sub(b.DT), term.XSDDTDuration), true
	case a.Kind == KindDuration && b.Kind == KindDuration &&
		(op == sparqlalgebra.OpAdd || op == sparqlalgebra.OpSub):
		return addDurations(op, a, b)
	default:
		return errTerm, false
	}
}

func addDurations(op sparqlalgebra.BinaryOp, a, b Term) (Term, bool) {
	sign := func(d term.Duration) int {
		if d.Negative {
			return -1
		}
		return 1
	}
	as, bs := sign(a.Dur), sign(b.Dur)
	if op == sparqlalgebra.OpSub {
		bs = -bs
	}
	months := as*a.Dur.Months + bs*b.Dur.Months
	days := as*a.Dur.Days + bs*b.Dur.Days
	secs := as*a.Dur.Seconds + bs*b.Dur.Seconds
	nanos := as*a.Dur.Nanos + bs*b.Dur.Nanos
	// Mixed-sign components of a general duration are not representable.
	neg := false
	if months < 0 || (months == 0 && (days < 0 || secs < 0 || nanos < 0)) {
		neg = true
		months, days, secs, nanos = -months, -days, -secs, -nanos
	}
	if days < 0 || secs < 0 || nanos < 0 {
		return errTerm, false
	}
	dt := a.Datatype
	if b.Datatype != dt {
		dt = term.XSDDuration
	}
	return NewDuration(term.Duration{Months: months, Days: days, Seconds: secs, Nanos: nanos, Negative: neg}, dt), true
}

func (e *Evaluator) compileIn(n sparqlalgebra.InExpr) Compiled {
	x := e.Compile(n.X)
	list := e.compileAll(n.List)
	negated := n.Negated
	return func(tu Tuple) (Term, bool) {
		v, ok := x(tu)
		if !ok {
			return errTerm, false
		}
		anyErr := false
		for _, item := range list {
			iv, ok := item(tu)
			if !ok {
				anyErr = true
				continue
			}
			eq, ok := v.Equals(iv)
			if !ok {
				anyErr = true
				continue
			}
			if eq {
				return NewBoolean(!negated), true
			}
		}
		if anyErr {
			return errTerm, false
		}
		return NewBoolean(negated), true
	}
}

// Add and Divide expose the arithmetic tower for aggregate folding
// (SUM/AVG in the plan executor).
func Add(a, b Term) (Term, bool) { return arith(sparqlalgebra.OpAdd, a, b) }

// Divide divides a by b with the numeric promotion rules.
func Divide(a, b Term) (Term, bool) { return arith(sparqlalgebra.OpDiv, a, b) }
