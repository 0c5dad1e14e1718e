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

package sparqlexpr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	alg "github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/sparqlexpr"
	"github.com/oxigraph/oxigraph-go/term"
)

type tuple map[alg.Variable]term.Value

func (t tuple) Get(v alg.Variable) (term.Value, bool) {
	val, ok := t[v]
	return val, ok
}

func lit(lex string, dt term.IRI) alg.Expression {
	return alg.TermExpr{Value: term.NewTypedLiteral(lex, dt)}
}

func str(s string) alg.Expression { return alg.TermExpr{Value: term.NewString(s)} }

func evalOn(t *testing.T, e alg.Expression, tu tuple) (sparqlexpr.Term, bool) {
	t.Helper()
	ev := sparqlexpr.NewEvaluator(sparqlexpr.Options{})
	return ev.Compile(e)(tu)
}

func eval(t *testing.T, e alg.Expression) (sparqlexpr.Term, bool) {
	return evalOn(t, e, tuple{})
}

func TestNumericPromotion(t *testing.T) {
	v, ok := eval(t, alg.BinaryExpr{Op: alg.OpAdd,
		X: lit("1", term.XSDInteger), Y: lit("2.5", term.XSDDecimal)})
	require.True(t, ok)
	require.Equal(t, sparqlexpr.KindDecimal, v.Kind)
	require.Equal(t, "3.5", v.LexicalString())

	v, ok = eval(t, alg.BinaryExpr{Op: alg.OpMul,
		X: lit("2", term.XSDInteger), Y: lit("3", term.XSDInteger)})
	require.True(t, ok)
	require.Equal(t, sparqlexpr.KindInteger, v.Kind)
	require.Equal(t, "6", v.LexicalString())
}

func TestIntegerDivisionYieldsDecimal(t *testing.T) {
	v, ok := eval(t, alg.BinaryExpr{Op: alg.OpDiv,
		X: lit("7", term.XSDInteger), Y: lit("2", term.XSDInteger)})
	require.True(t, ok)
	require.Equal(t, sparqlexpr.KindDecimal, v.Kind)
	require.Equal(t, "3.5", v.LexicalString())
}

func TestDivisionByZeroErrors(t *testing.T) {
	_, ok := eval(t, alg.BinaryExpr{Op: alg.OpDiv,
		X: lit("1", term.XSDInteger), Y: lit("0", term.XSDInteger)})
	require.False(t, ok)
}

func TestAddStringErrors(t *testing.T) {
	// 1 + "abc" is the error outcome, not a Go error.
	_, ok := eval(t, alg.BinaryExpr{Op: alg.OpAdd,
		X: lit("1", term.XSDInteger), Y: str("abc")})
	require.False(t, ok)
}

func TestThreeValuedAnd(t *testing.T) {
	boolLit := func(b string) alg.Expression { return lit(b, term.XSDBoolean) }
	errExpr := alg.BinaryExpr{Op: alg.OpAdd, X: lit("1", term.XSDInteger), Y: str("x")}

	// error && false is a definite false.
	v, ok := eval(t, alg.BinaryExpr{Op: alg.OpAnd, X: errExpr, Y: boolLit("false")})
	require.True(t, ok)
	require.False(t, v.Bool)

	// error && true propagates the error.
	_, ok = eval(t, alg.BinaryExpr{Op: alg.OpAnd, X: errExpr, Y: boolLit("true")})
	require.False(t, ok)

	// error || true is a definite true.
	v, ok = eval(t, alg.BinaryExpr{Op: alg.OpOr, X: errExpr, Y: boolLit("true")})
	require.True(t, ok)
	require.True(t, v.Bool)
}

func TestCrossTypeEquality(t *testing.T) {
	// Numeric tower: 1 = 1.0 is true.
	v, ok := eval(t, alg.BinaryExpr{Op: alg.OpEqual,
		X: lit("1", term.XSDInteger), Y: lit("1.0", term.XSDDecimal)})
	require.True(t, ok)
	require.True(t, v.Bool)

	// Disjoint kinds compare unequal, not error.
	v, ok = eval(t, alg.BinaryExpr{Op: alg.OpEqual,
		X: str("a"), Y: alg.TermExpr{Value: term.IRI("http://example.org/a")}})
	require.True(t, ok)
	require.False(t, v.Bool)

	// Unknown typed literals with different lexical forms are an error.
	custom := term.IRI("http://example.org/dt")
	_, ok = eval(t, alg.BinaryExpr{Op: alg.OpEqual,
		X: lit("a", custom), Y: lit("b", custom)})
	require.False(t, ok)
}

func TestInExpression(t *testing.T) {
	v, ok := eval(t, alg.InExpr{X: lit("2", term.XSDInteger),
		List: []alg.Expression{lit("1", term.XSDInteger), lit("2", term.XSDInteger)}})
	require.True(t, ok)
	require.True(t, v.Bool)

	v, ok = eval(t, alg.InExpr{X: lit("3", term.XSDInteger),
		List: []alg.Expression{lit("1", term.XSDInteger)}, Negated: true})
	require.True(t, ok)
	require.True(t, v.Bool)
}

func TestStringFunctions(t *testing.T) {
	fc := func(f alg.Function, args ...alg.Expression) alg.Expression {
		return alg.FunctionCall{Function: f, Args: args}
	}
	v, ok := eval(t, fc(alg.FuncStrLen, str("héllo")))
	require.True(t, ok)
	require.Equal(t, "5", v.LexicalString())

	v, ok = eval(t, fc(alg.FuncUCase, str("abc")))
	require.True(t, ok)
	require.Equal(t, "ABC", v.LexicalString())

	v, ok = eval(t, fc(alg.FuncSubStr, str("hello"), lit("2", term.XSDInteger), lit("3", term.XSDInteger)))
	require.True(t, ok)
	require.Equal(t, "ell", v.LexicalString())

	v, ok = eval(t, fc(alg.FuncConcat, str("foo"), str("bar")))
	require.True(t, ok)
	require.Equal(t, "foobar", v.LexicalString())

	v, ok = eval(t, fc(alg.FuncStrBefore, str("abc"), str("b")))
	require.True(t, ok)
	require.Equal(t, "a", v.LexicalString())

	v, ok = eval(t, fc(alg.FuncStrAfter, str("abc"), str("b")))
	require.True(t, ok)
	require.Equal(t, "c", v.LexicalString())

	v, ok = eval(t, fc(alg.FuncEncodeForURI, str("a b/c")))
	require.True(t, ok)
	require.Equal(t, "a%20b%2Fc", v.LexicalString())
}

func TestUCasePreservesLanguageTag(t *testing.T) {
	v, ok := eval(t, alg.FunctionCall{Function: alg.FuncUCase,
		Args: []alg.Expression{alg.TermExpr{Value: term.NewLangString("chat", "fr")}}})
	require.True(t, ok)
	require.Equal(t, sparqlexpr.KindLangString, v.Kind)
	require.Equal(t, "fr", v.Lang)
	require.Equal(t, "CHAT", v.Str)
}

func TestLangMatches(t *testing.T) {
	match := func(tag, rng string) bool {
		v, ok := eval(t, alg.FunctionCall{Function: alg.FuncLangMatches,
			Args: []alg.Expression{str(tag), str(rng)}})
		require.True(t, ok)
		return v.Bool
	}
	require.True(t, match("en-US", "en"))
	require.True(t, match("en", "*"))
	require.False(t, match("fr", "en"))
	require.False(t, match("en", "en-US"))
}

func TestRegex(t *testing.T) {
	re := func(text, pattern, flags string) (sparqlexpr.Term, bool) {
		args := []alg.Expression{str(text), str(pattern)}
		if flags != "" {
			args = append(args, str(flags))
		}
		return eval(t, alg.FunctionCall{Function: alg.FuncRegex, Args: args})
	}
	v, ok := re("Hello", "^hel", "i")
	require.True(t, ok)
	require.True(t, v.Bool)

	v, ok = re("Hello", "^hel", "")
	require.True(t, ok)
	require.False(t, v.Bool)

	// Unknown flag is an error.
	_, ok = re("x", "x", "g")
	require.False(t, ok)
}

func TestReplace(t *testing.T) {
	v, ok := eval(t, alg.FunctionCall{Function: alg.FuncReplace,
		Args: []alg.Expression{str("abcd"), str("b(c)"), str("$1x")}})
	require.True(t, ok)
	require.Equal(t, "acxd", v.LexicalString())
}

func TestHashes(t *testing.T) {
	v, ok := eval(t, alg.FunctionCall{Function: alg.FuncMD5, Args: []alg.Expression{str("abc")}})
	require.True(t, ok)
	require.Equal(t, "900150983cd24fb0d6963f7d28e17f72", v.LexicalString())

	v, ok = eval(t, alg.FunctionCall{Function: alg.FuncSHA1, Args: []alg.Expression{str("abc")}})
	require.True(t, ok)
	require.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", v.LexicalString())

	v, ok = eval(t, alg.FunctionCall{Function: alg.FuncSHA256, Args: []alg.Expression{str("abc")}})
	require.True(t, ok)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", v.LexicalString())
}

func TestDateAccessors(t *testing.T) {
	dt := lit("2024-03-05T10:15:30Z", term.XSDDateTime)
	fc := func(f alg.Function) alg.Expression {
		return alg.FunctionCall{Function: f, Args: []alg.Expression{dt}}
	}
	for _, tc := range []struct {
		fn   alg.Function
		want string
	}{
		{alg.FuncYear, "2024"},
		{alg.FuncMonth, "3"},
		{alg.FuncDay, "5"},
		{alg.FuncHours, "10"},
		{alg.FuncMinutes, "15"},
		{alg.FuncSeconds, "30"},
		{alg.FuncTz, "Z"},
	} {
		v, ok := eval(t, fc(tc.fn))
		require.True(t, ok)
		require.Equal(t, tc.want, v.LexicalString())
	}
}

func TestDatePlusDuration(t *testing.T) {
	v, ok := eval(t, alg.BinaryExpr{Op: alg.OpAdd,
		X: lit("2024-01-31", term.XSDDate),
		Y: lit("P1M", term.XSDYMDuration)})
	require.True(t, ok)
	// Month-first arithmetic clamps to the target month's length.
	require.Equal(t, "2024-02-29", v.LexicalString())
}

func TestCasts(t *testing.T) {
	cast := func(dt term.IRI, arg alg.Expression) (sparqlexpr.Term, bool) {
		return eval(t, alg.NamedFunctionCall{Name: dt, Args: []alg.Expression{arg}})
	}
	v, ok := cast(term.XSDInteger, str("42"))
	require.True(t, ok)
	require.Equal(t, "42", v.LexicalString())

	v, ok = cast(term.XSDBoolean, lit("1", term.XSDInteger))
	require.True(t, ok)
	require.True(t, v.Bool)

	v, ok = cast(term.XSDDouble, str("1.5e2"))
	require.True(t, ok)
	require.Equal(t, sparqlexpr.KindDouble, v.Kind)

	v, ok = cast(term.XSDInteger, lit("3.9", term.XSDDecimal))
	require.True(t, ok)
	require.Equal(t, "3", v.LexicalString())

	_, ok = cast(term.XSDInteger, str("not a number"))
	require.False(t, ok)
}

func TestCustomFunctionPrecedesCast(t *testing.T) {
	custom := term.IRI("http://example.org/fn")
	ev := sparqlexpr.NewEvaluator(sparqlexpr.Options{
		Custom: map[term.IRI]sparqlexpr.CustomFunction{
			custom: func(args []sparqlexpr.Term) (sparqlexpr.Term, bool) {
				return sparqlexpr.NewInteger(7), true
			},
		},
	})
	v, ok := ev.Compile(alg.NamedFunctionCall{Name: custom})(tuple{})
	require.True(t, ok)
	require.Equal(t, "7", v.LexicalString())
}

func TestBoundAndCoalesce(t *testing.T) {
	tu := tuple{"x": term.NewString("v")}
	v, ok := evalOn(t, alg.FunctionCall{Function: alg.FuncBound,
		Args: []alg.Expression{alg.VarExpr{Name: "x"}}}, tu)
	require.True(t, ok)
	require.True(t, v.Bool)

	v, ok = evalOn(t, alg.FunctionCall{Function: alg.FuncBound,
		Args: []alg.Expression{alg.VarExpr{Name: "y"}}}, tu)
	require.True(t, ok)
	require.False(t, v.Bool)

	v, ok = evalOn(t, alg.CoalesceExpr{Args: []alg.Expression{
		alg.VarExpr{Name: "missing"}, str("fallback"),
	}}, tu)
	require.True(t, ok)
	require.Equal(t, "fallback", v.LexicalString())
}

func TestIfAndTermTests(t *testing.T) {
	v, ok := eval(t, alg.IfExpr{
		Cond: lit("true", term.XSDBoolean), Then: str("y"), Else: str("n")})
	require.True(t, ok)
	require.Equal(t, "y", v.LexicalString())

	v, ok = eval(t, alg.FunctionCall{Function: alg.FuncIsIRI,
		Args: []alg.Expression{alg.TermExpr{Value: term.IRI("http://e/x")}}})
	require.True(t, ok)
	require.True(t, v.Bool)

	v, ok = eval(t, alg.FunctionCall{Function: alg.FuncIsNumeric,
		Args: []alg.Expression{lit("3", term.XSDInteger)}})
	require.True(t, ok)
	require.True(t, v.Bool)
}

func TestTripleConstructors(t *testing.T) {
	s := alg.TermExpr{Value: term.IRI("http://e/s")}
	p := alg.TermExpr{Value: term.IRI("http://e/p")}
	o := str("o")
	tr, ok := eval(t, alg.FunctionCall{Function: alg.FuncTriple, Args: []alg.Expression{s, p, o}})
	require.True(t, ok)
	require.Equal(t, sparqlexpr.KindTriple, tr.Kind)

	ev := sparqlexpr.NewEvaluator(sparqlexpr.Options{})
	subj, ok := ev.Compile(alg.FunctionCall{Function: alg.FuncSubject,
		Args: []alg.Expression{alg.TermExpr{Value: tr.ToValue()}}})(tuple{})
	require.True(t, ok)
	require.Equal(t, "http://e/s", subj.Str)
}

func TestUnaryMinus(t *testing.T) {
	v, ok := eval(t, alg.UnaryExpr{Op: alg.OpUnaryMinus, X: lit("4", term.XSDInteger)})
	require.True(t, ok)
	require.Equal(t, "-4", v.LexicalString())
}

func TestTotalCompareOrdering(t *testing.T) {
	iri := sparqlexpr.NewNamedNode("http://e/a")
	blank := sparqlexpr.NewBlankNode("b")
	litA := sparqlexpr.NewString("a")
	require.Less(t, sparqlexpr.TotalCompare(nil, &blank), 0)
	require.Less(t, sparqlexpr.TotalCompare(&blank, &iri), 0)
	require.Less(t, sparqlexpr.TotalCompare(&iri, &litA), 0)
}
