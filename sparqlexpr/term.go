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

// Package sparqlexpr implements the expression evaluator: a typed term
// universe and a compiler from the algebra's expression AST to
// per-tuple functions. An absent result models the SPARQL "error"
// outcome; it is a value, never a Go error.
//
// Like encoding.EncodedTerm, Term is a tagged struct rather than an
// interface, so every operation is one switch over Kind. Arithmetic
// rides the shopspring/decimal fixed-point tower for xsd:decimal and
// math/big for xsd:integer's arbitrary precision.
package sparqlexpr

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/oxigraph/oxigraph-go/term"
)

// Kind discriminates the variants of Term.
type Kind byte

const (
	KindNamedNode Kind = iota
	KindBlankNode
	KindString
	KindLangString
	KindBoolean
	KindInteger
	KindDecimal
	KindFloat
	KindDouble
	KindDateTime // xsd:dateTime/date/time/g* families, per Datatype
	KindDuration // xsd:duration families, per Datatype
	KindTyped    // unrecognized datatype, opaque lexical value
	KindTriple
)

// Term is one value of the expression universe.
type Term struct {
	Kind Kind

	Str      string // IRI, blank node id, or lexical value
	Lang     string
	Dir      term.BaseDirection
	Datatype term.IRI // KindTyped, and the temporal sub-datatype

	Bool bool
	Int  *big.Int
	Dec  term.Decimal128
	F32  float32
	F64  float64
	DT   term.DateTime
	Dur  term.Duration

	Triple *Triple
}

// Triple is the RDF 1.2 triple-term variant.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Constructors.

func NewNamedNode(iri term.IRI) Term  { return Term{Kind: KindNamedNode, Str: string(iri)} }
func NewBlankNode(id string) Term     { return Term{Kind: KindBlankNode, Str: id} }
func NewString(s string) Term         { return Term{Kind: KindString, Str: s} }
func NewBoolean(b bool) Term          { return Term{Kind: KindBoolean, Bool: b} }
func NewInteger(n int64) Term         { return Term{Kind: KindInteger, Int: big.NewInt(n)} }
func NewIntegerBig(n *big.Int) Term   { return Term{Kind: KindInteger, Int: n} }
func NewDouble(f float64) Term        { return Term{Kind: KindDouble, F64: f} }
func NewFloat(f float32) Term         { return Term{Kind: KindFloat, F32: f} }
func NewDecimal(d term.Decimal128) Term { return Term{Kind: KindDecimal, Dec: d} }

func NewLangString(s, lang string) Term {
	return Term{Kind: KindLangString, Str: s, Lang: lang}
}

func NewDirLangString(s, lang string, dir term.BaseDirection) Term {
	return Term{Kind: KindLangString, Str: s, Lang: lang, Dir: dir}
}

func NewDateTime(dt term.DateTime, datatype term.IRI) Term {
	return Term{Kind: KindDateTime, DT: dt, Datatype: datatype}
}

func NewDuration(d term.Duration, datatype term.IRI) Term {
	return Term{Kind: KindDuration, Dur: d, Datatype: datatype}
}

// FromValue lifts an RDF term into the expression universe.
func FromValue(v term.Value) (Term, bool) {
	switch t := v.(type) {
	case term.IRI:
		return NewNamedNode(t), true
	case term.BlankNode:
		return NewBlankNode(string(t)), true
	case term.Literal:
		return fromLiteral(t), true
	case term.Triple:
		s, ok := FromValue(t.Subject)
		if !ok {
			return Term{}, false
		}
		o, ok := FromValue(t.Object)
		if !ok {
			return Term{}, false
		}
		return Term{Kind: KindTriple, Triple: &Triple{
			Subject:   s,
			Predicate: NewNamedNode(t.Predicate),
			Object:    o,
		}}, true
	default:
		return Term{}, false
	}
}

func fromLiteral(l term.Literal) Term {
	switch l.Datatype {
	case term.XSDString, "":
		return NewString(l.Lexical)
	case term.RDFLangString, term.RDFDirLangString:
		return NewDirLangString(l.Lexical, l.Lang, l.Dir)
	case term.XSDBoolean:
		switch l.Lexical {
		case "true", "1":
			return NewBoolean(true)
		case "false", "0":
			return NewBoolean(false)
		}
	case term.XSDInteger:
		if n, ok := new(big.Int).SetString(l.Lexical, 10); ok {
			return NewIntegerBig(n)
		}
	case term.XSDDecimal:
		if d, err := term.NewDecimalFromString(l.Lexical); err == nil {
			return NewDecimal(d)
		}
	case term.XSDFloat:
		if f, err := parseXSDFloat(l.Lexical, 32); err == nil {
			return NewFloat(float32(f))
		}
	case term.XSDDouble:
		if f, err := parseXSDFloat(l.Lexical, 64); err == nil {
			return NewDouble(f)
		}
	case term.XSDDateTime:
		if dt, err := term.ParseDateTime(l.Lexical); err == nil {
			return NewDateTime(dt, l.Datatype)
		}
	case term.XSDDate, term.XSDGYear, term.XSDGMonth, term.XSDGDay,
		term.XSDGYearMonth, term.XSDGMonthDay:
		if dt, err := term.ParseDate(l.Lexical); err == nil {
			return NewDateTime(dt, l.Datatype)
		}
	case term.XSDTime:
		if dt, err := term.ParseTime(l.Lexical); err == nil {
			return NewDateTime(dt, l.Datatype)
		}
	case term.XSDDuration, term.XSDYMDuration, term.XSDDTDuration:
		if d, err := term.ParseDuration(l.Lexical); err == nil {
			return NewDuration(d, l.Datatype)
		}
	}
	return Term{Kind: KindTyped, Str: l.Lexical, Datatype: l.Datatype}
}

func parseXSDFloat(s string, bits int) (float64, error) {
	switch s {
	case "INF", "+INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, bits)
}

// ToValue lowers the expression term back to an RDF term.
func (t Term) ToValue() term.Value {
	switch t.Kind {
	case KindNamedNode:
		return term.IRI(t.Str)
	case KindBlankNode:
		return term.BlankNode(t.Str)
	case KindString:
		return term.NewString(t.Str)
	case KindLangString:
		if t.Dir != term.NoDirection {
			return term.NewDirLangString(t.Str, t.Lang, t.Dir)
		}
		return term.NewLangString(t.Str, t.Lang)
	case KindBoolean:
		return term.NewTypedLiteral(strconv.FormatBool(t.Bool), term.XSDBoolean)
	case KindInteger:
		return term.NewTypedLiteral(t.Int.String(), term.XSDInteger)
	case KindDecimal:
		return term.NewTypedLiteral(t.Dec.String(), term.XSDDecimal)
	case KindFloat:
		return term.NewTypedLiteral(formatXSDFloat(float64(t.F32), 32), term.XSDFloat)
	case KindDouble:
		return term.NewTypedLiteral(formatXSDFloat(t.F64, 64), term.XSDDouble)
	case KindDateTime:
		return term.NewTypedLiteral(t.DT.String(), t.Datatype)
	case KindDuration:
		return term.NewTypedLiteral(t.Dur.String(), t.Datatype)
	case KindTyped:
		return term.NewTypedLiteral(t.Str, t.Datatype)
	case KindTriple:
		return term.Triple{
			Subject:   t.Triple.Subject.ToValue(),
			Predicate: term.IRI(t.Triple.Predicate.Str),
			Object:    t.Triple.Object.ToValue(),
		}
	default:
		return nil
	}
}

func formatXSDFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// DatatypeIRI returns the literal's datatype, or "" for non-literals.
func (t Term) DatatypeIRI() term.IRI {
	switch t.Kind {
	case KindString:
		return term.XSDString
	case KindLangString:
		if t.Dir != term.NoDirection {
			return term.RDFDirLangString
		}
		return term.RDFLangString
	case KindBoolean:
		return term.XSDBoolean
	case KindInteger:
		return term.XSDInteger
	case KindDecimal:
		return term.XSDDecimal
	case KindFloat:
		return term.XSDFloat
	case KindDouble:
		return term.XSDDouble
	case KindDateTime, KindDuration, KindTyped:
		return t.Datatype
	default:
		return ""
	}
}

// IsLiteral reports whether t is a literal of any kind.
func (t Term) IsLiteral() bool {
	switch t.Kind {
	case KindNamedNode, KindBlankNode, KindTriple:
		return false
	default:
		return true
	}
}

// IsNumeric reports whether t participates in the numeric tower.
func (t Term) IsNumeric() bool {
	switch t.Kind {
	case KindInteger, KindDecimal, KindFloat, KindDouble:
		return true
	default:
		return false
	}
}

// LexicalString returns the string form used by STR().
func (t Term) LexicalString() string {
	switch t.Kind {
	case KindNamedNode, KindBlankNode, KindString, KindLangString, KindTyped:
		return t.Str
	case KindBoolean:
		return strconv.FormatBool(t.Bool)
	case KindInteger:
		return t.Int.String()
	case KindDecimal:
		return t.Dec.String()
	case KindFloat:
		return formatXSDFloat(float64(t.F32), 32)
	case KindDouble:
		return formatXSDFloat(t.F64, 64)
	case KindDateTime:
		return t.DT.String()
	case KindDuration:
		return t.Dur.String()
	default:
		return ""
	}
}

// EffectiveBoolean computes the SPARQL effective boolean value; the
// second result is false for the error outcome.
func (t Term) EffectiveBoolean() (bool, bool) {
	switch t.Kind {
	case KindBoolean:
		return t.Bool, true
	case KindString, KindLangString:
		return len(t.Str) > 0, true
	case KindInteger:
		return t.Int.Sign() != 0, true
	case KindDecimal:
		return t.Dec.Cmp(term.Decimal128{}) != 0, true
	case KindFloat:
		return t.F32 != 0 && !math.IsNaN(float64(t.F32)), true
	case KindDouble:
		return t.F64 != 0 && !math.IsNaN(t.F64), true
	case KindTyped:
		// A malformed numeric or boolean lexical form has EBV false per
		// SPARQL's "invalid derived" rule when its datatype is boolean or
		// numeric; anything else errors.
		if t.Datatype == term.XSDBoolean || term.IsNumeric(t.Datatype) {
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

// SameTerm is RDF term identity, with no value coercion.
func (a Term) SameTerm(b Term) bool {
	av, bv := a.ToValue(), b.ToValue()
	if av == nil || bv == nil {
		return false
	}
	return av.String() == bv.String()
}

// numericPair promotes two numeric terms to their common kind
// (integer → decimal → float → double).
func numericPair(a, b Term) (Term, Term, Kind, bool) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return a, b, 0, false
	}
	k := a.Kind
	if b.Kind > k {
		k = b.Kind
	}
	return a.promoteTo(k), b.promoteTo(k), k, true
}

func (t Term) promoteTo(k Kind) Term {
	if t.Kind == k {
		return t
	}
	switch k {
	case KindDecimal:
		d, _ := term.NewDecimalFromString(t.Int.String())
		return NewDecimal(d)
	case KindFloat:
		return NewFloat(float32(t.asFloat64()))
	case KindDouble:
		return NewDouble(t.asFloat64())
	default:
		return t
	}
}

func (t Term) asFloat64() float64 {
	switch t.Kind {
	case KindInteger:
		f, _ := new(big.Float).SetInt(t.Int).Float64()
		return f
	case KindDecimal:
		f, _ := t.Dec.Shopspring().Float64()
		return f
	case KindFloat:
		return float64(t.F32)
	case KindDouble:
		return t.F64
	default:
		return math.NaN()
	}
}

// Equals implements "=" with the numeric tower and cross-kind rules:
// disjoint kinds compare unequal, two unrecognized typed literals with
// the same datatype but different lexical forms are an error.
func (a Term) Equals(b Term) (bool, bool) {
	if a.IsNumeric() && b.IsNumeric() {
		c, ok := numericCmp(a, b)
		return ok && c == 0, true
	}
	if a.Kind != b.Kind {
		// A literal of unknown type compared against any other literal is
		// an error (the value space is unknown); against a non-literal it
		// is a definite false.
		if (a.Kind == KindTyped && b.IsLiteral()) || (b.Kind == KindTyped && a.IsLiteral()) {
			return false, false
		}
		return false, true
	}
	switch a.Kind {
	case KindNamedNode, KindBlankNode:
		return a.Str == b.Str, true
	case KindString:
		return a.Str == b.Str, true
	case KindLangString:
		return a.Str == b.Str && strings.EqualFold(a.Lang, b.Lang) && a.Dir == b.Dir, true
	case KindBoolean:
		return a.Bool == b.Bool, true
	case KindDateTime:
		if c, ok := dateTimeCmp(a, b); ok {
			return c == 0, true
		}
		return false, false
	case KindDuration:
		return a.Dur == b.Dur, true
	case KindTyped:
		if a.Datatype == b.Datatype && a.Str == b.Str {
			return true, true
		}
		return false, false
	case KindTriple:
		eq, ok := a.Triple.Subject.Equals(b.Triple.Subject)
		if !ok || !eq {
			return eq, ok
		}
		if a.Triple.Predicate.Str != b.Triple.Predicate.Str {
			return false, true
		}
		return a.Triple.Object.Equals(b.Triple.Object)
	default:
		return false, false
	}
}

func numericCmp(a, b Term) (int, bool) {
	pa, pb, k, ok := numericPair(a, b)
	if !ok {
		return 0, false
	}
	switch k {
	case KindInteger:
		return pa.Int.Cmp(pb.Int), true
	case KindDecimal:
		return pa.Dec.Cmp(pb.Dec), true
	case KindFloat:
		return floatCmp(float64(pa.F32), float64(pb.F32))
	default:
		return floatCmp(pa.F64, pb.F64)
	}
}

func floatCmp(a, b float64) (int, bool) {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0, false
	}
	switch {
	case a < b:
		return -1, true
	case a > b:
		return 1, true
	default:
		return 0, true
	}
}

func dateTimeCmp(a, b Term) (int, bool) {
	d := a.DT.Sub(b.DT)
	switch {
	case d.Negative:
		return -1, true
	case d.Months == 0 && d.Days == 0 && d.Seconds == 0 && d.Nanos == 0:
		return 0, true
	default:
		return 1, true
	}
}

// Compare implements < / <= / > / >= ordering; the error outcome covers
// incomparable kinds.
func (a Term) Compare(b Term) (int, bool) {
	if a.IsNumeric() && b.IsNumeric() {
		return numericCmp(a, b)
	}
	if a.Kind != b.Kind {
		return 0, false
	}
	switch a.Kind {
	case KindString:
		return strings.Compare(a.Str, b.Str), true
	case KindLangString:
		if !strings.EqualFold(a.Lang, b.Lang) || a.Dir != b.Dir {
			return 0, false
		}
		return strings.Compare(a.Str, b.Str), true
	case KindBoolean:
		switch {
		case a.Bool == b.Bool:
			return 0, true
		case b.Bool:
			return -1, true
		default:
			return 1, true
		}
	case KindDateTime:
		return dateTimeCmp(a, b)
	default:
		return 0, false
	}
}
