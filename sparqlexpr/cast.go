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
	"math"
	"math/big"
	"strings"

	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/term"
)

// compileNamed dispatches a named call: the custom-function registry
// is consulted first, then an XSD datatype IRI acts as a cast.
func (e *Evaluator) compileNamed(n sparqlalgebra.NamedFunctionCall) Compiled {
	args := e.compileAll(n.Args)
	if fn, ok := e.opt.Custom[n.Name]; ok {
		return func(tu Tuple) (Term, bool) {
			vals := make([]Term, len(args))
			for i, a := range args {
				v, ok := a(tu)
				if !ok {
					return errTerm, false
				}
				vals[i] = v
			}
			return fn(vals)
		}
	}
	if isCastTarget(n.Name) {
		if len(args) != 1 {
			return errCompiled
		}
		dt := n.Name
		arg := args[0]
		return func(tu Tuple) (Term, bool) {
			v, ok := arg(tu)
			if !ok {
				return errTerm, false
			}
			return castTo(dt, v)
		}
	}
	return errCompiled
}

func isCastTarget(dt term.IRI) bool {
	return term.IsRecognizedXSD(dt)
}

// castTo implements the XSD cast matrix: lexical parsing from strings,
// value conversion between numerics, boolean 0/1 bridging, and
// temporal re-typing. Unrecognized input is the error outcome.
func castTo(dt term.IRI, v Term) (Term, bool) {
	switch dt {
	case term.XSDString:
		if v.Kind == KindBlankNode || v.Kind == KindTriple {
			return errTerm, false
		}
		return NewString(v.LexicalString()), true
	case term.XSDBoolean:
		switch v.Kind {
		case KindBoolean:
			return v, true
		case KindString:
			switch strings.TrimSpace(v.Str) {
			case "true", "1":
				return NewBoolean(true), true
			case "false", "0":
				return NewBoolean(false), true
			}
			return errTerm, false
		case KindInteger:
			return NewBoolean(v.Int.Sign() != 0), true
		case KindDecimal:
			return NewBoolean(v.Dec.Cmp(term.Decimal128{}) != 0), true
		case KindFloat:
			return NewBoolean(v.F32 != 0 && !math.IsNaN(float64(v.F32))), true
		case KindDouble:
			return NewBoolean(v.F64 != 0 && !math.IsNaN(v.F64)), true
		}
		return errTerm, false
	case term.XSDInteger:
		switch v.Kind {
		case KindInteger:
			return v, true
		case KindBoolean:
			if v.Bool {
				return NewInteger(1), true
			}
			return NewInteger(0), true
		case KindString:
			if n, ok := new(big.Int).SetString(strings.TrimSpace(v.Str), 10); ok {
				return NewIntegerBig(n), true
			}
			return errTerm, false
		case KindDecimal:
			return NewIntegerBig(truncDecimal(v.Dec)), true
		case KindFloat, KindDouble:
			f := v.asFloat64()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return errTerm, false
			}
			bf := new(big.Float).SetFloat64(math.Trunc(f))
			n, _ := bf.Int(nil)
			return NewIntegerBig(n), true
		}
		return errTerm, false
	case term.XSDDecimal:
		switch v.Kind {
		case KindDecimal:
			return v, true
		case KindBoolean:
			lex := "0"
			if v.Bool {
				lex = "1"
			}
			d, _ := term.NewDecimalFromString(lex)
			return NewDecimal(d), true
		case KindInteger:
			d, err := term.NewDecimalFromString(v.Int.String())
			if err != nil {
				return errTerm, false
			}
			return NewDecimal(d), true
		case KindString:
			d, err := term.NewDecimalFromString(strings.TrimSpace(v.Str))
			if err != nil {
				return errTerm, false
			}
			return NewDecimal(d), true
		case KindFloat, KindDouble:
			f := v.asFloat64()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return errTerm, false
			}
			d, err := term.NewDecimalFromString(formatXSDFloat(f, 64))
			if err != nil {
				return errTerm, false
			}
			return NewDecimal(d), true
		}
		return errTerm, false
	case term.XSDFloat:
		f, ok := castFloat(v, 32)
		if !ok {
			return errTerm, false
		}
		return NewFloat(float32(f)), true
	case term.XSDDouble:
		f, ok := castFloat(v, 64)
		if !ok {
			return errTerm, false
		}
		return NewDouble(f), true
	case term.XSDDateTime:
		switch v.Kind {
		case KindDateTime:
			switch v.Datatype {
			case term.XSDDateTime:
				return v, true
			case term.XSDDate:
				dt := v.DT
				return NewDateTime(dt, term.XSDDateTime), true
			}
			return errTerm, false
		case KindString:
			if dtv, err := term.ParseDateTime(strings.TrimSpace(v.Str)); err == nil {
				return NewDateTime(dtv, term.XSDDateTime), true
			}
		}
		return errTerm, false
	case term.XSDDate:
		switch v.Kind {
		case KindDateTime:
			switch v.Datatype {
			case term.XSDDate:
				return v, true
			case term.XSDDateTime:
				dt := v.DT
				dt.Hour, dt.Minute, dt.Second, dt.Nanos = 0, 0, 0, 0
				return NewDateTime(dt, term.XSDDate), true
			}
			return errTerm, false
		case KindString:
			if dtv, err := term.ParseDate(strings.TrimSpace(v.Str)); err == nil {
				return NewDateTime(dtv, term.XSDDate), true
			}
		}
		return errTerm, false
	case term.XSDTime:
		switch v.Kind {
		case KindDateTime:
			switch v.Datatype {
			case term.XSDTime:
				return v, true
			case term.XSDDateTime:
				dt := v.DT
				dt.Year, dt.Month, dt.Day = 0, 0, 0
				return NewDateTime(dt, term.XSDTime), true
			}
			return errTerm, false
		case KindString:
			if dtv, err := term.ParseTime(strings.TrimSpace(v.Str)); err == nil {
				return NewDateTime(dtv, term.XSDTime), true
			}
		}
		return errTerm, false
	case term.XSDGYear, term.XSDGMonth, term.XSDGDay, term.XSDGYearMonth, term.XSDGMonthDay:
		if v.Kind == KindString {
			if dtv, err := term.ParseDate(strings.TrimSpace(v.Str)); err == nil {
				return NewDateTime(dtv, dt), true
			}
			return errTerm, false
		}
		if v.Kind == KindDateTime && v.Datatype == dt {
			return v, true
		}
		return errTerm, false
	case term.XSDDuration, term.XSDYMDuration, term.XSDDTDuration:
		switch v.Kind {
		case KindDuration:
			return castDuration(dt, v)
		case KindString:
			d, err := term.ParseDuration(strings.TrimSpace(v.Str))
			if err != nil {
				return errTerm, false
			}
			return castDuration(dt, NewDuration(d, term.XSDDuration))
		}
		return errTerm, false
	default:
		return errTerm, false
	}
}

func castFloat(v Term, bits int) (float64, bool) {
	switch v.Kind {
	case KindFloat, KindDouble, KindInteger, KindDecimal:
		return v.asFloat64(), true
	case KindBoolean:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := parseXSDFloat(strings.TrimSpace(v.Str), bits)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func castDuration(dt term.IRI, v Term) (Term, bool) {
	d := v.Dur
	switch dt {
	case term.XSDYMDuration:
		if d.Days != 0 || d.Seconds != 0 || d.Nanos != 0 {
			return errTerm, false
		}
	case term.XSDDTDuration:
		if d.Months != 0 {
			return errTerm, false
		}
	}
	return NewDuration(d, dt), true
}

func truncDecimal(d term.Decimal128) *big.Int {
	i := d.Shopspring().Truncate(0)
	out, ok := new(big.Int).SetString(i.String(), 10)
	if !ok {
		return big.NewInt(0)
	}
	return out
}
