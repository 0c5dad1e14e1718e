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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"net/url"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/term"
)

func (e *Evaluator) compileFunction(n sparqlalgebra.FunctionCall) Compiled {
	// BOUND inspects the binding, not a value.
	if n.Function == sparqlalgebra.FuncBound {
		if len(n.Args) != 1 {
			return errCompiled
		}
		v, ok := n.Args[0].(sparqlalgebra.VarExpr)
		if !ok {
			return errCompiled
		}
		name := v.Name
		return func(tu Tuple) (Term, bool) {
			bound, okBind := tu.Get(name)
			return NewBoolean(okBind && bound != nil), true
		}
	}
	if c, ok := e.compileRegexLike(n); ok {
		return c
	}
	args := e.compileAll(n.Args)
	fn := n.Function
	return func(tu Tuple) (Term, bool) {
		vals := make([]Term, len(args))
		for i, a := range args {
			v, ok := a(tu)
			if !ok {
				return errTerm, false
			}
			vals[i] = v
		}
		return e.callBuiltin(fn, vals)
	}
}

var errCompiled Compiled = func(Tuple) (Term, bool) { return errTerm, false }

// compileRegexLike specializes REGEX and REPLACE: when the pattern and
// flags are constants the regex compiles once at expression-compile
// time; otherwise compilations go through a per-evaluator cache.
func (e *Evaluator) compileRegexLike(n sparqlalgebra.FunctionCall) (Compiled, bool) {
	var patternIdx, flagsIdx int
	switch n.Function {
	case sparqlalgebra.FuncRegex:
		if len(n.Args) < 2 || len(n.Args) > 3 {
			return errCompiled, true
		}
		patternIdx, flagsIdx = 1, 2
	case sparqlalgebra.FuncReplace:
		if len(n.Args) < 3 || len(n.Args) > 4 {
			return errCompiled, true
		}
		patternIdx, flagsIdx = 1, 3
	default:
		return nil, false
	}
	constString := func(i int) (string, bool) {
		if i >= len(n.Args) {
			return "", true // absent flags are the empty constant
		}
		te, ok := n.Args[i].(sparqlalgebra.TermExpr)
		if !ok {
			return "", false
		}
		lit, ok := te.Value.(term.Literal)
		if !ok {
			return "", false
		}
		return lit.Lexical, true
	}
	var static *regexp2.Regexp
	if p, pok := constString(patternIdx); pok {
		if f, fok := constString(flagsIdx); fok {
			re, err := compileRegex(p, f)
			if err != nil {
				return errCompiled, true
			}
			static = re
		}
	}
	args := e.compileAll(n.Args)
	fn := n.Function
	return func(tu Tuple) (Term, bool) {
		vals := make([]Term, len(args))
		for i, a := range args {
			v, ok := a(tu)
			if !ok {
				return errTerm, false
			}
			vals[i] = v
		}
		re := static
		if re == nil {
			flags := ""
			if flagsIdx < len(vals) {
				if vals[flagsIdx].Kind != KindString {
					return errTerm, false
				}
				flags = vals[flagsIdx].Str
			}
			var err error
			re, err = e.cachedRegex(vals[patternIdx].Str, flags)
			if err != nil {
				return errTerm, false
			}
		}
		if fn == sparqlalgebra.FuncRegex {
			text, ok := stringLiteral(vals[0])
			if !ok {
				return errTerm, false
			}
			m, err := re.MatchString(text.Str)
			if err != nil {
				return errTerm, false
			}
			return NewBoolean(m), true
		}
		text, ok := stringLiteral(vals[0])
		if !ok {
			return errTerm, false
		}
		repl := vals[2]
		if repl.Kind != KindString {
			return errTerm, false
		}
		out, err := re.Replace(text.Str, repl.Str, -1, -1)
		if err != nil {
			return errTerm, false
		}
		return withLangOf(text, out), true
	}, true
}

func (e *Evaluator) cachedRegex(pattern, flags string) (*regexp2.Regexp, error) {
	key := pattern + "\x00" + flags
	e.mu.Lock()
	re, ok := e.regexes[key]
	e.mu.Unlock()
	if ok {
		return re, nil
	}
	re, err := compileRegex(pattern, flags)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.regexes[key] = re
	e.mu.Unlock()
	return re, nil
}

// compileRegex maps the SPARQL flags s m i x q onto regexp2 options;
// any other flag is an error.
func compileRegex(pattern, flags string) (*regexp2.Regexp, error) {
	var opts regexp2.RegexOptions
	literal := false
	for _, f := range flags {
		switch f {
		case 's':
			opts |= regexp2.Singleline
		case 'm':
			opts |= regexp2.Multiline
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'q':
			literal = true
		default:
			return nil, fmt.Errorf("sparqlexpr: unsupported regex flag %q", f)
		}
	}
	if literal {
		pattern = regexp2.Escape(pattern)
	}
	return regexp2.Compile(pattern, opts)
}

// stringLiteral accepts xsd:string and language-tagged strings, the
// argument class of the string function group.
func stringLiteral(t Term) (Term, bool) {
	if t.Kind == KindString || t.Kind == KindLangString {
		return t, true
	}
	return errTerm, false
}

// withLangOf rebuilds a string result carrying src's language tag.
func withLangOf(src Term, s string) Term {
	if src.Kind == KindLangString {
		return NewDirLangString(s, src.Lang, src.Dir)
	}
	return NewString(s)
}

// argCompatible implements the two-argument string compatibility rule:
// the second argument must be plain or carry the same language tag.
func argCompatible(a, b Term) bool {
	if b.Kind == KindString {
		return true
	}
	return a.Kind == KindLangString && b.Kind == KindLangString && strings.EqualFold(a.Lang, b.Lang)
}

func (e *Evaluator) callBuiltin(fn sparqlalgebra.Function, args []Term) (Term, bool) {
	switch fn {
	case sparqlalgebra.FuncStr:
		if len(args) != 1 {
			return errTerm, false
		}
		switch args[0].Kind {
		case KindBlankNode, KindTriple:
			return errTerm, false
		}
		return NewString(args[0].LexicalString()), true
	case sparqlalgebra.FuncLang:
		if len(args) != 1 || !args[0].IsLiteral() {
			return errTerm, false
		}
		return NewString(args[0].Lang), true
	case sparqlalgebra.FuncLangMatches:
		if len(args) != 2 || args[0].Kind != KindString || args[1].Kind != KindString {
			return errTerm, false
		}
		return NewBoolean(langMatches(args[0].Str, args[1].Str)), true
	case sparqlalgebra.FuncLangDir:
		if len(args) != 1 || !args[0].IsLiteral() {
			return errTerm, false
		}
		return NewString(args[0].Dir.String()), true
	case sparqlalgebra.FuncDatatype:
		if len(args) != 1 || !args[0].IsLiteral() {
			return errTerm, false
		}
		return NewNamedNode(args[0].DatatypeIRI()), true
	case sparqlalgebra.FuncIRI:
		if len(args) != 1 {
			return errTerm, false
		}
		switch args[0].Kind {
		case KindNamedNode:
			return args[0], true
		case KindString:
			return e.resolveIRI(args[0].Str)
		default:
			return errTerm, false
		}
	case sparqlalgebra.FuncBNode:
		switch len(args) {
		case 0:
			id := uuid.New()
			return NewBlankNode(hex.EncodeToString(id[:])), true
		case 1:
			if args[0].Kind != KindString {
				return errTerm, false
			}
			return e.labeledBNode(args[0].Str), true
		default:
			return errTerm, false
		}
	case sparqlalgebra.FuncRand:
		return NewDouble(rand.Float64()), true
	case sparqlalgebra.FuncAbs, sparqlalgebra.FuncCeil, sparqlalgebra.FuncFloor, sparqlalgebra.FuncRound:
		if len(args) != 1 {
			return errTerm, false
		}
		return rounding(fn, args[0])
	case sparqlalgebra.FuncConcat:
		return concat(args)
	case sparqlalgebra.FuncSubStr:
		return substr(args)
	case sparqlalgebra.FuncStrLen:
		if len(args) != 1 {
			return errTerm, false
		}
		s, ok := stringLiteral(args[0])
		if !ok {
			return errTerm, false
		}
		return NewInteger(int64(len([]rune(s.Str)))), true
	case sparqlalgebra.FuncUCase:
		return mapString(args, strings.ToUpper)
	case sparqlalgebra.FuncLCase:
		return mapString(args, strings.ToLower)
	case sparqlalgebra.FuncEncodeForURI:
		if len(args) != 1 {
			return errTerm, false
		}
		s, ok := stringLiteral(args[0])
		if !ok {
			return errTerm, false
		}
		return NewString(encodeForURI(s.Str)), true
	case sparqlalgebra.FuncContains, sparqlalgebra.FuncStrStarts, sparqlalgebra.FuncStrEnds:
		if len(args) != 2 {
			return errTerm, false
		}
		a, aok := stringLiteral(args[0])
		b, bok := stringLiteral(args[1])
		if !aok || !bok || !argCompatible(a, b) {
			return errTerm, false
		}
		switch fn {
		case sparqlalgebra.FuncContains:
			return NewBoolean(strings.Contains(a.Str, b.Str)), true
		case sparqlalgebra.FuncStrStarts:
			return NewBoolean(strings.HasPrefix(a.Str, b.Str)), true
		default:
			return NewBoolean(strings.HasSuffix(a.Str, b.Str)), true
		}
	case sparqlalgebra.FuncStrBefore, sparqlalgebra.FuncStrAfter:
		if len(args) != 2 {
			return errTerm, false
		}
		a, aok := stringLiteral(args[0])
		b, bok := stringLiteral(args[1])
		if !aok || !bok || !argCompatible(a, b) {
			return errTerm, false
		}
		i := strings.Index(a.Str, b.Str)
		if i < 0 {
			return NewString(""), true
		}
		if fn == sparqlalgebra.FuncStrBefore {
			return withLangOf(a, a.Str[:i]), true
		}
		return withLangOf(a, a.Str[i+len(b.Str):]), true
	case sparqlalgebra.FuncYear, sparqlalgebra.FuncMonth, sparqlalgebra.FuncDay,
		sparqlalgebra.FuncHours, sparqlalgebra.FuncMinutes:
		if len(args) != 1 || args[0].Kind != KindDateTime {
			return errTerm, false
		}
		dt := args[0].DT
		switch fn {
		case sparqlalgebra.FuncYear:
			return NewInteger(int64(dt.Year)), true
		case sparqlalgebra.FuncMonth:
			return NewInteger(int64(dt.Month)), true
		case sparqlalgebra.FuncDay:
			return NewInteger(int64(dt.Day)), true
		case sparqlalgebra.FuncHours:
			return NewInteger(int64(dt.Hour)), true
		default:
			return NewInteger(int64(dt.Minute)), true
		}
	case sparqlalgebra.FuncSeconds:
		if len(args) != 1 || args[0].Kind != KindDateTime {
			return errTerm, false
		}
		dt := args[0].DT
		lex := fmt.Sprintf("%d", dt.Second)
		if dt.Nanos != 0 {
			lex = strings.TrimRight(fmt.Sprintf("%d.%09d", dt.Second, dt.Nanos), "0")
		}
		d, err := term.NewDecimalFromString(lex)
		if err != nil {
			return errTerm, false
		}
		return NewDecimal(d), true
	case sparqlalgebra.FuncTimezone:
		if len(args) != 1 || args[0].Kind != KindDateTime || !args[0].DT.HasTZ {
			return errTerm, false
		}
		min := args[0].DT.TZOffsetMinutes
		neg := min < 0
		if neg {
			min = -min
		}
		return NewDuration(term.Duration{Seconds: min * 60, Negative: neg}, term.XSDDTDuration), true
	case sparqlalgebra.FuncTz:
		if len(args) != 1 || args[0].Kind != KindDateTime {
			return errTerm, false
		}
		return NewString(tzString(args[0].DT)), true
	case sparqlalgebra.FuncNow:
		return NewDateTime(e.opt.Now, term.XSDDateTime), true
	case sparqlalgebra.FuncAdjust:
		return adjust(args)
	case sparqlalgebra.FuncUUID:
		return NewNamedNode(term.IRI("urn:uuid:" + uuid.NewString())), true
	case sparqlalgebra.FuncStrUUID:
		return NewString(uuid.NewString()), true
	case sparqlalgebra.FuncMD5, sparqlalgebra.FuncSHA1, sparqlalgebra.FuncSHA256,
		sparqlalgebra.FuncSHA384, sparqlalgebra.FuncSHA512:
		if len(args) != 1 || args[0].Kind != KindString {
			return errTerm, false
		}
		return NewString(hashHex(fn, args[0].Str)), true
	case sparqlalgebra.FuncStrLang:
		if len(args) != 2 || args[0].Kind != KindString || args[1].Kind != KindString {
			return errTerm, false
		}
		return NewLangString(args[0].Str, args[1].Str), true
	case sparqlalgebra.FuncStrLangDir:
		if len(args) != 3 || args[0].Kind != KindString || args[1].Kind != KindString || args[2].Kind != KindString {
			return errTerm, false
		}
		var dir term.BaseDirection
		switch args[2].Str {
		case "ltr":
			dir = term.LTR
		case "rtl":
			dir = term.RTL
		default:
			return errTerm, false
		}
		return NewDirLangString(args[0].Str, args[1].Str, dir), true
	case sparqlalgebra.FuncStrDt:
		if len(args) != 2 || args[0].Kind != KindString || args[1].Kind != KindNamedNode {
			return errTerm, false
		}
		return fromLiteral(term.NewTypedLiteral(args[0].Str, term.IRI(args[1].Str))), true
	case sparqlalgebra.FuncIsIRI:
		if len(args) != 1 {
			return errTerm, false
		}
		return NewBoolean(args[0].Kind == KindNamedNode), true
	case sparqlalgebra.FuncIsBlank:
		if len(args) != 1 {
			return errTerm, false
		}
		return NewBoolean(args[0].Kind == KindBlankNode), true
	case sparqlalgebra.FuncIsLiteral:
		if len(args) != 1 {
			return errTerm, false
		}
		return NewBoolean(args[0].IsLiteral()), true
	case sparqlalgebra.FuncIsNumeric:
		if len(args) != 1 {
			return errTerm, false
		}
		return NewBoolean(args[0].IsNumeric()), true
	case sparqlalgebra.FuncHasLang:
		if len(args) != 1 || !args[0].IsLiteral() {
			return errTerm, false
		}
		return NewBoolean(args[0].Kind == KindLangString), true
	case sparqlalgebra.FuncHasLangDir:
		if len(args) != 1 || !args[0].IsLiteral() {
			return errTerm, false
		}
		return NewBoolean(args[0].Kind == KindLangString && args[0].Dir != term.NoDirection), true
	case sparqlalgebra.FuncIsTriple:
		if len(args) != 1 {
			return errTerm, false
		}
		return NewBoolean(args[0].Kind == KindTriple), true
	case sparqlalgebra.FuncTriple:
		if len(args) != 3 {
			return errTerm, false
		}
		if args[1].Kind != KindNamedNode {
			return errTerm, false
		}
		switch args[0].Kind {
		case KindNamedNode, KindBlankNode, KindTriple:
		default:
			return errTerm, false
		}
		return Term{Kind: KindTriple, Triple: &Triple{Subject: args[0], Predicate: args[1], Object: args[2]}}, true
	case sparqlalgebra.FuncSubject:
		if len(args) != 1 || args[0].Kind != KindTriple {
			return errTerm, false
		}
		return args[0].Triple.Subject, true
	case sparqlalgebra.FuncPredicate:
		if len(args) != 1 || args[0].Kind != KindTriple {
			return errTerm, false
		}
		return args[0].Triple.Predicate, true
	case sparqlalgebra.FuncObject:
		if len(args) != 1 || args[0].Kind != KindTriple {
			return errTerm, false
		}
		return args[0].Triple.Object, true
	default:
		return errTerm, false
	}
}

func (e *Evaluator) resolveIRI(s string) (Term, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return errTerm, false
	}
	if u.IsAbs() {
		return NewNamedNode(term.IRI(s)), true
	}
	if e.opt.Base == "" {
		return errTerm, false
	}
	base, err := url.Parse(e.opt.Base)
	if err != nil {
		return errTerm, false
	}
	return NewNamedNode(term.IRI(base.ResolveReference(u).String())), true
}

func (e *Evaluator) labeledBNode(label string) Term {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bnodes[label]
	if !ok {
		id := uuid.New()
		b = term.BlankNode(hex.EncodeToString(id[:]))
		e.bnodes[label] = b
	}
	return NewBlankNode(string(b))
}

// langMatches is BCP 47 basic filtering: canonicalize both tags, then
// compare hyphen-separated subtags pairwise with "*" matching
// anything.
func langMatches(tag, pattern string) bool {
	if tag == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	tagParts := strings.Split(canonicalLang(tag), "-")
	patParts := strings.Split(canonicalLang(pattern), "-")
	if len(patParts) > len(tagParts) {
		return false
	}
	for i, p := range patParts {
		if p == "*" {
			continue
		}
		if !strings.EqualFold(tagParts[i], p) {
			return false
		}
	}
	return true
}

func canonicalLang(s string) string {
	if t, err := language.Parse(s); err == nil {
		return t.String()
	}
	return s
}

func rounding(fn sparqlalgebra.Function, v Term) (Term, bool) {
	switch v.Kind {
	case KindInteger:
		if fn == sparqlalgebra.FuncAbs {
			return NewIntegerBig(new(big.Int).Abs(v.Int)), true
		}
		return v, true
	case KindDecimal:
		d := v.Dec.Shopspring()
		switch fn {
		case sparqlalgebra.FuncAbs:
			d = d.Abs()
		case sparqlalgebra.FuncCeil:
			d = d.Ceil()
		case sparqlalgebra.FuncFloor:
			d = d.Floor()
		default:
			d = d.Round(0)
		}
		out, err := term.NewDecimalFromString(d.String())
		if err != nil {
			return errTerm, false
		}
		return NewDecimal(out), true
	case KindFloat:
		return NewFloat(float32(roundFloat(fn, float64(v.F32)))), true
	case KindDouble:
		return NewDouble(roundFloat(fn, v.F64)), true
	default:
		return errTerm, false
	}
}

func roundFloat(fn sparqlalgebra.Function, f float64) float64 {
	switch fn {
	case sparqlalgebra.FuncAbs:
		return math.Abs(f)
	case sparqlalgebra.FuncCeil:
		return math.Ceil(f)
	case sparqlalgebra.FuncFloor:
		return math.Floor(f)
	default:
		// round-half-up, per fn:round
		return math.Floor(f + 0.5)
	}
}

func concat(args []Term) (Term, bool) {
	var b strings.Builder
	lang := ""
	dir := term.NoDirection
	first := true
	for _, a := range args {
		s, ok := stringLiteral(a)
		if !ok {
			return errTerm, false
		}
		if first {
			lang, dir = s.Lang, s.Dir
			first = false
		} else if s.Lang != lang || s.Dir != dir {
			lang, dir = "", term.NoDirection
		}
		b.WriteString(s.Str)
	}
	if lang != "" {
		return NewDirLangString(b.String(), lang, dir), true
	}
	return NewString(b.String()), true
}

func substr(args []Term) (Term, bool) {
	if len(args) < 2 || len(args) > 3 {
		return errTerm, false
	}
	s, ok := stringLiteral(args[0])
	if !ok {
		return errTerm, false
	}
	if args[1].Kind != KindInteger {
		return errTerm, false
	}
	start := int(args[1].Int.Int64())
	runes := []rune(s.Str)
	// SPARQL positions are 1-based.
	from := start - 1
	to := len(runes)
	if len(args) == 3 {
		if args[2].Kind != KindInteger {
			return errTerm, false
		}
		to = from + int(args[2].Int.Int64())
	}
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= len(runes) || to <= from {
		return withLangOf(s, ""), true
	}
	return withLangOf(s, string(runes[from:to])), true
}

func mapString(args []Term, f func(string) string) (Term, bool) {
	if len(args) != 1 {
		return errTerm, false
	}
	s, ok := stringLiteral(args[0])
	if !ok {
		return errTerm, false
	}
	return withLangOf(s, f(s.Str)), true
}

// encodeForURI percent-encodes everything outside the unreserved set.
func encodeForURI(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func tzString(dt term.DateTime) string {
	if !dt.HasTZ {
		return ""
	}
	if dt.TZOffsetMinutes == 0 {
		return "Z"
	}
	min := dt.TZOffsetMinutes
	sign := "+"
	if min < 0 {
		sign = "-"
		min = -min
	}
	return fmt.Sprintf("%s%02d:%02d", sign, min/60, min%60)
}

// adjust implements ADJUST(value, tz) and the timezone-stripping
// one-argument form.
func adjust(args []Term) (Term, bool) {
	if len(args) == 0 || len(args) > 2 || args[0].Kind != KindDateTime {
		return errTerm, false
	}
	dt := args[0].DT
	if len(args) == 1 {
		dt.HasTZ = false
		dt.TZOffsetMinutes = 0
		return NewDateTime(dt, args[0].Datatype), true
	}
	if args[1].Kind != KindDuration {
		return errTerm, false
	}
	d := args[1].Dur
	if d.Months != 0 || d.Nanos != 0 {
		return errTerm, false
	}
	target := d.Days*24*60 + d.Seconds/60
	if d.Negative {
		target = -target
	}
	if target < -14*60 || target > 14*60 {
		return errTerm, false
	}
	if dt.HasTZ {
		shift := target - dt.TZOffsetMinutes
		dt = dt.AddDuration(term.Duration{Seconds: abs(shift) * 60, Negative: shift < 0})
	}
	dt.HasTZ = true
	dt.TZOffsetMinutes = target
	return NewDateTime(dt, args[0].Datatype), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func hashHex(fn sparqlalgebra.Function, s string) string {
	data := []byte(s)
	switch fn {
	case sparqlalgebra.FuncMD5:
		h := md5.Sum(data)
		return hex.EncodeToString(h[:])
	case sparqlalgebra.FuncSHA1:
		h := sha1.Sum(data)
		return hex.EncodeToString(h[:])
	case sparqlalgebra.FuncSHA256:
		h := sha256.Sum256(data)
		return hex.EncodeToString(h[:])
	case sparqlalgebra.FuncSHA384:
		h := sha512.Sum384(data)
		return hex.EncodeToString(h[:])
	default:
		h := sha512.Sum512(data)
		return hex.EncodeToString(h[:])
	}
}
