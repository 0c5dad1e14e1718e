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

package encoding

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/term"
)

// StringRef pairs a hash embedded in an EncodedTerm with the string it
// addresses. The encoding itself is a pure function of the term (the
// hash is content-derived), so callers that only look terms up never
// need a dictionary at all; callers that store terms must persist each
// ref so that every stored hash resolves back to its string.
type StringRef struct {
	Hash  dictionary.Hash128
	Value string
}

// EncodeTerm encodes v without any storage access, returning the
// encoded term together with the string refs its hashes stand for.
func EncodeTerm(v term.Value) (EncodedTerm, []StringRef, error) {
	var refs []StringRef
	et, err := encodeTerm(v, &refs)
	return et, refs, err
}

func ref(refs *[]StringRef, s string) dictionary.Hash128 {
	h := dictionary.Hash(s)
	*refs = append(*refs, StringRef{Hash: h, Value: s})
	return h
}

func encodeTerm(v term.Value, refs *[]StringRef) (EncodedTerm, error) {
	switch t := v.(type) {
	case nil:
		return EncodedTerm{}, nil
	case term.IRI:
		return EncodedTerm{Kind: KindNamedNode, Hash: ref(refs, string(t))}, nil
	case term.BlankNode:
		s := string(t)
		if id, ok := parseBlankID(s); ok {
			return EncodedTerm{Kind: KindNumericalBlankNode, BlankID: id}, nil
		}
		if len(s) <= maxInline {
			return EncodedTerm{Kind: KindSmallBlankNode, Small: s}, nil
		}
		return EncodedTerm{Kind: KindBigBlankNode, Hash: ref(refs, s)}, nil
	case term.Literal:
		return encodeLiteralTerm(t, refs)
	case term.Triple:
		st, err := encodeTerm(t.Subject, refs)
		if err != nil {
			return EncodedTerm{}, err
		}
		ot, err := encodeTerm(t.Object, refs)
		if err != nil {
			return EncodedTerm{}, err
		}
		return EncodedTerm{Kind: KindTripleTerm, Triple: &EncodedTriple{
			Subject:   st,
			Predicate: ref(refs, string(t.Predicate)),
			Object:    ot,
		}}, nil
	default:
		if term.IsDefaultGraph(v) {
			return EncodedTerm{Kind: KindDefaultGraph}, nil
		}
		return EncodedTerm{}, fmt.Errorf("encoding: unrecognized term type %T", v)
	}
}

// parseBlankID recognizes the 32-hex-digit identifiers minted for fresh
// blank nodes and maps them onto the inline 128-bit variant, so that a
// minted blank decodes to hex and re-encodes back to the same id.
func parseBlankID(s string) ([16]byte, bool) {
	var id [16]byte
	if len(s) != 32 {
		return id, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, false
	}
	copy(id[:], raw)
	return id, true
}

func encodeLiteralTerm(l term.Literal, refs *[]StringRef) (EncodedTerm, error) {
	switch l.Datatype {
	case term.RDFLangString, term.RDFDirLangString:
		if len(l.Lexical) <= maxInline {
			return EncodedTerm{Kind: KindSmallLangStringLiteral, Small: l.Lexical, Lang: l.Lang, Dir: l.Dir}, nil
		}
		return EncodedTerm{Kind: KindBigLangStringLiteral, Hash: ref(refs, l.Lexical), Lang: l.Lang, Dir: l.Dir}, nil
	case term.XSDString, "":
		if len(l.Lexical) <= maxInline {
			return EncodedTerm{Kind: KindSmallStringLiteral, Small: l.Lexical}, nil
		}
		return EncodedTerm{Kind: KindBigStringLiteral, Hash: ref(refs, l.Lexical)}, nil
	case term.XSDBoolean:
		return EncodedTerm{Kind: KindBooleanLiteral, Bool: l.Lexical == "true" || l.Lexical == "1"}, nil
	case term.XSDInteger:
		n, err := strconv.ParseInt(l.Lexical, 10, 64)
		if err != nil {
			return encodeOtherTypedTerm(l, refs)
		}
		return EncodedTerm{Kind: KindIntegerLiteral, Int: n}, nil
	case term.XSDDecimal:
		d, err := term.NewDecimalFromString(l.Lexical)
		if err != nil {
			return encodeOtherTypedTerm(l, refs)
		}
		return EncodedTerm{Kind: KindDecimalLiteral, Decimal: d}, nil
	case term.XSDFloat:
		f, err := strconv.ParseFloat(l.Lexical, 32)
		if err != nil {
			return encodeOtherTypedTerm(l, refs)
		}
		return EncodedTerm{Kind: KindFloatLiteral, Float32: float32(f)}, nil
	case term.XSDDouble:
		f, err := strconv.ParseFloat(l.Lexical, 64)
		if err != nil {
			return encodeOtherTypedTerm(l, refs)
		}
		return EncodedTerm{Kind: KindDoubleLiteral, Float64: f}, nil
	case term.XSDDateTime:
		return encodeTemporalTerm(l, KindDateTimeLiteral, term.ParseDateTime, refs)
	case term.XSDDate:
		return encodeTemporalTerm(l, KindDateLiteral, term.ParseDate, refs)
	case term.XSDTime:
		return encodeTemporalTerm(l, KindTimeLiteral, term.ParseTime, refs)
	case term.XSDGYear:
		return encodeTemporalTerm(l, KindGYearLiteral, term.ParseDate, refs)
	case term.XSDGMonth:
		return encodeTemporalTerm(l, KindGMonthLiteral, term.ParseDate, refs)
	case term.XSDGDay:
		return encodeTemporalTerm(l, KindGDayLiteral, term.ParseDate, refs)
	case term.XSDGYearMonth:
		return encodeTemporalTerm(l, KindGYearMonthLiteral, term.ParseDate, refs)
	case term.XSDGMonthDay:
		return encodeTemporalTerm(l, KindGMonthDayLiteral, term.ParseDate, refs)
	case term.XSDDuration:
		return encodeDurationTerm(l, KindDurationLiteral, refs)
	case term.XSDYMDuration:
		return encodeDurationTerm(l, KindYearMonthDurationLiteral, refs)
	case term.XSDDTDuration:
		return encodeDurationTerm(l, KindDayTimeDurationLiteral, refs)
	default:
		return encodeOtherTypedTerm(l, refs)
	}
}

func encodeTemporalTerm(l term.Literal, kind Kind, parse func(string) (term.DateTime, error), refs *[]StringRef) (EncodedTerm, error) {
	dt, err := parse(l.Lexical)
	if err != nil {
		return encodeOtherTypedTerm(l, refs)
	}
	return EncodedTerm{Kind: kind, DateTime: dt}, nil
}

func encodeDurationTerm(l term.Literal, kind Kind, refs *[]StringRef) (EncodedTerm, error) {
	d, err := term.ParseDuration(l.Lexical)
	if err != nil {
		return encodeOtherTypedTerm(l, refs)
	}
	return EncodedTerm{Kind: kind, Duration: d}, nil
}

// encodeOtherTypedTerm is the fallback for typed literals whose datatype
// is not canonicalized inline, and for recognized XSD lexical forms that
// fail to parse (kept as opaque values rather than rejected; validation
// is not this layer's job).
func encodeOtherTypedTerm(l term.Literal, refs *[]StringRef) (EncodedTerm, error) {
	dh := ref(refs, string(l.Datatype))
	if len(l.Lexical) <= maxInline {
		return EncodedTerm{Kind: KindSmallTypedLiteral, Small: l.Lexical, DtHash: dh}, nil
	}
	return EncodedTerm{Kind: KindBigTypedLiteral, Hash: ref(refs, l.Lexical), DtHash: dh}, nil
}

// EncodeQuadTerm encodes all four positions of q without storage access.
func EncodeQuadTerm(q term.Quad) (EncodedQuad, []StringRef, error) {
	var refs []StringRef
	s, err := encodeGraphAware(q.Subject, &refs)
	if err != nil {
		return EncodedQuad{}, nil, err
	}
	p, err := encodeGraphAware(q.Predicate, &refs)
	if err != nil {
		return EncodedQuad{}, nil, err
	}
	o, err := encodeGraphAware(q.Object, &refs)
	if err != nil {
		return EncodedQuad{}, nil, err
	}
	g, err := encodeGraphAware(q.Graph, &refs)
	if err != nil {
		return EncodedQuad{}, nil, err
	}
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: g}, refs, nil
}

func encodeGraphAware(v term.Value, refs *[]StringRef) (EncodedTerm, error) {
	if term.IsDefaultGraph(v) {
		return EncodedTerm{Kind: KindDefaultGraph}, nil
	}
	return encodeTerm(v, refs)
}
