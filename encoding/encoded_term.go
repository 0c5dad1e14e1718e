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

// Package encoding implements the term encoder: the EncodedTerm sum
// type and the Encode/Decode functions that convert between term.Value
// and its compact, inlined-where-possible binary representation,
// content-addressing large strings through a dictionary.Dictionary.
//
// EncodedTerm is laid out as a tagged struct rather than an interface,
// so a type switch over Kind is the only dispatch needed and the RDF
// 1.2 Triple variant (the one genuinely large, recursive variant) is
// the only one stored behind a pointer.
package encoding

import (
	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/term"
)

// Kind discriminates the variants of EncodedTerm.
type Kind byte

const (
	KindDefaultGraph Kind = iota
	KindNamedNode
	KindNumericalBlankNode // inline 128-bit blank node id
	KindSmallBlankNode     // inline ≤16 UTF-8 bytes
	KindBigBlankNode       // hash reference
	KindSmallStringLiteral
	KindBigStringLiteral
	KindSmallLangStringLiteral // inline value, inline lang (+ optional dir)
	KindBigLangStringLiteral   // hashed value, inline lang (+ optional dir)
	KindSmallTypedLiteral      // inline value, hashed datatype (OtherTypedLiteral)
	KindBigTypedLiteral        // hashed value, hashed datatype (OtherTypedLiteral)
	KindBooleanLiteral
	KindIntegerLiteral
	KindDecimalLiteral
	KindFloatLiteral
	KindDoubleLiteral
	KindDateTimeLiteral
	KindDateLiteral
	KindTimeLiteral
	KindGYearLiteral
	KindGMonthLiteral
	KindGDayLiteral
	KindGYearMonthLiteral
	KindGMonthDayLiteral
	KindDurationLiteral
	KindYearMonthDurationLiteral
	KindDayTimeDurationLiteral
	KindTripleTerm
)

// maxInline is the inline-storage threshold: strings up to 16 UTF-8
// bytes are stored in place.
const maxInline = 16

// EncodedTerm is the compact, sum-typed encoding of a term.Value.
type EncodedTerm struct {
	Kind Kind

	Hash    dictionary.Hash128 // NamedNode, Big* variants: value or blank-node hash
	Small   string             // inline payload, len(Small) <= maxInline
	Lang    string             // language tag, always inline (short by construction)
	Dir     term.BaseDirection // RDF 1.2 base direction, if any
	DtHash  dictionary.Hash128 // OtherTypedLiteral datatype hash
	BlankID [16]byte           // KindNumericalBlankNode

	Bool     bool
	Int      int64
	Float32  float32
	Float64  float64
	Decimal  term.Decimal128
	DateTime term.DateTime
	Duration term.Duration

	Triple *EncodedTriple
}

// EncodedTriple is the RDF 1.2 nested-triple variant; it owns its
// children by value but is itself kept behind a pointer in EncodedTerm
// to keep the common-case struct small.
type EncodedTriple struct {
	Subject   EncodedTerm
	Predicate dictionary.Hash128 // predicates are always IRIs; always hashed
	Object    EncodedTerm
}

// IsDefaultGraph reports whether e is the default-graph marker.
func (e EncodedTerm) IsDefaultGraph() bool { return e.Kind == KindDefaultGraph }

// IsLiteral reports whether e encodes an RDF literal.
func (e EncodedTerm) IsLiteral() bool {
	switch e.Kind {
	case KindSmallStringLiteral, KindBigStringLiteral,
		KindSmallLangStringLiteral, KindBigLangStringLiteral,
		KindSmallTypedLiteral, KindBigTypedLiteral,
		KindBooleanLiteral, KindIntegerLiteral, KindDecimalLiteral,
		KindFloatLiteral, KindDoubleLiteral,
		KindDateTimeLiteral, KindDateLiteral, KindTimeLiteral,
		KindGYearLiteral, KindGMonthLiteral, KindGDayLiteral,
		KindGYearMonthLiteral, KindGMonthDayLiteral,
		KindDurationLiteral, KindYearMonthDurationLiteral, KindDayTimeDurationLiteral:
		return true
	default:
		return false
	}
}

// IsBlankNode reports whether e encodes a blank node.
func (e EncodedTerm) IsBlankNode() bool {
	switch e.Kind {
	case KindNumericalBlankNode, KindSmallBlankNode, KindBigBlankNode:
		return true
	default:
		return false
	}
}

// IsNamedNode reports whether e encodes an IRI.
func (e EncodedTerm) IsNamedNode() bool { return e.Kind == KindNamedNode }

// IsTriple reports whether e encodes an RDF 1.2 triple term.
func (e EncodedTerm) IsTriple() bool { return e.Kind == KindTripleTerm }
