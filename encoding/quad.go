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
	"bytes"
	"errors"

	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/term"
)

// EncodedQuad is a quad with each position already run through the
// term encoder, the unit the storage layer's nine indexes actually key
// on.
type EncodedQuad struct {
	Subject   EncodedTerm
	Predicate EncodedTerm
	Object    EncodedTerm
	Graph     EncodedTerm
}

// EncodeQuad encodes all four positions of q.
func (e *Encoder) EncodeQuad(tx kvstore.BucketTx, q term.Quad) (EncodedQuad, error) {
	s, err := e.Encode(tx, q.Subject)
	if err != nil {
		return EncodedQuad{}, err
	}
	p, err := e.Encode(tx, q.Predicate)
	if err != nil {
		return EncodedQuad{}, err
	}
	o, err := e.Encode(tx, q.Object)
	if err != nil {
		return EncodedQuad{}, err
	}
	g, err := e.Encode(tx, q.Graph)
	if err != nil {
		return EncodedQuad{}, err
	}
	return EncodedQuad{Subject: s, Predicate: p, Object: o, Graph: g}, nil
}

// DecodeQuad decodes all four positions of eq.
func (d *Decoder) DecodeQuad(tx kvstore.BucketTx, eq EncodedQuad) (term.Quad, error) {
	s, err := d.Decode(tx, eq.Subject)
	if err != nil {
		return term.Quad{}, err
	}
	p, err := d.Decode(tx, eq.Predicate)
	if err != nil {
		return term.Quad{}, err
	}
	pi, ok := p.(term.IRI)
	if !ok {
		return term.Quad{}, errInvalidPredicate
	}
	o, err := d.Decode(tx, eq.Object)
	if err != nil {
		return term.Quad{}, err
	}
	g, err := d.Decode(tx, eq.Graph)
	if err != nil {
		return term.Quad{}, err
	}
	return term.Quad{Subject: s, Predicate: pi, Object: o, Graph: g}, nil
}

var errInvalidPredicate = errors.New("encoding: predicate is not a named node")

// Equal reports whether a and b encode the same term, without needing
// dictionary access: hash equality stands in for value equality since
// the dictionary is content-addressed.
func (a EncodedTerm) Equal(b EncodedTerm) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindDefaultGraph:
		return true
	case KindNamedNode, KindBigBlankNode, KindBigStringLiteral, KindBigLangStringLiteral:
		eq := a.Hash == b.Hash
		if a.Kind == KindBigLangStringLiteral {
			eq = eq && a.Lang == b.Lang && a.Dir == b.Dir
		}
		return eq
	case KindSmallBlankNode, KindSmallStringLiteral:
		return a.Small == b.Small
	case KindSmallLangStringLiteral:
		return a.Small == b.Small && a.Lang == b.Lang && a.Dir == b.Dir
	case KindNumericalBlankNode:
		return a.BlankID == b.BlankID
	case KindSmallTypedLiteral:
		return a.Small == b.Small && a.DtHash == b.DtHash
	case KindBigTypedLiteral:
		return a.Hash == b.Hash && a.DtHash == b.DtHash
	case KindBooleanLiteral:
		return a.Bool == b.Bool
	case KindIntegerLiteral:
		return a.Int == b.Int
	case KindDecimalLiteral:
		return a.Decimal.Cmp(b.Decimal) == 0
	case KindFloatLiteral:
		return a.Float32 == b.Float32
	case KindDoubleLiteral:
		return a.Float64 == b.Float64
	case KindDateTimeLiteral, KindDateLiteral, KindTimeLiteral,
		KindGYearLiteral, KindGMonthLiteral, KindGDayLiteral,
		KindGYearMonthLiteral, KindGMonthDayLiteral:
		return a.DateTime == b.DateTime
	case KindDurationLiteral, KindYearMonthDurationLiteral, KindDayTimeDurationLiteral:
		return a.Duration == b.Duration
	case KindTripleTerm:
		if a.Triple == nil || b.Triple == nil {
			return a.Triple == b.Triple
		}
		return a.Triple.Subject.Equal(b.Triple.Subject) &&
			bytes.Equal(a.Triple.Predicate[:], b.Triple.Predicate[:]) &&
			a.Triple.Object.Equal(b.Triple.Object)
	default:
		return false
	}
}
