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
	"fmt"
	"strconv"

	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

// StringLookup resolves a content-address back to its string. The
// dataset view layers its temporary interner in front of the persistent
// dictionary by supplying its own lookup here.
type StringLookup func(h dictionary.Hash128) (string, bool, error)

// Decoder is the inverse of Encoder: it resolves hash references through
// the same dictionary.Dictionary the Encoder wrote them into.
type Decoder struct {
	dict *dictionary.Dictionary
}

// NewDecoder builds a Decoder backed by dict.
func NewDecoder(dict *dictionary.Dictionary) *Decoder {
	return &Decoder{dict: dict}
}

// Decode converts e back into a term.Value. decode(encode(t))
// reproduces t up to canonicalization of recognized XSD lexical forms:
// e.g. "1.50"^^xsd:decimal round-trips as "1.5", and "+007"^^xsd:integer
// round-trips as "7".
func (d *Decoder) Decode(tx kvstore.BucketTx, e EncodedTerm) (term.Value, error) {
	return DecodeTermWith(func(h dictionary.Hash128) (string, bool, error) {
		return d.dict.Get(tx, h)
	}, e)
}

// DecodeTermWith decodes e, resolving every hash through lookup. A
// hash lookup miss is a Corruption error: the encoder never stores a
// hash without its string.
func DecodeTermWith(lookup StringLookup, e EncodedTerm) (term.Value, error) {
	resolve := func(h dictionary.Hash128) (string, error) {
		s, ok, err := lookup(h)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", storeerr.Corruption(fmt.Sprintf("dangling dictionary reference %x", h))
		}
		return s, nil
	}
	switch e.Kind {
	case KindDefaultGraph:
		return term.DefaultGraph, nil
	case KindNamedNode:
		s, err := resolve(e.Hash)
		if err != nil {
			return nil, err
		}
		return term.IRI(s), nil
	case KindSmallBlankNode:
		return term.BlankNode(e.Small), nil
	case KindBigBlankNode:
		s, err := resolve(e.Hash)
		if err != nil {
			return nil, err
		}
		return term.BlankNode(s), nil
	case KindNumericalBlankNode:
		return term.BlankNode(fmt.Sprintf("%x", e.BlankID)), nil
	case KindSmallStringLiteral:
		return term.NewString(e.Small), nil
	case KindBigStringLiteral:
		s, err := resolve(e.Hash)
		if err != nil {
			return nil, err
		}
		return term.NewString(s), nil
	case KindSmallLangStringLiteral:
		return langLiteral(e.Small, e), nil
	case KindBigLangStringLiteral:
		s, err := resolve(e.Hash)
		if err != nil {
			return nil, err
		}
		return langLiteral(s, e), nil
	case KindSmallTypedLiteral:
		dt, err := resolve(e.DtHash)
		if err != nil {
			return nil, err
		}
		return term.NewTypedLiteral(e.Small, term.IRI(dt)), nil
	case KindBigTypedLiteral:
		v, err := resolve(e.Hash)
		if err != nil {
			return nil, err
		}
		dt, err := resolve(e.DtHash)
		if err != nil {
			return nil, err
		}
		return term.NewTypedLiteral(v, term.IRI(dt)), nil
	case KindBooleanLiteral:
		return term.NewTypedLiteral(strconv.FormatBool(e.Bool), term.XSDBoolean), nil
	case KindIntegerLiteral:
		return term.NewTypedLiteral(strconv.FormatInt(e.Int, 10), term.XSDInteger), nil
	case KindDecimalLiteral:
		return term.NewTypedLiteral(e.Decimal.String(), term.XSDDecimal), nil
	case KindFloatLiteral:
		return term.NewTypedLiteral(strconv.FormatFloat(float64(e.Float32), 'g', -1, 32), term.XSDFloat), nil
	case KindDoubleLiteral:
		return term.NewTypedLiteral(strconv.FormatFloat(e.Float64, 'g', -1, 64), term.XSDDouble), nil
	case KindDateTimeLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDDateTime), nil
	case KindDateLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDDate), nil
	case KindTimeLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDTime), nil
	case KindGYearLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDGYear), nil
	case KindGMonthLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDGMonth), nil
	case KindGDayLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDGDay), nil
	case KindGYearMonthLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDGYearMonth), nil
	case KindGMonthDayLiteral:
		return term.NewTypedLiteral(e.DateTime.String(), term.XSDGMonthDay), nil
	case KindDurationLiteral:
		return term.NewTypedLiteral(e.Duration.String(), term.XSDDuration), nil
	case KindYearMonthDurationLiteral:
		return term.NewTypedLiteral(e.Duration.String(), term.XSDYMDuration), nil
	case KindDayTimeDurationLiteral:
		return term.NewTypedLiteral(e.Duration.String(), term.XSDDTDuration), nil
	case KindTripleTerm:
		if e.Triple == nil {
			return nil, storeerr.Corruption("triple term without payload")
		}
		s, err := DecodeTermWith(lookup, e.Triple.Subject)
		if err != nil {
			return nil, err
		}
		p, err := resolve(e.Triple.Predicate)
		if err != nil {
			return nil, err
		}
		o, err := DecodeTermWith(lookup, e.Triple.Object)
		if err != nil {
			return nil, err
		}
		return term.Triple{Subject: s, Predicate: term.IRI(p), Object: o}, nil
	default:
		return nil, storeerr.Corruption(fmt.Sprintf("unrecognized term kind %d", e.Kind))
	}
}

func langLiteral(value string, e EncodedTerm) term.Literal {
	if e.Dir != term.NoDirection {
		return term.NewDirLangString(value, e.Lang, e.Dir)
	}
	return term.NewLangString(value, e.Lang)
}
