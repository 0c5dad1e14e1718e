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

package term

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// decimalScale is the fixed number of fractional digits xsd:decimal
// values are stored with: a 128-bit signed fixed-point integer scaled
// by 10^18, so typed numeric literals can be stored inline by value
// without an arbitrary-precision on-disk representation.
const decimalScale = 18

var scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimalScale), nil)

// Decimal128 is the inline 128-bit fixed-point representation of an
// xsd:decimal value: Unscaled / 10^18.
type Decimal128 struct {
	Unscaled big.Int // must fit in 128 bits signed
}

// NewDecimalFromString parses an XSD decimal lexical form.
func NewDecimalFromString(s string) (Decimal128, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal128{}, err
	}
	return decimalFromShopspring(d), nil
}

func decimalFromShopspring(d decimal.Decimal) Decimal128 {
	rescaled := d.Round(decimalScale)
	return Decimal128{Unscaled: *rescaled.Coefficient()}
}

// Shopspring converts back to a shopspring/decimal.Decimal for display
// and arithmetic convenience.
func (d Decimal128) Shopspring() decimal.Decimal {
	return decimal.NewFromBigInt(&d.Unscaled, -decimalScale)
}

func (d Decimal128) String() string { return d.Shopspring().String() }

// Bytes16 renders the fixed-point value as a 16-byte big-endian two's
// complement integer, the inline key payload.
func (d Decimal128) Bytes16() [16]byte {
	var out [16]byte
	b := new(big.Int).Set(&d.Unscaled)
	if b.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		b.Add(b, mod)
	}
	b.FillBytes(out[:])
	return out
}

// DecimalFromBytes16 parses the two's-complement encoding back into a
// Decimal128.
func DecimalFromBytes16(b [16]byte) Decimal128 {
	u := new(big.Int).SetBytes(b[:])
	half := new(big.Int).Lsh(big.NewInt(1), 127)
	if u.Cmp(half) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		u.Sub(u, mod)
	}
	return Decimal128{Unscaled: *u}
}

func (d Decimal128) Add(o Decimal128) Decimal128 {
	return Decimal128{Unscaled: *new(big.Int).Add(&d.Unscaled, &o.Unscaled)}
}
func (d Decimal128) Sub(o Decimal128) Decimal128 {
	return Decimal128{Unscaled: *new(big.Int).Sub(&d.Unscaled, &o.Unscaled)}
}
func (d Decimal128) Mul(o Decimal128) Decimal128 {
	return decimalFromShopspring(d.Shopspring().Mul(o.Shopspring()))
}
func (d Decimal128) Div(o Decimal128) (Decimal128, bool) {
	if o.Unscaled.Sign() == 0 {
		return Decimal128{}, false
	}
	return decimalFromShopspring(d.Shopspring().Div(o.Shopspring())), true
}
func (d Decimal128) Cmp(o Decimal128) int { return d.Unscaled.Cmp(&o.Unscaled) }
