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

// Package storage implements the index set, the quad codec and the
// storage engine.
//
// termkey.go holds the per-term key encoding used by every index
// ordering (indexes.go): a 1-byte Kind tag followed by a fixed- or
// length-prefixed payload. EncodedTerm.Kind is reused directly as the
// tag byte.
package storage

import (
	"encoding/binary"
	"math"

	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

// AppendTermKey appends the key-encoding of e to buf, returning the
// extended slice.
func AppendTermKey(buf []byte, e encoding.EncodedTerm) []byte {
	buf = append(buf, byte(e.Kind))
	switch e.Kind {
	case encoding.KindDefaultGraph:
		// tag only
	case encoding.KindNamedNode, encoding.KindBigBlankNode, encoding.KindBigStringLiteral:
		buf = append(buf, e.Hash[:]...)
	case encoding.KindNumericalBlankNode:
		buf = append(buf, e.BlankID[:]...)
	case encoding.KindSmallBlankNode, encoding.KindSmallStringLiteral:
		buf = appendLenPrefixed(buf, e.Small)
	case encoding.KindSmallLangStringLiteral:
		buf = appendLenPrefixed(buf, e.Small)
		buf = appendLenPrefixed(buf, e.Lang)
		buf = append(buf, byte(e.Dir))
	case encoding.KindBigLangStringLiteral:
		buf = append(buf, e.Hash[:]...)
		buf = appendLenPrefixed(buf, e.Lang)
		buf = append(buf, byte(e.Dir))
	case encoding.KindSmallTypedLiteral:
		buf = appendLenPrefixed(buf, e.Small)
		buf = append(buf, e.DtHash[:]...)
	case encoding.KindBigTypedLiteral:
		buf = append(buf, e.Hash[:]...)
		buf = append(buf, e.DtHash[:]...)
	case encoding.KindBooleanLiteral:
		b := byte(0)
		if e.Bool {
			b = 1
		}
		buf = append(buf, b)
	case encoding.KindIntegerLiteral:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(e.Int))
		buf = append(buf, b[:]...)
	case encoding.KindDecimalLiteral:
		b := e.Decimal.Bytes16()
		buf = append(buf, b[:]...)
	case encoding.KindFloatLiteral:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(e.Float32))
		buf = append(buf, b[:]...)
	case encoding.KindDoubleLiteral:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(e.Float64))
		buf = append(buf, b[:]...)
	case encoding.KindDateTimeLiteral, encoding.KindDateLiteral, encoding.KindTimeLiteral,
		encoding.KindGYearLiteral, encoding.KindGMonthLiteral, encoding.KindGDayLiteral,
		encoding.KindGYearMonthLiteral, encoding.KindGMonthDayLiteral:
		buf = append(buf, encodeDateTime(e.DateTime)...)
	case encoding.KindDurationLiteral, encoding.KindYearMonthDurationLiteral, encoding.KindDayTimeDurationLiteral:
		buf = append(buf, encodeDuration(e.Duration)...)
	case encoding.KindTripleTerm:
		if e.Triple == nil {
			break
		}
		buf = AppendTermKey(buf, e.Triple.Subject)
		buf = append(buf, e.Triple.Predicate[:]...)
		buf = AppendTermKey(buf, e.Triple.Object)
	}
	return buf
}

func appendLenPrefixed(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

// DecodeTerm parses one term-key from the front of b, returning the
// decoded term and the number of bytes consumed.
func DecodeTerm(b []byte) (encoding.EncodedTerm, int, error) {
	if len(b) == 0 {
		return encoding.EncodedTerm{}, 0, storeerr.Corruption("empty term key")
	}
	kind := encoding.Kind(b[0])
	n := 1
	e := encoding.EncodedTerm{Kind: kind}
	switch kind {
	case encoding.KindDefaultGraph:
		// nothing more
	case encoding.KindNamedNode, encoding.KindBigBlankNode, encoding.KindBigStringLiteral:
		if len(b) < n+16 {
			return e, 0, storeerr.Corruption("truncated hash term key")
		}
		copy(e.Hash[:], b[n:n+16])
		n += 16
	case encoding.KindNumericalBlankNode:
		if len(b) < n+16 {
			return e, 0, storeerr.Corruption("truncated blank node key")
		}
		copy(e.BlankID[:], b[n:n+16])
		n += 16
	case encoding.KindSmallBlankNode, encoding.KindSmallStringLiteral:
		s, m, err := readLenPrefixed(b[n:])
		if err != nil {
			return e, 0, err
		}
		e.Small = s
		n += m
	case encoding.KindSmallLangStringLiteral:
		s, m, err := readLenPrefixed(b[n:])
		if err != nil {
			return e, 0, err
		}
		e.Small = s
		n += m
		lang, m2, err := readLenPrefixed(b[n:])
		if err != nil {
			return e, 0, err
		}
		e.Lang = lang
		n += m2
		if len(b) < n+1 {
			return e, 0, storeerr.Corruption("truncated direction byte")
		}
		e.Dir = term.BaseDirection(b[n])
		n++
	case encoding.KindBigLangStringLiteral:
		if len(b) < n+16 {
			return e, 0, storeerr.Corruption("truncated hash term key")
		}
		copy(e.Hash[:], b[n:n+16])
		n += 16
		lang, m2, err := readLenPrefixed(b[n:])
		if err != nil {
			return e, 0, err
		}
		e.Lang = lang
		n += m2
		if len(b) < n+1 {
			return e, 0, storeerr.Corruption("truncated direction byte")
		}
		e.Dir = term.BaseDirection(b[n])
		n++
	case encoding.KindSmallTypedLiteral:
		s, m, err := readLenPrefixed(b[n:])
		if err != nil {
			return e, 0, err
		}
		e.Small = s
		n += m
		if len(b) < n+16 {
			return e, 0, storeerr.Corruption("truncated datatype hash")
		}
		copy(e.DtHash[:], b[n:n+16])
		n += 16
	case encoding.KindBigTypedLiteral:
		if len(b) < n+32 {
			return e, 0, storeerr.Corruption("truncated typed literal key")
		}
		copy(e.Hash[:], b[n:n+16])
		copy(e.DtHash[:], b[n+16:n+32])
		n += 32
	case encoding.KindBooleanLiteral:
		if len(b) < n+1 {
			return e, 0, storeerr.Corruption("truncated boolean key")
		}
		e.Bool = b[n] != 0
		n++
	case encoding.KindIntegerLiteral:
		if len(b) < n+8 {
			return e, 0, storeerr.Corruption("truncated integer key")
		}
		e.Int = int64(binary.BigEndian.Uint64(b[n : n+8]))
		n += 8
	case encoding.KindDecimalLiteral:
		if len(b) < n+16 {
			return e, 0, storeerr.Corruption("truncated decimal key")
		}
		var raw [16]byte
		copy(raw[:], b[n:n+16])
		e.Decimal = term.DecimalFromBytes16(raw)
		n += 16
	case encoding.KindFloatLiteral:
		if len(b) < n+4 {
			return e, 0, storeerr.Corruption("truncated float key")
		}
		e.Float32 = math.Float32frombits(binary.BigEndian.Uint32(b[n : n+4]))
		n += 4
	case encoding.KindDoubleLiteral:
		if len(b) < n+8 {
			return e, 0, storeerr.Corruption("truncated double key")
		}
		e.Float64 = math.Float64frombits(binary.BigEndian.Uint64(b[n : n+8]))
		n += 8
	case encoding.KindDateTimeLiteral, encoding.KindDateLiteral, encoding.KindTimeLiteral,
		encoding.KindGYearLiteral, encoding.KindGMonthLiteral, encoding.KindGDayLiteral,
		encoding.KindGYearMonthLiteral, encoding.KindGMonthDayLiteral:
		if len(b) < n+dateTimeWidth {
			return e, 0, storeerr.Corruption("truncated date/time key")
		}
		e.DateTime = decodeDateTime(b[n : n+dateTimeWidth])
		n += dateTimeWidth
	case encoding.KindDurationLiteral, encoding.KindYearMonthDurationLiteral, encoding.KindDayTimeDurationLiteral:
		if len(b) < n+durationWidth {
			return e, 0, storeerr.Corruption("truncated duration key")
		}
		e.Duration = decodeDuration(b[n : n+durationWidth])
		n += durationWidth
	case encoding.KindTripleTerm:
		sub, m, err := DecodeTerm(b[n:])
		if err != nil {
			return e, 0, err
		}
		n += m
		if len(b) < n+16 {
			return e, 0, storeerr.Corruption("truncated triple predicate")
		}
		var pred [16]byte
		copy(pred[:], b[n:n+16])
		n += 16
		obj, m2, err := DecodeTerm(b[n:])
		if err != nil {
			return e, 0, err
		}
		n += m2
		e.Triple = &encoding.EncodedTriple{Subject: sub, Predicate: pred, Object: obj}
	default:
		return e, 0, storeerr.Corruption("unrecognized term key tag")
	}
	return e, n, nil
}

func readLenPrefixed(b []byte) (string, int, error) {
	if len(b) < 1 {
		return "", 0, storeerr.Corruption("truncated length prefix")
	}
	l := int(b[0])
	if len(b) < 1+l {
		return "", 0, storeerr.Corruption("truncated length-prefixed payload")
	}
	return string(b[1 : 1+l]), 1 + l, nil
}

// dateTimeWidth/durationWidth are the fixed payload widths of the
// shared DateTime/Duration inline representations.
const (
	dateTimeWidth = 16
	durationWidth = 18
)

func encodeDateTime(dt term.DateTime) []byte {
	b := make([]byte, dateTimeWidth)
	binary.BigEndian.PutUint32(b[0:4], uint32(int32(dt.Year)))
	b[4] = byte(dt.Month)
	b[5] = byte(dt.Day)
	b[6] = byte(dt.Hour)
	b[7] = byte(dt.Minute)
	b[8] = byte(dt.Second)
	binary.BigEndian.PutUint32(b[9:13], uint32(int32(dt.Nanos)))
	hasTZ := byte(0)
	if dt.HasTZ {
		hasTZ = 1
	}
	b[13] = hasTZ
	binary.BigEndian.PutUint16(b[14:16], uint16(int16(dt.TZOffsetMinutes)))
	return b
}

func decodeDateTime(b []byte) term.DateTime {
	var dt term.DateTime
	dt.Year = int(int32(binary.BigEndian.Uint32(b[0:4])))
	dt.Month = int(b[4])
	dt.Day = int(b[5])
	dt.Hour = int(b[6])
	dt.Minute = int(b[7])
	dt.Second = int(b[8])
	dt.Nanos = int(int32(binary.BigEndian.Uint32(b[9:13])))
	dt.HasTZ = b[13] != 0
	dt.TZOffsetMinutes = int(int16(binary.BigEndian.Uint16(b[14:16])))
	return dt
}

func encodeDuration(d term.Duration) []byte {
	b := make([]byte, durationWidth)
	binary.BigEndian.PutUint32(b[0:4], uint32(int32(d.Months)))
	binary.BigEndian.PutUint32(b[4:8], uint32(int32(d.Days)))
	binary.BigEndian.PutUint32(b[8:12], uint32(int32(d.Seconds)))
	binary.BigEndian.PutUint32(b[12:16], uint32(int32(d.Nanos)))
	neg := byte(0)
	if d.Negative {
		neg = 1
	}
	b[16] = neg
	// b[17] reserved/padding
	return b
}

func decodeDuration(b []byte) term.Duration {
	var d term.Duration
	d.Months = int(int32(binary.BigEndian.Uint32(b[0:4])))
	d.Days = int(int32(binary.BigEndian.Uint32(b[4:8])))
	d.Seconds = int(int32(binary.BigEndian.Uint32(b[8:12])))
	d.Nanos = int(int32(binary.BigEndian.Uint32(b[12:16])))
	d.Negative = b[16] != 0
	return d
}
