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

package storage

import (
	"context"
	"errors"

	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/term"
)

// scanSpec is one prefix scan over one index ordering. A pattern needs
// one scan (graph bound) or two (graph unbound: the default-graph family
// plus the named-graph family, which are disjoint keyspaces).
type scanSpec struct {
	ordering QuadOrdering
	prefix   []byte
}

// Iterator is a lazy, restartable stream of encoded quads matching a
// pattern. It may own the Reader whose snapshot it scans, releasing it
// on Close so the snapshot never outlives its last consumer.
type Iterator struct {
	tx    kvstore.BucketTx
	owner *Reader

	scans []scanSpec
	idx   int
	ord   QuadOrdering
	cur   kvstore.Iterator

	match func(encoding.EncodedQuad) bool
	q     encoding.EncodedQuad
	err   error
}

// Next advances to the next matching quad.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for {
		if it.cur == nil {
			if it.idx >= len(it.scans) {
				return false
			}
			sc := it.scans[it.idx]
			it.idx++
			b, err := it.tx.Bucket(sc.ordering.Bucket, kvstore.OpGet)
			if errors.Is(err, kvstore.ErrNoBucket) {
				continue
			} else if err != nil {
				it.err = err
				return false
			}
			mPatternScans.WithLabelValues(string(sc.ordering.Bucket)).Inc()
			it.ord = sc.ordering
			it.cur = b.Scan(sc.prefix)
		}
		for it.cur.Next(ctx) {
			q, err := it.ord.Decode(it.cur.Key())
			if err != nil {
				it.err = err
				it.cur.Close()
				it.cur = nil
				return false
			}
			if it.match != nil && !it.match(q) {
				continue
			}
			it.q = q
			return true
		}
		if err := it.cur.Err(); err != nil {
			it.err = err
			it.cur.Close()
			it.cur = nil
			return false
		}
		it.cur.Close()
		it.cur = nil
	}
}

// Quad returns the current quad after a successful Next.
func (it *Iterator) Quad() encoding.EncodedQuad { return it.q }

// Err returns the first error hit during iteration.
func (it *Iterator) Err() error { return it.err }

// Close releases the underlying scan and, when the iterator owns its
// snapshot, the snapshot too.
func (it *Iterator) Close() error {
	if it.cur != nil {
		it.cur.Close()
		it.cur = nil
	}
	it.idx = len(it.scans)
	if it.owner != nil {
		owner := it.owner
		it.owner = nil
		return owner.Close()
	}
	return nil
}

// encodedQuadsForPattern builds the scan plan for a pattern of encoded
// terms (nil = unbound), per the SelectOrderings table.
func encodedQuadsForPattern(tx kvstore.BucketTx, owner *Reader, sp, pp, op, gp *encoding.EncodedTerm) *Iterator {
	mask := BoundMask{S: sp != nil, P: pp != nil, O: op != nil, G: gp != nil}
	def, named := SelectOrderings(mask)

	get := func(d term.Direction) *encoding.EncodedTerm {
		switch d {
		case term.Subject:
			return sp
		case term.Predicate:
			return pp
		case term.Object:
			return op
		case term.Graph:
			return gp
		default:
			panic(d.String())
		}
	}
	prefixFor := func(ind QuadOrdering) []byte {
		var buf []byte
		for _, d := range ind.Dirs {
			t := get(d)
			if t == nil {
				break
			}
			buf = AppendTermKey(buf, *t)
		}
		return buf
	}

	var scans []scanSpec
	switch {
	case gp != nil && gp.IsDefaultGraph():
		// The G* family cannot contain a default-graph quad; D* alone is
		// both smaller keys and required for correctness.
		scans = []scanSpec{{ordering: def, prefix: prefixFor(def)}}
	case gp != nil:
		scans = []scanSpec{{ordering: named, prefix: prefixFor(named)}}
	default:
		scans = []scanSpec{
			{ordering: def, prefix: prefixFor(def)},
			{ordering: named, prefix: prefixFor(named)},
		}
	}

	// Prefix scans cover the leading bound run; positions bound after an
	// unbound one (e.g. O with only S,G bound under GSPO) are re-checked
	// here. Checking all four is cheap and keeps the yielded set a
	// function of the pattern alone, not of the chosen index.
	match := func(q encoding.EncodedQuad) bool {
		if sp != nil && !q.Subject.Equal(*sp) {
			return false
		}
		if pp != nil && !q.Predicate.Equal(*pp) {
			return false
		}
		if op != nil && !q.Object.Equal(*op) {
			return false
		}
		if gp != nil && !q.Graph.Equal(*gp) {
			return false
		}
		return true
	}

	return &Iterator{tx: tx, owner: owner, scans: scans, match: match}
}

// Quads is the term-level pattern iterator: it decodes each encoded quad
// through the snapshot it runs in.
type Quads struct {
	it  *Iterator
	s   *Store
	tx  kvstore.BucketTx
	q   term.Quad
	err error
}

// Next advances to the next quad.
func (qs *Quads) Next(ctx context.Context) bool {
	if qs.err != nil || qs.it == nil {
		return false
	}
	if !qs.it.Next(ctx) {
		return false
	}
	q, err := qs.s.dec.DecodeQuad(qs.tx, qs.it.Quad())
	if err != nil {
		qs.err = err
		return false
	}
	qs.q = q
	return true
}

// Quad returns the current quad after a successful Next.
func (qs *Quads) Quad() term.Quad { return qs.q }

// Err returns the first error hit during iteration or decoding.
func (qs *Quads) Err() error {
	if qs.err != nil {
		return qs.err
	}
	if qs.it != nil {
		return qs.it.Err()
	}
	return nil
}

// Close releases the scan (and its snapshot, when owned).
func (qs *Quads) Close() error {
	if qs.it == nil {
		return nil
	}
	return qs.it.Close()
}

// All drains the iterator into a slice, closing it.
func (qs *Quads) All(ctx context.Context) ([]term.Quad, error) {
	defer qs.Close()
	var out []term.Quad
	for qs.Next(ctx) {
		out = append(out, qs.Quad())
	}
	return out, qs.Err()
}

func quadsForPattern(s *Store, tx kvstore.BucketTx, owner *Reader, sp, pp, op term.Value, gp term.GraphName) *Quads {
	encode := func(v term.Value) (*encoding.EncodedTerm, error) {
		if v == nil {
			return nil, nil
		}
		e, _, err := encoding.EncodeTerm(v)
		if err != nil {
			return nil, err
		}
		return &e, nil
	}
	encodeGraph := func(v term.GraphName) (*encoding.EncodedTerm, error) {
		if v == nil {
			return nil, nil
		}
		if term.IsDefaultGraph(v) {
			return &encoding.EncodedTerm{Kind: encoding.KindDefaultGraph}, nil
		}
		return encode(v)
	}
	es, err := encode(sp)
	if err == nil {
		var ep, eo, eg *encoding.EncodedTerm
		if ep, err = encode(pp); err == nil {
			if eo, err = encode(op); err == nil {
				eg, err = encodeGraph(gp)
				if err == nil {
					return &Quads{it: encodedQuadsForPattern(tx, owner, es, ep, eo, eg), s: s, tx: tx}
				}
			}
		}
	}
	if owner != nil {
		owner.Close()
	}
	return &Quads{err: err}
}
