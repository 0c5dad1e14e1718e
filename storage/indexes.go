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
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/term"
)

// QuadOrdering is one of the nine key-permutation indexes: Dirs lists
// the quad positions present in the key, in key order. Named orderings
// additionally hold the graph-name position; default-graph orderings
// never encode a graph byte at all, which is both a smaller key and a
// correctness requirement since the D* and G* keyspaces must stay
// disjoint.
type QuadOrdering struct {
	Bucket []byte
	Dirs   []term.Direction
	Named  bool
}

var (
	DSPO = QuadOrdering{Bucket: []byte("dspo"), Dirs: []term.Direction{term.Subject, term.Predicate, term.Object}}
	DPOS = QuadOrdering{Bucket: []byte("dpos"), Dirs: []term.Direction{term.Predicate, term.Object, term.Subject}}
	DOSP = QuadOrdering{Bucket: []byte("dosp"), Dirs: []term.Direction{term.Object, term.Subject, term.Predicate}}

	SPOG = QuadOrdering{Bucket: []byte("spog"), Dirs: []term.Direction{term.Subject, term.Predicate, term.Object, term.Graph}, Named: true}
	POSG = QuadOrdering{Bucket: []byte("posg"), Dirs: []term.Direction{term.Predicate, term.Object, term.Subject, term.Graph}, Named: true}
	OSPG = QuadOrdering{Bucket: []byte("ospg"), Dirs: []term.Direction{term.Object, term.Subject, term.Predicate, term.Graph}, Named: true}
	GSPO = QuadOrdering{Bucket: []byte("gspo"), Dirs: []term.Direction{term.Graph, term.Subject, term.Predicate, term.Object}, Named: true}
	GPOS = QuadOrdering{Bucket: []byte("gpos"), Dirs: []term.Direction{term.Graph, term.Predicate, term.Object, term.Subject}, Named: true}
	GOSP = QuadOrdering{Bucket: []byte("gosp"), Dirs: []term.Direction{term.Graph, term.Object, term.Subject, term.Predicate}, Named: true}
)

// DefaultOrderings and NamedOrderings group the nine orderings by
// family, used by the write path (Insert, Remove, ClearGraph) and by
// bulk loading.
var (
	DefaultOrderings = []QuadOrdering{DSPO, DPOS, DOSP}
	NamedOrderings   = []QuadOrdering{SPOG, POSG, OSPG, GSPO, GPOS, GOSP}
	AllOrderings     = append(append([]QuadOrdering{}, DefaultOrderings...), NamedOrderings...)
)

// KeyFor composes the index key for q under this ordering.
func (ind QuadOrdering) KeyFor(q encoding.EncodedQuad) []byte {
	var buf []byte
	for _, d := range ind.Dirs {
		buf = AppendTermKey(buf, quadGet(q, d))
	}
	return buf
}

// Decode parses a key produced by KeyFor back into an EncodedQuad,
// filling any position absent from Dirs (only ever the graph position,
// and only for default-graph orderings) with the default-graph marker.
func (ind QuadOrdering) Decode(key []byte) (encoding.EncodedQuad, error) {
	var q encoding.EncodedQuad
	if !ind.Named {
		q.Graph = encoding.EncodedTerm{Kind: encoding.KindDefaultGraph}
	}
	rest := key
	for _, d := range ind.Dirs {
		t, n, err := DecodeTerm(rest)
		if err != nil {
			return q, err
		}
		quadSet(&q, d, t)
		rest = rest[n:]
	}
	return q, nil
}

func quadGet(q encoding.EncodedQuad, d term.Direction) encoding.EncodedTerm {
	switch d {
	case term.Subject:
		return q.Subject
	case term.Predicate:
		return q.Predicate
	case term.Object:
		return q.Object
	case term.Graph:
		return q.Graph
	default:
		panic(d.String())
	}
}

func quadSet(q *encoding.EncodedQuad, d term.Direction, t encoding.EncodedTerm) {
	switch d {
	case term.Subject:
		q.Subject = t
	case term.Predicate:
		q.Predicate = t
	case term.Object:
		q.Object = t
	case term.Graph:
		q.Graph = t
	default:
		panic(d.String())
	}
}

// BoundMask describes which positions of a pattern are bound (non-nil).
type BoundMask struct {
	S, P, O, G bool
}

// SelectOrderings picks the pair of orderings (one D*, one G*) whose
// key prefix contains the bound positions of the pattern. The choice is
// a pure function of which positions are bound, never of the values
// themselves, so the yielded set is order-agnostic.
//
// When g is bound to the default graph, only the D* member applies (the
// G* family cannot contain a default-graph quad at all, so scanning it
// would be wasted work, not an error); when g is bound to a named graph,
// only the G* member applies, and it is always one of the GSPO/GPOS/GOSP
// orderings so the graph byte leads the key.
func SelectOrderings(m BoundMask) (def, named QuadOrdering) {
	if m.G {
		// Graph bound: pick the G-leading ordering whose prefix covers
		// the longest run of bound S/P/O positions after the graph byte.
		switch {
		case m.S && m.P:
			return DSPO, GSPO
		case m.S && m.O:
			return DOSP, GOSP
		case m.S:
			return DSPO, GSPO
		case m.P:
			return DPOS, GPOS
		case m.O:
			return DOSP, GOSP
		default:
			return DSPO, GSPO
		}
	}
	switch {
	case m.S && m.P:
		return DSPO, SPOG
	case m.S && m.O:
		return DOSP, OSPG
	case m.S:
		return DSPO, SPOG
	case m.P:
		return DPOS, POSG
	case m.O:
		return DOSP, OSPG
	default:
		return DSPO, GSPO
	}
}

// presentValue is the value stored under every index and registry key:
// keys carry all the information, but a non-empty value keeps backends
// that conflate zero-length values with absence (bbolt) honest.
var presentValue = []byte{1}
