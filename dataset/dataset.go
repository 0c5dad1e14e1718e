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

// Package dataset implements the dataset view: the per-query overlay
// between the storage engine and the SPARQL evaluator. It restricts
// visible graphs per the query's FROM/FROM NAMED clause and owns a
// temporary string interner so query-only terms (FILTER constants,
// VALUES rows) never reach the persistent dictionary.
package dataset

import (
	"context"
	"sync"

	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/encoding"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

// Spec is the query's dataset clause: FROM builds the default-graph
// union, FROM NAMED restricts which graphs GRAPH may open.
type Spec struct {
	DefaultGraphs []term.IRI
	NamedGraphs   []term.IRI
}

// View is a read view over one snapshot plus a temporary interner. Any
// encoded term that travels outside the view must be externalized back
// to a term before the view is dropped.
type View struct {
	r *storage.Reader

	hasDefaultSpec bool
	defaultGraphs  []encoding.EncodedTerm
	hasNamedSpec   bool
	namedGraphs    []encoding.EncodedTerm

	mu       sync.Mutex
	interner map[dictionary.Hash128]string
}

// NewView builds a view over r with the given dataset spec (nil means
// the default RDF dataset: the plain default graph, all named graphs).
func NewView(r *storage.Reader, spec *Spec) (*View, error) {
	v := &View{r: r, interner: make(map[dictionary.Hash128]string)}
	if spec == nil {
		return v, nil
	}
	if spec.DefaultGraphs != nil {
		v.hasDefaultSpec = true
		for _, g := range spec.DefaultGraphs {
			eg, err := v.InternalizeTerm(g)
			if err != nil {
				return nil, err
			}
			v.defaultGraphs = append(v.defaultGraphs, eg)
		}
	}
	if spec.NamedGraphs != nil {
		v.hasNamedSpec = true
		for _, g := range spec.NamedGraphs {
			eg, err := v.InternalizeTerm(g)
			if err != nil {
				return nil, err
			}
			v.namedGraphs = append(v.namedGraphs, eg)
		}
	}
	return v, nil
}

// Reader exposes the underlying snapshot.
func (v *View) Reader() *storage.Reader { return v.r }

// InternalizeTerm encodes t, recording any hashed strings in the
// temporary interner rather than the persistent dictionary: if the
// store already knows the string the persistent encoding is reused
// unchanged, since the encoding is content-addressed either way.
func (v *View) InternalizeTerm(t term.Value) (encoding.EncodedTerm, error) {
	e, refs, err := encoding.EncodeTerm(t)
	if err != nil {
		return encoding.EncodedTerm{}, err
	}
	v.mu.Lock()
	for _, r := range refs {
		v.interner[r.Hash] = r.Value
	}
	v.mu.Unlock()
	return e, nil
}

// lookup resolves a hash, temporary interner first, then the store.
func (v *View) lookup(h dictionary.Hash128) (string, bool, error) {
	v.mu.Lock()
	s, ok := v.interner[h]
	v.mu.Unlock()
	if ok {
		return s, true, nil
	}
	return v.r.LookupString(h)
}

// ExternalizeTerm resolves e back to a term, checking the temporary
// interner before the persistent dictionary.
func (v *View) ExternalizeTerm(e encoding.EncodedTerm) (term.Value, error) {
	return encoding.DecodeTermWith(v.lookup, e)
}

// ExternalizeQuad resolves all four positions of eq.
func (v *View) ExternalizeQuad(eq encoding.EncodedQuad) (term.Quad, error) {
	s, err := v.ExternalizeTerm(eq.Subject)
	if err != nil {
		return term.Quad{}, err
	}
	p, err := v.ExternalizeTerm(eq.Predicate)
	if err != nil {
		return term.Quad{}, err
	}
	o, err := v.ExternalizeTerm(eq.Object)
	if err != nil {
		return term.Quad{}, err
	}
	g, err := v.ExternalizeTerm(eq.Graph)
	if err != nil {
		return term.Quad{}, err
	}
	pi, ok := p.(term.IRI)
	if !ok {
		return term.Quad{}, storeerr.Corruption("stored predicate is not a named node")
	}
	return term.Quad{Subject: s, Predicate: pi, Object: o, Graph: g}, nil
}

// NamedGraphs enumerates the dataset's named graphs: the registered set
// intersected with the FROM NAMED filter.
func (v *View) NamedGraphs() ([]encoding.EncodedTerm, error) {
	registered, err := v.r.EncodedNamedGraphs()
	if err != nil {
		return nil, err
	}
	if !v.hasNamedSpec {
		return registered, nil
	}
	var out []encoding.EncodedTerm
	for _, g := range v.namedGraphs {
		for _, reg := range registered {
			if g.Equal(reg) {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

func (v *View) allowsNamed(g encoding.EncodedTerm) bool {
	if !v.hasNamedSpec {
		return true
	}
	for _, ng := range v.namedGraphs {
		if ng.Equal(g) {
			return true
		}
	}
	return false
}

// Iterator streams encoded quads that pass the view's graph filter,
// with graph names rewritten to the default-graph marker for the
// FROM-union scans.
type Iterator struct {
	subs []sub
	idx  int
	q    encoding.EncodedQuad
	err  error

	// seen dedupes the default-graph union: the same triple present in
	// two FROM graphs is one triple of the merged default graph.
	seen map[string]struct{}
}

type sub struct {
	it      *storage.Iterator
	rewrite bool
}

// Next advances to the next visible quad.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.idx < len(it.subs) {
		s := it.subs[it.idx]
		for s.it.Next(ctx) {
			q := s.it.Quad()
			if s.rewrite {
				q.Graph = encoding.EncodedTerm{Kind: encoding.KindDefaultGraph}
				if it.seen != nil {
					key := string(storage.DSPO.KeyFor(q))
					if _, dup := it.seen[key]; dup {
						continue
					}
					it.seen[key] = struct{}{}
				}
			}
			it.q = q
			return true
		}
		if err := s.it.Err(); err != nil {
			it.err = err
			return false
		}
		s.it.Close()
		it.idx++
	}
	return false
}

// Quad returns the current quad after a successful Next.
func (it *Iterator) Quad() encoding.EncodedQuad { return it.q }

// Err returns the first error hit.
func (it *Iterator) Err() error { return it.err }

// Close releases all remaining scans.
func (it *Iterator) Close() error {
	for ; it.idx < len(it.subs); it.idx++ {
		it.subs[it.idx].it.Close()
	}
	return nil
}

// QuadsForPattern scans quads matching the pattern under the view's
// graph visibility rules. nil means unbound; a default-graph marker as
// gp selects the (possibly FROM-rewritten) default graph.
func (v *View) QuadsForPattern(sp, pp, op, gp *encoding.EncodedTerm) *Iterator {
	switch {
	case gp != nil && gp.IsDefaultGraph():
		if v.hasDefaultSpec {
			return v.unionScan(sp, pp, op)
		}
		return singleScan(v.r.EncodedQuadsForPattern(sp, pp, op, gp), false)
	case gp != nil:
		if !v.allowsNamed(*gp) {
			return &Iterator{}
		}
		return singleScan(v.r.EncodedQuadsForPattern(sp, pp, op, gp), false)
	case v.hasNamedSpec:
		it := &Iterator{}
		for i := range v.namedGraphs {
			g := v.namedGraphs[i]
			it.subs = append(it.subs, sub{it: v.r.EncodedQuadsForPattern(sp, pp, op, &g)})
		}
		return it
	case v.hasDefaultSpec:
		return v.unionScan(sp, pp, op)
	default:
		return singleScan(v.r.EncodedQuadsForPattern(sp, pp, op, nil), false)
	}
}

func singleScan(s *storage.Iterator, rewrite bool) *Iterator {
	return &Iterator{subs: []sub{{it: s, rewrite: rewrite}}}
}

// unionScan is the FROM default-graph union: scan every FROM graph,
// replacing each yielded graph name with the default-graph marker and
// deduplicating across graphs.
func (v *View) unionScan(sp, pp, op *encoding.EncodedTerm) *Iterator {
	it := &Iterator{}
	if len(v.defaultGraphs) > 1 {
		it.seen = make(map[string]struct{})
	}
	for i := range v.defaultGraphs {
		g := v.defaultGraphs[i]
		it.subs = append(it.subs, sub{it: v.r.EncodedQuadsForPattern(sp, pp, op, &g), rewrite: true})
	}
	return it
}
