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

// Package sparqlupdate implements the update executor: one
// transactional executor function per SPARQL Update operation. A
// multi-operation update runs one transaction per operation; each
// single operation is atomic.
package sparqlupdate

import (
	"context"
	"errors"
	"fmt"

	"github.com/oxigraph/oxigraph-go/dataset"
	"github.com/oxigraph/oxigraph-go/planexec"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/storeerr"
	"github.com/oxigraph/oxigraph-go/term"
)

// DocumentLoader fetches and parses the RDF document behind LOAD. The
// RDF formats themselves are external collaborators; a loader that
// cannot handle the document's media type returns
// sparqlerr.UnsupportedContentTypeError.
type DocumentLoader interface {
	Load(ctx context.Context, source term.IRI) (storage.QuadSource, error)
}

// Options configure an Executor.
type Options struct {
	// Plan configures WHERE-clause evaluation.
	Plan planexec.Options
	// Loader backs LOAD; nil makes LOAD fail.
	Loader DocumentLoader
	// Substitutions pre-bind WHERE variables before execution.
	Substitutions map[sparqlalgebra.Variable]term.Value
}

// Executor runs update operations against one store.
type Executor struct {
	store *storage.Store
	opt   Options
}

// New builds an executor.
func New(store *storage.Store, opt Options) *Executor {
	return &Executor{store: store, opt: opt}
}

// Execute runs the operation list in order, stopping at the first
// error. Each operation is one transaction.
func (x *Executor) Execute(ctx context.Context, ops []sparqlalgebra.Update) error {
	for _, op := range ops {
		if err := x.execOne(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (x *Executor) execOne(ctx context.Context, op sparqlalgebra.Update) error {
	switch u := op.(type) {
	case sparqlalgebra.InsertData:
		return x.insertData(u)
	case sparqlalgebra.DeleteData:
		return x.deleteData(u)
	case sparqlalgebra.DeleteInsert:
		return x.deleteInsert(ctx, u)
	case sparqlalgebra.Load:
		return x.load(ctx, u)
	case sparqlalgebra.Clear:
		return x.clear(u)
	case sparqlalgebra.Create:
		return x.create(u)
	case sparqlalgebra.Drop:
		return x.drop(u)
	case sparqlalgebra.Copy:
		return x.copyGraph(ctx, u.From, u.To, clearTarget)
	case sparqlalgebra.Move:
		return x.copyGraph(ctx, u.From, u.To, clearTarget|dropSource)
	case sparqlalgebra.Add:
		return x.copyGraph(ctx, u.From, u.To, 0)
	default:
		return fmt.Errorf("sparqlupdate: unsupported operation %T", op)
	}
}

// insertData re-labels the template's blank nodes once per operation:
// they must be fresh in the store.
func (x *Executor) insertData(u sparqlalgebra.InsertData) error {
	blanks := make(map[term.BlankNode]term.BlankNode)
	return x.store.Transaction(func(tx *storage.Txn) error {
		for _, q := range u.Quads {
			if _, err := tx.Insert(relabelQuad(q, blanks)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *Executor) deleteData(u sparqlalgebra.DeleteData) error {
	return x.store.Transaction(func(tx *storage.Txn) error {
		for _, q := range u.Quads {
			if _, err := tx.Remove(q); err != nil {
				return err
			}
		}
		return nil
	})
}

func relabelQuad(q term.Quad, blanks map[term.BlankNode]term.BlankNode) term.Quad {
	relabel := func(v term.Value) term.Value {
		b, ok := v.(term.BlankNode)
		if !ok {
			return v
		}
		fresh, ok := blanks[b]
		if !ok {
			fresh = storage.MintBlankNode()
			blanks[b] = fresh
		}
		return fresh
	}
	q.Subject = relabel(q.Subject)
	q.Object = relabel(q.Object)
	return q
}

// deleteInsert evaluates WHERE on a snapshot, instantiates the delete
// and insert templates per solution, then applies all deletions before
// all insertions in one transaction.
func (x *Executor) deleteInsert(ctx context.Context, u sparqlalgebra.DeleteInsert) error {
	sols, err := x.evalWhere(ctx, u.Where, u.Using)
	if err != nil {
		return err
	}
	var tombstones, additions []term.Quad
	for _, sol := range sols {
		tombstones = append(tombstones, instantiate(u.Delete, sol, nil)...)
		blanks := make(map[term.BlankNode]term.BlankNode)
		additions = append(additions, instantiate(u.Insert, sol, blanks)...)
	}
	return x.store.Transaction(func(tx *storage.Txn) error {
		for _, q := range tombstones {
			if _, err := tx.Remove(q); err != nil {
				return err
			}
		}
		for _, q := range additions {
			if _, err := tx.Insert(q); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *Executor) evalWhere(ctx context.Context, where sparqlalgebra.Pattern, using *sparqlalgebra.DatasetSpec) ([]planexec.Solution, error) {
	r, err := x.store.Snapshot()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var spec *dataset.Spec
	if using != nil {
		spec = &dataset.Spec{DefaultGraphs: using.DefaultGraphs, NamedGraphs: using.NamedGraphs}
	}
	view, err := dataset.NewView(r, spec)
	if err != nil {
		return nil, err
	}
	ev := planexec.NewEvaluator(view, x.opt.Plan)
	in := planexec.Solution{}
	for v, t := range x.opt.Substitutions {
		in[v] = t
	}
	it := ev.Eval(where, in)
	defer it.Close()
	var out []planexec.Solution
	for it.Next(ctx) {
		out = append(out, it.Binding())
	}
	return out, it.Err()
}

// instantiate fills one template for one solution. Rows whose
// instantiation is incomplete (unbound variable) or ill-typed (literal
// subject, non-IRI predicate) are skipped, per the SPARQL Update
// semantics. A nil blanks map means blank nodes stay as written
// (DELETE templates); otherwise they are re-labeled fresh per solution.
func instantiate(tpls []sparqlalgebra.QuadTemplate, sol planexec.Solution, blanks map[term.BlankNode]term.BlankNode) []term.Quad {
	var out []term.Quad
	for _, tpl := range tpls {
		resolve := func(tv sparqlalgebra.TermOrVar) (term.Value, bool) {
			if tv.IsVar() {
				v, ok := sol[tv.Var]
				return v, ok
			}
			if blanks != nil {
				if b, isBlank := tv.Term.(term.BlankNode); isBlank {
					fresh, seen := blanks[b]
					if !seen {
						fresh = storage.MintBlankNode()
						blanks[b] = fresh
					}
					return fresh, true
				}
			}
			return tv.Term, true
		}
		s, ok := resolve(tpl.Subject)
		if !ok {
			continue
		}
		if _, bad := s.(term.Literal); bad {
			continue
		}
		p, ok := resolve(tpl.Predicate)
		if !ok {
			continue
		}
		pi, isIRI := p.(term.IRI)
		if !isIRI {
			continue
		}
		o, ok := resolve(tpl.Object)
		if !ok {
			continue
		}
		// A zero-valued Graph position (no term, no variable) targets the
		// default graph.
		g := term.GraphName(term.DefaultGraph)
		switch {
		case tpl.Graph.Var != "":
			g, ok = resolve(tpl.Graph)
			if !ok {
				continue
			}
		case tpl.Graph.Term != nil:
			g = tpl.Graph.Term
		}
		out = append(out, term.Quad{Subject: s, Predicate: pi, Object: o, Graph: g})
	}
	return out
}

func (x *Executor) load(ctx context.Context, u sparqlalgebra.Load) error {
	err := x.loadInto(ctx, u)
	if err != nil && u.Silent {
		return nil
	}
	return err
}

func (x *Executor) loadInto(ctx context.Context, u sparqlalgebra.Load) error {
	if x.opt.Loader == nil {
		return fmt.Errorf("sparqlupdate: no document loader configured for LOAD %s", u.Source)
	}
	src, err := x.opt.Loader.Load(ctx, u.Source)
	if err != nil {
		return err
	}
	defer src.Close()
	blanks := make(map[term.BlankNode]term.BlankNode)
	return x.store.Transaction(func(tx *storage.Txn) error {
		for src.Next(ctx) {
			q := relabelQuad(src.Quad(), blanks)
			if u.Destination != nil {
				q.Graph = u.Destination
			}
			if _, err := tx.Insert(q); err != nil {
				return err
			}
		}
		return src.Err()
	})
}

func (x *Executor) clear(u sparqlalgebra.Clear) error {
	err := x.store.Transaction(func(tx *storage.Txn) error {
		return forTargets(tx, u.Target, func(g term.GraphName) error {
			return tx.ClearGraph(g)
		})
	})
	if u.Silent && errors.Is(err, storeerr.ErrGraphDoesNotExist) {
		return nil
	}
	return err
}

func (x *Executor) create(u sparqlalgebra.Create) error {
	err := x.store.Transaction(func(tx *storage.Txn) error {
		created, err := tx.InsertNamedGraph(u.Graph)
		if err != nil {
			return err
		}
		if !created {
			return storeerr.ErrGraphAlreadyExists
		}
		return nil
	})
	if u.Silent && errors.Is(err, storeerr.ErrGraphAlreadyExists) {
		return nil
	}
	return err
}

func (x *Executor) drop(u sparqlalgebra.Drop) error {
	err := x.store.Transaction(func(tx *storage.Txn) error {
		if u.Target.Kind == sparqlalgebra.TargetGraph {
			removed, err := tx.RemoveNamedGraph(u.Target.Graph)
			if err != nil {
				return err
			}
			if !removed {
				return storeerr.ErrGraphDoesNotExist
			}
			return nil
		}
		return forTargets(tx, u.Target, func(g term.GraphName) error {
			if term.IsDefaultGraph(g) {
				return tx.ClearGraph(g)
			}
			_, err := tx.RemoveNamedGraph(g)
			return err
		})
	})
	if u.Silent && errors.Is(err, storeerr.ErrGraphDoesNotExist) {
		return nil
	}
	return err
}

// forTargets expands a CLEAR/DROP target to concrete graphs inside the
// transaction's own view.
func forTargets(tx *storage.Txn, target sparqlalgebra.GraphTarget, fn func(term.GraphName) error) error {
	switch target.Kind {
	case sparqlalgebra.TargetGraph:
		if !term.IsDefaultGraph(target.Graph) {
			has, err := tx.ContainsNamedGraph(target.Graph)
			if err != nil {
				return err
			}
			if !has {
				return storeerr.ErrGraphDoesNotExist
			}
		}
		return fn(target.Graph)
	case sparqlalgebra.TargetDefault:
		return fn(term.DefaultGraph)
	case sparqlalgebra.TargetNamed:
		graphs, err := tx.NamedGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := fn(g); err != nil {
				return err
			}
		}
		return nil
	default: // TargetAll
		if err := fn(term.DefaultGraph); err != nil {
			return err
		}
		graphs, err := tx.NamedGraphs()
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := fn(g); err != nil {
				return err
			}
		}
		return nil
	}
}

type copyMode int

const (
	clearTarget copyMode = 1 << iota
	dropSource
)

// copyGraph implements COPY/MOVE/ADD: optionally clear the target,
// copy every quad across, optionally drop the source.
func (x *Executor) copyGraph(ctx context.Context, from, to term.GraphName, mode copyMode) error {
	if from == nil {
		from = term.DefaultGraph
	}
	if to == nil {
		to = term.DefaultGraph
	}
	if sameGraph(from, to) {
		return nil
	}
	return x.store.Transaction(func(tx *storage.Txn) error {
		quads, err := tx.QuadsForPattern(nil, nil, nil, from).All(ctx)
		if err != nil {
			return err
		}
		if mode&clearTarget != 0 {
			if err := tx.ClearGraph(to); err != nil {
				return err
			}
		}
		if !term.IsDefaultGraph(to) {
			if _, err := tx.InsertNamedGraph(to); err != nil {
				return err
			}
		}
		for _, q := range quads {
			q.Graph = to
			if _, err := tx.Insert(q); err != nil {
				return err
			}
		}
		if mode&dropSource != 0 {
			if term.IsDefaultGraph(from) {
				return tx.ClearGraph(from)
			}
			_, err := tx.RemoveNamedGraph(from)
			return err
		}
		return nil
	})
}

func sameGraph(a, b term.GraphName) bool {
	if term.IsDefaultGraph(a) && term.IsDefaultGraph(b) {
		return true
	}
	return a.String() == b.String()
}
