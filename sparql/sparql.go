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

// Package sparql is the exposed evaluator API: a builder over the plan
// and update executors that turns parsed queries and update lists into
// prepared objects bound to a store. SPARQL text parsing itself is an
// external collaborator plugged in through the QueryParser/UpdateParser
// interfaces.
package sparql

import (
	"context"
	"errors"
	"time"

	"github.com/oxigraph/oxigraph-go/dataset"
	"github.com/oxigraph/oxigraph-go/planexec"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/sparqlerr"
	"github.com/oxigraph/oxigraph-go/sparqlexpr"
	"github.com/oxigraph/oxigraph-go/sparqlupdate"
	"github.com/oxigraph/oxigraph-go/storage"
	"github.com/oxigraph/oxigraph-go/term"
)

// QueryParser turns SPARQL query text into the algebra (external).
type QueryParser interface {
	ParseQuery(query, base string, prefixes map[string]string) (*sparqlalgebra.Query, error)
}

// UpdateParser turns SPARQL update text into an operation list
// (external).
type UpdateParser interface {
	ParseUpdate(update, base string, prefixes map[string]string) ([]sparqlalgebra.Update, error)
}

// ErrNoParser is returned by ParseQuery/ParseUpdate when no parser was
// plugged in.
var ErrNoParser = errors.New("sparql: no parser configured")

// Evaluator is the top-level builder. The zero value is not usable;
// start from NewEvaluator and chain the With* options.
type Evaluator struct {
	base           string
	prefixes       map[string]string
	custom         map[term.IRI]sparqlexpr.CustomFunction
	customAggs     map[term.IRI]planexec.CustomAggregate
	services       map[term.IRI]planexec.ServiceHandler
	defaultService planexec.ServiceHandler
	httpTimeout    time.Duration
	httpRedirects  int
	queryParser    QueryParser
	updateParser   UpdateParser
	loader         sparqlupdate.DocumentLoader
}

// NewEvaluator builds an evaluator with default settings: no custom
// functions, no service handlers, a 60s HTTP timeout and at most 5
// redirects for the built-in HTTP service client.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		prefixes:      map[string]string{},
		custom:        map[term.IRI]sparqlexpr.CustomFunction{},
		customAggs:    map[term.IRI]planexec.CustomAggregate{},
		services:      map[term.IRI]planexec.ServiceHandler{},
		httpTimeout:   60 * time.Second,
		httpRedirects: 5,
	}
}

// WithBase sets the base IRI used to resolve IRI() and passed to the
// parser.
func (e *Evaluator) WithBase(base string) *Evaluator { e.base = base; return e }

// WithPrefix registers a prefix for the parser.
func (e *Evaluator) WithPrefix(prefix, iri string) *Evaluator {
	e.prefixes[prefix] = iri
	return e
}

// WithCustomFunction registers fn under iri.
func (e *Evaluator) WithCustomFunction(iri term.IRI, fn sparqlexpr.CustomFunction) *Evaluator {
	e.custom[iri] = fn
	return e
}

// WithCustomAggregate registers agg under iri.
func (e *Evaluator) WithCustomAggregate(iri term.IRI, agg planexec.CustomAggregate) *Evaluator {
	e.customAggs[iri] = agg
	return e
}

// WithServiceHandler routes SERVICE calls naming iri to h.
func (e *Evaluator) WithServiceHandler(iri term.IRI, h planexec.ServiceHandler) *Evaluator {
	e.services[iri] = h
	return e
}

// WithDefaultServiceHandler handles SERVICE calls with no dedicated
// handler.
func (e *Evaluator) WithDefaultServiceHandler(h planexec.ServiceHandler) *Evaluator {
	e.defaultService = h
	return e
}

// WithHTTPTimeout bounds the built-in HTTP service client.
func (e *Evaluator) WithHTTPTimeout(d time.Duration) *Evaluator { e.httpTimeout = d; return e }

// WithHTTPRedirectionLimit bounds redirect-following in the built-in
// HTTP service client.
func (e *Evaluator) WithHTTPRedirectionLimit(n int) *Evaluator { e.httpRedirects = n; return e }

// WithQueryParser plugs in the external query parser.
func (e *Evaluator) WithQueryParser(p QueryParser) *Evaluator { e.queryParser = p; return e }

// WithUpdateParser plugs in the external update parser.
func (e *Evaluator) WithUpdateParser(p UpdateParser) *Evaluator { e.updateParser = p; return e }

// WithDocumentLoader backs the LOAD operation.
func (e *Evaluator) WithDocumentLoader(l sparqlupdate.DocumentLoader) *Evaluator {
	e.loader = l
	return e
}

// ParseQuery prepares query text through the configured parser.
func (e *Evaluator) ParseQuery(query string) (*PreparedQuery, error) {
	if e.queryParser == nil {
		return nil, ErrNoParser
	}
	q, err := e.queryParser.ParseQuery(query, e.base, e.prefixes)
	if err != nil {
		return nil, err
	}
	return e.PrepareQuery(q), nil
}

// PrepareQuery wraps an already-parsed query.
func (e *Evaluator) PrepareQuery(q *sparqlalgebra.Query) *PreparedQuery {
	return &PreparedQuery{ev: e, query: q}
}

// ParseUpdate prepares update text through the configured parser.
func (e *Evaluator) ParseUpdate(update string) (*PreparedUpdate, error) {
	if e.updateParser == nil {
		return nil, ErrNoParser
	}
	ops, err := e.updateParser.ParseUpdate(update, e.base, e.prefixes)
	if err != nil {
		return nil, err
	}
	return e.PrepareUpdate(ops), nil
}

// PrepareUpdate wraps an already-parsed operation list.
func (e *Evaluator) PrepareUpdate(ops []sparqlalgebra.Update) *PreparedUpdate {
	return &PreparedUpdate{ev: e, ops: ops}
}

func (e *Evaluator) planOptions(collectStats bool) planexec.Options {
	return planexec.Options{
		Base:             e.base,
		Now:              nowDateTime(),
		Custom:           e.custom,
		CustomAggregates: e.customAggs,
		Services:         e.services,
		DefaultService:   e.defaultService,
		CollectStats:     collectStats,
	}
}

func nowDateTime() term.DateTime {
	t := time.Now()
	_, offset := t.Zone()
	return term.DateTime{
		Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
		Nanos: t.Nanosecond(), HasTZ: true, TZOffsetMinutes: offset / 60,
	}
}

// PreparedQuery is a parsed query awaiting a store.
type PreparedQuery struct {
	ev    *Evaluator
	query *sparqlalgebra.Query
}

// OnStore binds the query to a store.
func (pq *PreparedQuery) OnStore(s *storage.Store) *BoundQuery {
	return &BoundQuery{ev: pq.ev, query: pq.query, store: s}
}

// BoundQuery is ready to execute.
type BoundQuery struct {
	ev            *Evaluator
	query         *sparqlalgebra.Query
	store         *storage.Store
	substitutions map[sparqlalgebra.Variable]term.Value
}

// WithSubstitutions pre-binds variables, applied as if a top-level
// VALUES clause bound them.
func (bq *BoundQuery) WithSubstitutions(subs map[sparqlalgebra.Variable]term.Value) *BoundQuery {
	bq.substitutions = subs
	return bq
}

func (bq *BoundQuery) checkSubstitutions() error {
	if len(bq.substitutions) == 0 {
		return nil
	}
	projected := bq.query.ProjectedVariables()
	if projected == nil {
		return nil
	}
	allowed := make(map[sparqlalgebra.Variable]bool, len(projected))
	for _, v := range projected {
		allowed[v] = true
	}
	for v := range bq.substitutions {
		if !allowed[v] {
			return &sparqlerr.NotExistingSubstitutedVariableError{Variable: string(v)}
		}
	}
	return nil
}

func (bq *BoundQuery) open(collectStats bool) (*dataset.View, *planexec.Evaluator, error) {
	r, err := bq.store.Snapshot()
	if err != nil {
		return nil, nil, err
	}
	var spec *dataset.Spec
	if ds := bq.query.Dataset; ds != nil {
		spec = &dataset.Spec{DefaultGraphs: ds.DefaultGraphs, NamedGraphs: ds.NamedGraphs}
	}
	view, err := dataset.NewView(r, spec)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	return view, planexec.NewEvaluator(view, bq.ev.planOptions(collectStats)), nil
}

// Execute runs the query. The returned results own a snapshot; Close
// them to release it.
func (bq *BoundQuery) Execute(ctx context.Context) (*QueryResults, error) {
	if err := bq.checkSubstitutions(); err != nil {
		return nil, err
	}
	view, ev, err := bq.open(false)
	if err != nil {
		return nil, err
	}
	in := planexec.Solution{}
	for v, t := range bq.substitutions {
		in[v] = t
	}
	return newResults(ctx, bq.query, view, ev, in)
}

// Explain renders the plan tree; with stats, the query runs to
// exhaustion first and per-node row counts are appended.
func (bq *BoundQuery) Explain(ctx context.Context, withStats bool) (string, error) {
	out := bq.query.Pattern.String()
	if !withStats {
		return out, nil
	}
	view, ev, err := bq.open(true)
	if err != nil {
		return "", err
	}
	defer view.Reader().Close()
	it := ev.Eval(bq.query.Pattern, nil)
	for it.Next(ctx) {
	}
	it.Close()
	if err := it.Err(); err != nil {
		return "", err
	}
	return out + "\n" + ev.Stats(), nil
}

// PreparedUpdate is a parsed operation list awaiting a store.
type PreparedUpdate struct {
	ev  *Evaluator
	ops []sparqlalgebra.Update
}

// OnStore binds the update to a store.
func (pu *PreparedUpdate) OnStore(s *storage.Store) *BoundUpdate {
	return &BoundUpdate{ev: pu.ev, ops: pu.ops, store: s}
}

// BoundUpdate is ready to execute.
type BoundUpdate struct {
	ev            *Evaluator
	ops           []sparqlalgebra.Update
	store         *storage.Store
	substitutions map[sparqlalgebra.Variable]term.Value
}

// WithSubstitutions pre-binds WHERE variables before execution.
func (bu *BoundUpdate) WithSubstitutions(subs map[sparqlalgebra.Variable]term.Value) *BoundUpdate {
	bu.substitutions = subs
	return bu
}

// Execute runs the operations in order, one transaction each.
func (bu *BoundUpdate) Execute(ctx context.Context) error {
	x := sparqlupdate.New(bu.store, sparqlupdate.Options{
		Plan:          bu.ev.planOptions(false),
		Loader:        bu.ev.loader,
		Substitutions: bu.substitutions,
	})
	return x.Execute(ctx, bu.ops)
}
