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

package sparqlalgebra

import "github.com/oxigraph/oxigraph-go/term"

// DatasetSpec is the query's FROM / FROM NAMED clause. A nil slice
// means "unspecified" (the default RDF dataset for that half).
type DatasetSpec struct {
	DefaultGraphs []term.IRI
	NamedGraphs   []term.IRI
}

// QueryForm discriminates the four query shapes.
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormConstruct
	FormDescribe
	FormAsk
)

// Query is a parsed query: its form, dataset spec and root pattern.
type Query struct {
	Form    QueryForm
	Dataset *DatasetSpec
	Pattern Pattern

	// Template instantiates CONSTRUCT output; for DESCRIBE the resources
	// to describe come from the projected variables and Resources.
	Template  []TriplePattern
	Resources []term.Value

	// Base IRI used when the parser resolved relative IRIs, kept for IRI().
	Base string
}

// ProjectedVariables returns the variables of the outermost projection,
// walking through the solution modifiers that wrap it.
func (q *Query) ProjectedVariables() []Variable {
	return projectedVariables(q.Pattern)
}

func projectedVariables(p Pattern) []Variable {
	switch n := p.(type) {
	case Project:
		return n.Vars
	case Distinct:
		return projectedVariables(n.Inner)
	case Reduced:
		return projectedVariables(n.Inner)
	case Slice:
		return projectedVariables(n.Inner)
	case OrderBy:
		return projectedVariables(n.Inner)
	default:
		return nil
	}
}

// QuadTemplate is one quad of an update's DELETE/INSERT template; any
// position may hold a variable or (for subject/object) a blank node to
// be re-labeled per solution.
type QuadTemplate struct {
	Subject   TermOrVar
	Predicate TermOrVar
	Object    TermOrVar
	Graph     TermOrVar // Term == term.DefaultGraph for the default graph
}

// GraphTarget names the object of CLEAR/DROP: one graph, the default
// graph, all named graphs, or everything.
type GraphTarget struct {
	Graph term.GraphName // nil unless Kind == TargetGraph
	Kind  TargetKind
}

// TargetKind discriminates GraphTarget.
type TargetKind int

const (
	TargetGraph TargetKind = iota
	TargetDefault
	TargetNamed
	TargetAll
)

// Update is one SPARQL Update operation.
type Update interface {
	isUpdate()
}

// InsertData inserts literal quads.
type InsertData struct {
	Quads []term.Quad
}

// DeleteData removes literal quads.
type DeleteData struct {
	Quads []term.Quad
}

// DeleteInsert is the template-driven modify operation.
type DeleteInsert struct {
	Delete []QuadTemplate
	Insert []QuadTemplate
	Where  Pattern
	Using  *DatasetSpec
}

// Load fetches and parses the document at Source into Destination
// (nil = the default graph).
type Load struct {
	Source      term.IRI
	Destination term.GraphName
	Silent      bool
}

// Clear removes the target's quads, keeping graph registrations.
type Clear struct {
	Target GraphTarget
	Silent bool
}

// Create registers a new named graph.
type Create struct {
	Graph  term.GraphName
	Silent bool
}

// Drop clears and unregisters the target.
type Drop struct {
	Target GraphTarget
	Silent bool
}

// Copy clears To then inserts all of From.
type Copy struct {
	From, To term.GraphName
	Silent   bool
}

// Move is Copy followed by clearing From.
type Move struct {
	From, To term.GraphName
	Silent   bool
}

// Add inserts all of From into To without clearing.
type Add struct {
	From, To term.GraphName
	Silent   bool
}

func (InsertData) isUpdate()   {}
func (DeleteData) isUpdate()   {}
func (DeleteInsert) isUpdate() {}
func (Load) isUpdate()         {}
func (Clear) isUpdate()        {}
func (Create) isUpdate()       {}
func (Drop) isUpdate()         {}
func (Copy) isUpdate()         {}
func (Move) isUpdate()         {}
func (Add) isUpdate()          {}
