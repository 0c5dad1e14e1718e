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

import (
	"fmt"
	"strings"

	"github.com/oxigraph/oxigraph-go/term"
)

// PathExpression is a property-path over predicate IRIs.
type PathExpression interface {
	fmt.Stringer
	isPath()
}

// PredicatePath matches one predicate edge.
type PredicatePath struct {
	Predicate term.IRI
}

// InversePath matches Path from object to subject.
type InversePath struct {
	Path PathExpression
}

// SequencePath matches First then Second.
type SequencePath struct {
	First, Second PathExpression
}

// AlternativePath matches either branch.
type AlternativePath struct {
	First, Second PathExpression
}

// NegatedPropertySet matches any edge whose predicate is in neither
// partition: Direct lists forward-excluded IRIs, Inverse the
// backward-excluded ones.
type NegatedPropertySet struct {
	Direct  []term.IRI
	Inverse []term.IRI
}

// ZeroOrMorePath is p*.
type ZeroOrMorePath struct {
	Path PathExpression
}

// OneOrMorePath is p+.
type OneOrMorePath struct {
	Path PathExpression
}

// ZeroOrOnePath is p?.
type ZeroOrOnePath struct {
	Path PathExpression
}

func (PredicatePath) isPath()      {}
func (InversePath) isPath()        {}
func (SequencePath) isPath()       {}
func (AlternativePath) isPath()    {}
func (NegatedPropertySet) isPath() {}
func (ZeroOrMorePath) isPath()     {}
func (OneOrMorePath) isPath()      {}
func (ZeroOrOnePath) isPath()      {}

func (p PredicatePath) String() string   { return p.Predicate.String() }
func (p InversePath) String() string     { return "^" + p.Path.String() }
func (p SequencePath) String() string    { return "(" + p.First.String() + "/" + p.Second.String() + ")" }
func (p AlternativePath) String() string { return "(" + p.First.String() + "|" + p.Second.String() + ")" }
func (p NegatedPropertySet) String() string {
	parts := make([]string, 0, len(p.Direct)+len(p.Inverse))
	for _, iri := range p.Direct {
		parts = append(parts, iri.String())
	}
	for _, iri := range p.Inverse {
		parts = append(parts, "^"+iri.String())
	}
	return "!(" + strings.Join(parts, "|") + ")"
}
func (p ZeroOrMorePath) String() string { return p.Path.String() + "*" }
func (p OneOrMorePath) String() string  { return p.Path.String() + "+" }
func (p ZeroOrOnePath) String() string  { return p.Path.String() + "?" }
