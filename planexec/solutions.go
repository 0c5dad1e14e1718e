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

// Package planexec implements the plan executor: the evaluator of
// SPARQL algebra trees as lazy, pull-based solution streams over a
// dataset view. Every operator exposes the same iterator shape
// (Next(ctx)/Err/Close/Binding) and composes by wrapping its inputs.
package planexec

import (
	"context"
	"sort"
	"strings"

	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/term"
)

// Solution is one row: a variable → term binding map. A missing key is
// an unbound variable.
type Solution map[sparqlalgebra.Variable]term.Value

// Get implements sparqlexpr.Tuple.
func (s Solution) Get(v sparqlalgebra.Variable) (term.Value, bool) {
	t, ok := s[v]
	return t, ok
}

// Clone copies the solution.
func (s Solution) Clone() Solution {
	out := make(Solution, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Compatible reports whether two solutions agree on every shared
// variable (the SPARQL join condition).
func (s Solution) Compatible(o Solution) bool {
	for k, v := range s {
		if ov, ok := o[k]; ok && !sameValue(v, ov) {
			return false
		}
	}
	return true
}

// SharesVariable reports whether the two domains intersect.
func (s Solution) SharesVariable(o Solution) bool {
	for k := range s {
		if _, ok := o[k]; ok {
			return true
		}
	}
	return false
}

// Merge returns s extended with o's bindings; nil when incompatible.
func (s Solution) Merge(o Solution) Solution {
	if !s.Compatible(o) {
		return nil
	}
	out := s.Clone()
	for k, v := range o {
		out[k] = v
	}
	return out
}

func sameValue(a, b term.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// key renders the solution canonically for duplicate detection.
func (s Solution) key() string {
	vars := make([]string, 0, len(s))
	for k := range s {
		vars = append(vars, string(k))
	}
	sort.Strings(vars)
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(v)
		b.WriteByte('=')
		b.WriteString(s[sparqlalgebra.Variable(v)].String())
		b.WriteByte(';')
	}
	return b.String()
}

// Solutions is the lazy solution stream every algebra node evaluates
// to. Close must release all nested resources deterministically, not at
// GC time.
type Solutions interface {
	Next(ctx context.Context) bool
	Err() error
	Close() error
	Binding() Solution
}

// sliceSolutions iterates a materialized slice.
type sliceSolutions struct {
	rows []Solution
	pos  int
}

func newSliceSolutions(rows []Solution) *sliceSolutions {
	return &sliceSolutions{rows: rows, pos: -1}
}

func (s *sliceSolutions) Next(ctx context.Context) bool {
	if ctx.Err() != nil || s.pos+1 >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}
func (s *sliceSolutions) Err() error        { return nil }
func (s *sliceSolutions) Close() error      { return nil }
func (s *sliceSolutions) Binding() Solution { return s.rows[s.pos] }

// errSolutions fails immediately.
type errSolutions struct{ err error }

func (s *errSolutions) Next(ctx context.Context) bool { return false }
func (s *errSolutions) Err() error                    { return s.err }
func (s *errSolutions) Close() error                  { return nil }
func (s *errSolutions) Binding() Solution             { return nil }

// funcSolutions adapts a pull function plus cleanup into Solutions.
type funcSolutions struct {
	next    func(ctx context.Context) (Solution, bool, error)
	cleanup func() error

	cur    Solution
	err    error
	closed bool
}

func (s *funcSolutions) Next(ctx context.Context) bool {
	if s.err != nil || s.closed {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return false
	}
	row, ok, err := s.next(ctx)
	if err != nil {
		s.err = err
		return false
	}
	if !ok {
		return false
	}
	s.cur = row
	return true
}

func (s *funcSolutions) Err() error { return s.err }

func (s *funcSolutions) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cleanup != nil {
		return s.cleanup()
	}
	return nil
}

func (s *funcSolutions) Binding() Solution { return s.cur }

// drain materializes the stream and closes it.
func drain(ctx context.Context, it Solutions) ([]Solution, error) {
	defer it.Close()
	var out []Solution
	for it.Next(ctx) {
		out = append(out, it.Binding())
	}
	return out, it.Err()
}

// countingSolutions wraps a node's stream to record how many rows it
// produced, backing explain-with-statistics output.
type countingSolutions struct {
	Solutions
	n *int64
}

func (c *countingSolutions) Next(ctx context.Context) bool {
	ok := c.Solutions.Next(ctx)
	if ok {
		*c.n++
	}
	return ok
}
