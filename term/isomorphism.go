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

import "sort"

// IsomorphicQuads reports whether a and b are equal as sets of quads
// up to a consistent renaming of blank nodes. It backs
// blank-node-insensitive dataset equality in tests and is not part of
// the public store/evaluator surface.
func IsomorphicQuads(a, b []Quad) bool {
	if len(a) != len(b) {
		return false
	}
	mapping := map[BlankNode]BlankNode{}
	used := map[BlankNode]bool{}
	remaining := append([]Quad(nil), b...)

	var tryMatch func(idx int) bool
	tryMatch = func(idx int) bool {
		if idx == len(a) {
			return len(remaining) == 0
		}
		q := a[idx]
		for i, cand := range remaining {
			undoMap := map[BlankNode]BlankNode{}
			undoUsed := []BlankNode{}
			ok := quadMatches(q, cand, mapping, used, undoMap, &undoUsed)
			if ok {
				remaining[i] = remaining[len(remaining)-1]
				remaining = remaining[:len(remaining)-1]
				if tryMatch(idx + 1) {
					return true
				}
				remaining = append(remaining, cand)
				copy(remaining[i+1:], remaining[i:len(remaining)-1])
				remaining[i] = cand
			}
			for k, v := range undoMap {
				_ = v
				delete(mapping, k)
			}
			for _, b := range undoUsed {
				delete(used, b)
			}
		}
		return false
	}
	sort.Slice(a, func(i, j int) bool { return a[i].String() < a[j].String() })
	return tryMatch(0)
}

func quadMatches(a, b Quad, mapping map[BlankNode]BlankNode, used map[BlankNode]bool, undoMap map[BlankNode]BlankNode, undoUsed *[]BlankNode) bool {
	match := func(av, bv Value) bool {
		return valueMatches(av, bv, mapping, used, undoMap, undoUsed)
	}
	return match(a.Subject, b.Subject) && a.Predicate == b.Predicate &&
		match(a.Object, b.Object) && match(a.Graph, b.Graph)
}

func valueMatches(a, b Value, mapping map[BlankNode]BlankNode, used map[BlankNode]bool, undoMap map[BlankNode]BlankNode, undoUsed *[]BlankNode) bool {
	ab, aIsBlank := a.(BlankNode)
	bb, bIsBlank := b.(BlankNode)
	if aIsBlank != bIsBlank {
		return false
	}
	if !aIsBlank {
		return a == b
	}
	if existing, ok := mapping[ab]; ok {
		return existing == bb
	}
	if used[bb] {
		return false
	}
	mapping[ab] = bb
	used[bb] = true
	undoMap[ab] = bb
	*undoUsed = append(*undoUsed, bb)
	return true
}
