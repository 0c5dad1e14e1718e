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

package sparqlexpr

import "strings"

// TotalCompare is SPARQL's total order on terms for ORDER BY:
// unbound < blank nodes < IRIs < literals, with value comparison inside
// comparable literal groups and a stable lexical fallback everywhere
// else.
func TotalCompare(a, b *Term) int {
	ra, rb := orderRank(a), orderRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if a == nil {
		return 0
	}
	switch ra {
	case 1, 2: // blank nodes, IRIs
		return strings.Compare(a.Str, b.Str)
	default:
		if c, ok := a.Compare(*b); ok {
			if c != 0 {
				return c
			}
			return 0
		}
		// Incomparable literals: order by datatype IRI, then lexical form,
		// so the sort is still total and deterministic.
		if c := strings.Compare(string(a.DatatypeIRI()), string(b.DatatypeIRI())); c != 0 {
			return c
		}
		return strings.Compare(a.LexicalString(), b.LexicalString())
	}
}

func orderRank(t *Term) int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case KindBlankNode:
		return 1
	case KindNamedNode:
		return 2
	case KindTriple:
		return 4
	default:
		return 3
	}
}
