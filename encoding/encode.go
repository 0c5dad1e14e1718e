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

package encoding

import (
	"github.com/oxigraph/oxigraph-go/dictionary"
	"github.com/oxigraph/oxigraph-go/kvstore"
	"github.com/oxigraph/oxigraph-go/term"
)

// Encoder turns term.Value into EncodedTerm, content-addressing
// anything too large to inline through a dictionary.Dictionary. The
// encoding itself is the pure EncodeTerm function; the Encoder's job is
// to persist the string refs that encoding produced, keeping the
// invariant that every stored hash resolves.
type Encoder struct {
	dict *dictionary.Dictionary
}

// NewEncoder builds an Encoder backed by dict.
func NewEncoder(dict *dictionary.Dictionary) *Encoder {
	return &Encoder{dict: dict}
}

// Encode converts v into its compact representation, writing any large
// literal, IRI or blank node string into the dictionary.
func (e *Encoder) Encode(tx kvstore.BucketTx, v term.Value) (EncodedTerm, error) {
	if term.IsDefaultGraph(v) {
		return EncodedTerm{Kind: KindDefaultGraph}, nil
	}
	et, refs, err := EncodeTerm(v)
	if err != nil {
		return EncodedTerm{}, err
	}
	if err := e.insertRefs(tx, refs); err != nil {
		return EncodedTerm{}, err
	}
	return et, nil
}

func (e *Encoder) insertRefs(tx kvstore.BucketTx, refs []StringRef) error {
	for _, r := range refs {
		if _, err := e.dict.Insert(tx, r.Value); err != nil {
			return err
		}
	}
	return nil
}
