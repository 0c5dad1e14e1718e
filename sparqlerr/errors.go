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

// Package sparqlerr defines the evaluation and update error taxonomy:
// named conditions surfaced to the caller, in the same small-sentinel
// style as storeerr. Expression-level errors are NOT here; those are
// value-absence inside the evaluator, never raised.
package sparqlerr

import (
	"errors"
	"fmt"

	"github.com/oxigraph/oxigraph-go/term"
)

var (
	// ErrUnboundService is a SERVICE whose name variable is unbound.
	ErrUnboundService = errors.New("sparqlerr: unbound service name")
	// ErrUnexpectedDefaultGraph flags an upstream invariant violation: a
	// default-graph marker arriving where a concrete graph was required.
	ErrUnexpectedDefaultGraph = errors.New("sparqlerr: unexpected default graph")
	// ErrInvalidStorageTripleTerm flags a stored RDF 1.2 triple term in a
	// position the data model forbids.
	ErrInvalidStorageTripleTerm = errors.New("sparqlerr: invalid storage triple term")
)

// UnsupportedServiceError is a SERVICE call naming an endpoint no
// handler accepts.
type UnsupportedServiceError struct {
	IRI term.IRI
}

func (e *UnsupportedServiceError) Error() string {
	return fmt.Sprintf("sparqlerr: unsupported service %s", e.IRI)
}

// InvalidServiceNameError is a SERVICE whose bound name is not an IRI.
type InvalidServiceNameError struct {
	Term term.Value
}

func (e *InvalidServiceNameError) Error() string {
	return fmt.Sprintf("sparqlerr: invalid service name %s", e.Term)
}

// NotExistingSubstitutedVariableError is a pre-binding for a variable
// the query does not project.
type NotExistingSubstitutedVariableError struct {
	Variable string
}

func (e *NotExistingSubstitutedVariableError) Error() string {
	return fmt.Sprintf("sparqlerr: substituted variable ?%s does not exist in the query", e.Variable)
}

// UnsupportedContentTypeError is a LOAD whose document carries a media
// type no registered parser understands.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("sparqlerr: unsupported content type %q", e.ContentType)
}
