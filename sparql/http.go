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

package sparql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oxigraph/oxigraph-go/planexec"
	"github.com/oxigraph/oxigraph-go/sparqlalgebra"
	"github.com/oxigraph/oxigraph-go/term"
)

// PatternSerializer renders the SERVICE inner pattern back into SPARQL
// query text; it is supplied by the external parser/serializer layer,
// since the SPARQL text syntax lives outside the core.
type PatternSerializer interface {
	SerializePattern(p sparqlalgebra.Pattern) (string, error)
}

// ResultsDecoder parses a SPARQL results document (e.g. SPARQL JSON)
// into solutions; also external.
type ResultsDecoder interface {
	DecodeSolutions(contentType string, body io.Reader) (planexec.Solutions, error)
}

// HTTPServiceHandler is the default SERVICE transport: POST the inner
// pattern as a sub-query to the endpoint and decode the response. The
// timeout and redirect limit come from the evaluator builder.
type HTTPServiceHandler struct {
	client     *http.Client
	serializer PatternSerializer
	decoder    ResultsDecoder
}

// NewHTTPServiceHandler wires the transport from the evaluator's HTTP
// settings and the external serializer/decoder pair.
func (e *Evaluator) NewHTTPServiceHandler(serializer PatternSerializer, decoder ResultsDecoder) *HTTPServiceHandler {
	redirects := e.httpRedirects
	return &HTTPServiceHandler{
		client: &http.Client{
			Timeout: e.httpTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= redirects {
					return fmt.Errorf("sparql: stopped after %d redirects", redirects)
				}
				return nil
			},
		},
		serializer: serializer,
		decoder:    decoder,
	}
}

// Query implements planexec.ServiceHandler.
func (h *HTTPServiceHandler) Query(ctx context.Context, name term.IRI, pattern sparqlalgebra.Pattern, silent bool) (planexec.Solutions, error) {
	query, err := h.serializer.SerializePattern(pattern)
	if err != nil {
		return nil, err
	}
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, string(name), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("sparql: service %s answered %s", name, resp.Status)
	}
	return h.decoder.DecodeSolutions(resp.Header.Get("Content-Type"), resp.Body)
}
