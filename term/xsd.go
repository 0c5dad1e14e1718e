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

// Well-known datatype and RDF vocabulary IRIs recognized by the term
// encoder's inline-value fast paths.
const (
	xsdNS = "http://www.w3.org/2001/XMLSchema#"
	rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	XSDString     IRI = xsdNS + "string"
	XSDBoolean    IRI = xsdNS + "boolean"
	XSDInteger    IRI = xsdNS + "integer"
	XSDDecimal    IRI = xsdNS + "decimal"
	XSDFloat      IRI = xsdNS + "float"
	XSDDouble     IRI = xsdNS + "double"
	XSDDateTime   IRI = xsdNS + "dateTime"
	XSDDate       IRI = xsdNS + "date"
	XSDTime       IRI = xsdNS + "time"
	XSDDuration   IRI = xsdNS + "duration"
	XSDYMDuration IRI = xsdNS + "yearMonthDuration"
	XSDDTDuration IRI = xsdNS + "dayTimeDuration"
	XSDGYear      IRI = xsdNS + "gYear"
	XSDGMonth     IRI = xsdNS + "gMonth"
	XSDGDay       IRI = xsdNS + "gDay"
	XSDGYearMonth IRI = xsdNS + "gYearMonth"
	XSDGMonthDay  IRI = xsdNS + "gMonthDay"

	RDFLangString    IRI = rdfNS + "langString"
	RDFDirLangString IRI = rdfNS + "dirLangString"
)

// NumericDatatypes are the types participating in the numeric
// promotion tower integer -> decimal -> float -> double.
var NumericDatatypes = map[IRI]bool{
	XSDInteger: true,
	XSDDecimal: true,
	XSDFloat:   true,
	XSDDouble:  true,
}

// TemporalDatatypes are the types with a dedicated inline numeric
// encoding and date-arithmetic support.
var TemporalDatatypes = map[IRI]bool{
	XSDDateTime:   true,
	XSDDate:       true,
	XSDTime:       true,
	XSDDuration:   true,
	XSDYMDuration: true,
	XSDDTDuration: true,
	XSDGYear:      true,
	XSDGMonth:     true,
	XSDGDay:       true,
	XSDGYearMonth: true,
	XSDGMonthDay:  true,
}

// IsNumeric reports whether dt participates in numeric promotion.
func IsNumeric(dt IRI) bool { return NumericDatatypes[dt] }

// IsRecognizedXSD reports whether dt is one of the XSD types the term
// encoder canonicalizes and stores inline rather than falling through to
// OtherTypedLiteral.
func IsRecognizedXSD(dt IRI) bool {
	return dt == XSDString || dt == XSDBoolean || NumericDatatypes[dt] || TemporalDatatypes[dt]
}
