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

// Expression is a node of the expression AST.
type Expression interface {
	fmt.Stringer
	isExpression()
}

// TermExpr is a constant term.
type TermExpr struct {
	Value term.Value
}

// VarExpr references a variable of the current solution.
type VarExpr struct {
	Name Variable
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpUnaryPlus
	OpUnaryMinus
)

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op UnaryOp
	X  Expression
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpSameTerm
)

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op   BinaryOp
	X, Y Expression
}

// InExpr is X IN (...) / X NOT IN (...).
type InExpr struct {
	X       Expression
	List    []Expression
	Negated bool
}

// IfExpr is IF(cond, then, else).
type IfExpr struct {
	Cond, Then, Else Expression
}

// CoalesceExpr returns the first argument that evaluates without error.
type CoalesceExpr struct {
	Args []Expression
}

// ExistsExpr is EXISTS / NOT EXISTS over a nested pattern, evaluated
// against the current solution's bindings.
type ExistsExpr struct {
	Pattern Pattern
	Negated bool
}

// FunctionCall invokes a built-in function.
type FunctionCall struct {
	Function Function
	Args     []Expression
}

// NamedFunctionCall invokes a custom function or an XSD cast by IRI.
type NamedFunctionCall struct {
	Name term.IRI
	Args []Expression
}

// Function enumerates the built-in SPARQL functions.
type Function int

const (
	FuncStr Function = iota
	FuncLang
	FuncLangMatches
	FuncLangDir
	FuncDatatype
	FuncIRI
	FuncBNode
	FuncRand
	FuncAbs
	FuncCeil
	FuncFloor
	FuncRound
	FuncConcat
	FuncSubStr
	FuncStrLen
	FuncReplace
	FuncUCase
	FuncLCase
	FuncEncodeForURI
	FuncContains
	FuncStrStarts
	FuncStrEnds
	FuncStrBefore
	FuncStrAfter
	FuncYear
	FuncMonth
	FuncDay
	FuncHours
	FuncMinutes
	FuncSeconds
	FuncTimezone
	FuncTz
	FuncNow
	FuncAdjust
	FuncUUID
	FuncStrUUID
	FuncMD5
	FuncSHA1
	FuncSHA256
	FuncSHA384
	FuncSHA512
	FuncStrLang
	FuncStrLangDir
	FuncStrDt
	FuncIsIRI
	FuncIsBlank
	FuncIsLiteral
	FuncIsNumeric
	FuncHasLang
	FuncHasLangDir
	FuncIsTriple
	FuncBound
	FuncRegex
	FuncTriple
	FuncSubject
	FuncPredicate
	FuncObject
)

func (TermExpr) isExpression()          {}
func (VarExpr) isExpression()           {}
func (UnaryExpr) isExpression()         {}
func (BinaryExpr) isExpression()        {}
func (InExpr) isExpression()            {}
func (IfExpr) isExpression()            {}
func (CoalesceExpr) isExpression()      {}
func (ExistsExpr) isExpression()        {}
func (FunctionCall) isExpression()      {}
func (NamedFunctionCall) isExpression() {}

func (e TermExpr) String() string { return e.Value.String() }
func (e VarExpr) String() string  { return e.Name.String() }
func (e UnaryExpr) String() string {
	switch e.Op {
	case OpNot:
		return "!" + e.X.String()
	case OpUnaryMinus:
		return "-" + e.X.String()
	default:
		return "+" + e.X.String()
	}
}

var binaryOpNames = map[BinaryOp]string{
	OpAnd: "&&", OpOr: "||", OpEqual: "=", OpNotEqual: "!=",
	OpLess: "<", OpLessOrEqual: "<=", OpGreater: ">", OpGreaterOrEqual: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpSameTerm: "sameTerm",
}

func (e BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.X, binaryOpNames[e.Op], e.Y)
}
func (e InExpr) String() string {
	parts := make([]string, len(e.List))
	for i, a := range e.List {
		parts[i] = a.String()
	}
	not := ""
	if e.Negated {
		not = "NOT "
	}
	return fmt.Sprintf("(%s %sIN (%s))", e.X, not, strings.Join(parts, ", "))
}
func (e IfExpr) String() string { return fmt.Sprintf("IF(%s, %s, %s)", e.Cond, e.Then, e.Else) }
func (e CoalesceExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return "COALESCE(" + strings.Join(parts, ", ") + ")"
}
func (e ExistsExpr) String() string {
	if e.Negated {
		return fmt.Sprintf("NOT EXISTS { %s }", e.Pattern)
	}
	return fmt.Sprintf("EXISTS { %s }", e.Pattern)
}
func (e FunctionCall) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("fn:%d(%s)", int(e.Function), strings.Join(parts, ", "))
}
func (e NamedFunctionCall) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
}
