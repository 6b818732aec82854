// Package tagexpr evaluates the boolean tag-expression language used to
// scope hooks to scenarios (spec §4.4, §9): identifiers ("@foo"), "not",
// "and", "or", and grouping parentheses, evaluated short-circuit over
// membership in a scenario's tag set. An empty expression always
// evaluates true.
//
// The grammar is implemented by github.com/cucumber/tag-expressions,
// already present (but unused) in the teacher's dependency graph — using
// it directly is preferable to hand-rolling the recursive-descent parser
// spec §9 sketches, since it is the canonical implementation of exactly
// this language across the Cucumber ecosystem.
package tagexpr

import (
	tagexpressions "github.com/cucumber/tag-expressions/go/v6"
)

// Expression is a compiled, re-usable tag expression.
type Expression struct {
	evaluatable tagexpressions.Evaluatable
}

// Parse compiles a tag expression. An empty string compiles to an
// expression that always evaluates true.
func Parse(expr string) (*Expression, error) {
	if expr == "" {
		return &Expression{}, nil
	}
	evaluatable, err := tagexpressions.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Expression{evaluatable: evaluatable}, nil
}

// Evaluate reports whether tags satisfy the expression.
func (e *Expression) Evaluate(tags []string) bool {
	if e == nil || e.evaluatable == nil {
		return true
	}
	return e.evaluatable.Evaluate(tags)
}

// MustParse is Parse, panicking on error. Intended for hooks registered
// with literal tag expressions known to be valid at compile time.
func MustParse(expr string) *Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}
