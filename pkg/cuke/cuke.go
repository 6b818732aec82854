// Package cuke holds the data model produced by the parser/cuke-compiler
// collaborator (see pkg/gherkinsrc) and consumed by the execution engine.
// Values here are immutable once produced: a Cuke is built once per
// scenario and never mutated during execution.
package cuke

import "strconv"

// Keyword is the Gherkin step keyword a step definition declares.
// Star matches any keyword when registered on a step definition; it is
// never the keyword of an executable CukeStep, which always carries the
// concrete keyword derived from the feature text.
type Keyword int

const (
	Given Keyword = iota
	When
	Then
	Star
)

func (k Keyword) String() string {
	switch k {
	case Given:
		return "Given"
	case When:
		return "When"
	case Then:
		return "Then"
	case Star:
		return "*"
	default:
		return "Unknown"
	}
}

// DocString is a free-text argument attached to a step, optionally typed
// with a content-type (e.g. "json").
type DocString struct {
	Content     string
	ContentType string
}

// Row is one row of a DataTable: an ordered list of cell values.
type Row struct {
	Cells []string
}

// DataTable is a table argument attached to a step.
type DataTable struct {
	Rows []Row
}

// Argument is the optional trailing argument a CukeStep may carry, in
// addition to its positional regex captures. At most one of DocString or
// DataTable is set.
type Argument struct {
	DocString *DocString
	DataTable *DataTable
}

// HasValue reports whether the step carries a docstring or table argument.
func (a *Argument) HasValue() bool {
	return a != nil && (a.DocString != nil || a.DataTable != nil)
}

// CukeStep is one line of an executable scenario.
type CukeStep struct {
	Keyword  Keyword
	Text     string
	Argument *Argument
	Location Location
}

// Location is a 1-based source position, shared by CukeStep and the
// descriptors in pkg/glue.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return l.File + ":" + strconv.Itoa(l.Line)
}

// Cuke is a single executable scenario: the flattened result of compiling
// a feature file's AST (expanding Scenario Outline + Examples, composing
// Background/Rule steps ahead of the scenario's own steps). Produced once
// by pkg/gherkinsrc, immutable during execution.
type Cuke struct {
	URI         string
	FeatureName string
	RuleName    string
	Name        string
	Description string
	Tags        []string
	Steps       []CukeStep
}

// HasTag reports whether t is present among the cuke's tags.
func (c *Cuke) HasTag(t string) bool {
	for _, tag := range c.Tags {
		if tag == t {
			return true
		}
	}
	return false
}
