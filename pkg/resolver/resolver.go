// Package resolver implements the step-match resolution policy of spec
// §4.2: given a step line, find the step definitions whose pattern fully
// matches and whose keyword is compatible, and classify the result as
// exactly one match, no match, or an ambiguity.
package resolver

import (
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/glue"
)

// ArgumentKind discriminates a StepArgument's variant (spec §3).
type ArgumentKind int

const (
	Expression ArgumentKind = iota
	DocStringArg
	DataTableArg
)

// StepArgument is one positional argument produced by a successful match:
// either a captured regex group (in capture order) or, trailing all
// captures, the step's docstring/table argument if it carries one.
type StepArgument struct {
	Kind      ArgumentKind
	Text      string // set when Kind == Expression
	DocString *cuke.DocString
	DataTable *cuke.DataTable
}

// MatchKind discriminates a StepMatch's variant.
type MatchKind int

const (
	Matched MatchKind = iota
	NoneMatching
	AmbiguousMatch
)

// Candidate is one step definition that matched a step's text (and
// keyword) during ambiguity detection.
type Candidate struct {
	Definition *glue.StaticStepDescriptor
}

// StepMatch is the resolver's verdict for one CukeStep.
type StepMatch struct {
	Kind       MatchKind
	Definition *glue.StaticStepDescriptor
	Arguments  []StepArgument
	Candidates []Candidate // populated when Kind == AmbiguousMatch
}

// Resolver is pure and re-entrant: resolving the same step text against
// the same Glue always yields the same classification (spec §8
// invariant 2).
type Resolver struct {
	g *glue.Glue
}

func New(g *glue.Glue) *Resolver {
	return &Resolver{g: g}
}

// Resolve finds the step definitions applicable to step and classifies
// the result per spec §4.2.
func (r *Resolver) Resolve(step cuke.CukeStep) StepMatch {
	var candidates []*glue.StaticStepDescriptor
	var firstSubmatch []string

	for i := range r.g.Steps() {
		def := &r.g.Steps()[i]
		if !keywordCompatible(def.Keyword, step.Keyword) {
			continue
		}
		submatch := def.Expression.FindStringSubmatch(step.Text)
		if submatch == nil {
			continue
		}
		candidates = append(candidates, def)
		if len(candidates) == 1 {
			firstSubmatch = submatch
		}
	}

	switch len(candidates) {
	case 0:
		return StepMatch{Kind: NoneMatching}
	case 1:
		return StepMatch{
			Kind:       Matched,
			Definition: candidates[0],
			Arguments:  buildArguments(firstSubmatch, step),
		}
	default:
		cs := make([]Candidate, len(candidates))
		for i, c := range candidates {
			cs[i] = Candidate{Definition: c}
		}
		return StepMatch{Kind: AmbiguousMatch, Candidates: cs}
	}
}

// keywordCompatible implements the Star-wildcard matching rule of spec
// §4.2/§9: a definition applies if its declared keyword equals the
// step's keyword, or the definition was registered with Star.
func keywordCompatible(defKeyword, stepKeyword cuke.Keyword) bool {
	return defKeyword == cuke.Star || defKeyword == stepKeyword
}

// buildArguments assembles the ordered argument vector for a matched
// step: one Expression per capture group, then an optional trailing
// DocString/DataTable (spec §4.2).
func buildArguments(submatches []string, step cuke.CukeStep) []StepArgument {
	var args []StepArgument
	if len(submatches) > 1 {
		args = make([]StepArgument, 0, len(submatches)-1+1)
		for _, capture := range submatches[1:] {
			args = append(args, StepArgument{Kind: Expression, Text: capture})
		}
	}

	if step.Argument.HasValue() {
		switch {
		case step.Argument.DocString != nil:
			args = append(args, StepArgument{Kind: DocStringArg, DocString: step.Argument.DocString})
		case step.Argument.DataTable != nil:
			args = append(args, StepArgument{Kind: DataTableArg, DataTable: step.Argument.DataTable})
		}
	}
	return args
}
